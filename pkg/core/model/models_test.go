package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDate_TruncatesTime(t *testing.T) {
	d := NewDate(time.Date(2025, 6, 14, 17, 45, 3, 0, time.UTC))
	assert.Equal(t, "2025-06-14", d.String())
	assert.True(t, d.Equal(DateOf(2025, time.June, 14)))
}

func TestNewDate_KeepsCalendarDayOfLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	d := NewDate(time.Date(2025, 6, 14, 1, 0, 0, 0, loc))
	assert.Equal(t, "2025-06-14", d.String())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", d.AddDays(1).String())

	_, err = ParseDate("31/01/2025")
	assert.Error(t, err)
}

func TestParseTimeSlot(t *testing.T) {
	tests := []struct {
		input    string
		expected TimeSlot
		wantErr  bool
	}{
		{"Morning", SlotMorning, false},
		{"afternoon", SlotAfternoon, false},
		{" EVENING ", SlotEvening, false},
		{"none", SlotNone, false},
		{"night", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			slot, err := ParseTimeSlot(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidModel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, slot)
		})
	}
}

func validBookingParams() BookingParams {
	return BookingParams{
		ID:        "booking-1",
		Date:      DateOf(2025, time.June, 14),
		Slot:      SlotMorning,
		UserID:    "user-1",
		CreatedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewBooking_Valid(t *testing.T) {
	b, err := NewBooking(validBookingParams())
	require.NoError(t, err)

	assert.Equal(t, "booking-1", b.ID())
	assert.False(t, b.IsAssigned())
	assert.False(t, b.BoatID().IsPresent())
	assert.Equal(t, b.CreatedAt(), b.UpdatedAt())
}

func TestNewBooking_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *BookingParams)
	}{
		{"missing id", func(p *BookingParams) { p.ID = "" }},
		{"missing user", func(p *BookingParams) { p.UserID = " " }},
		{"missing date", func(p *BookingParams) { p.Date = Date{} }},
		{"bad slot", func(p *BookingParams) { p.Slot = "Night" }},
		{"boat without battery", func(p *BookingParams) { p.BoatID = Some("boat-1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validBookingParams()
			tt.mutate(&p)
			_, err := NewBooking(p)
			assert.ErrorIs(t, err, ErrInvalidModel)
		})
	}
}

func TestBooking_WithAssignmentReturnsCopy(t *testing.T) {
	original, err := NewBooking(validBookingParams())
	require.NoError(t, err)

	at := time.Date(2025, 6, 9, 2, 0, 0, 0, time.UTC)
	assigned, err := original.WithAssignment("boat-1", "battery-1", at)
	require.NoError(t, err)

	assert.True(t, assigned.IsAssigned())
	assert.Equal(t, "boat-1", assigned.BoatID().OrElse(""))
	assert.Equal(t, at, assigned.UpdatedAt())
	assert.False(t, original.IsAssigned(), "original must not change")
}

func TestBooking_CancelledCannotBeAssigned(t *testing.T) {
	b, err := NewBooking(validBookingParams())
	require.NoError(t, err)

	cancelled := b.Cancelled(time.Now())
	assert.True(t, cancelled.Deleted())
	assert.False(t, b.Deleted())

	_, err = cancelled.WithAssignment("boat-1", "battery-1", time.Now())
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestBooking_IsMissed(t *testing.T) {
	b, err := NewBooking(validBookingParams())
	require.NoError(t, err)

	assert.False(t, b.IsMissed(DateOf(2025, time.June, 14)))
	assert.True(t, b.IsMissed(DateOf(2025, time.June, 15)))

	assigned, err := b.WithAssignment("boat-1", "battery-1", time.Now())
	require.NoError(t, err)
	assert.False(t, assigned.IsMissed(DateOf(2025, time.June, 15)))
}

func TestNewEquipment_TrimsNameAndCopiesComments(t *testing.T) {
	comments := []string{"new hull"}
	e, err := NewEquipment(EquipmentParams{ID: "eq-1", Kind: KindBoat, Name: "  Osprey ", Comments: comments})
	require.NoError(t, err)

	assert.Equal(t, "Osprey", e.Name())
	comments[0] = "changed"
	assert.Equal(t, []string{"new hull"}, e.Comments())
}

func TestNewEquipment_Invalid(t *testing.T) {
	_, err := NewEquipment(EquipmentParams{ID: "eq-1", Kind: KindBoat, Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidModel)

	_, err = NewEquipment(EquipmentParams{ID: "eq-1", Kind: "kayak", Name: "Osprey"})
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestEquipment_AppendOnlyComments(t *testing.T) {
	e, err := NewEquipment(EquipmentParams{ID: "eq-1", Kind: KindBattery, Name: "B1"})
	require.NoError(t, err)

	first, err := e.WithComment("charged")
	require.NoError(t, err)
	second, err := first.WithComment("swollen cell")
	require.NoError(t, err)

	assert.Empty(t, e.Comments())
	assert.Equal(t, []string{"charged"}, first.Comments())
	assert.Equal(t, []string{"charged", "swollen cell"}, second.Comments())

	_, err = second.WithComment("")
	assert.Error(t, err)
}

func TestEquipment_WithBookingUsed(t *testing.T) {
	e, err := NewEquipment(EquipmentParams{ID: "eq-1", Kind: KindBoat, Name: "Osprey", BookingCount: 4})
	require.NoError(t, err)

	assert.Equal(t, 5, e.WithBookingUsed().BookingCount())
	assert.Equal(t, 4, e.BookingCount())
}

func TestOption(t *testing.T) {
	v, ok := Some("x").Get()
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	assert.Equal(t, "fallback", None[string]().OrElse("fallback"))
	assert.False(t, OptionalString("").IsPresent())
	assert.True(t, OptionalString("id").IsPresent())
}
