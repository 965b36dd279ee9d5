package allocator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/boat-hire/pkg/core/model"
)

var runDate = model.DateOf(2025, time.June, 14)

// newBooking builds an unassigned morning booking on runDate created minutes after 09:00
func newBooking(t *testing.T, id string, minutes int) model.Booking {
	t.Helper()
	b, err := model.NewBooking(model.BookingParams{
		ID:        id,
		Date:      runDate,
		Slot:      model.SlotMorning,
		UserID:    "user-" + id,
		CreatedAt: time.Date(2025, 6, 1, 9, minutes, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

func newBookings(t *testing.T, n int) []model.Booking {
	bookings := make([]model.Booking, n)
	for i := range n {
		bookings[i] = newBooking(t, fmt.Sprintf("b%02d", i+1), i)
	}
	return bookings
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range n {
		out[i] = fmt.Sprintf("%s-%02d", prefix, i+1)
	}
	return out
}

func TestAllocate_ScenarioA_OneBookingShortOfBoats(t *testing.T) {
	pending := newBookings(t, 3)

	plan, err := Allocate(runDate, pending, ids("boat", 2), ids("battery", 3))
	require.NoError(t, err)

	require.Len(t, plan.Assignments, 2)
	require.Len(t, plan.Unallocatable, 1)
	assert.Equal(t, "b03", plan.Unallocatable[0].BookingID)
	assert.Equal(t, ReasonInsufficientEquipment, plan.Unallocatable[0].Reason)
	assert.Equal(t, "user-b03", plan.Unallocatable[0].UserID)
}

func TestAllocate_ScenarioB_NoPendingBookings(t *testing.T) {
	plan, err := Allocate(runDate, nil, ids("boat", 2), ids("battery", 2))
	require.NoError(t, err)

	assert.True(t, plan.IsEmpty())
	assert.NotNil(t, plan.Assignments)
	assert.NotNil(t, plan.Unallocatable)
}

func TestAllocate_AssignsInAscendingIDOrder(t *testing.T) {
	pending := newBookings(t, 2)

	plan, err := Allocate(runDate, pending, []string{"boat-b", "boat-a"}, []string{"bat-2", "bat-1"})
	require.NoError(t, err)

	require.Len(t, plan.Assignments, 2)
	assert.Equal(t, Assignment{BookingID: "b01", UserID: "user-b01", Slot: model.SlotMorning, BoatID: "boat-a", BatteryID: "bat-1"}, plan.Assignments[0])
	assert.Equal(t, Assignment{BookingID: "b02", UserID: "user-b02", Slot: model.SlotMorning, BoatID: "boat-b", BatteryID: "bat-2"}, plan.Assignments[1])
}

func TestAllocate_Deterministic(t *testing.T) {
	pending := newBookings(t, 6)
	boats := []string{"boat-3", "boat-1", "boat-4", "boat-2"}
	batteries := []string{"bat-5", "bat-2", "bat-9"}

	first, err := Allocate(runDate, pending, boats, batteries)
	require.NoError(t, err)

	// Same sets presented in a different order must give the same plan
	second, err := Allocate(runDate, pending, []string{"boat-2", "boat-4", "boat-1", "boat-3"}, []string{"bat-9", "bat-5", "bat-2"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAllocate_Conservation(t *testing.T) {
	tests := []struct {
		name      string
		bookings  int
		boats     int
		batteries int
	}{
		{"plenty", 3, 5, 5},
		{"exact", 4, 4, 4},
		{"boat scarce", 5, 2, 5},
		{"battery scarce", 5, 5, 1},
		{"nothing free", 3, 0, 0},
		{"no bookings", 0, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending := newBookings(t, tt.bookings)
			plan, err := Allocate(runDate, pending, ids("boat", tt.boats), ids("battery", tt.batteries))
			require.NoError(t, err)

			assert.Equal(t, tt.bookings, plan.Len())
			assert.Len(t, plan.Assignments, min(tt.bookings, tt.boats, tt.batteries))
		})
	}
}

func TestAllocate_NoDoubleAllocation(t *testing.T) {
	pending := newBookings(t, 10)
	// Duplicates in the input sets must not lead to the same id being handed out twice
	boats := append(ids("boat", 6), "boat-01", "boat-02")
	batteries := append(ids("battery", 8), "battery-03")

	plan, err := Allocate(runDate, pending, boats, batteries)
	require.NoError(t, err)

	usedBoats := make(map[string]bool)
	usedBatteries := make(map[string]bool)
	for _, a := range plan.Assignments {
		assert.False(t, usedBoats[a.BoatID], "boat %s assigned twice", a.BoatID)
		assert.False(t, usedBatteries[a.BatteryID], "battery %s assigned twice", a.BatteryID)
		usedBoats[a.BoatID] = true
		usedBatteries[a.BatteryID] = true
	}
	assert.Len(t, plan.Assignments, 6)
	assert.Len(t, plan.Unallocatable, 4)
}

func TestAllocate_OldestBookingsWin(t *testing.T) {
	pending := newBookings(t, 7)

	plan, err := Allocate(runDate, pending, ids("boat", 4), ids("battery", 5))
	require.NoError(t, err)

	require.Len(t, plan.Unallocatable, 3)
	for i, u := range plan.Unallocatable {
		assert.Equal(t, pending[4+i].ID(), u.BookingID)
		assert.Equal(t, ReasonInsufficientEquipment, u.Reason)
	}
	for i, a := range plan.Assignments {
		assert.Equal(t, pending[i].ID(), a.BookingID)
	}
}

func TestAllocate_MissingDateIsAnError(t *testing.T) {
	_, err := Allocate(model.Date{}, newBookings(t, 1), ids("boat", 1), ids("battery", 1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAllocate_InvalidBookingsAreReportedAndConsumeNothing(t *testing.T) {
	valid := newBooking(t, "valid", 5)

	otherDay, err := model.NewBooking(model.BookingParams{
		ID: "other-day", Date: runDate.AddDays(1), Slot: model.SlotMorning, UserID: "u",
	})
	require.NoError(t, err)

	cancelled := newBooking(t, "cancelled", 1).Cancelled(time.Now())

	assigned, err := newBooking(t, "assigned", 2).WithAssignment("boat-x", "battery-x", time.Now())
	require.NoError(t, err)

	pending := []model.Booking{model.Booking{}, otherDay, cancelled, assigned, valid, valid}

	plan, err := Allocate(runDate, pending, ids("boat", 1), ids("battery", 1))
	require.NoError(t, err)

	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, "valid", plan.Assignments[0].BookingID)

	require.Len(t, plan.Unallocatable, 5)
	for _, u := range plan.Unallocatable {
		assert.Equal(t, ReasonInvalidInput, u.Reason, "booking %q", u.BookingID)
		assert.NotEmpty(t, u.Detail)
	}
	assert.Equal(t, 6, plan.Len())
}

func TestAllocate_DoesNotMutateInputs(t *testing.T) {
	boats := []string{"boat-2", "boat-1"}
	batteries := []string{"bat-2", "bat-1"}

	_, err := Allocate(runDate, newBookings(t, 2), boats, batteries)
	require.NoError(t, err)

	assert.Equal(t, []string{"boat-2", "boat-1"}, boats)
	assert.Equal(t, []string{"bat-2", "bat-1"}, batteries)
}
