package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/boat-hire/pkg/core/model"
	"github.com/jakechorley/boat-hire/pkg/db"
)

func TestAddEquipment(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryDB()
	logger := zap.NewNop()

	boat, err := AddEquipment(ctx, store, logger, model.KindBoat, "  Osprey ")
	require.NoError(t, err)
	assert.NotEmpty(t, boat.ID())
	assert.Equal(t, "Osprey", boat.Name())
	assert.Equal(t, 0, boat.BookingCount())

	// Same name is allowed for a different kind
	_, err = AddEquipment(ctx, store, logger, model.KindBattery, "Osprey")
	require.NoError(t, err)

	_, err = AddEquipment(ctx, store, logger, model.KindBoat, "osprey")
	assert.ErrorIs(t, err, db.ErrConflict)

	_, err = AddEquipment(ctx, store, logger, model.KindBoat, " ")
	assert.ErrorIs(t, err, model.ErrInvalidModel)
}

func TestCommentOnEquipment(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryDB()
	logger := zap.NewNop()

	battery, err := AddEquipment(ctx, store, logger, model.KindBattery, "B1")
	require.NoError(t, err)

	_, err = CommentOnEquipment(ctx, store, logger, battery.ID(), "fully charged")
	require.NoError(t, err)
	updated, err := CommentOnEquipment(ctx, store, logger, battery.ID(), "  cell 3 swollen ")
	require.NoError(t, err)
	assert.Equal(t, []string{"fully charged", "cell 3 swollen"}, updated.Comments())

	_, err = CommentOnEquipment(ctx, store, logger, battery.ID(), "   ")
	assert.Error(t, err)

	_, err = CommentOnEquipment(ctx, store, logger, "missing", "hello")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestListEquipment(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryDB()
	logger := zap.NewNop()

	for _, name := range []string{"Tern", "Avocet", "Merlin"} {
		_, err := AddEquipment(ctx, store, logger, model.KindBoat, name)
		require.NoError(t, err)
	}
	_, err := AddEquipment(ctx, store, logger, model.KindBattery, "B1")
	require.NoError(t, err)

	boats, err := ListEquipment(ctx, store, logger, model.KindBoat)
	require.NoError(t, err)
	require.Len(t, boats, 3)
	assert.Equal(t, "Avocet", boats[0].Name())
	assert.Equal(t, "Merlin", boats[1].Name())
	assert.Equal(t, "Tern", boats[2].Name())

	_, err = ListEquipment(ctx, store, logger, "kayak")
	assert.ErrorIs(t, err, model.ErrInvalidModel)
}

func TestCreateAndCancelBooking(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryDB()
	logger := zap.NewNop()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	booking, err := CreateBooking(ctx, store, logger, BookingRequest{
		UserID: "user-1",
		Date:   runDate,
		Slot:   model.SlotEvening,
	}, now)
	require.NoError(t, err)
	assert.False(t, booking.IsAssigned())
	assert.Equal(t, now, booking.CreatedAt())

	pending, err := store.GetUnassignedBookings(ctx, runDate)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, booking.ID(), pending[0].ID())

	require.NoError(t, CancelBooking(ctx, store, logger, booking.ID(), now.Add(time.Hour)))

	pending, err = store.GetUnassignedBookings(ctx, runDate)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = CancelBooking(ctx, store, logger, booking.ID(), now.Add(2*time.Hour))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestCreateBooking_Invalid(t *testing.T) {
	store := db.NewMemoryDB()

	_, err := CreateBooking(context.Background(), store, zap.NewNop(), BookingRequest{
		UserID: "",
		Date:   runDate,
		Slot:   model.SlotMorning,
	}, time.Now())
	assert.ErrorIs(t, err, model.ErrInvalidModel)

	_, err = CreateBooking(context.Background(), store, zap.NewNop(), BookingRequest{
		UserID: "user-1",
		Slot:   model.SlotMorning,
	}, time.Now())
	assert.ErrorIs(t, err, model.ErrInvalidModel)
}

func TestListMissedBookings(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryDB()
	logger := zap.NewNop()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	past, err := CreateBooking(ctx, store, logger, BookingRequest{UserID: "u1", Date: runDate, Slot: model.SlotMorning}, now)
	require.NoError(t, err)
	_, err = CreateBooking(ctx, store, logger, BookingRequest{UserID: "u2", Date: runDate.AddDays(3), Slot: model.SlotMorning}, now)
	require.NoError(t, err)

	missed, err := ListMissedBookings(ctx, store, logger, runDate.AddDays(1))
	require.NoError(t, err)
	require.Len(t, missed, 1)
	assert.Equal(t, past.ID(), missed[0].ID())
}

func TestSetUserEmail(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryDB()

	require.NoError(t, SetUserEmail(ctx, store, zap.NewNop(), " user-1 ", " rower@example.com "))
	email, err := store.GetUserEmail(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "rower@example.com", email)

	err = SetUserEmail(ctx, store, zap.NewNop(), "user-1", "not-an-email")
	assert.ErrorIs(t, err, model.ErrInvalidModel)

	err = SetUserEmail(ctx, store, zap.NewNop(), "", "rower@example.com")
	assert.ErrorIs(t, err, model.ErrInvalidModel)
}
