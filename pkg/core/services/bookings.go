package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/boat-hire/pkg/core/model"
	"github.com/jakechorley/boat-hire/pkg/db"
)

// BookingRequest describes a user's request for a boat and battery
type BookingRequest struct {
	UserID string
	Date   model.Date
	Slot   model.TimeSlot
}

// CreateBooking stores an unassigned booking. Equipment is assigned later by the
// daily allocation run.
func CreateBooking(ctx context.Context, store db.BookingLifecycleStore, logger *zap.Logger, req BookingRequest, now time.Time) (model.Booking, error) {
	booking, err := model.NewBooking(model.BookingParams{
		ID:        uuid.New().String(),
		Date:      req.Date,
		Slot:      req.Slot,
		UserID:    req.UserID,
		CreatedAt: now,
	})
	if err != nil {
		return model.Booking{}, fmt.Errorf("invalid booking: %w", err)
	}

	logger.Debug("Creating booking",
		zap.String("id", booking.ID()),
		zap.String("user_id", booking.UserID()),
		zap.String("date", booking.Date().String()),
		zap.String("slot", booking.Slot().String()))

	if err := store.CreateBooking(ctx, booking); err != nil {
		return model.Booking{}, fmt.Errorf("failed to create booking: %w", err)
	}

	logger.Info("Booking created", zap.String("id", booking.ID()))
	return booking, nil
}

// CancelBooking soft-deletes a booking; any equipment it held becomes free for its slot
func CancelBooking(ctx context.Context, store db.BookingLifecycleStore, logger *zap.Logger, id string, now time.Time) error {
	logger.Debug("Cancelling booking", zap.String("id", id))

	if err := store.CancelBooking(ctx, id, now); err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	logger.Info("Booking cancelled", zap.String("id", id))
	return nil
}

// ListMissedBookings returns bookings dated before today that never received equipment
func ListMissedBookings(ctx context.Context, store db.BookingLifecycleStore, logger *zap.Logger, today model.Date) ([]model.Booking, error) {
	logger.Debug("Fetching missed bookings", zap.String("today", today.String()))

	missed, err := store.ListMissedBookings(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch missed bookings: %w", err)
	}

	logger.Debug("Found missed bookings", zap.Int("count", len(missed)))
	return missed, nil
}
