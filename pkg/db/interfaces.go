package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jakechorley/boat-hire/pkg/core/model"
)

var (
	// ErrConflict is returned when a write would overwrite or duplicate existing state
	ErrConflict = errors.New("conflict")

	// ErrNotPending is returned when an assignment targets a booking that was
	// assigned or cancelled in the meantime. It matches ErrConflict.
	ErrNotPending = fmt.Errorf("%w: booking is no longer pending", ErrConflict)

	// ErrNotFound is returned when the referenced record does not exist
	ErrNotFound = errors.New("not found")
)

// EquipmentInventory exposes the equipment free for a date and slot
type EquipmentInventory interface {
	ListAvailableBoats(ctx context.Context, date model.Date, slot model.TimeSlot) ([]string, error)
	ListAvailableBatteries(ctx context.Context, date model.Date, slot model.TimeSlot) ([]string, error)
}

// EquipmentStore manages the boats and batteries themselves
type EquipmentStore interface {
	CreateEquipment(ctx context.Context, equipment model.Equipment) error
	GetEquipment(ctx context.Context, id string) (model.Equipment, error)
	AddEquipmentComment(ctx context.Context, id string, comment string) error
	ListEquipment(ctx context.Context, kind model.EquipmentKind) ([]model.Equipment, error)
}

// BookingStore holds bookings and records allocation outcomes
type BookingStore interface {
	// GetUnassignedBookings returns non-deleted bookings for date without equipment,
	// oldest first
	GetUnassignedBookings(ctx context.Context, date model.Date) ([]model.Booking, error)

	// PersistAssignment writes both ids or neither. It fails with ErrConflict instead of
	// overwriting an assigned booking or reusing equipment already held on the same date
	// and slot.
	PersistAssignment(ctx context.Context, bookingID, boatID, batteryID string) error

	// MarkUnallocatable records why a run left the booking without equipment
	MarkUnallocatable(ctx context.Context, bookingID string, reason string) error
}

// BookingLifecycleStore covers booking creation and cancellation
type BookingLifecycleStore interface {
	CreateBooking(ctx context.Context, booking model.Booking) error
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	CancelBooking(ctx context.Context, id string, at time.Time) error
	ListMissedBookings(ctx context.Context, today model.Date) ([]model.Booking, error)
}

// UserDirectory mirrors contact details of users from the identity provider
type UserDirectory interface {
	UpsertUser(ctx context.Context, userID, email string) error
	GetUserEmail(ctx context.Context, userID string) (string, error)
}

// Database defines the interface for all database operations.
// Both the in-memory MemoryDB and postgres.DB implement this interface.
type Database interface {
	EquipmentInventory
	EquipmentStore
	BookingStore
	BookingLifecycleStore
	UserDirectory
	Close()
}
