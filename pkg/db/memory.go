package db

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jakechorley/boat-hire/pkg/core/model"
)

// unallocatedMark is the outcome recorded by MarkUnallocatable
type unallocatedMark struct {
	Reason string
	At     time.Time
}

var _ Database = (*MemoryDB)(nil)

// MemoryDB is an in-process Database. All methods are safe for concurrent use and
// follow the same conflict rules as the postgres implementation.
type MemoryDB struct {
	mu          sync.Mutex
	bookings    map[string]model.Booking
	equipment   map[string]model.Equipment
	unallocated map[string]unallocatedMark
	users       map[string]string
	now         func() time.Time
}

// NewMemoryDB creates an empty in-memory database
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		bookings:    make(map[string]model.Booking),
		equipment:   make(map[string]model.Equipment),
		unallocated: make(map[string]unallocatedMark),
		users:       make(map[string]string),
		now:         time.Now,
	}
}

// Close is a no-op
func (m *MemoryDB) Close() {}

// ListAvailableBoats returns non-deleted boats not held on date and slot, sorted by id
func (m *MemoryDB) ListAvailableBoats(ctx context.Context, date model.Date, slot model.TimeSlot) ([]string, error) {
	return m.listAvailable(model.KindBoat, date, slot), nil
}

// ListAvailableBatteries returns non-deleted batteries not held on date and slot, sorted by id
func (m *MemoryDB) ListAvailableBatteries(ctx context.Context, date model.Date, slot model.TimeSlot) ([]string, error) {
	return m.listAvailable(model.KindBattery, date, slot), nil
}

func (m *MemoryDB) listAvailable(kind model.EquipmentKind, date model.Date, slot model.TimeSlot) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	held := m.heldLocked(date, slot)
	available := make([]string, 0)
	for id, e := range m.equipment {
		if e.Kind() != kind || e.Deleted() || held[id] {
			continue
		}
		available = append(available, id)
	}
	slices.Sort(available)
	return available
}

// heldLocked returns the equipment ids held by non-deleted bookings on date and slot
func (m *MemoryDB) heldLocked(date model.Date, slot model.TimeSlot) map[string]bool {
	held := make(map[string]bool)
	for _, b := range m.bookings {
		if b.Deleted() || !b.Date().Equal(date) || b.Slot() != slot {
			continue
		}
		if boatID, ok := b.BoatID().Get(); ok {
			held[boatID] = true
		}
		if batteryID, ok := b.BatteryID().Get(); ok {
			held[batteryID] = true
		}
	}
	return held
}

// CreateEquipment stores new equipment; names are unique per kind
func (m *MemoryDB) CreateEquipment(ctx context.Context, equipment model.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.equipment[equipment.ID()]; exists {
		return fmt.Errorf("%w: equipment %s already exists", ErrConflict, equipment.ID())
	}
	for _, e := range m.equipment {
		if e.Kind() == equipment.Kind() && strings.EqualFold(e.Name(), equipment.Name()) {
			return fmt.Errorf("%w: %s named %q already exists", ErrConflict, equipment.Kind(), equipment.Name())
		}
	}
	m.equipment[equipment.ID()] = equipment
	return nil
}

// GetEquipment returns equipment by id
func (m *MemoryDB) GetEquipment(ctx context.Context, id string) (model.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.equipment[id]
	if !ok {
		return model.Equipment{}, fmt.Errorf("%w: equipment %s", ErrNotFound, id)
	}
	return e, nil
}

// AddEquipmentComment appends a comment to the equipment's history
func (m *MemoryDB) AddEquipmentComment(ctx context.Context, id string, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.equipment[id]
	if !ok {
		return fmt.Errorf("%w: equipment %s", ErrNotFound, id)
	}
	updated, err := e.WithComment(comment)
	if err != nil {
		return err
	}
	m.equipment[id] = updated
	return nil
}

// ListEquipment returns non-deleted equipment of kind ordered by name
func (m *MemoryDB) ListEquipment(ctx context.Context, kind model.EquipmentKind) ([]model.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]model.Equipment, 0)
	for _, e := range m.equipment {
		if e.Kind() == kind && !e.Deleted() {
			result = append(result, e)
		}
	}
	slices.SortFunc(result, func(a, b model.Equipment) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return result, nil
}

// GetUnassignedBookings returns bookings for date that hold no equipment, oldest first
func (m *MemoryDB) GetUnassignedBookings(ctx context.Context, date model.Date) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]model.Booking, 0)
	for _, b := range m.bookings {
		if b.Deleted() || b.IsAssigned() || !b.Date().Equal(date) {
			continue
		}
		result = append(result, b)
	}
	sortByCreation(result)
	return result, nil
}

// PersistAssignment assigns boat and battery to the booking if both are still free
func (m *MemoryDB) PersistAssignment(ctx context.Context, bookingID, boatID, batteryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[bookingID]
	if !ok {
		return fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}
	if b.Deleted() || b.IsAssigned() {
		return fmt.Errorf("%w: %s", ErrNotPending, bookingID)
	}

	boat, ok := m.equipment[boatID]
	if !ok || boat.Kind() != model.KindBoat || boat.Deleted() {
		return fmt.Errorf("%w: boat %s", ErrNotFound, boatID)
	}
	battery, ok := m.equipment[batteryID]
	if !ok || battery.Kind() != model.KindBattery || battery.Deleted() {
		return fmt.Errorf("%w: battery %s", ErrNotFound, batteryID)
	}

	held := m.heldLocked(b.Date(), b.Slot())
	if held[boatID] || held[batteryID] {
		return fmt.Errorf("%w: equipment already held on %s %s", ErrConflict, b.Date(), b.Slot())
	}

	assigned, err := b.WithAssignment(boatID, batteryID, m.now())
	if err != nil {
		return err
	}

	m.bookings[bookingID] = assigned
	m.equipment[boatID] = boat.WithBookingUsed()
	m.equipment[batteryID] = battery.WithBookingUsed()
	delete(m.unallocated, bookingID)
	return nil
}

// MarkUnallocatable records the run's decision for the booking
func (m *MemoryDB) MarkUnallocatable(ctx context.Context, bookingID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bookings[bookingID]; !ok {
		return fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}
	m.unallocated[bookingID] = unallocatedMark{Reason: reason, At: m.now()}
	return nil
}

// UnallocatedReason returns the last reason recorded for the booking, if any
func (m *MemoryDB) UnallocatedReason(bookingID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mark, ok := m.unallocated[bookingID]
	return mark.Reason, ok
}

// CreateBooking stores a new booking
func (m *MemoryDB) CreateBooking(ctx context.Context, booking model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bookings[booking.ID()]; exists {
		return fmt.Errorf("%w: booking %s already exists", ErrConflict, booking.ID())
	}
	m.bookings[booking.ID()] = booking
	return nil
}

// GetBooking returns a booking by id, including cancelled ones
func (m *MemoryDB) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: booking %s", ErrNotFound, id)
	}
	return b, nil
}

// CancelBooking soft-deletes a booking, releasing any equipment it held
func (m *MemoryDB) CancelBooking(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok || b.Deleted() {
		return fmt.Errorf("%w: booking %s", ErrNotFound, id)
	}
	m.bookings[id] = b.Cancelled(at)
	return nil
}

// ListMissedBookings returns unassigned, non-deleted bookings dated before today
func (m *MemoryDB) ListMissedBookings(ctx context.Context, today model.Date) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]model.Booking, 0)
	for _, b := range m.bookings {
		if b.IsMissed(today) {
			result = append(result, b)
		}
	}
	sortByCreation(result)
	return result, nil
}

// UpsertUser stores the user's email address
func (m *MemoryDB) UpsertUser(ctx context.Context, userID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = email
	return nil
}

// GetUserEmail returns the user's email address
func (m *MemoryDB) GetUserEmail(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, ok := m.users[userID]
	if !ok {
		return "", fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return email, nil
}

// sortByCreation orders bookings by creation time, then id
func sortByCreation(bookings []model.Booking) {
	slices.SortFunc(bookings, func(a, b model.Booking) int {
		if c := a.CreatedAt().Compare(b.CreatedAt()); c != 0 {
			return c
		}
		return strings.Compare(a.ID(), b.ID())
	})
}
