package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrInvalidModel is wrapped by every validation failure in this package
var ErrInvalidModel = errors.New("invalid model")

type TimeSlot string

const (
	SlotNone      TimeSlot = "None"
	SlotMorning   TimeSlot = "Morning"
	SlotAfternoon TimeSlot = "Afternoon"
	SlotEvening   TimeSlot = "Evening"
)

// AllTimeSlots returns every slot in display order
func AllTimeSlots() []TimeSlot {
	return []TimeSlot{SlotMorning, SlotAfternoon, SlotEvening, SlotNone}
}

func (s TimeSlot) IsValid() bool {
	return s == SlotNone || s == SlotMorning || s == SlotAfternoon || s == SlotEvening
}

func (s TimeSlot) String() string {
	return string(s)
}

// ParseTimeSlot accepts a slot name in any case
func ParseTimeSlot(s string) (TimeSlot, error) {
	for _, slot := range AllTimeSlots() {
		if strings.EqualFold(string(slot), strings.TrimSpace(s)) {
			return slot, nil
		}
	}
	return "", fmt.Errorf("%w: unknown time slot %q", ErrInvalidModel, s)
}

type EquipmentKind string

const (
	KindBoat    EquipmentKind = "boat"
	KindBattery EquipmentKind = "battery"
)

func (k EquipmentKind) IsValid() bool {
	return k == KindBoat || k == KindBattery
}

// ParseEquipmentKind accepts a kind name in any case
func ParseEquipmentKind(s string) (EquipmentKind, error) {
	kind := EquipmentKind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.IsValid() {
		return "", fmt.Errorf("%w: unknown equipment kind %q", ErrInvalidModel, s)
	}
	return kind, nil
}

// BookingParams carries the fields used to construct a Booking
type BookingParams struct {
	ID        string
	Date      Date
	Slot      TimeSlot
	UserID    string
	BoatID    Option[string]
	BatteryID Option[string]
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Booking is a reservation of one boat and one battery for a date and time slot.
// Values are immutable; mutations return modified copies.
type Booking struct {
	id        string
	date      Date
	slot      TimeSlot
	userID    string
	boatID    Option[string]
	batteryID Option[string]
	deleted   bool
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking validates params and builds a Booking
func NewBooking(p BookingParams) (Booking, error) {
	if strings.TrimSpace(p.ID) == "" {
		return Booking{}, fmt.Errorf("%w: booking id is required", ErrInvalidModel)
	}
	if strings.TrimSpace(p.UserID) == "" {
		return Booking{}, fmt.Errorf("%w: booking %s has no user id", ErrInvalidModel, p.ID)
	}
	if p.Date.IsZero() {
		return Booking{}, fmt.Errorf("%w: booking %s has no date", ErrInvalidModel, p.ID)
	}
	if !p.Slot.IsValid() {
		return Booking{}, fmt.Errorf("%w: booking %s has invalid slot %q", ErrInvalidModel, p.ID, p.Slot)
	}
	if p.BoatID.IsPresent() != p.BatteryID.IsPresent() {
		return Booking{}, fmt.Errorf("%w: booking %s must hold both a boat and a battery or neither", ErrInvalidModel, p.ID)
	}

	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = p.CreatedAt
	}

	return Booking{
		id:        p.ID,
		date:      p.Date,
		slot:      p.Slot,
		userID:    p.UserID,
		boatID:    p.BoatID,
		batteryID: p.BatteryID,
		deleted:   p.Deleted,
		createdAt: p.CreatedAt,
		updatedAt: updatedAt,
	}, nil
}

func (b Booking) ID() string                { return b.id }
func (b Booking) Date() Date                { return b.date }
func (b Booking) Slot() TimeSlot            { return b.slot }
func (b Booking) UserID() string            { return b.userID }
func (b Booking) BoatID() Option[string]    { return b.boatID }
func (b Booking) BatteryID() Option[string] { return b.batteryID }
func (b Booking) Deleted() bool             { return b.deleted }
func (b Booking) CreatedAt() time.Time      { return b.createdAt }
func (b Booking) UpdatedAt() time.Time      { return b.updatedAt }

// IsAssigned reports whether the booking holds both a boat and a battery
func (b Booking) IsAssigned() bool {
	return b.boatID.IsPresent() && b.batteryID.IsPresent()
}

// IsMissed reports whether the booking's date passed without an assignment
func (b Booking) IsMissed(today Date) bool {
	return !b.deleted && !b.IsAssigned() && b.date.Before(today)
}

// WithAssignment returns a copy holding the given boat and battery
func (b Booking) WithAssignment(boatID, batteryID string, at time.Time) (Booking, error) {
	if b.deleted {
		return Booking{}, fmt.Errorf("%w: booking %s is cancelled", ErrInvalidModel, b.id)
	}
	if boatID == "" || batteryID == "" {
		return Booking{}, fmt.Errorf("%w: booking %s needs both a boat and a battery", ErrInvalidModel, b.id)
	}
	assigned := b
	assigned.boatID = Some(boatID)
	assigned.batteryID = Some(batteryID)
	assigned.updatedAt = at
	return assigned, nil
}

// Cancelled returns a soft-deleted copy
func (b Booking) Cancelled(at time.Time) Booking {
	cancelled := b
	cancelled.deleted = true
	cancelled.updatedAt = at
	return cancelled
}

// EquipmentParams carries the fields used to construct an Equipment
type EquipmentParams struct {
	ID           string
	Kind         EquipmentKind
	Name         string
	BookingCount int
	Comments     []string
	Deleted      bool
}

// Equipment is a reusable boat or battery
type Equipment struct {
	id           string
	kind         EquipmentKind
	name         string
	bookingCount int
	comments     []string
	deleted      bool
}

// NewEquipment validates params and builds an Equipment
func NewEquipment(p EquipmentParams) (Equipment, error) {
	if strings.TrimSpace(p.ID) == "" {
		return Equipment{}, fmt.Errorf("%w: equipment id is required", ErrInvalidModel)
	}
	if !p.Kind.IsValid() {
		return Equipment{}, fmt.Errorf("%w: equipment %s has invalid kind %q", ErrInvalidModel, p.ID, p.Kind)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return Equipment{}, fmt.Errorf("%w: equipment %s has no name", ErrInvalidModel, p.ID)
	}
	if p.BookingCount < 0 {
		return Equipment{}, fmt.Errorf("%w: equipment %s has negative booking count", ErrInvalidModel, p.ID)
	}

	return Equipment{
		id:           p.ID,
		kind:         p.Kind,
		name:         name,
		bookingCount: p.BookingCount,
		comments:     slices.Clone(p.Comments),
		deleted:      p.Deleted,
	}, nil
}

func (e Equipment) ID() string          { return e.id }
func (e Equipment) Kind() EquipmentKind { return e.kind }
func (e Equipment) Name() string        { return e.name }
func (e Equipment) BookingCount() int   { return e.bookingCount }
func (e Equipment) Deleted() bool       { return e.deleted }

// Comments returns a copy of the comment history, oldest first
func (e Equipment) Comments() []string {
	return slices.Clone(e.comments)
}

// WithComment returns a copy with text appended to the comment history
func (e Equipment) WithComment(text string) (Equipment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Equipment{}, fmt.Errorf("%w: comment is empty", ErrInvalidModel)
	}
	updated := e
	updated.comments = append(slices.Clone(e.comments), text)
	return updated, nil
}

// WithBookingUsed returns a copy with the booking count incremented
func (e Equipment) WithBookingUsed() Equipment {
	updated := e
	updated.comments = slices.Clone(e.comments)
	updated.bookingCount++
	return updated
}
