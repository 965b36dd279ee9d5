package events

import (
	"time"

	"github.com/jakechorley/boat-hire/pkg/core/model"
)

// Kind tags an event type
type Kind string

const (
	KindBookingAllocated    Kind = "booking.allocated"
	KindBookingNotAllocated Kind = "booking.not_allocated"
	KindRunCompleted        Kind = "allocation.run_completed"
)

// Event is implemented by every payload published through a Registry
type Event interface {
	Kind() Kind
}

// BookingAllocated is raised when equipment has been written to a booking
type BookingAllocated struct {
	BookingID string         `json:"booking_id"`
	UserID    string         `json:"user_id"`
	Date      model.Date     `json:"-"`
	Slot      model.TimeSlot `json:"slot"`
	BoatID    string         `json:"boat_id"`
	BatteryID string         `json:"battery_id"`
}

func (BookingAllocated) Kind() Kind { return KindBookingAllocated }

// BookingNotAllocated is raised for every booking a run could not assign
type BookingNotAllocated struct {
	BookingID string         `json:"booking_id"`
	UserID    string         `json:"user_id"`
	Reason    string         `json:"reason"`
	Date      model.Date     `json:"-"`
	Slot      model.TimeSlot `json:"slot"`
}

func (BookingNotAllocated) Kind() Kind { return KindBookingNotAllocated }

// RunCompleted summarises one allocation run
type RunCompleted struct {
	Date          model.Date       `json:"-"`
	Assigned      int              `json:"assigned"`
	Unallocatable int              `json:"unallocatable"`
	SkippedSlots  []model.TimeSlot `json:"skipped_slots"`
	Duration      time.Duration    `json:"duration_ns"`
}

func (RunCompleted) Kind() Kind { return KindRunCompleted }
