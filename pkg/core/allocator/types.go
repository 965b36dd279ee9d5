package allocator

import (
	"errors"
	"slices"

	"github.com/jakechorley/boat-hire/pkg/core/model"
)

// ErrInvalidInput is returned when the allocation request itself is malformed
var ErrInvalidInput = errors.New("invalid allocation input")

// Reason explains why a booking was left without equipment
type Reason string

const (
	// ReasonInvalidInput marks a booking that cannot take part in this run
	ReasonInvalidInput Reason = "InvalidInput"

	// ReasonInsufficientEquipment marks a booking that lost out to older bookings
	ReasonInsufficientEquipment Reason = "InsufficientEquipment"

	// ReasonPersistenceConflict marks a booking whose assignment could not be written
	ReasonPersistenceConflict Reason = "PersistenceConflict"
)

func (r Reason) String() string {
	return string(r)
}

// Assignment pairs a booking with the boat and battery chosen for it
type Assignment struct {
	BookingID string
	UserID    string
	Slot      model.TimeSlot
	BoatID    string
	BatteryID string
}

// Unallocated records a booking that received no equipment and why
type Unallocated struct {
	BookingID string
	UserID    string
	Slot      model.TimeSlot
	Reason    Reason
	Detail    string
}

// Plan is the outcome of one Allocate call
type Plan struct {
	// Date is the target date of the run
	Date model.Date

	// Assignments in processing order
	Assignments []Assignment

	// Unallocatable bookings in processing order
	Unallocatable []Unallocated
}

// Len returns the number of bookings that received an outcome
func (p *Plan) Len() int {
	return len(p.Assignments) + len(p.Unallocatable)
}

// IsEmpty reports whether the plan holds no outcomes at all
func (p *Plan) IsEmpty() bool {
	return p.Len() == 0
}

// pool is an ordered set of equipment ids that are popped front first
type pool struct {
	ids []string
}

// newPool de-duplicates and sorts ids so the pick order does not depend on input order
func newPool(ids []string) *pool {
	sorted := slices.Clone(ids)
	sorted = slices.DeleteFunc(sorted, func(id string) bool { return id == "" })
	slices.Sort(sorted)
	return &pool{ids: slices.Compact(sorted)}
}

func (p *pool) empty() bool {
	return len(p.ids) == 0
}

func (p *pool) pop() string {
	id := p.ids[0]
	p.ids = p.ids[1:]
	return id
}

func (p *pool) remaining() int {
	return len(p.ids)
}
