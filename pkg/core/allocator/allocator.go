package allocator

import (
	"fmt"

	"github.com/jakechorley/boat-hire/pkg/core/model"
)

// Allocate assigns one boat and one battery to each pending booking for date.
//
// Bookings are processed in the order given, so callers pass them oldest first and
// the oldest requests win when equipment runs out. Boats and batteries are the ids
// free for a single date and slot; callers group bookings by slot and call Allocate
// once per group. Ids are picked in ascending order, which keeps the result
// deterministic for identical inputs.
//
// Running out of equipment is not an error: those bookings are reported in
// Plan.Unallocatable. Bookings that cannot take part in the run (wrong date,
// cancelled, already assigned, repeated) are reported with ReasonInvalidInput and
// consume nothing. The only error is a missing target date.
func Allocate(date model.Date, pending []model.Booking, boats, batteries []string) (*Plan, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: target date is required", ErrInvalidInput)
	}

	plan := &Plan{
		Date:          date,
		Assignments:   []Assignment{},
		Unallocatable: []Unallocated{},
	}

	boatPool := newPool(boats)
	batteryPool := newPool(batteries)
	seen := make(map[string]bool, len(pending))

	for _, booking := range pending {
		if detail := invalidReason(date, booking, seen); detail != "" {
			plan.Unallocatable = append(plan.Unallocatable, unallocated(booking, ReasonInvalidInput, detail))
			continue
		}
		seen[booking.ID()] = true

		// Both resources are needed; never take one without the other
		if boatPool.empty() || batteryPool.empty() {
			plan.Unallocatable = append(plan.Unallocatable, unallocated(
				booking,
				ReasonInsufficientEquipment,
				fmt.Sprintf("%d boats and %d batteries left", boatPool.remaining(), batteryPool.remaining()),
			))
			continue
		}

		plan.Assignments = append(plan.Assignments, Assignment{
			BookingID: booking.ID(),
			UserID:    booking.UserID(),
			Slot:      booking.Slot(),
			BoatID:    boatPool.pop(),
			BatteryID: batteryPool.pop(),
		})
	}

	return plan, nil
}

// invalidReason returns a description of why booking cannot be allocated in this run,
// or an empty string if it can
func invalidReason(date model.Date, booking model.Booking, seen map[string]bool) string {
	switch {
	case booking.ID() == "":
		return "booking has no id"
	case booking.Date().IsZero():
		return "booking has no date"
	case !booking.Date().Equal(date):
		return fmt.Sprintf("booking is for %s, run is for %s", booking.Date(), date)
	case booking.Deleted():
		return "booking is cancelled"
	case booking.IsAssigned():
		return "booking already holds equipment"
	case seen[booking.ID()]:
		return "booking appears more than once"
	}
	return ""
}

func unallocated(booking model.Booking, reason Reason, detail string) Unallocated {
	return Unallocated{
		BookingID: booking.ID(),
		UserID:    booking.UserID(),
		Slot:      booking.Slot(),
		Reason:    reason,
		Detail:    detail,
	}
}
