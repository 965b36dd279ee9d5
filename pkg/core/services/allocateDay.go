package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/boat-hire/pkg/core/allocator"
	"github.com/jakechorley/boat-hire/pkg/core/events"
	"github.com/jakechorley/boat-hire/pkg/core/model"
	"github.com/jakechorley/boat-hire/pkg/db"
	"github.com/jakechorley/boat-hire/pkg/lock"
)

var (
	// ErrFetchFailure wraps failures to read bookings or equipment
	ErrFetchFailure = errors.New("fetch failure")

	// ErrRunInProgress is returned when another run holds the date's equipment pool
	ErrRunInProgress = errors.New("allocation run already in progress")
)

// DefaultMaxConcurrentSlots bounds how many slot groups are processed at once
const DefaultMaxConcurrentSlots = 3

// AllocationStore defines the database operations needed for a daily allocation run
type AllocationStore interface {
	db.BookingStore
	db.EquipmentInventory
}

// EventPublisher receives allocation outcomes
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// SlotFailure records a slot group that was skipped and left for the next run
type SlotFailure struct {
	Slot model.TimeSlot
	Err  error
}

// RunResult contains the outcome of one allocation run
type RunResult struct {
	Date          model.Date
	Pending       int
	Assignments   []allocator.Assignment
	Unallocatable []allocator.Unallocated
	// Resolved holds bookings another writer assigned or cancelled while the run
	// was persisting; they get no outcome from this run
	Resolved     []string
	SkippedSlots []SlotFailure
	Duration     time.Duration
}

// SkippedBookings returns how many pending bookings were left untouched by skipped slots
func (r *RunResult) SkippedBookings() int {
	return r.Pending - len(r.Assignments) - len(r.Unallocatable) - len(r.Resolved)
}

// DailyAllocationConfig holds the collaborators of a DailyAllocation
type DailyAllocationConfig struct {
	Store     AllocationStore
	Publisher EventPublisher
	Logger    *zap.Logger

	// Locker guards a date's equipment pool across runs. Optional.
	Locker lock.Locker

	// MaxConcurrentSlots bounds parallel slot groups (default DefaultMaxConcurrentSlots)
	MaxConcurrentSlots int
}

// DailyAllocation runs allocation for a target date: it loads pending bookings,
// plans each slot group with the allocator, writes the plan back and raises events
type DailyAllocation struct {
	store              AllocationStore
	publisher          EventPublisher
	locker             lock.Locker
	logger             *zap.Logger
	maxConcurrentSlots int
}

// NewDailyAllocation creates a DailyAllocation from cfg
func NewDailyAllocation(cfg DailyAllocationConfig) (*DailyAllocation, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("allocation store is required")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxConcurrent := cfg.MaxConcurrentSlots
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSlots
	}

	return &DailyAllocation{
		store:              cfg.Store,
		publisher:          cfg.Publisher,
		locker:             cfg.Locker,
		logger:             logger,
		maxConcurrentSlots: maxConcurrent,
	}, nil
}

// slotOutcome is the result of processing one slot group
type slotOutcome struct {
	slot          model.TimeSlot
	assignments   []allocator.Assignment
	unallocatable []allocator.Unallocated
	resolved      []string
	failure       error
}

// RunDailyAllocation assigns equipment to every pending booking for date.
// Every booking considered ends with either an assignment or an unallocatable
// record, except those in slots whose availability could not be read; those are
// reported in RunResult.SkippedSlots and left for the next run.
func (s *DailyAllocation) RunDailyAllocation(ctx context.Context, date model.Date) (*RunResult, error) {
	started := time.Now()
	logger := s.logger.With(zap.String("date", date.String()))

	if date.IsZero() {
		return nil, fmt.Errorf("%w: target date is required", allocator.ErrInvalidInput)
	}

	logger.Info("Starting daily allocation")

	if s.locker != nil {
		release, err := s.locker.TryAcquire(ctx, "allocation:"+date.String())
		if err != nil {
			if errors.Is(err, lock.ErrLocked) {
				logger.Warn("Another allocation run holds this date, skipping")
				return nil, fmt.Errorf("%w for %s", ErrRunInProgress, date)
			}
			return nil, fmt.Errorf("failed to acquire allocation lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to release allocation lock", zap.Error(err))
			}
		}()
	}

	// Step 1: Fetch pending bookings for the date
	logger.Debug("Fetching unassigned bookings")
	pending, err := s.store.GetUnassignedBookings(ctx, date)
	if err != nil {
		logger.Error("Failed to fetch unassigned bookings", zap.Error(err))
		return nil, fmt.Errorf("%w: failed to fetch unassigned bookings for %s: %v", ErrFetchFailure, date, err)
	}
	logger.Debug("Found unassigned bookings", zap.Int("count", len(pending)))

	result := &RunResult{
		Date:          date,
		Pending:       len(pending),
		Assignments:   []allocator.Assignment{},
		Unallocatable: []allocator.Unallocated{},
		Resolved:      []string{},
		SkippedSlots:  []SlotFailure{},
	}

	if len(pending) == 0 {
		result.Duration = time.Since(started)
		logger.Info("No pending bookings, nothing to allocate")
		s.publishRunCompleted(ctx, result)
		return result, nil
	}

	// Step 2: Group by slot; equipment pools are never shared between slots
	groups := groupBySlot(pending)
	logger.Debug("Grouped bookings by slot", zap.Int("groups", len(groups)))

	// Step 3: Plan and persist each group. Slot failures travel in the outcomes,
	// so one slot never cancels another.
	outcomes := make([]slotOutcome, len(groups))
	var g errgroup.Group
	g.SetLimit(s.maxConcurrentSlots)
	for i, group := range groups {
		g.Go(func() error {
			outcomes[i] = s.processSlot(ctx, date, group.slot, group.bookings)
			return nil
		})
	}
	_ = g.Wait()

	// Step 4: Merge outcomes in slot order
	for _, outcome := range outcomes {
		if outcome.failure != nil {
			result.SkippedSlots = append(result.SkippedSlots, SlotFailure{Slot: outcome.slot, Err: outcome.failure})
			continue
		}
		result.Assignments = append(result.Assignments, outcome.assignments...)
		result.Unallocatable = append(result.Unallocatable, outcome.unallocatable...)
		result.Resolved = append(result.Resolved, outcome.resolved...)
	}
	result.Duration = time.Since(started)

	logger.Info("Daily allocation finished",
		zap.Int("pending", result.Pending),
		zap.Int("assigned", len(result.Assignments)),
		zap.Int("unallocatable", len(result.Unallocatable)),
		zap.Int("resolved_elsewhere", len(result.Resolved)),
		zap.Int("skipped_slots", len(result.SkippedSlots)),
		zap.Duration("duration", result.Duration))

	s.publishRunCompleted(ctx, result)

	return result, nil
}

// processSlot plans one slot group, persists the plan and reports every outcome
func (s *DailyAllocation) processSlot(ctx context.Context, date model.Date, slot model.TimeSlot, bookings []model.Booking) slotOutcome {
	logger := s.logger.With(zap.String("date", date.String()), zap.String("slot", slot.String()))
	outcome := slotOutcome{slot: slot}

	boats, batteries, err := s.fetchAvailability(ctx, date, slot)
	if err != nil {
		logger.Error("Skipping slot, availability could not be fetched",
			zap.Int("bookings", len(bookings)),
			zap.Error(err))
		outcome.failure = err
		return outcome
	}
	logger.Debug("Fetched availability",
		zap.Int("bookings", len(bookings)),
		zap.Int("boats", len(boats)),
		zap.Int("batteries", len(batteries)))

	plan, err := allocator.Allocate(date, bookings, boats, batteries)
	if err != nil {
		logger.Error("Allocator rejected slot group", zap.Error(err))
		outcome.failure = err
		return outcome
	}
	logger.Debug("Planned slot group",
		zap.Int("assignments", len(plan.Assignments)),
		zap.Int("unallocatable", len(plan.Unallocatable)))

	assigned, demoted, resolved := s.persistPlan(ctx, date, slot, plan)
	outcome.assignments = assigned
	outcome.resolved = resolved
	outcome.unallocatable = append(slices.Clone(plan.Unallocatable), demoted...)

	for _, a := range assigned {
		s.publisher.Publish(ctx, events.BookingAllocated{
			BookingID: a.BookingID,
			UserID:    a.UserID,
			Date:      date,
			Slot:      a.Slot,
			BoatID:    a.BoatID,
			BatteryID: a.BatteryID,
		})
	}

	for _, u := range outcome.unallocatable {
		if err := s.store.MarkUnallocatable(ctx, u.BookingID, u.Reason.String()); err != nil {
			logger.Warn("Failed to record unallocatable booking",
				zap.String("booking_id", u.BookingID),
				zap.String("reason", u.Reason.String()),
				zap.Error(err))
		}
		s.publisher.Publish(ctx, events.BookingNotAllocated{
			BookingID: u.BookingID,
			UserID:    u.UserID,
			Reason:    u.Reason.String(),
			Date:      date,
			Slot:      u.Slot,
		})
	}

	return outcome
}

// persistPlan writes each assignment. A failed write is retried once with freshly
// fetched availability; a second failure demotes the booking to unallocatable.
// Bookings that stopped being pending mid-run are returned as resolved.
func (s *DailyAllocation) persistPlan(ctx context.Context, date model.Date, slot model.TimeSlot, plan *allocator.Plan) ([]allocator.Assignment, []allocator.Unallocated, []string) {
	logger := s.logger.With(zap.String("date", date.String()), zap.String("slot", slot.String()))
	assigned := make([]allocator.Assignment, 0, len(plan.Assignments))
	demoted := make([]allocator.Unallocated, 0)
	resolved := make([]string, 0)

	for i, a := range plan.Assignments {
		err := s.store.PersistAssignment(ctx, a.BookingID, a.BoatID, a.BatteryID)
		if err == nil {
			assigned = append(assigned, a)
			continue
		}
		if errors.Is(err, db.ErrNotPending) {
			logger.Info("Booking resolved elsewhere during run", zap.String("booking_id", a.BookingID), zap.Error(err))
			resolved = append(resolved, a.BookingID)
			continue
		}

		logger.Warn("Failed to persist assignment, retrying with fresh availability",
			zap.String("booking_id", a.BookingID),
			zap.String("boat_id", a.BoatID),
			zap.String("battery_id", a.BatteryID),
			zap.Error(err))

		retry, err := s.retryAssignment(ctx, date, slot, a, reservedBy(plan.Assignments[i+1:]))
		if errors.Is(err, db.ErrNotPending) {
			logger.Info("Booking resolved elsewhere during retry", zap.String("booking_id", a.BookingID), zap.Error(err))
			resolved = append(resolved, a.BookingID)
			continue
		}
		if err != nil {
			logger.Warn("Demoting booking after failed retry",
				zap.String("booking_id", a.BookingID),
				zap.Error(err))
			demoted = append(demoted, allocator.Unallocated{
				BookingID: a.BookingID,
				UserID:    a.UserID,
				Slot:      a.Slot,
				Reason:    allocator.ReasonPersistenceConflict,
				Detail:    err.Error(),
			})
			continue
		}
		assigned = append(assigned, retry)
	}

	return assigned, demoted, resolved
}

// retryAssignment re-fetches availability and makes one more write attempt. It keeps
// the original pair when both ids are still free, otherwise takes the first free ids
// not reserved by later entries of the plan.
func (s *DailyAllocation) retryAssignment(ctx context.Context, date model.Date, slot model.TimeSlot, a allocator.Assignment, reserved map[string]bool) (allocator.Assignment, error) {
	boats, batteries, err := s.fetchAvailability(ctx, date, slot)
	if err != nil {
		return allocator.Assignment{}, err
	}

	retry := a
	retry.BoatID = pickFree(boats, a.BoatID, reserved)
	retry.BatteryID = pickFree(batteries, a.BatteryID, reserved)
	if retry.BoatID == "" || retry.BatteryID == "" {
		return allocator.Assignment{}, fmt.Errorf("no free boat and battery left after re-fetch")
	}

	if err := s.store.PersistAssignment(ctx, retry.BookingID, retry.BoatID, retry.BatteryID); err != nil {
		return allocator.Assignment{}, fmt.Errorf("retry failed: %w", err)
	}
	return retry, nil
}

// fetchAvailability reads the free boats and batteries for one slot
func (s *DailyAllocation) fetchAvailability(ctx context.Context, date model.Date, slot model.TimeSlot) ([]string, []string, error) {
	boats, err := s.store.ListAvailableBoats(ctx, date, slot)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to list available boats: %v", ErrFetchFailure, err)
	}
	batteries, err := s.store.ListAvailableBatteries(ctx, date, slot)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to list available batteries: %v", ErrFetchFailure, err)
	}
	return boats, batteries, nil
}

func (s *DailyAllocation) publishRunCompleted(ctx context.Context, result *RunResult) {
	skipped := make([]model.TimeSlot, len(result.SkippedSlots))
	for i, f := range result.SkippedSlots {
		skipped[i] = f.Slot
	}
	s.publisher.Publish(ctx, events.RunCompleted{
		Date:          result.Date,
		Assigned:      len(result.Assignments),
		Unallocatable: len(result.Unallocatable),
		SkippedSlots:  skipped,
		Duration:      result.Duration,
	})
}

// slotGroup holds the bookings of one slot in creation order
type slotGroup struct {
	slot     model.TimeSlot
	bookings []model.Booking
}

// groupBySlot splits bookings by slot, keeping their relative order.
// Groups are returned in the order slots first appear.
func groupBySlot(bookings []model.Booking) []slotGroup {
	index := make(map[model.TimeSlot]int)
	groups := make([]slotGroup, 0)
	for _, b := range bookings {
		i, ok := index[b.Slot()]
		if !ok {
			i = len(groups)
			index[b.Slot()] = i
			groups = append(groups, slotGroup{slot: b.Slot()})
		}
		groups[i].bookings = append(groups[i].bookings, b)
	}
	return groups
}

// reservedBy returns the equipment ids held by not-yet-persisted assignments
func reservedBy(assignments []allocator.Assignment) map[string]bool {
	reserved := make(map[string]bool, len(assignments)*2)
	for _, a := range assignments {
		reserved[a.BoatID] = true
		reserved[a.BatteryID] = true
	}
	return reserved
}

// pickFree returns preferred if it is available, otherwise the first available id
// not in reserved, or "" if there is none
func pickFree(available []string, preferred string, reserved map[string]bool) string {
	if slices.Contains(available, preferred) {
		return preferred
	}
	for _, id := range available {
		if !reserved[id] {
			return id
		}
	}
	return ""
}
