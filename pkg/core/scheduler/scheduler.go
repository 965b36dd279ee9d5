package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/boat-hire/pkg/core/model"
)

// MinCatchUpDelay is the shortest wait before a catch-up run
const MinCatchUpDelay = time.Second

// ReasonUnexpectedException is logged when a run fails outside the allocation outcomes
const ReasonUnexpectedException = "UnexpectedException"

// State reports whether an allocation run is in flight
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// RunFunc performs one allocation run for the target date
type RunFunc func(ctx context.Context, date model.Date) error

// Config controls when runs fire and which date they target
type Config struct {
	// Rule gives the daily fire time, e.g. FREQ=DAILY;BYHOUR=2;BYMINUTE=0;BYSECOND=0
	Rule *rrule.RRule

	// Interval between runs after the first. A catch-up run is followed by the
	// rule's next occurrence instead, and Interval applies from there.
	Interval time.Duration

	// CatchUpDelay is the wait before the first run when today's fire time has passed
	CatchUpDelay time.Duration

	// LookaheadDays is added to today's date to get the target date
	LookaheadDays int

	// Location decides the calendar day and the fire time
	Location *time.Location
}

// Scheduler fires allocation runs on a fixed daily cadence. At most one run is in
// flight; ticks that arrive while a run is in progress are skipped.
type Scheduler struct {
	cfg     Config
	run     RunFunc
	clock   Clock
	logger  *zap.Logger
	running atomic.Bool
	wg      sync.WaitGroup
}

// New validates cfg and creates a Scheduler
func New(cfg Config, run RunFunc, clock Clock, logger *zap.Logger) (*Scheduler, error) {
	if cfg.Rule == nil {
		return nil, fmt.Errorf("schedule rule is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}
	if cfg.LookaheadDays < 0 {
		return nil, fmt.Errorf("lookahead days must not be negative, got %d", cfg.LookaheadDays)
	}
	if run == nil {
		return nil, fmt.Errorf("run function is required")
	}
	if cfg.CatchUpDelay < MinCatchUpDelay {
		cfg.CatchUpDelay = MinCatchUpDelay
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cfg:    cfg,
		run:    run,
		clock:  clock,
		logger: logger,
	}, nil
}

// State returns Running while a run is in flight
func (s *Scheduler) State() State {
	if s.running.Load() {
		return Running
	}
	return Idle
}

// Run blocks until ctx is cancelled. It returns only after any in-flight run has
// finished; runs receive a context that is not cancelled with ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	delay, catchUp, err := s.firstDelay(s.clock.Now())
	if err != nil {
		return err
	}

	s.logger.Info("Scheduler started",
		zap.Duration("first_run_in", delay),
		zap.Bool("catch_up", catchUp),
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("lookahead_days", s.cfg.LookaheadDays))

	timer := s.clock.NewTimer(delay)
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Scheduler stopping, waiting for in-flight run")
			s.wg.Wait()
			s.logger.Info("Scheduler stopped")
			return nil
		case now := <-timer.C():
			s.fire(ctx, now)
			next := s.cfg.Interval
			if catchUp {
				catchUp = false
				next, err = s.nextDelay(now)
				if err != nil {
					s.logger.Warn("Failed to realign with schedule rule, using interval", zap.Error(err))
					next = s.cfg.Interval
				}
				s.logger.Debug("Realigned with schedule rule after catch-up run", zap.Duration("next_run_in", next))
			}
			timer = s.clock.NewTimer(next)
		}
	}
}

// fire starts a run unless one is already in flight
func (s *Scheduler) fire(ctx context.Context, now time.Time) {
	target := model.Today(now, s.cfg.Location).AddDays(s.cfg.LookaheadDays)
	logger := s.logger.With(zap.String("target_date", target.String()))

	if !s.running.CompareAndSwap(false, true) {
		logger.Warn("Previous allocation run still in progress, skipping tick")
		return
	}

	logger.Info("Starting scheduled allocation run")
	runCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Allocation run panicked",
					zap.String("reason", ReasonUnexpectedException),
					zap.Any("panic", r))
			}
		}()

		started := s.clock.Now()
		if err := s.run(runCtx, target); err != nil {
			logger.Error("Allocation run failed",
				zap.String("reason", ReasonUnexpectedException),
				zap.Error(err))
			return
		}
		logger.Info("Scheduled allocation run finished", zap.Duration("duration", s.clock.Now().Sub(started)))
	}()
}

// firstDelay returns the wait until today's fire time. If every fire time today has
// passed the run happens after CatchUpDelay and catchUp is true; if the rule has
// none today the wait is until its next occurrence.
func (s *Scheduler) firstDelay(now time.Time) (delay time.Duration, catchUp bool, err error) {
	local := now.In(s.cfg.Location)
	rule, dayStart, err := s.anchoredRule(local)
	if err != nil {
		return 0, false, err
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	passedToday := false
	for _, occurrence := range rule.Between(dayStart, dayEnd, true) {
		if !occurrence.Before(dayEnd) {
			continue
		}
		if occurrence.After(local) {
			return occurrence.Sub(local), false, nil
		}
		passedToday = true
	}
	if passedToday {
		return s.cfg.CatchUpDelay, true, nil
	}

	delay, err = s.nextDelay(now)
	return delay, false, err
}

// nextDelay returns the wait until the rule's first occurrence strictly after now
func (s *Scheduler) nextDelay(now time.Time) (time.Duration, error) {
	local := now.In(s.cfg.Location)
	rule, _, err := s.anchoredRule(local)
	if err != nil {
		return 0, err
	}

	next := rule.After(local, false)
	if next.IsZero() {
		return 0, errors.New("schedule rule has no future occurrence")
	}
	return next.Sub(local), nil
}

// anchoredRule restarts the rule at the start of local's day
func (s *Scheduler) anchoredRule(local time.Time) (*rrule.RRule, time.Time, error) {
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)

	opts := s.cfg.Rule.OrigOptions
	opts.Dtstart = dayStart
	rule, err := rrule.NewRRule(opts)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to anchor schedule rule: %w", err)
	}
	return rule, dayStart, nil
}
