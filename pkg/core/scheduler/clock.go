package scheduler

import (
	"sync"
	"time"
)

// Clock abstracts time so the scheduling loop can be driven by tests
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the subset of time.Timer used by the scheduler
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// RealClock uses the system clock
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTimer(d time.Duration) Timer {
	return &realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r *realTimer) C() <-chan time.Time { return r.t.C }
func (r *realTimer) Stop() bool          { return r.t.Stop() }

// FakeClock is a manually advanced Clock for tests
type FakeClock struct {
	mu     sync.Mutex
	cond   *sync.Cond
	now    time.Time
	timers map[*fakeTimer]struct{}
}

// NewFakeClock creates a FakeClock reading now
func NewFakeClock(now time.Time) *FakeClock {
	c := &FakeClock{
		now:    now,
		timers: make(map[*fakeTimer]struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{
		clock:    c,
		deadline: c.now.Add(d),
		ch:       make(chan time.Time, 1),
	}
	if d <= 0 {
		t.ch <- c.now
		return t
	}
	c.timers[t] = struct{}{}
	c.cond.Broadcast()
	return t
}

// Advance moves the clock forward and fires every timer whose deadline has passed
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	for t := range c.timers {
		if t.deadline.After(c.now) {
			continue
		}
		select {
		case t.ch <- c.now:
		default:
		}
		delete(c.timers, t)
	}
	c.cond.Broadcast()
}

// BlockUntil waits until at least n timers are pending
func (c *FakeClock) BlockUntil(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.timers) < n {
		c.cond.Wait()
	}
}

// PendingTimers returns the number of timers that have not fired or been stopped
func (c *FakeClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type fakeTimer struct {
	clock    *FakeClock
	deadline time.Time
	ch       chan time.Time
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	_, pending := t.clock.timers[t]
	delete(t.clock.timers, t)
	t.clock.cond.Broadcast()
	return pending
}
