package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLocked is returned when another holder owns the key
var ErrLocked = errors.New("lock is held")

// ReleaseFunc gives a lock back
type ReleaseFunc func(ctx context.Context) error

// Locker hands out exclusive, non-blocking locks keyed by name
type Locker interface {
	// TryAcquire returns ErrLocked immediately if key is held
	TryAcquire(ctx context.Context, key string) (ReleaseFunc, error)
}

// LocalLocker guards keys within a single process
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

func (l *LocalLocker) TryAcquire(ctx context.Context, key string) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, ErrLocked
	}
	l.held[key] = true

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
