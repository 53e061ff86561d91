// Package lock provides the single-flight lease taken before a reconciler runs.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockHeld is returned when another holder owns the lease.
var ErrLockHeld = errors.New("lock already held")

// Locker hands out leases keyed by name. Acquire never blocks waiting for
// another holder; it fails fast with ErrLockHeld.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// LocalLocker is an in-process Locker. The ttl is ignored; a lease is held
// until its unlock function runs.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrLockHeld
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

var _ Locker = (*LocalLocker)(nil)
