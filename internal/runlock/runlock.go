// Package runlock guards a check run against overlapping invocations.
//
// Two concurrent runs could both see "no prior record" for a group, or race
// on committing it, so every run holds a lock for its whole duration.
package runlock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrHeld is returned by Acquire when another run holds the lock.
	ErrHeld = errors.New("run lock held by another run")

	// ErrLeaseLost is reported on release when a renewal found the lease
	// expired or taken over by another run.
	ErrLeaseLost = errors.New("run lock lease lost")
)

// Release gives the lock back. It is safe to call once.
type Release func(ctx context.Context) error

// Locker is a non-blocking mutual exclusion guard.
type Locker interface {
	Acquire(ctx context.Context) (Release, error)
}

// Local is an in-process Locker for single-node deployments and tests.
type Local struct {
	mu sync.Mutex
}

// NewLocal returns an unlocked in-process lock.
func NewLocal() *Local { return &Local{} }

func (l *Local) Acquire(ctx context.Context) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !l.mu.TryLock() {
		return nil, ErrHeld
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(l.mu.Unlock)
		return nil
	}, nil
}

// KeepAlive calls renew every ttl/3 until the returned stop func is called,
// so a lease outlives a run of any length while its holder is alive. Renewal
// ends early once renew reports ErrLeaseLost. stop waits for the renewal
// goroutine and returns the error of the last renewal attempt, if it failed.
func KeepAlive(ttl time.Duration, renew func(ctx context.Context) error) (stop func() error) {
	interval := ttl / 3
	if interval <= 0 {
		return func() error { return nil }
	}

	quit := make(chan struct{})
	done := make(chan struct{})
	var failure error

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				failure = renew(ctx)
				cancel()
				if errors.Is(failure, ErrLeaseLost) {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() error {
		once.Do(func() { close(quit) })
		<-done
		return failure
	}
}
