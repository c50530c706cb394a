package db

import (
	"context"
	"fmt"

	"github.com/svitlo/svitlo-bot/internal/runlock"
)

// checkLockKey identifies the check-run advisory lock.
const checkLockKey int64 = 0x5356_4C54_4348_4B00

// CheckChannel is the LISTEN/NOTIFY channel that requests an immediate run.
const CheckChannel = "svitlo_check"

// AdvisoryLock is a runlock.Locker backed by a session-level Postgres
// advisory lock. The lock lives on one pooled connection held until release,
// and dies with that session if the process crashes.
type AdvisoryLock struct {
	pool *Pool
}

// Locker returns the store's run lock.
func (s *Store) Locker() runlock.Locker {
	return &AdvisoryLock{pool: s.pool}
}

func (l *AdvisoryLock) Acquire(ctx context.Context) (runlock.Release, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, "try_advisory_lock", checkLockKey).Scan(&ok); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, runlock.ErrHeld
	}

	released := false
	return func(ctx context.Context) error {
		if released {
			return nil
		}
		released = true
		defer conn.Release()
		var unlocked bool
		if err := conn.QueryRow(ctx, "advisory_unlock", checkLockKey).Scan(&unlocked); err != nil {
			// Drop the session so the server frees the lock with it.
			_ = conn.Conn().Close(context.Background())
			return fmt.Errorf("advisory unlock: %w", err)
		}
		return nil
	}, nil
}

// RequestCheck asks listening services to run a check now.
func (s *Store) RequestCheck(ctx context.Context, reason string) error {
	if _, err := s.pool.Exec(ctx, "request_check", CheckChannel, reason); err != nil {
		return fmt.Errorf("notify %s: %w", CheckChannel, err)
	}
	return nil
}
