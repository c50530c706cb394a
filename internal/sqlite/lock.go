package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/svitlo/svitlo-bot/internal/runlock"
)

const checkLockName = "check"

// LeaseLock is a runlock.Locker backed by a run_locks row with an expiry.
// The holder renews the row while it runs. An expired lease can be taken
// over, so a crashed holder blocks later runs for at most ttl.
type LeaseLock struct {
	store *Store
	name  string
	ttl   time.Duration
}

// Locker returns the store's run lock with the given lease.
func (s *Store) Locker(ttl time.Duration) *LeaseLock {
	return &LeaseLock{store: s, name: checkLockName, ttl: ttl}
}

func (l *LeaseLock) Acquire(ctx context.Context) (runlock.Release, error) {
	owner := uuid.NewString()
	now := l.store.now().UTC()
	res, err := l.store.db.ExecContext(ctx, `
		INSERT INTO run_locks (name, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			owner      = excluded.owner,
			expires_at = excluded.expires_at
		WHERE run_locks.expires_at <= ?`,
		l.name, owner, now.Add(l.ttl).UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("acquire lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("acquire lease: %w", err)
	}
	if n == 0 {
		return nil, runlock.ErrHeld
	}

	stop := runlock.KeepAlive(l.ttl, func(ctx context.Context) error {
		return l.renew(ctx, owner)
	})

	return func(ctx context.Context) error {
		renewErr := stop()
		if _, err := l.store.db.ExecContext(ctx,
			`DELETE FROM run_locks WHERE name = ? AND owner = ?`, l.name, owner,
		); err != nil {
			return errors.Join(renewErr, fmt.Errorf("release lease: %w", err))
		}
		return renewErr
	}, nil
}

func (l *LeaseLock) renew(ctx context.Context, owner string) error {
	res, err := l.store.db.ExecContext(ctx,
		`UPDATE run_locks SET expires_at = ? WHERE name = ? AND owner = ?`,
		l.store.now().UTC().Add(l.ttl).UnixNano(), l.name, owner,
	)
	if err != nil {
		return fmt.Errorf("renew lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("renew lease: %w", err)
	}
	if n == 0 {
		return runlock.ErrLeaseLost
	}
	return nil
}
