package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/svitlo/svitlo-bot/internal/schedule"
)

// subscriptionsLockKey serialises subscription writes so the caps hold
// under concurrent registrations.
const subscriptionsLockKey int64 = 0x5356_4C54_5355_4253

// Store implements record and subscription storage on Postgres.
type Store struct {
	pool   *Pool
	limits schedule.Limits
}

// NewStore wraps an open pool.
func NewStore(pool *Pool, limits schedule.Limits) *Store {
	return &Store{pool: pool, limits: limits}
}

// --------------------------------------------------------------------------
// Schedule records
// --------------------------------------------------------------------------

func (s *Store) GetRecord(ctx context.Context, group schedule.GroupID) (schedule.Record, error) {
	var (
		raw, fp   []byte
		updatedAt time.Time
	)
	err := s.pool.QueryRow(ctx, "get_record", group.String()).Scan(&raw, &fp, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return schedule.Record{}, schedule.ErrRecordNotFound
	}
	if err != nil {
		return schedule.Record{}, fmt.Errorf("get record %s: %w", group, err)
	}
	return decodeRecord(group.String(), raw, fp, updatedAt)
}

// SaveRecord replaces the group's row in a single upsert statement.
func (s *Store) SaveRecord(ctx context.Context, rec schedule.Record) error {
	raw, err := json.Marshal(rec.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule %s: %w", rec.Group, err)
	}
	if _, err := s.pool.Exec(ctx, "save_record", rec.Group.String(), raw, rec.Fingerprint[:], rec.UpdatedAt); err != nil {
		return fmt.Errorf("save record %s: %w", rec.Group, err)
	}
	return nil
}

// ListRecords returns every stored record ordered by group.
func (s *Store) ListRecords(ctx context.Context) ([]schedule.Record, error) {
	rows, err := s.pool.Query(ctx, "list_records")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []schedule.Record
	for rows.Next() {
		var (
			group     string
			raw, fp   []byte
			updatedAt time.Time
		)
		if err := rows.Scan(&group, &raw, &fp, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decodeRecord(group, raw, fp, updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decodeRecord(group string, raw, fp []byte, updatedAt time.Time) (schedule.Record, error) {
	g, err := schedule.ParseGroup(group)
	if err != nil {
		return schedule.Record{}, fmt.Errorf("stored record: %w", err)
	}
	var s schedule.GroupSchedule
	if err := json.Unmarshal(raw, &s); err != nil {
		return schedule.Record{}, fmt.Errorf("decode schedule %s: %w", group, err)
	}
	f, err := schedule.FingerprintFromBytes(fp)
	if err != nil {
		return schedule.Record{}, fmt.Errorf("stored record %s: %w", group, err)
	}
	return schedule.Record{Group: g, Schedule: s, Fingerprint: f, UpdatedAt: updatedAt.UTC()}, nil
}

// --------------------------------------------------------------------------
// Subscriptions
// --------------------------------------------------------------------------

// SubscribersFor returns the group's users in join order.
func (s *Store) SubscribersFor(ctx context.Context, group schedule.GroupID) ([]int64, error) {
	rows, err := s.pool.Query(ctx, "subscribers_for", group.String())
	if err != nil {
		return nil, fmt.Errorf("subscribers for %s: %w", group, err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// AddSubscriber subscribes userID to group. Subscribing twice is a no-op.
// Returns schedule.ErrSubscriberLimit or schedule.ErrGroupLimit when a cap
// would be exceeded.
func (s *Store) AddSubscriber(ctx context.Context, userID int64, group schedule.GroupID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", subscriptionsLockKey); err != nil {
		return fmt.Errorf("lock subscriptions: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, "has_subscription", userID, group.String()).Scan(&exists); err != nil {
		return fmt.Errorf("check subscription: %w", err)
	}
	if exists {
		return nil
	}

	var groups int
	if err := tx.QueryRow(ctx, "count_user_groups", userID).Scan(&groups); err != nil {
		return fmt.Errorf("count user groups: %w", err)
	}
	if s.limits.MaxGroupsPerUser > 0 && groups >= s.limits.MaxGroupsPerUser {
		return schedule.ErrGroupLimit
	}
	if groups == 0 && s.limits.MaxSubscribers > 0 {
		var users int
		if err := tx.QueryRow(ctx, "count_subscribers").Scan(&users); err != nil {
			return fmt.Errorf("count subscribers: %w", err)
		}
		if users >= s.limits.MaxSubscribers {
			return schedule.ErrSubscriberLimit
		}
	}

	if _, err := tx.Exec(ctx, "add_subscription", userID, group.String(), time.Now().UTC()); err != nil {
		return fmt.Errorf("add subscription: %w", err)
	}
	return tx.Commit(ctx)
}

// RemoveSubscriber drops one subscription, or every subscription of the
// user when group is zero. It reports whether anything was removed.
func (s *Store) RemoveSubscriber(ctx context.Context, userID int64, group schedule.GroupID) (bool, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if group == 0 {
		tag, err = s.pool.Exec(ctx, "remove_user", userID)
	} else {
		tag, err = s.pool.Exec(ctx, "remove_subscription", userID, group.String())
	}
	if err != nil {
		return false, fmt.Errorf("remove subscriber %d: %w", userID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListSubscribers returns every subscription in join order.
func (s *Store) ListSubscribers(ctx context.Context) ([]schedule.Subscriber, error) {
	rows, err := s.pool.Query(ctx, "list_subscribers")
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var out []schedule.Subscriber
	for rows.Next() {
		var (
			sub   schedule.Subscriber
			group string
		)
		if err := rows.Scan(&sub.UserID, &group, &sub.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		if sub.Group, err = schedule.ParseGroup(group); err != nil {
			return nil, fmt.Errorf("stored subscription: %w", err)
		}
		sub.JoinedAt = sub.JoinedAt.UTC()
		out = append(out, sub)
	}
	return out, rows.Err()
}

// CountSubscribers returns the number of distinct subscribed users.
func (s *Store) CountSubscribers(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "count_subscribers").Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return n, nil
}

// SubscriberStats returns subscriptions per group.
func (s *Store) SubscriberStats(ctx context.Context) (map[schedule.GroupID]int, error) {
	rows, err := s.pool.Query(ctx, "subscriber_stats")
	if err != nil {
		return nil, fmt.Errorf("subscriber stats: %w", err)
	}
	defer rows.Close()

	out := make(map[schedule.GroupID]int)
	for rows.Next() {
		var (
			group string
			n     int
		)
		if err := rows.Scan(&group, &n); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		g, err := schedule.ParseGroup(group)
		if err != nil {
			return nil, fmt.Errorf("stored subscription: %w", err)
		}
		out[g] = n
	}
	return out, rows.Err()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.HealthCheck(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
