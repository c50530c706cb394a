package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/svitlo/svitlo-bot/internal/schedule"
)

// SubscribersFor returns the group's users in join order.
func (s *Store) SubscribersFor(ctx context.Context, group schedule.GroupID) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM subscriptions
		WHERE group_id = ?
		ORDER BY joined_at, user_id`,
		group.String(),
	)
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM subscriptions WHERE user_id = ? AND group_id = ?`,
		userID, group.String(),
	).Scan(&exists); err != nil {
		return fmt.Errorf("check subscription: %w", err)
	}
	if exists > 0 {
		return nil
	}

	var groups int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM subscriptions WHERE user_id = ?`, userID,
	).Scan(&groups); err != nil {
		return fmt.Errorf("count user groups: %w", err)
	}
	if s.limits.MaxGroupsPerUser > 0 && groups >= s.limits.MaxGroupsPerUser {
		return schedule.ErrGroupLimit
	}
	if groups == 0 && s.limits.MaxSubscribers > 0 {
		var users int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(DISTINCT user_id) FROM subscriptions`,
		).Scan(&users); err != nil {
			return fmt.Errorf("count subscribers: %w", err)
		}
		if users >= s.limits.MaxSubscribers {
			return schedule.ErrSubscriberLimit
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, group_id, joined_at) VALUES (?, ?, ?)`,
		userID, group.String(), s.now().UTC().UnixNano(),
	); err != nil {
		return fmt.Errorf("add subscription: %w", err)
	}
	return tx.Commit()
}

// RemoveSubscriber drops one subscription, or every subscription of the
// user when group is zero. It reports whether anything was removed.
func (s *Store) RemoveSubscriber(ctx context.Context, userID int64, group schedule.GroupID) (bool, error) {
	query, args := `DELETE FROM subscriptions WHERE user_id = ?`, []any{userID}
	if group != 0 {
		query += ` AND group_id = ?`
		args = append(args, group.String())
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("remove subscriber %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListSubscribers returns every subscription in join order.
func (s *Store) ListSubscribers(ctx context.Context) ([]schedule.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, group_id, joined_at FROM subscriptions
		ORDER BY joined_at, user_id, group_id`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var out []schedule.Subscriber
	for rows.Next() {
		var (
			sub      schedule.Subscriber
			group    string
			joinedAt int64
		)
		if err := rows.Scan(&sub.UserID, &group, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		if sub.Group, err = schedule.ParseGroup(group); err != nil {
			return nil, fmt.Errorf("stored subscription: %w", err)
		}
		sub.JoinedAt = time.Unix(0, joinedAt).UTC()
		out = append(out, sub)
	}
	return out, rows.Err()
}

// CountSubscribers returns the number of distinct subscribed users.
func (s *Store) CountSubscribers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(DISTINCT user_id) FROM subscriptions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return n, nil
}

// SubscriberStats returns subscriptions per group.
func (s *Store) SubscriberStats(ctx context.Context) (map[schedule.GroupID]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT group_id, count(*) FROM subscriptions GROUP BY group_id`)
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
