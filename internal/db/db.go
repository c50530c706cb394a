// Package db provides a pgxpool-based Postgres store with prepared statement
// registration, embedded migrations and a session advisory lock.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/svitlo/svitlo-bot/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New applies the schema and creates a validated connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	// Prepared statements need the tables, so migrate before the pool connects.
	if err := Migrate(ctx, cfg.DatabaseURL); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers every statement the store uses.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Schedule records
		"get_record":   "SELECT schedule, fingerprint, updated_at FROM schedule_records WHERE group_id = $1",
		"list_records": "SELECT group_id, schedule, fingerprint, updated_at FROM schedule_records ORDER BY group_id",
		"save_record": `INSERT INTO schedule_records (group_id, schedule, fingerprint, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (group_id) DO UPDATE
			SET schedule = EXCLUDED.schedule, fingerprint = EXCLUDED.fingerprint, updated_at = EXCLUDED.updated_at`,

		// Subscriptions
		"subscribers_for":     "SELECT user_id FROM subscriptions WHERE group_id = $1 ORDER BY joined_at, user_id",
		"list_subscribers":    "SELECT user_id, group_id, joined_at FROM subscriptions ORDER BY joined_at, user_id, group_id",
		"count_subscribers":   "SELECT count(DISTINCT user_id) FROM subscriptions",
		"count_user_groups":   "SELECT count(*) FROM subscriptions WHERE user_id = $1",
		"has_subscription":    "SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_id = $1 AND group_id = $2)",
		"add_subscription":    "INSERT INTO subscriptions (user_id, group_id, joined_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
		"remove_subscription": "DELETE FROM subscriptions WHERE user_id = $1 AND group_id = $2",
		"remove_user":         "DELETE FROM subscriptions WHERE user_id = $1",
		"subscriber_stats":    "SELECT group_id, count(*) FROM subscriptions GROUP BY group_id ORDER BY group_id",

		// Run lock and trigger
		"try_advisory_lock": "SELECT pg_try_advisory_lock($1)",
		"advisory_unlock":   "SELECT pg_advisory_unlock($1)",
		"request_check":     "SELECT pg_notify($1, $2)",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
