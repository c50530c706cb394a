// Package store selects the storage backend and run lock from configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/svitlo/svitlo-bot/internal/config"
	"github.com/svitlo/svitlo-bot/internal/db"
	"github.com/svitlo/svitlo-bot/internal/runlock"
	"github.com/svitlo/svitlo-bot/internal/schedule"
	"github.com/svitlo/svitlo-bot/internal/sqlite"
)

// Store is the union of what the pipeline, API and CLI need from storage.
type Store interface {
	GetRecord(ctx context.Context, group schedule.GroupID) (schedule.Record, error)
	SaveRecord(ctx context.Context, rec schedule.Record) error
	ListRecords(ctx context.Context) ([]schedule.Record, error)

	SubscribersFor(ctx context.Context, group schedule.GroupID) ([]int64, error)
	AddSubscriber(ctx context.Context, userID int64, group schedule.GroupID) error
	RemoveSubscriber(ctx context.Context, userID int64, group schedule.GroupID) (bool, error)
	ListSubscribers(ctx context.Context) ([]schedule.Subscriber, error)
	CountSubscribers(ctx context.Context) (int, error)
	SubscriberStats(ctx context.Context) (map[schedule.GroupID]int, error)

	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*db.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
)

// Backend is an opened store plus its native run lock. Pool is set only for
// the postgres driver.
type Backend struct {
	Store Store
	Lock  runlock.Locker
	Pool  *db.Pool
}

// Open opens the configured store.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	limits := schedule.Limits{MaxSubscribers: cfg.MaxSubscribers, MaxGroupsPerUser: cfg.MaxGroupsPerUser}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		s := db.NewStore(pool, limits)
		logger.Info("Store ready", "driver", cfg.StoreDriver)
		return &Backend{Store: s, Lock: s.Locker(), Pool: pool}, nil

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath, limits)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("Store ready", "driver", cfg.StoreDriver, "path", cfg.SQLitePath)
		return &Backend{Store: s, Lock: s.Locker(cfg.LockTTL)}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// RunLock returns the Redis lock when REDIS_URL is set, else the store's own
// lock. The returned close func releases the Redis client.
func (b *Backend) RunLock(ctx context.Context, cfg *config.Config, logger *slog.Logger) (runlock.Locker, func() error, error) {
	if cfg.RedisURL == "" {
		return b.Lock, func() error { return nil }, nil
	}
	client, err := runlock.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Using Redis run lock", "key", runlock.DefaultKey, "ttl", cfg.LockTTL)
	return runlock.NewRedis(client, runlock.DefaultKey, cfg.LockTTL), client.Close, nil
}

// Close closes the store.
func (b *Backend) Close() error {
	return b.Store.Close()
}
