package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svitlo/svitlo-bot/internal/config"
	"github.com/svitlo/svitlo-bot/internal/runlock"
	"github.com/svitlo/svitlo-bot/internal/schedule"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		StoreDriver:      config.DriverSQLite,
		SQLitePath:       filepath.Join(t.TempDir(), "svitlo.db"),
		LockTTL:          time.Minute,
		MaxSubscribers:   1,
		MaxGroupsPerUser: 1,
	}
}

func TestOpen_SQLite(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	b, err := Open(ctx, testConfig(t), logger)
	require.NoError(t, err)
	defer b.Close()

	assert.Nil(t, b.Pool)
	require.NoError(t, b.Store.AddSubscriber(ctx, 1, schedule.Group11))
	assert.ErrorIs(t, b.Store.AddSubscriber(ctx, 2, schedule.Group11), schedule.ErrSubscriberLimit)

	lock, closeLock, err := b.RunLock(ctx, testConfig(t), logger)
	require.NoError(t, err)
	defer closeLock()
	release, err := lock.Acquire(ctx)
	require.NoError(t, err)
	_, err = b.Lock.Acquire(ctx)
	assert.ErrorIs(t, err, runlock.ErrHeld)
	require.NoError(t, release(ctx))
}

func TestRunLock_Redis(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	b, err := Open(ctx, cfg, logger)
	require.NoError(t, err)
	defer b.Close()

	cfg.RedisURL = "redis://" + mr.Addr()
	lock, closeLock, err := b.RunLock(ctx, cfg, logger)
	require.NoError(t, err)
	defer closeLock()

	release, err := lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(runlock.DefaultKey))
	require.NoError(t, release(ctx))
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = "mongo"
	_, err := Open(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
