package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "STORE_DRIVER", "SQLITE_PATH", "TELEGRAM_BOT_TOKEN", "LOG_LEVEL",
		"SEND_INTERVAL_MS", "SEND_TIMEOUT_SECONDS", "FETCH_TIMEOUT_SECONDS", "LOCK_TTL_SECONDS",
		"CHECK_SCHEDULE", "NOTIFY_TOMORROW_PUBLISHED", "NOTIFY_TOMORROW_WITHDRAWN",
		"MAX_SUBSCRIBERS", "MAX_GROUPS_PER_USER", "CORS_ALLOW_ORIGINS", "DB_POOL_MAX_CONNS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 500*time.Millisecond, cfg.SendInterval)
	assert.Equal(t, "@every 5m", cfg.CheckSchedule)
	assert.True(t, cfg.NotifyTomorrowPublished)
	assert.False(t, cfg.NotifyTomorrowWithdrawn)
	assert.Equal(t, 25, cfg.MaxSubscribers)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, cfg.DryRun())
}

func TestLoad_PostgresInferredFromURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://svitlo@localhost/svitlo")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SEND_INTERVAL_MS", "1200")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 1200*time.Millisecond, cfg.SendInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
}

func TestLoad_InvalidSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("MAX_SUBSCRIBERS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "MAX_SUBSCRIBERS")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := &Config{
		StoreDriver:      "mongo",
		SendTimeout:      time.Second,
		FetchTimeout:     time.Second,
		LockTTL:          time.Minute,
		MaxSubscribers:   1,
		MaxGroupsPerUser: 1,
		CheckSchedule:    "@every 1m",
	}
	assert.ErrorContains(t, cfg.Validate(), "mongo")
}

func TestLoad_PostgresNeedsTwoPoolConns(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://svitlo@localhost:5432/svitlo")
	t.Setenv("DB_POOL_MAX_CONNS", "1")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_POOL_MAX_CONNS")

	t.Setenv("DB_POOL_MAX_CONNS", "2")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.DBPoolMaxConns)
}

func TestValidate_PoolSizeIgnoredForSQLite(t *testing.T) {
	cfg := &Config{
		StoreDriver:      DriverSQLite,
		SQLitePath:       "data/svitlo.db",
		DBPoolMaxConns:   1,
		SendTimeout:      time.Second,
		FetchTimeout:     time.Second,
		LockTTL:          time.Minute,
		MaxSubscribers:   1,
		MaxGroupsPerUser: 1,
		CheckSchedule:    "@every 1m",
	}
	assert.NoError(t, cfg.Validate())
}
