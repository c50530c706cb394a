// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/api and cmd/svitlo.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// --------------------------------------------------------------------------
// Config
// --------------------------------------------------------------------------

type Config struct {
	// Store
	StoreDriver    string
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration
	SQLitePath     string

	// Run lock (Redis when set, else the store's own lock)
	RedisURL string
	LockTTL  time.Duration // lease a crashed holder keeps; live holders renew it

	// Upstream
	UpstreamURL            string
	FetchTimeout           time.Duration
	FetchRequestsPerMinute int
	DumpPath               string

	// Telegram
	TelegramBotToken string
	SendInterval     time.Duration
	SendTimeout      time.Duration

	// Pipeline
	CheckSchedule           string
	NotifyTomorrowPublished bool
	NotifyTomorrowWithdrawn bool
	MaxSubscribers          int
	MaxGroupsPerUser        int

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	LogLevel    slog.Level

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Cache
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Load reads configuration from environment variables with sensible defaults
// and validates the result.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", "")
	driver := envOr("STORE_DRIVER", "")
	if driver == "" {
		driver = DriverSQLite
		if dbURL != "" {
			driver = DriverPostgres
		}
	}

	cfg := &Config{
		StoreDriver:    strings.ToLower(driver),
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 5),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,
		SQLitePath:     envOr("SQLITE_PATH", "data/svitlo.db"),

		RedisURL: envOr("REDIS_URL", ""),
		LockTTL:  time.Duration(envInt("LOCK_TTL_SECONDS", 600)) * time.Second,

		UpstreamURL:            envOr("UPSTREAM_URL", "https://api.loe.lviv.ua/api/menus?page=1&type=photo-grafic"),
		FetchTimeout:           time.Duration(envInt("FETCH_TIMEOUT_SECONDS", 30)) * time.Second,
		FetchRequestsPerMinute: envInt("FETCH_REQUESTS_PER_MINUTE", 12),
		DumpPath:               envOr("DUMP_PATH", ""),

		TelegramBotToken: envOr("TELEGRAM_BOT_TOKEN", ""),
		SendInterval:     time.Duration(envInt("SEND_INTERVAL_MS", 500)) * time.Millisecond,
		SendTimeout:      time.Duration(envInt("SEND_TIMEOUT_SECONDS", 10)) * time.Second,

		CheckSchedule:           envOr("CHECK_SCHEDULE", "@every 5m"),
		NotifyTomorrowPublished: envBool("NOTIFY_TOMORROW_PUBLISHED", true),
		NotifyTomorrowWithdrawn: envBool("NOTIFY_TOMORROW_WITHDRAWN", false),
		MaxSubscribers:          envInt("MAX_SUBSCRIBERS", 25),
		MaxGroupsPerUser:        envInt("MAX_GROUPS_PER_USER", 6),

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		LogLevel:    envLevel("LOG_LEVEL", slog.LevelInfo),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CacheEnabled: envBool("CACHE_ENABLED", true),
		CacheTTL:     time.Duration(envInt("CACHE_TTL_SECONDS", 60)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL must be set for the postgres store"))
		}
		// The run lock pins one pooled connection for the whole run.
		if c.DBPoolMaxConns < 2 {
			errs = append(errs, errors.New("DB_POOL_MAX_CONNS must be at least 2 for the postgres store"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH must be set for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.SendInterval < 0 {
		errs = append(errs, errors.New("SEND_INTERVAL_MS must not be negative"))
	}
	if c.SendTimeout <= 0 || c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("SEND_TIMEOUT_SECONDS and FETCH_TIMEOUT_SECONDS must be positive"))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, errors.New("LOCK_TTL_SECONDS must be positive"))
	}
	if c.MaxSubscribers <= 0 || c.MaxGroupsPerUser <= 0 {
		errs = append(errs, errors.New("MAX_SUBSCRIBERS and MAX_GROUPS_PER_USER must be positive"))
	}
	if c.CheckSchedule == "" {
		errs = append(errs, errors.New("CHECK_SCHEDULE must not be empty"))
	}
	return errors.Join(errs...)
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DryRun reports whether messages should be logged instead of sent.
func (c *Config) DryRun() bool {
	return c.TelegramBotToken == ""
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(v)); err == nil {
			return l
		}
	}
	return fallback
}
