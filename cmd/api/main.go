// Command api is the long-running Svitlo service: it checks the upstream
// schedule on a cron spec, notifies subscribers of changes, and serves a
// read-only HTTP API with metrics.
//
// Usage:
//
//	svitlo-api
//	CHECK_SCHEDULE="@every 2m" API_PORT=8080 svitlo-api

// @title Svitlo Bot API
// @version 1.0.0
// @description Read-only view of stored power-outage schedules for Lviv groups 1.1-6.2 and subscriber statistics.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Svitlo
// @license.name MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/svitlo/svitlo-bot/internal/api"
	"github.com/svitlo/svitlo-bot/internal/cache"
	"github.com/svitlo/svitlo-bot/internal/config"
	"github.com/svitlo/svitlo-bot/internal/listener"
	"github.com/svitlo/svitlo-bot/internal/metrics"
	"github.com/svitlo/svitlo-bot/internal/notifications"
	"github.com/svitlo/svitlo-bot/internal/provider/loe"
	"github.com/svitlo/svitlo-bot/internal/store"
	"github.com/svitlo/svitlo-bot/internal/trigger"

	_ "github.com/svitlo/svitlo-bot/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backend, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	lock, closeLock, err := backend.RunLock(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("run lock: %w", err)
	}
	defer closeLock()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sink := metrics.NewPrometheusSink(reg, logger)

	var sender notifications.Sender
	if cfg.DryRun() {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, notifications will only be logged")
		sender = notifications.NewDryRunSender(logger)
	} else {
		tg, err := notifications.NewTelegramSender(cfg.TelegramBotToken, "", cfg.SendTimeout, logger)
		if err != nil {
			return err
		}
		sender = tg
	}

	pipeline := notifications.NewPipeline(notifications.Deps{
		Fetcher:    loe.NewClient(cfg.UpstreamURL, cfg.FetchTimeout, cfg.FetchRequestsPerMinute, cfg.DumpPath, logger),
		Records:    backend.Store,
		Dispatcher: notifications.NewDispatcher(backend.Store, sender, cfg.SendInterval, cfg.SendTimeout, sink, logger),
		Lock:       lock,
		Metrics:    sink,
	}, notifications.Policy{
		NotifyTomorrowPublished: cfg.NotifyTomorrowPublished,
		NotifyTomorrowWithdrawn: cfg.NotifyTomorrowWithdrawn,
	}, logger)

	trig, err := trigger.New(pipeline, cfg.CheckSchedule, logger)
	if err != nil {
		return err
	}
	trigDone := make(chan struct{})
	go func() {
		trig.Start(ctx)
		close(trigDone)
	}()
	trig.Request("startup")

	if cfg.StoreDriver == config.DriverPostgres {
		go listener.Start(ctx, cfg.DatabaseURL, trig, logger)
	}

	appCache := cache.New(cfg.CacheEnabled, cfg.CacheTTL)
	go appCache.Run(ctx)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled, "ttl", cfg.CacheTTL)

	router := api.NewRouter(backend.Store, appCache, reg, cfg, logger)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting Svitlo API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		cancel()
		<-trigDone
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}

	// Let an in-flight check finish before the store closes.
	cancel()
	<-trigDone
	logger.Info("Server stopped")
	return nil
}
