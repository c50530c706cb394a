// Package handler provides HTTP handlers for all API endpoints.
// Handlers read the store directly; there is no service layer.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/svitlo/svitlo-bot/internal/api/respond"
	"github.com/svitlo/svitlo-bot/internal/cache"
	"github.com/svitlo/svitlo-bot/internal/schedule"
)

// Version is reported at / and in the API docs.
const Version = "1.0.0"

// Store is the read side of storage the API serves from.
type Store interface {
	GetRecord(ctx context.Context, group schedule.GroupID) (schedule.Record, error)
	ListRecords(ctx context.Context) ([]schedule.Record, error)
	SubscriberStats(ctx context.Context) (map[schedule.GroupID]int, error)
	CountSubscribers(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store  Store
	cache  *cache.Cache
	driver string
	logger *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(store Store, c *cache.Cache, driver string, logger *slog.Logger) *Handler {
	return &Handler{store: store, cache: c, driver: driver, logger: logger}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteObject(w, http.StatusOK, map[string]any{
		"name":    "Svitlo Bot API",
		"version": Version,
		"status":  "running",
		"docs":    "/docs",
		"metrics": "/metrics",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckStore verifies store connectivity.
// @Summary Store health check
// @Description Verifies the schedule store is reachable and reports cache statistics.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/store [get]
func (h *Handler) HealthCheckStore(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("Store health check failed", "driver", h.driver, "error", err)
		respond.WriteObject(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"store":     h.driver,
			"error":     "Store connection check failed",
			"timestamp": now,
		})
		return
	}
	respond.WriteObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"store":     h.driver,
		"cache":     h.cache.Stats(),
		"timestamp": now,
	})
}
