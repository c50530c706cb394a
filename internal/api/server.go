// Package api wires the HTTP router: middleware, handlers, metrics and docs.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/svitlo/svitlo-bot/internal/api/handler"
	"github.com/svitlo/svitlo-bot/internal/cache"
	"github.com/svitlo/svitlo-bot/internal/config"
)

// NewRouter creates and configures the chi router with all middleware and
// routes. gatherer may be nil, in which case /metrics is not mounted.
func NewRouter(store handler.Store, appCache *cache.Cache, gatherer prometheus.Gatherer, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	h := handler.New(store, appCache, cfg.StoreDriver, logger)

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/store", h.HealthCheckStore)
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/groups", h.ListGroups)
		r.Get("/schedules", h.ListSchedules)
		r.Get("/schedules/{group}", h.GetSchedule)
		r.Get("/subscribers/stats", h.SubscriberStats)
	})

	return r
}
