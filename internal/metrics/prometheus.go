package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink with the Prometheus client library.
// Registration errors are logged and never propagated.
type PrometheusSink struct {
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	groupsTotal   *prometheus.CounterVec
	messagesTotal *prometheus.CounterVec
}

// NewPrometheusSink creates the collectors and registers them with reg.
func NewPrometheusSink(reg prometheus.Registerer, logger *slog.Logger) *PrometheusSink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PrometheusSink{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svitlo_pipeline_runs_total",
			Help: "Total number of check runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "svitlo_pipeline_run_duration_seconds",
			Help:    "Duration of each check run in seconds, including sends.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		groupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svitlo_pipeline_groups_total",
			Help: "Total number of group evaluations by outcome.",
		}, []string{"outcome"}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svitlo_notifications_total",
			Help: "Total number of notification send attempts by outcome.",
		}, []string{"outcome"}),
	}

	s.register(reg, logger, s.runsTotal, "svitlo_pipeline_runs_total")
	s.register(reg, logger, s.runDuration, "svitlo_pipeline_run_duration_seconds")
	s.register(reg, logger, s.groupsTotal, "svitlo_pipeline_groups_total")
	s.register(reg, logger, s.messagesTotal, "svitlo_notifications_total")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, logger *slog.Logger, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		logger.Warn("Failed to register metric", "name", name, "error", err)
	}
}

func (s *PrometheusSink) RunCompleted(outcome string, duration time.Duration) {
	s.runsTotal.WithLabelValues(outcome).Inc()
	s.runDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) GroupProcessed(outcome string) {
	s.groupsTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) NotificationSent(outcome string) {
	s.messagesTotal.WithLabelValues(outcome).Inc()
}
