// Package trigger drives check runs from a cron schedule and from on-demand
// requests such as the Postgres listener.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/svitlo/svitlo-bot/internal/notifications"
)

// Runner runs one detection-and-dispatch cycle.
type Runner interface {
	RunOnce(ctx context.Context) (notifications.RunResult, error)
}

// Parser accepts standard five-field specs, an optional leading seconds
// field, and descriptors such as "@every 5m" or "@hourly".
var Parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Trigger runs the pipeline on schedule and on request.
type Trigger struct {
	runner   Runner
	schedule cron.Schedule
	spec     string
	requests chan string
	logger   *slog.Logger
}

// New validates spec and creates a stopped trigger.
func New(runner Runner, spec string, logger *slog.Logger) (*Trigger, error) {
	sched, err := Parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse check schedule %q: %w", spec, err)
	}
	return &Trigger{
		runner:   runner,
		schedule: sched,
		spec:     spec,
		requests: make(chan string, 1),
		logger:   logger,
	}, nil
}

// Request asks for a run as soon as possible. Requests arriving while one is
// already pending are coalesced into it.
func (t *Trigger) Request(reason string) {
	select {
	case t.requests <- reason:
	default:
		t.logger.Debug("Check already requested", "reason", reason)
	}
}

// Start runs scheduled and requested checks. Blocks until ctx is cancelled
// and any in-flight scheduled run has finished. Intended to be called with `go`.
func (t *Trigger) Start(ctx context.Context) {
	cl := cronLogger{t.logger}
	c := cron.New(
		cron.WithParser(Parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(t.schedule, cron.FuncJob(func() { t.run(ctx, "schedule") }))
	c.Start()
	t.logger.Info("Check trigger started", "schedule", t.spec)

	for {
		select {
		case reason := <-t.requests:
			t.run(ctx, reason)
		case <-ctx.Done():
			<-c.Stop().Done()
			t.logger.Info("Check trigger stopped")
			return
		}
	}
}

func (t *Trigger) run(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	res, err := t.runner.RunOnce(ctx)
	switch {
	case errors.Is(err, notifications.ErrRunInProgress):
		t.logger.Info("Check skipped, previous run still in progress", "reason", reason)
	case err != nil:
		t.logger.Error("Check failed", "reason", reason, "error", err)
	default:
		t.logger.Info("Check finished", "reason", reason, "run_id", res.RunID, "summary", res.Summary())
	}
}

// cronLogger adapts slog to cron.Logger. Cron's own info lines are debug noise.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
