package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/svitlo/svitlo-bot/internal/metrics"
)

// Dispatcher sends one message per subscriber of a changed group.
//
// Sends are sequential and share one limiter across all groups, so two
// consecutive sends are always at least the configured interval apart.
// A failed recipient is logged and skipped, never retried within the run.
type Dispatcher struct {
	subscribers SubscriberStore
	sender      Sender
	limiter     *rate.Limiter
	sendTimeout time.Duration
	metrics     metrics.Sink
	logger      *slog.Logger
}

// NewDispatcher creates a dispatcher. A non-positive interval disables the
// delay; a non-positive timeout falls back to the default per-send timeout.
func NewDispatcher(subs SubscriberStore, sender Sender, interval, sendTimeout time.Duration, sink metrics.Sink, logger *slog.Logger) *Dispatcher {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	return &Dispatcher{
		subscribers: subs,
		sender:      sender,
		limiter:     rate.NewLimiter(limit, 1),
		sendTimeout: sendTimeout,
		metrics:     sink,
		logger:      logger,
	}
}

// DispatchResult counts one group's send attempts.
type DispatchResult struct {
	Recipients int
	Sent       int
	Failed     int
}

// Dispatch renders cs and sends it to every subscriber of its group in join
// order. It returns an error only when the subscriber list cannot be read or
// ctx ends; individual send failures are counted, not returned.
func (d *Dispatcher) Dispatch(ctx context.Context, cs ChangeSet) (DispatchResult, error) {
	var res DispatchResult

	users, err := d.subscribers.SubscribersFor(ctx, cs.Group)
	if err != nil {
		return res, fmt.Errorf("subscribers for group %s: %w", cs.Group, err)
	}
	res.Recipients = len(users)
	if len(users) == 0 {
		d.logger.Info("No subscribers for changed group", "group", cs.Group)
		return res, nil
	}

	text := Render(cs)
	for _, userID := range users {
		if err := d.limiter.Wait(ctx); err != nil {
			return res, fmt.Errorf("send delay: %w", err)
		}

		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		err := d.sender.Send(sendCtx, userID, text)
		cancel()

		if err != nil {
			reason := ReasonTransport
			var sf *SendFailure
			if errors.As(err, &sf) {
				reason = sf.Reason
			}
			d.logger.Warn("Send failed", "group", cs.Group, "user_id", userID, "reason", reason, "error", err)
			d.metrics.NotificationSent(string(reason))
			res.Failed++
			continue
		}
		d.metrics.NotificationSent(metrics.SendOK)
		res.Sent++
	}

	d.logger.Info("Group dispatched", "group", cs.Group, "sent", res.Sent, "failed", res.Failed)
	return res, nil
}
