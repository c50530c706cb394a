// Package listener provides a Postgres LISTEN/NOTIFY consumer that turns
// check requests into immediate pipeline runs. It holds a dedicated pgx
// connection (not from the pool) listening on db.CheckChannel.
//
// Any process sharing the database (the CLI, an operator running
// `NOTIFY svitlo_check`) can request a run this way without waiting for
// the next scheduled tick.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/svitlo/svitlo-bot/internal/db"
)

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
	maxReasonLen     = 64
)

// Requester receives check requests.
type Requester interface {
	Request(reason string)
}

// Start opens a dedicated connection and listens on the check channel. It
// reconnects automatically on connection loss. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, target Requester, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, target, logger)
		if ctx.Err() != nil {
			logger.Info("Check listener stopped (context cancelled)")
			return
		}

		logger.Error("Check listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = nextBackoff(backoff)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, target Requester, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{db.CheckChannel}.Sanitize()); err != nil {
		return fmt.Errorf("LISTEN %s: %w", db.CheckChannel, err)
	}
	logger.Info("Check listener connected", "channel", db.CheckChannel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		reason := requestReason(n.Payload)
		logger.Info("Check requested", "reason", reason, "sender_pid", n.PID)
		target.Request(reason)
	}
}

// requestReason turns a free-form NOTIFY payload into a short log label.
func requestReason(payload string) string {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "notify"
	}
	if len(payload) > maxReasonLen {
		payload = payload[:maxReasonLen]
	}
	return "notify:" + payload
}

func nextBackoff(cur time.Duration) time.Duration {
	return min(cur*2, maxReconnect)
}
