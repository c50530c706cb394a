// Package metrics records pipeline counters. All methods are fire-and-forget:
// implementations never block and never return errors.
package metrics

import "time"

// Sink defines the interface for recording metrics.
type Sink interface {
	// Pipeline runs
	RunCompleted(outcome string, duration time.Duration)

	// Per-group processing
	GroupProcessed(outcome string)

	// Outbound messages
	NotificationSent(outcome string)
}

// Run outcomes.
const (
	RunOK         = "ok"
	RunFetchError = "fetch_error"
	RunSkipped    = "skipped"
	RunFailed     = "failed"
)

// Group outcomes.
const (
	GroupUnchanged     = "unchanged"
	GroupFirstObserved = "first_observed"
	GroupChanged       = "changed"
	GroupSuppressed    = "suppressed"
	GroupMalformed     = "malformed"
	GroupCommitFailed  = "commit_failed"
)

// Notification outcomes.
const (
	SendOK        = "sent"
	SendBlocked   = "blocked"
	SendTransport = "transport"
)
