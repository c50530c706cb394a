package metrics

import "time"

// NoopSink is used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) RunCompleted(outcome string, duration time.Duration) {}
func (n *NoopSink) GroupProcessed(outcome string)                       {}
func (n *NoopSink) NotificationSent(outcome string)                     {}
