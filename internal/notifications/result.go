package notifications

import (
	"fmt"
	"time"
)

// RunResult tracks counts and errors from one check run.
type RunResult struct {
	RunID         string
	Duration      time.Duration
	Groups        int
	Unchanged     int
	FirstObserved int
	Changed       int
	Suppressed    int
	Malformed     int
	Missing       int
	ReadFailed    int
	CommitFailed  int
	Sent          int
	SendFailed    int
	Errors        []string
}

// AddError records an error message.
func (r *RunResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddErrorf records a formatted error message.
func (r *RunResult) AddErrorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the run.
func (r *RunResult) Summary() string {
	return fmt.Sprintf(
		"groups=%d unchanged=%d first=%d changed=%d suppressed=%d malformed=%d missing=%d read_failed=%d commit_failed=%d sent=%d send_failed=%d errors=%d",
		r.Groups, r.Unchanged, r.FirstObserved, r.Changed, r.Suppressed,
		r.Malformed, r.Missing, r.ReadFailed, r.CommitFailed, r.Sent, r.SendFailed,
		len(r.Errors),
	)
}
