// Package notifications detects genuine schedule changes per group and
// pushes them to the group's subscribers.
//
// Pipeline: fetch → normalize → [per group: detect → diff → dispatch → commit].
// Delivery is at-most-once per detected change; a record is committed only
// after every send for its group was attempted, so a crash before commit
// re-notifies on the next run instead of losing the change.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/svitlo/svitlo-bot/internal/schedule"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultSendInterval = 500 * time.Millisecond
	defaultSendTimeout  = 10 * time.Second
)

// --------------------------------------------------------------------------
// Collaborators
// --------------------------------------------------------------------------

// Fetcher retrieves the current upstream document.
type Fetcher interface {
	Fetch(ctx context.Context) (*schedule.Snapshot, error)
}

// RecordStore holds the last-known canonical schedule per group.
// GetRecord returns schedule.ErrRecordNotFound for a group never saved.
// SaveRecord must replace the whole record atomically.
type RecordStore interface {
	GetRecord(ctx context.Context, group schedule.GroupID) (schedule.Record, error)
	SaveRecord(ctx context.Context, rec schedule.Record) error
}

// SubscriberStore resolves the recipients of a group, in join order.
type SubscriberStore interface {
	SubscribersFor(ctx context.Context, group schedule.GroupID) ([]int64, error)
}

// Sender delivers one formatted message to one user.
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// ChangeSet is one group's detected change, used to render a notification.
type ChangeSet struct {
	Group            schedule.GroupID
	Today            schedule.DayDiff
	Tomorrow         schedule.DayDiff
	Schedule         schedule.GroupSchedule
	Previous         *schedule.GroupSchedule
	FirstObservation bool
}

// Policy decides which tomorrow transitions are worth a broadcast.
// Suppressed changes are still committed, except that a suppressed
// withdrawal keeps the stored tomorrow.
type Policy struct {
	NotifyTomorrowPublished bool
	NotifyTomorrowWithdrawn bool
}

// DefaultPolicy notifies when tomorrow appears. Upstream intermittently
// omits tomorrow, so a withdrawal alone is neither announced nor stored.
func DefaultPolicy() Policy {
	return Policy{NotifyTomorrowPublished: true}
}

// ShouldNotify reports whether cs warrants messages to subscribers.
func (p Policy) ShouldNotify(cs ChangeSet) bool {
	if cs.FirstObservation {
		return false
	}
	if cs.Today.Kind == schedule.Changed {
		return true
	}
	switch cs.Tomorrow.Kind {
	case schedule.Changed:
		return true
	case schedule.Published:
		return p.NotifyTomorrowPublished
	case schedule.Withdrawn:
		return p.NotifyTomorrowWithdrawn
	}
	return false
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// ErrRunInProgress is returned by RunOnce when another run holds the lock.
var ErrRunInProgress = errors.New("check run already in progress")

// FetchError aborts the whole run before any store mutation.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "fetch schedule: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// FailureReason classifies a failed send. Both reasons are handled alike.
type FailureReason string

const (
	ReasonBlocked   FailureReason = "blocked"
	ReasonTransport FailureReason = "transport"
)

// SendFailure is one recipient's failed delivery.
type SendFailure struct {
	UserID int64
	Reason FailureReason
	Err    error
}

func (e *SendFailure) Error() string {
	return fmt.Sprintf("send to %d (%s): %v", e.UserID, e.Reason, e.Err)
}

func (e *SendFailure) Unwrap() error { return e.Err }

// StoreWriteError means a group's record was not committed. The next run
// recomputes from the old record and notifies again.
type StoreWriteError struct {
	Group schedule.GroupID
	Err   error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("commit record for group %s: %v", e.Group, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }
