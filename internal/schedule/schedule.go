// Package schedule holds the canonical outage schedule model and the pure
// functions over it: normalization of raw upstream data, fingerprinting for
// change detection, and interval-level diffing.
//
// Canonical form: per day, the "power available" windows sorted by start,
// with overlapping and touching windows merged and zero-length windows dropped.
// Anything else the upstream returns (fetch time, document ids, item titles)
// is metadata and never reaches the canonical form.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Time of day
// --------------------------------------------------------------------------

// Minute is a time of day at minute granularity, counted from midnight.
// EndOfDay (24:00) is valid only as an interval end.
type Minute int

const (
	StartOfDay Minute = 0
	EndOfDay   Minute = 24 * 60
)

// String formats the minute as HH:MM ("24:00" for EndOfDay).
func (m Minute) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// ParseClock parses "H:MM" or "HH:MM". "24:00" parses to EndOfDay.
func ParseClock(s string) (Minute, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("parse clock %q: missing colon", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("parse clock %q: out of range", s)
	}
	return Minute(h*60 + m), nil
}

// --------------------------------------------------------------------------
// Canonical model
// --------------------------------------------------------------------------

// Interval is a half-open window [Start, End) within one calendar day.
type Interval struct {
	Start Minute `json:"start"`
	End   Minute `json:"end"`
}

// Len returns the interval length in minutes.
func (iv Interval) Len() int { return int(iv.End - iv.Start) }

// Duration returns the interval length as a time.Duration.
func (iv Interval) Duration() time.Duration {
	return time.Duration(iv.Len()) * time.Minute
}

func (iv Interval) String() string {
	return iv.Start.String() + "–" + iv.End.String()
}

// DaySchedule is the canonical list of power-available windows for one day.
// Windows are sorted, disjoint and never touch.
type DaySchedule struct {
	Windows []Interval `json:"windows"`
}

// Available returns the total minutes with power.
func (d DaySchedule) Available() time.Duration {
	var total time.Duration
	for _, w := range d.Windows {
		total += w.Duration()
	}
	return total
}

// Unavailable returns 24h minus the available time. Display only.
func (d DaySchedule) Unavailable() time.Duration {
	return EndOfDay.duration() - d.Available()
}

// Outages returns the complement of the available windows within the day.
func (d DaySchedule) Outages() []Interval {
	return complement(d.Windows)
}

// Equal reports whether two canonical day schedules cover the same minutes.
func (d DaySchedule) Equal(o DaySchedule) bool {
	if len(d.Windows) != len(o.Windows) {
		return false
	}
	for i := range d.Windows {
		if d.Windows[i] != o.Windows[i] {
			return false
		}
	}
	return true
}

func (m Minute) duration() time.Duration { return time.Duration(m) * time.Minute }

// Day selects today's or tomorrow's schedule.
type Day uint8

const (
	Today Day = iota
	Tomorrow
)

func (d Day) String() string {
	if d == Tomorrow {
		return "tomorrow"
	}
	return "today"
}

// GroupSchedule is the canonical schedule of one group. Tomorrow is nil
// until the upstream publishes it.
type GroupSchedule struct {
	Group    GroupID      `json:"group"`
	Today    DaySchedule  `json:"today"`
	Tomorrow *DaySchedule `json:"tomorrow,omitempty"`
}

// HasTomorrow reports whether tomorrow's schedule is published.
func (g GroupSchedule) HasTomorrow() bool { return g.Tomorrow != nil }

// Record is the persisted last-known state of one group.
type Record struct {
	Group       GroupID       `json:"group"`
	Schedule    GroupSchedule `json:"schedule"`
	Fingerprint Fingerprint   `json:"fingerprint"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewRecord fingerprints s and stamps the record with at.
func NewRecord(s GroupSchedule, at time.Time) Record {
	return Record{
		Group:       s.Group,
		Schedule:    s,
		Fingerprint: Compute(s),
		UpdatedAt:   at.UTC(),
	}
}

// Subscriber is a user receiving notifications for one group.
type Subscriber struct {
	UserID   int64     `json:"user_id"`
	Group    GroupID   `json:"group"`
	JoinedAt time.Time `json:"joined_at"`
}

// Limits caps subscriptions: MaxSubscribers distinct users in total and
// MaxGroupsPerUser groups for any one user. Zero disables a cap.
type Limits struct {
	MaxSubscribers   int
	MaxGroupsPerUser int
}

// --------------------------------------------------------------------------
// Raw upstream shape
// --------------------------------------------------------------------------

// RawInterval is an unvalidated start/end pair as read from upstream.
type RawInterval struct {
	Start Minute
	End   Minute
}

// RawDay is the unvalidated interval list for one day of one group.
// When Outage is set the intervals describe outages and the normalizer
// complements them into available windows.
type RawDay struct {
	Day       Day
	Outage    bool
	Intervals []RawInterval
}

// RawGroup is one group's raw data exactly as the fetcher produced it.
type RawGroup struct {
	Label string
	Days  []RawDay
}

// Snapshot is one upstream fetch. Metadata is volatile and ignored downstream.
type Snapshot struct {
	Groups   []RawGroup
	Metadata map[string]string
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// ErrRecordNotFound is returned by stores for a group never persisted.
var ErrRecordNotFound = errors.New("schedule record not found")

// Subscription caps enforced by the stores.
var (
	ErrSubscriberLimit = errors.New("subscriber limit reached")
	ErrGroupLimit      = errors.New("per-user group limit reached")
)

// MalformedScheduleError reports raw data that violates the interval
// invariants or names an unknown group.
type MalformedScheduleError struct {
	Group  string
	Reason string
}

func (e *MalformedScheduleError) Error() string {
	return fmt.Sprintf("malformed schedule for group %q: %s", e.Group, e.Reason)
}

func malformed(group, format string, args ...any) error {
	return &MalformedScheduleError{Group: group, Reason: fmt.Sprintf(format, args...)}
}
