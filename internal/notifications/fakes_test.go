package notifications

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/svitlo/svitlo-bot/internal/schedule"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --------------------------------------------------------------------------
// Upstream
// --------------------------------------------------------------------------

type fakeFetcher struct {
	mu    sync.Mutex
	snap  *schedule.Snapshot
	err   error
	calls int
}

func (f *fakeFetcher) set(groups ...schedule.RawGroup) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = &schedule.Snapshot{Groups: groups, Metadata: map[string]string{"fetched_at": time.Now().String()}}
	f.err = nil
}

func (f *fakeFetcher) Fetch(context.Context) (*schedule.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func hm(h, m int) schedule.Minute { return schedule.Minute(h*60 + m) }

func win(h1, m1, h2, m2 int) schedule.RawInterval {
	return schedule.RawInterval{Start: hm(h1, m1), End: hm(h2, m2)}
}

// availableGroup builds a raw group from "power available" windows. A nil
// tomorrow leaves tomorrow unpublished.
func availableGroup(label string, today, tomorrow []schedule.RawInterval) schedule.RawGroup {
	g := schedule.RawGroup{Label: label, Days: []schedule.RawDay{{Day: schedule.Today, Intervals: today}}}
	if tomorrow != nil {
		g.Days = append(g.Days, schedule.RawDay{Day: schedule.Tomorrow, Intervals: tomorrow})
	}
	return g
}

// --------------------------------------------------------------------------
// Stores
// --------------------------------------------------------------------------

type memRecords struct {
	mu      sync.Mutex
	recs    map[schedule.GroupID]schedule.Record
	getErr  error
	saveErr error
	saves   int
}

func newMemRecords() *memRecords {
	return &memRecords{recs: make(map[schedule.GroupID]schedule.Record)}
}

func (m *memRecords) GetRecord(_ context.Context, g schedule.GroupID) (schedule.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return schedule.Record{}, m.getErr
	}
	rec, ok := m.recs[g]
	if !ok {
		return schedule.Record{}, schedule.ErrRecordNotFound
	}
	return rec, nil
}

func (m *memRecords) SaveRecord(_ context.Context, rec schedule.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.recs[rec.Group] = rec
	return nil
}

func (m *memRecords) get(g schedule.GroupID) (schedule.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[g]
	return rec, ok
}

type memSubscribers struct {
	subs map[schedule.GroupID][]int64
	err  error
}

func (m *memSubscribers) SubscribersFor(_ context.Context, g schedule.GroupID) ([]int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.subs[g], nil
}

// --------------------------------------------------------------------------
// Sender
// --------------------------------------------------------------------------

type sentMessage struct {
	UserID int64
	Text   string
	At     time.Time
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[int64]error
}

func (s *recordingSender) Send(_ context.Context, userID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[userID]; err != nil {
		return err
	}
	s.sent = append(s.sent, sentMessage{UserID: userID, Text: text, At: time.Now()})
	return nil
}

func (s *recordingSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentMessage, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
}
