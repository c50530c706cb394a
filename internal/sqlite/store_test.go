package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svitlo/svitlo-bot/internal/runlock"
	"github.com/svitlo/svitlo-bot/internal/schedule"
)

func openTestStore(t *testing.T, limits schedule.Limits) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "svitlo.db"), limits)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svitlo.db")
	ctx := context.Background()

	first, err := Open(ctx, path, schedule.Limits{})
	require.NoError(t, err)
	require.NoError(t, first.AddSubscriber(ctx, 1, schedule.Group11))
	require.NoError(t, first.Close())

	second, err := Open(ctx, path, schedule.Limits{})
	require.NoError(t, err)
	defer second.Close()
	users, err := second.SubscribersFor(ctx, schedule.Group11)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, users)
	assert.NoError(t, second.Ping(ctx))
}

func TestStore_Records(t *testing.T) {
	s := openTestStore(t, schedule.Limits{})
	ctx := context.Background()

	_, err := s.GetRecord(ctx, schedule.Group32)
	assert.ErrorIs(t, err, schedule.ErrRecordNotFound)

	tomorrow := schedule.DaySchedule{Windows: []schedule.Interval{}}
	gs := schedule.GroupSchedule{
		Group:    schedule.Group32,
		Today:    schedule.DaySchedule{Windows: []schedule.Interval{{Start: 0, End: 180}, {Start: 390, End: 1440}}},
		Tomorrow: &tomorrow,
	}
	at := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)
	rec := schedule.NewRecord(gs, at)
	require.NoError(t, s.SaveRecord(ctx, rec))

	got, err := s.GetRecord(ctx, schedule.Group32)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.True(t, got.Schedule.HasTomorrow(), "empty tomorrow survives storage")

	gs.Tomorrow = nil
	replaced := schedule.NewRecord(gs, at.Add(time.Hour))
	require.NoError(t, s.SaveRecord(ctx, replaced))
	require.NoError(t, s.SaveRecord(ctx, schedule.NewRecord(schedule.GroupSchedule{Group: schedule.Group11}, at)))

	all, err := s.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, schedule.Group11, all[0].Group)
	assert.Equal(t, replaced, all[1])
}

func TestStore_Subscriptions(t *testing.T) {
	s := openTestStore(t, schedule.Limits{MaxSubscribers: 2, MaxGroupsPerUser: 2})
	ctx := context.Background()

	tick := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	require.NoError(t, s.AddSubscriber(ctx, 20, schedule.Group11))
	require.NoError(t, s.AddSubscriber(ctx, 10, schedule.Group11))
	require.NoError(t, s.AddSubscriber(ctx, 20, schedule.Group11))
	require.NoError(t, s.AddSubscriber(ctx, 20, schedule.Group52))

	assert.ErrorIs(t, s.AddSubscriber(ctx, 20, schedule.Group61), schedule.ErrGroupLimit)
	assert.ErrorIs(t, s.AddSubscriber(ctx, 30, schedule.Group11), schedule.ErrSubscriberLimit)

	users, err := s.SubscribersFor(ctx, schedule.Group11)
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 10}, users, "join order")

	empty, err := s.SubscribersFor(ctx, schedule.Group41)
	require.NoError(t, err)
	assert.Empty(t, empty)

	n, err := s.CountSubscribers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats, err := s.SubscriberStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[schedule.GroupID]int{schedule.Group11: 2, schedule.Group52: 1}, stats)

	list, err := s.ListSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, schedule.Subscriber{UserID: 20, Group: schedule.Group11, JoinedAt: time.Date(2025, 11, 1, 0, 0, 1, 0, time.UTC)}, list[0])

	removed, err := s.RemoveSubscriber(ctx, 20, schedule.Group52)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.RemoveSubscriber(ctx, 20, schedule.Group52)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = s.RemoveSubscriber(ctx, 10, 0)
	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, s.AddSubscriber(ctx, 30, schedule.Group11), "cap frees up after removal")
}

func TestLeaseLock(t *testing.T) {
	s := openTestStore(t, schedule.Limits{})
	ctx := context.Background()

	now := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	lock := s.Locker(time.Minute)

	release, err := lock.Acquire(ctx)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx)
	assert.ErrorIs(t, err, runlock.ErrHeld)

	require.NoError(t, release(ctx))
	release, err = lock.Acquire(ctx)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	takeover, err := lock.Acquire(ctx)
	require.NoError(t, err, "expired lease can be taken over")

	require.NoError(t, release(ctx))
	_, err = lock.Acquire(ctx)
	assert.ErrorIs(t, err, runlock.ErrHeld, "stale holder must not free the new lease")
	require.NoError(t, takeover(ctx))
}

func TestLeaseLock_RenewedWhileHeld(t *testing.T) {
	s := openTestStore(t, schedule.Limits{})
	ctx := context.Background()
	lock := s.Locker(300 * time.Millisecond)

	release, err := lock.Acquire(ctx)
	require.NoError(t, err)

	time.Sleep(700 * time.Millisecond)
	_, err = lock.Acquire(ctx)
	assert.ErrorIs(t, err, runlock.ErrHeld, "a live holder keeps its lease past the ttl")

	require.NoError(t, release(ctx))
	again, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}
