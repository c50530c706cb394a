package runlock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLocal(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	release, err := l.Acquire(ctx)
	require.NoError(t, err)

	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, ErrHeld)

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx))

	again, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedis_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	lock := NewRedis(client, "", time.Minute)

	release, err := lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(DefaultKey))

	other := NewRedis(client, "", time.Minute)
	_, err = other.Acquire(ctx)
	assert.ErrorIs(t, err, ErrHeld)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(DefaultKey))

	release, err = other.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestRedis_ExpiredLeaseIsNotFreedByOldHolder(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	lock := NewRedis(client, "lock", time.Minute)

	stale, err := lock.Acquire(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	fresh, err := lock.Acquire(ctx)
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists("lock"), "stale release must not delete the new holder's key")

	require.NoError(t, fresh(ctx))
	assert.False(t, mr.Exists("lock"))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = Connect(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestKeepAlive_RenewsUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var calls atomic.Int32
	stop := KeepAlive(30*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, stop())
	require.NoError(t, stop())

	n := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
}

func TestKeepAlive_TransientFailureRecovers(t *testing.T) {
	var calls atomic.Int32
	stop := KeepAlive(30*time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("connection reset")
		}
		return nil
	})

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, stop())
}

func TestKeepAlive_StopsOnLeaseLost(t *testing.T) {
	var calls atomic.Int32
	stop := KeepAlive(30*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return ErrLeaseLost
	})

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.ErrorIs(t, stop(), ErrLeaseLost)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRedis_LeaseRenewedWhileHeld(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	lock := NewRedis(client, "lock", 300*time.Millisecond)

	release, err := lock.Acquire(ctx)
	require.NoError(t, err)

	mr.FastForward(250 * time.Millisecond)
	assert.Eventually(t, func() bool { return mr.TTL("lock") > 100*time.Millisecond }, time.Second, 10*time.Millisecond)

	mr.FastForward(250 * time.Millisecond)
	assert.True(t, mr.Exists("lock"), "renewed lease outlives its original ttl")

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("lock"))
}

func TestRedis_ReleaseReportsLostLease(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	lock := NewRedis(client, "lock", 300*time.Millisecond)

	release, err := lock.Acquire(ctx)
	require.NoError(t, err)

	mr.FastForward(time.Second)
	require.NoError(t, mr.Set("lock", "another-run"))
	time.Sleep(250 * time.Millisecond)

	assert.ErrorIs(t, release(ctx), ErrLeaseLost)
	got, err := mr.Get("lock")
	require.NoError(t, err)
	assert.Equal(t, "another-run", got)
}
