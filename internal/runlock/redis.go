package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis key holding the run lock.
const DefaultKey = "svitlo:check:lock"

// releaseScript deletes the key only while it still carries our token, so a
// run whose lease expired cannot free a lock taken over by the next run.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only while it still carries our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a lease-based Locker shared by every process pointing at the same
// Redis. The holder renews the lease while it runs; the ttl only bounds how
// long a crashed holder blocks later runs.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis creates a Redis lock on key with the given lease.
func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{client: client, key: key, ttl: ttl}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func (r *Redis) Acquire(ctx context.Context) (Release, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}

	stop := KeepAlive(r.ttl, func(ctx context.Context) error {
		n, err := renewScript.Run(ctx, r.client, []string{r.key}, token, r.ttl.Milliseconds()).Int()
		if err != nil {
			return fmt.Errorf("renew run lock: %w", err)
		}
		if n == 0 {
			return ErrLeaseLost
		}
		return nil
	})

	return func(ctx context.Context) error {
		renewErr := stop()
		if err := releaseScript.Run(ctx, r.client, []string{r.key}, token).Err(); err != nil {
			return errors.Join(renewErr, fmt.Errorf("release run lock: %w", err))
		}
		return renewErr
	}, nil
}
