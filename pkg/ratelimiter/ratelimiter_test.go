package ratelimiter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/pkg/ratelimiter"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testConfig = ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Minute}

func stores(t *testing.T) map[string]ratelimiter.Store {
	t.Helper()
	mem := ratelimiter.NewMemoryStore(0)
	t.Cleanup(func() { _ = mem.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]ratelimiter.Store{
		"memory": mem,
		"redis":  ratelimiter.NewRedisStore(client, "test:"),
	}
}

func TestNewBucketValidatesConfig(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(0)
	defer store.Close()

	for _, cfg := range []ratelimiter.Config{
		{Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 0, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 1},
	} {
		_, err := ratelimiter.NewBucket(store, cfg)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	}
}

func TestBucket(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			clk := &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
			b, err := ratelimiter.NewBucket(store, testConfig, ratelimiter.WithClock(clk.Now))
			require.NoError(t, err)

			for i := 2; i >= 0; i-- {
				res, err := b.Allow(ctx, "login")
				require.NoError(t, err)
				assert.True(t, res.Allowed())
				assert.Equal(t, i, res.Remaining)
				assert.Equal(t, 3, res.Limit)
			}

			denied, err := b.Allow(ctx, "login")
			require.NoError(t, err)
			assert.False(t, denied.Allowed())
			assert.Equal(t, time.Minute, denied.RetryAfter(clk.Now()))

			// denials do not dig the bucket deeper
			_, err = b.Allow(ctx, "login")
			require.NoError(t, err)

			other, err := b.Allow(ctx, "signup")
			require.NoError(t, err)
			assert.True(t, other.Allowed(), "keys are independent")

			clk.Advance(time.Minute)
			res, err := b.Allow(ctx, "login")
			require.NoError(t, err)
			assert.True(t, res.Allowed())
			assert.Equal(t, 0, res.Remaining)

			clk.Advance(time.Hour)
			res, err = b.Allow(ctx, "login")
			require.NoError(t, err)
			assert.Equal(t, 2, res.Remaining, "refill is capped at capacity")

			require.NoError(t, b.Reset(ctx, "login"))
			res, err = b.Allow(ctx, "login")
			require.NoError(t, err)
			assert.Equal(t, 2, res.Remaining)
		})
	}
}

func TestRedisStoreExpiresIdleBuckets(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := ratelimiter.NewRedisStore(client, "")

	_, _, err := store.ConsumeTokens(context.Background(), "k", 1, time.Now(), testConfig)
	require.NoError(t, err)
	assert.True(t, mr.Exists("ratelimit:k"))

	mr.FastForward(3*time.Minute + time.Second)
	assert.False(t, mr.Exists("ratelimit:k"))
}

func TestRedisStoreUnavailable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := ratelimiter.NewRedisStore(client, "")
	mr.Close()

	_, _, err := store.ConsumeTokens(context.Background(), "k", 1, time.Now(), testConfig)
	assert.ErrorIs(t, err, ratelimiter.ErrStoreUnavailable)
}
