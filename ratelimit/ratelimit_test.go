package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestLimiter_Stores(t *testing.T) {
	stores := map[string]func(t *testing.T) (Store, func(time.Duration)){
		"memory": func(t *testing.T) (Store, func(time.Duration)) {
			return NewMemoryStore(), func(time.Duration) {}
		},
		"redis": func(t *testing.T) (Store, func(time.Duration)) {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { rdb.Close() })
			return NewRedisStore(rdb), mr.FastForward
		},
	}

	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store, expire := mk(t)
			clock := newClock()
			limiter := New(store, WithClock(clock.now))

			ok, err := limiter.CheckAndRecord(ctx, "u1", DefaultInterval)
			require.NoError(t, err)
			assert.True(t, ok, "first request is allowed")

			prev := 10
			for _, step := range []time.Duration{0, time.Second, 2500 * time.Millisecond, 4 * time.Second, 2499 * time.Millisecond} {
				clock.advance(step)
				expire(step)

				ok, err := limiter.CheckAndRecord(ctx, "u1", DefaultInterval)
				require.NoError(t, err)
				assert.False(t, ok, "request inside the interval is rejected")

				remaining, err := limiter.RemainingSeconds(ctx, "u1", DefaultInterval)
				require.NoError(t, err)
				assert.LessOrEqual(t, remaining, prev, "remaining never increases")
				assert.GreaterOrEqual(t, remaining, 1)
				prev = remaining
			}

			// 9.999s elapsed so far
			clock.advance(time.Millisecond)
			expire(time.Millisecond)
			ok, err = limiter.CheckAndRecord(ctx, "u1", DefaultInterval)
			require.NoError(t, err)
			assert.True(t, ok, "request after the interval is allowed")

			ok, err = limiter.CheckAndRecord(ctx, "u2", DefaultInterval)
			require.NoError(t, err)
			assert.True(t, ok, "subjects are independent")
		})
	}
}

func TestLimiter_RemainingSeconds(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	limiter := New(NewMemoryStore(), WithClock(clock.now))

	remaining, err := limiter.RemainingSeconds(ctx, "nobody", DefaultInterval)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	_, err = limiter.CheckAndRecord(ctx, "u1", DefaultInterval)
	require.NoError(t, err)

	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{elapsed: 0, want: 10},
		{elapsed: 100 * time.Millisecond, want: 10},
		{elapsed: time.Second, want: 9},
		{elapsed: 9500 * time.Millisecond, want: 1},
		{elapsed: 10 * time.Second, want: 0},
		{elapsed: time.Minute, want: 0},
	}
	base := clock.t
	for _, tt := range tests {
		clock.t = base.Add(tt.elapsed)
		remaining, err := limiter.RemainingSeconds(ctx, "u1", DefaultInterval)
		require.NoError(t, err)
		assert.Equal(t, tt.want, remaining, "elapsed %s", tt.elapsed)
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, _ = store.Acquire(ctx, "old", base, DefaultInterval)
	_, _ = store.Acquire(ctx, "fresh", base.Add(55*time.Second), DefaultInterval)

	removed := store.Sweep(base.Add(61*time.Second), 6*DefaultInterval)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	_, ok, err := store.Last(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)
}
