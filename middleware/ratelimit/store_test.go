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

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()

		count, resetTime, exists, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Zero(t, count)
		assert.True(t, resetTime.IsZero())
	})

	t.Run("increment keeps the first window", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()

		first := time.Now().Add(time.Minute)
		count, err := store.Increment(ctx, "k", first)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		count, err = store.Increment(ctx, "k", first.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		got, resetTime, exists, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, 2, got)
		assert.Equal(t, first, resetTime)
	})

	t.Run("expired window starts over", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()

		now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return now }

		_, err := store.Increment(ctx, "k", now.Add(time.Minute))
		require.NoError(t, err)

		now = now.Add(2 * time.Minute)
		_, _, exists, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, exists)

		count, err := store.Increment(ctx, "k", now.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("reset", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()

		_, err := store.Increment(ctx, "k", time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.NoError(t, store.Reset(ctx, "k"))

		_, _, exists, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("purge drops expired entries", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()

		now := time.Now()
		store.now = func() time.Time { return now }
		_, _ = store.Increment(ctx, "old", now.Add(time.Second))
		_, _ = store.Increment(ctx, "new", now.Add(time.Hour))

		now = now.Add(time.Minute)
		store.purge()

		store.mu.RLock()
		defer store.mu.RUnlock()
		assert.Len(t, store.data, 1)
		assert.Contains(t, store.data, "new")
	})

	t.Run("close is idempotent", func(t *testing.T) {
		store := NewMemoryStore()
		store.Close()
		assert.NotPanics(t, store.Close)
	})
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "ctgadmin:")

	_, _, exists, err := store.Get(ctx, "login:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, exists)

	resetTime := time.Now().Add(15 * time.Minute)
	count, err := store.Increment(ctx, "login:10.0.0.1", resetTime)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.Increment(ctx, "login:10.0.0.1", resetTime)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.True(t, mr.Exists("ctgadmin:ratelimit:login:10.0.0.1"))
	assert.Greater(t, mr.TTL("ctgadmin:ratelimit:login:10.0.0.1"), time.Duration(0))

	got, gotReset, exists, err := store.Get(ctx, "login:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 2, got)
	assert.WithinDuration(t, resetTime, gotReset, 5*time.Second)

	require.NoError(t, store.Reset(ctx, "login:10.0.0.1"))
	assert.False(t, mr.Exists("ctgadmin:ratelimit:login:10.0.0.1"))
}

func TestRedisStore_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "")
	_, _, _, err := store.Get(context.Background(), "k")
	assert.Error(t, err)

	_, err = store.Increment(context.Background(), "k", time.Now().Add(time.Minute))
	assert.Error(t, err)
}
