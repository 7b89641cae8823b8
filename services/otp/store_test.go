package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_Deadline(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	pending := Entry{ExpiresAt: base.Add(5 * time.Minute), CooldownUntil: base.Add(time.Minute)}
	assert.Equal(t, base.Add(5*time.Minute), pending.Deadline())
	assert.False(t, pending.Stale(base.Add(4*time.Minute)))
	assert.True(t, pending.Stale(base.Add(5*time.Minute)))

	verified := pending
	verified.Verified = true
	verified.ResetDeadline = base.Add(12 * time.Minute)
	assert.Equal(t, base.Add(12*time.Minute), verified.Deadline())

	longCooldown := Entry{ExpiresAt: base.Add(time.Minute), CooldownUntil: base.Add(2 * time.Minute)}
	assert.Equal(t, base.Add(2*time.Minute), longCooldown.Deadline())
}

// storeContract runs the behaviour every Store implementation must share.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()
	future := time.Now().Add(time.Hour)

	_, err := store.Get(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Update(ctx, "a@example.com", func(current *Entry) (*Entry, Mutation, error) {
		assert.Nil(t, current)
		return &Entry{CodeHash: "h1", ExpiresAt: future, CooldownUntil: future}, Replace, nil
	})
	require.NoError(t, err)

	entry, err := store.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "h1", entry.CodeHash)

	sentinel := errors.New("rejected")
	err = store.Update(ctx, "a@example.com", func(current *Entry) (*Entry, Mutation, error) {
		require.NotNil(t, current)
		current.Attempts = 2
		return current, Replace, sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	entry, err = store.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Attempts)

	err = store.Update(ctx, "a@example.com", func(current *Entry) (*Entry, Mutation, error) {
		return nil, Keep, nil
	})
	require.NoError(t, err)
	_, err = store.Get(ctx, "a@example.com")
	require.NoError(t, err)

	err = store.Update(ctx, "a@example.com", func(current *Entry) (*Entry, Mutation, error) {
		return nil, Remove, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	_, err = store.Get(ctx, "a@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Update(ctx, "b@example.com", func(*Entry) (*Entry, Mutation, error) {
		return &Entry{ExpiresAt: future}, Replace, nil
	}))
	require.NoError(t, store.Delete(ctx, "b@example.com"))
	_, err = store.Get(ctx, "b@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())

	t.Run("delete expired", func(t *testing.T) {
		store := NewMemoryStore()
		now := time.Now()
		ctx := context.Background()

		require.NoError(t, store.Update(ctx, "old", func(*Entry) (*Entry, Mutation, error) {
			return &Entry{ExpiresAt: now.Add(-time.Second)}, Replace, nil
		}))
		require.NoError(t, store.Update(ctx, "new", func(*Entry) (*Entry, Mutation, error) {
			return &Entry{ExpiresAt: now.Add(time.Minute)}, Replace, nil
		}))

		removed, err := store.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		assert.Equal(t, 1, store.Len())
	})
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client, "ctgadmin:")
	storeContract(t, store)

	t.Run("ttl follows the entry deadline", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, store.Update(ctx, "ttl@example.com", func(*Entry) (*Entry, Mutation, error) {
			return &Entry{ExpiresAt: time.Now().Add(5 * time.Minute), CooldownUntil: time.Now().Add(time.Minute)}, Replace, nil
		}))

		assert.True(t, mr.Exists("ctgadmin:otp:ttl@example.com"))
		ttl := mr.TTL("ctgadmin:otp:ttl@example.com")
		assert.InDelta(t, (5 * time.Minute).Seconds(), ttl.Seconds(), 2)

		mr.FastForward(5*time.Minute + time.Second)
		_, err := store.Get(ctx, "ttl@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("already stale entries are not written", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, store.Update(ctx, "stale@example.com", func(*Entry) (*Entry, Mutation, error) {
			return &Entry{ExpiresAt: time.Now().Add(-time.Second)}, Replace, nil
		}))

		assert.False(t, mr.Exists("ctgadmin:otp:stale@example.com"))
	})

	t.Run("delete expired relies on ttl", func(t *testing.T) {
		removed, err := store.DeleteExpired(context.Background(), time.Now())
		require.NoError(t, err)
		assert.Equal(t, 0, removed)
	})

	t.Run("service flow over redis", func(t *testing.T) {
		svc := NewService(testOTPConfig(), store, nil)
		svc.SetGenerator(&fixedGenerator{codes: []string{"777777"}})
		ctx := context.Background()

		_, err := svc.Issue(ctx, "flow@example.com")
		require.NoError(t, err)
		_, err = svc.Issue(ctx, "flow@example.com")
		assert.ErrorIs(t, err, ErrCooldown)

		require.NoError(t, svc.Verify(ctx, "flow@example.com", "777777"))
		require.NoError(t, svc.Consume(ctx, "flow@example.com"))
		assert.False(t, mr.Exists("ctgadmin:otp:flow@example.com"))
	})
}
