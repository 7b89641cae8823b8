package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 5

// RedisStore keeps entries as JSON values whose TTL follows Entry.Deadline, so redis expires them on its own.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix + "otp:", now: time.Now}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get otp entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("failed to decode otp entry: %w", err)
	}
	return &e, nil
}

func (s *RedisStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	redisKey := s.key(key)

	for range maxUpdateRetries {
		var fnErr error

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			var current *Entry
			raw, err := tx.Get(ctx, redisKey).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return fmt.Errorf("failed to get otp entry: %w", err)
			default:
				current = &Entry{}
				if err := json.Unmarshal(raw, current); err != nil {
					return fmt.Errorf("failed to decode otp entry: %w", err)
				}
			}

			next, m, err := fn(current)
			fnErr = err

			switch m {
			case Replace:
				if next == nil {
					return nil
				}
				ttl := next.Deadline().Sub(s.now())
				if ttl <= 0 {
					_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
						p.Del(ctx, redisKey)
						return nil
					})
					return err
				}
				payload, err := json.Marshal(next)
				if err != nil {
					return fmt.Errorf("failed to encode otp entry: %w", err)
				}
				_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
					p.Set(ctx, redisKey, payload, ttl)
					return nil
				})
				return err
			case Remove:
				_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
					p.Del(ctx, redisKey)
					return nil
				})
				return err
			}
			return nil
		}, redisKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}
		return fnErr
	}

	return fmt.Errorf("failed to update otp entry: too much contention on %s", key)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete otp entry: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: key TTLs already remove stale entries.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
