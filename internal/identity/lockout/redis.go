package lockout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	failuresPrefix = "login_failures:"
	lockPrefix     = "login_lock:"
)

// RedisStore shares lockout state across instances. Counters expire with
// their window and locks with their deadline.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client. The caller keeps ownership of it.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) RecordFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, failuresPrefix+key)
		pipe.ExpireNX(ctx, failuresPrefix+key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) LockedUntil(ctx context.Context, key string) (time.Time, error) {
	raw, err := s.client.Get(ctx, lockPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read login lock: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse login lock: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// Lock stores until and lets the key expire at that moment.
func (s *RedisStore) Lock(ctx context.Context, key string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, lockPrefix+key, until.UnixMilli(), ttl).Err(); err != nil {
		return fmt.Errorf("lock login: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, failuresPrefix+key, lockPrefix+key).Err(); err != nil {
		return fmt.Errorf("clear login failures: %w", err)
	}
	return nil
}
