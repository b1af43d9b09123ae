package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "zscaler:ratelimit"

// RedisStore keeps limiter state in redis hashes so several clients using
// the same credentials draw from one budget.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a store under the given key prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(class VerbClass) string {
	return s.prefix + ":" + string(class)
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, class VerbClass) (*State, error) {
	fields, err := s.client.HGetAll(ctx, s.key(class)).Result()
	if err != nil {
		return nil, fmt.Errorf("read rate limit state: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	count, err := strconv.Atoi(fields["count"])
	if err != nil {
		return nil, fmt.Errorf("decode rate limit count: %w", err)
	}
	return &State{
		Count:        count,
		WindowStart:  unixNano(fields["window_start"]),
		BackoffUntil: unixNano(fields["backoff_until"]),
		Last429At:    unixNano(fields["last_429_at"]),
	}, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, class VerbClass, state *State, window time.Duration) error {
	key := s.key(class)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"count", state.Count,
			"window_start", nanos(state.WindowStart),
			"backoff_until", nanos(state.BackoffUntil),
			"last_429_at", nanos(state.Last429At),
		)
		pipe.PExpire(ctx, key, window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write rate limit state: %w", err)
	}
	return nil
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func unixNano(v string) time.Time {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
