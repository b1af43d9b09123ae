package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "zscaler:cache:"
	scanBatch          = 256
	createdHeaderLen   = 8
)

// Redis stores entries in redis. Each value is prefixed with its write
// time so the TTL survives the TTI refresh done on every read.
type Redis struct {
	client *redis.Client
	prefix string
	policy Policy
	clock  func() time.Time
}

// NewRedis returns a redis-backed cache under prefix.
func NewRedis(client *redis.Client, prefix string, policy Policy) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{
		client: client,
		prefix: prefix,
		policy: policy.withDefaults(),
		clock:  time.Now,
	}
}

// WithClock overrides the time source used for the TTL header.
func (r *Redis) WithClock(clock func() time.Time) *Redis {
	r.clock = clock
	return r
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.client.GetEx(ctx, r.prefix+key, r.policy.TTI).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	if len(raw) < createdHeaderLen {
		return nil, false, nil
	}

	now := r.clock()
	created := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:createdHeaderLen])))
	left := r.policy.remaining(now, created)
	if left <= 0 {
		_ = r.client.Del(ctx, r.prefix+key).Err()
		return nil, false, nil
	}
	if left < r.policy.TTI {
		if err := r.client.PExpire(ctx, r.prefix+key, left).Err(); err != nil {
			return nil, false, fmt.Errorf("cache expire: %w", err)
		}
	}
	return raw[createdHeaderLen:], true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	buf := make([]byte, createdHeaderLen+len(value))
	binary.BigEndian.PutUint64(buf, uint64(r.clock().UnixNano()))
	copy(buf[createdHeaderLen:], value)

	if err := r.client.Set(ctx, r.prefix+key, buf, min(r.policy.TTI, r.policy.TTL)).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// DeletePrefix implements Cache.
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	return r.deleteMatching(ctx, escapeGlob(r.prefix+prefix)+"*")
}

// Clear implements Cache.
func (r *Redis) Clear(ctx context.Context) error {
	return r.deleteMatching(ctx, escapeGlob(r.prefix)+"*")
}

// Close implements Cache. The redis client is owned by the caller.
func (r *Redis) Close() error {
	return nil
}

func (r *Redis) deleteMatching(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
