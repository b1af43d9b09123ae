package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter smooths requests with one token bucket per verb
// class instead of counting fixed windows. Burst equals the window budget.
type TokenBucketLimiter struct {
	buckets map[VerbClass]*rate.Limiter

	mu           sync.Mutex
	backoffUntil map[VerbClass]time.Time
}

// NewTokenBucketLimiter builds buckets from window limits; nil limits
// select DefaultLimits.
func NewTokenBucketLimiter(limits map[VerbClass]Limit, margin float64) *TokenBucketLimiter {
	if limits == nil {
		limits = DefaultLimits
	}
	l := &TokenBucketLimiter{
		buckets:      make(map[VerbClass]*rate.Limiter, 2),
		backoffUntil: make(map[VerbClass]time.Time, 2),
	}
	for _, class := range []VerbClass{ClassRead, ClassWrite} {
		limit, ok := limits[class]
		if !ok || limit.Requests <= 0 || limit.Window <= 0 {
			limit = DefaultLimits[class]
		}
		limit = ApplyMargin(limit, margin)
		every := limit.Window / time.Duration(limit.Requests)
		l.buckets[class] = rate.NewLimiter(rate.Every(every), limit.Requests)
	}
	return l
}

// Wait implements Limiter.
func (l *TokenBucketLimiter) Wait(ctx context.Context, method string) error {
	class := ClassOf(method)

	l.mu.Lock()
	until := l.backoffUntil[class]
	l.mu.Unlock()
	if d := time.Until(until); d > 0 {
		if err := sleep(ctx, d); err != nil {
			return err
		}
	}

	return l.buckets[class].Wait(ctx)
}

// Backoff implements Limiter.
func (l *TokenBucketLimiter) Backoff(_ context.Context, method string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	class := ClassOf(method)
	until := time.Now().Add(d)

	l.mu.Lock()
	defer l.mu.Unlock()
	if until.After(l.backoffUntil[class]) {
		l.backoffUntil[class] = until
	}
	return nil
}

// Tokens reports the tokens currently available for a class.
func (l *TokenBucketLimiter) Tokens(class VerbClass) float64 {
	b, ok := l.buckets[class]
	if !ok {
		return 0
	}
	return b.Tokens()
}
