// Package ratelimit provides client-side throttling per HTTP verb class.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"
)

// ErrStoreUnavailable wraps failures of the backing state store.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// VerbClass groups HTTP methods that share a request budget.
type VerbClass string

const (
	// ClassRead covers GET and HEAD.
	ClassRead VerbClass = "read"
	// ClassWrite covers POST, PUT, PATCH and DELETE.
	ClassWrite VerbClass = "write"
)

// ClassOf returns the verb class of an HTTP method.
func ClassOf(method string) VerbClass {
	switch method {
	case http.MethodGet, http.MethodHead, "":
		return ClassRead
	default:
		return ClassWrite
	}
}

// Limit is a request budget over a window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// DefaultLimits stays below the documented per-organization limits of the
// Zscaler admin APIs.
var DefaultLimits = map[VerbClass]Limit{
	ClassRead:  {Requests: 20, Window: 10 * time.Second},
	ClassWrite: {Requests: 10, Window: 10 * time.Second},
}

// Limiter throttles requests before dispatch and absorbs server-side
// backoff signals.
type Limiter interface {
	// Wait blocks until a request with the given method may be sent.
	Wait(ctx context.Context, method string) error

	// Backoff records a server-requested pause for the method's class.
	Backoff(ctx context.Context, method string, d time.Duration) error
}

// State captures the rolling window of one verb class.
type State struct {
	Count        int
	WindowStart  time.Time
	BackoffUntil time.Time
	Last429At    time.Time
}

// Store persists limiter state.
type Store interface {
	Get(ctx context.Context, class VerbClass) (*State, error)
	Put(ctx context.Context, class VerbClass, state *State, window time.Duration) error
}

// Nop never throttles.
type Nop struct{}

// Wait implements Limiter.
func (Nop) Wait(context.Context, string) error { return nil }

// Backoff implements Limiter.
func (Nop) Backoff(context.Context, string, time.Duration) error { return nil }

// ApplyMargin scales a limit down by margin in (0, 1], never below one
// request per window.
func ApplyMargin(limit Limit, margin float64) Limit {
	if margin <= 0 || margin > 1 {
		return limit
	}
	adjusted := int(math.Floor(float64(limit.Requests) * margin))
	if adjusted < 1 {
		adjusted = 1
	}
	limit.Requests = adjusted
	return limit
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
