package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WindowLimiter enforces fixed-window request counts per verb class over a
// Store, so the budget can be shared between processes.
type WindowLimiter struct {
	Store  Store
	Limits map[VerbClass]Limit
	Margin float64
	Clock  func() time.Time

	// Sleep is replaceable in tests.
	Sleep func(ctx context.Context, d time.Duration) error

	mu sync.Mutex
}

// NewWindowLimiter returns a limiter over an in-memory store with the
// given limits; nil limits select DefaultLimits.
func NewWindowLimiter(limits map[VerbClass]Limit) *WindowLimiter {
	return &WindowLimiter{
		Store:  NewMemoryStore(),
		Limits: limits,
	}
}

// Wait implements Limiter.
func (l *WindowLimiter) Wait(ctx context.Context, method string) error {
	class := ClassOf(method)
	for {
		wait, err := l.reserve(ctx, class)
		if err != nil {
			return err
		}
		if wait <= 0 {
			return nil
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// reserve records one request when the class has budget, otherwise it
// returns how long to wait before trying again.
func (l *WindowLimiter) reserve(ctx context.Context, class VerbClass) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := l.limit(class)
	state, err := l.store().Get(ctx, class)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	now := l.now()
	if state == nil {
		state = &State{WindowStart: now}
	}

	if now.Before(state.BackoffUntil) {
		return state.BackoffUntil.Sub(now), nil
	}

	windowEnd := state.WindowStart.Add(limit.Window)
	if !now.Before(windowEnd) {
		state.Count = 0
		state.WindowStart = now
		windowEnd = now.Add(limit.Window)
	}

	if state.Count >= limit.Requests {
		return windowEnd.Sub(now), nil
	}

	state.Count++
	if err := l.store().Put(ctx, class, state, limit.Window); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return 0, nil
}

// Backoff implements Limiter.
func (l *WindowLimiter) Backoff(ctx context.Context, method string, d time.Duration) error {
	class := ClassOf(method)

	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.store().Get(ctx, class)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	now := l.now()
	if state == nil {
		state = &State{WindowStart: now}
	}

	state.Last429At = now
	if until := now.Add(d); d > 0 && until.After(state.BackoffUntil) {
		state.BackoffUntil = until
	}

	window := l.limit(class).Window
	if d > window {
		window = d
	}
	if err := l.store().Put(ctx, class, state, window); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// store must be called with l.mu held.
func (l *WindowLimiter) store() Store {
	if l.Store == nil {
		l.Store = NewMemoryStore()
	}
	return l.Store
}

func (l *WindowLimiter) limit(class VerbClass) Limit {
	limits := l.Limits
	if limits == nil {
		limits = DefaultLimits
	}
	limit, ok := limits[class]
	if !ok || limit.Requests <= 0 || limit.Window <= 0 {
		limit = DefaultLimits[class]
	}
	return ApplyMargin(limit, l.Margin)
}

func (l *WindowLimiter) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

func (l *WindowLimiter) sleep(ctx context.Context, d time.Duration) error {
	if l.Sleep != nil {
		return l.Sleep(ctx, d)
	}
	return sleep(ctx, d)
}

// MemoryStore keeps limiter state in process.
type MemoryStore struct {
	mu     sync.Mutex
	states map[VerbClass]State
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[VerbClass]State)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, class VerbClass) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[class]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, class VerbClass, state *State, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[class] = *state
	return nil
}
