package cache

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value    []byte
	created  time.Time
	accessed time.Time
}

// Memory is an in-process cache.
type Memory struct {
	policy Policy
	clock  func() time.Time

	mu      sync.Mutex
	entries map[string]*memoryEntry
	closed  bool
}

// NewMemory returns an empty in-process cache.
func NewMemory(policy Policy) *Memory {
	return &Memory{
		policy:  policy.withDefaults(),
		clock:   time.Now,
		entries: make(map[string]*memoryEntry),
	}
}

// WithClock overrides the time source.
func (m *Memory) WithClock(clock func() time.Time) *Memory {
	m.clock = clock
	return m
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, ErrClosed
	}

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	now := m.clock()
	if m.policy.expired(now, e.created, e.accessed) {
		delete(m.entries, key)
		return nil, false, nil
	}
	e.accessed = now
	return bytes.Clone(e.value), true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	now := m.clock()
	m.entries[key] = &memoryEntry{
		value:    bytes.Clone(value),
		created:  now,
		accessed: now,
	}
	m.evictExpired(now)
	return nil
}

// DeletePrefix implements Cache.
func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

// Clear implements Cache.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
	return nil
}

// Close implements Cache.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) evictExpired(now time.Time) {
	for k, e := range m.entries {
		if m.policy.expired(now, e.created, e.accessed) {
			delete(m.entries, k)
		}
	}
}
