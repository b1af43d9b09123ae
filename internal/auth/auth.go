// Package auth provides Zscaler session management for OneAPI and the
// legacy per-product APIs.
package auth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRefreshSkew = time.Minute
	loginTimeout       = time.Minute

	// DefaultSessionTTL applies when the server does not report a lifetime.
	DefaultSessionTTL = 30 * time.Minute
)

// Session is an authenticated session: a bearer token, a session cookie,
// or both.
type Session struct {
	Token     string
	Cookie    *http.Cookie
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session should be renewed at now, treating
// it as expired skew before its real expiry. A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time, skew time.Duration) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt.Add(-skew))
}

// Provider performs the product-specific login exchange.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// Login exchanges credentials for a new session.
	Login(ctx context.Context) (*Session, error)

	// Apply adds session credentials to an outgoing request.
	Apply(req *http.Request, s *Session)

	// Logout ends the session server-side, when the API supports it.
	Logout(ctx context.Context, s *Session) error
}

// Authorizer injects valid credentials into requests.
type Authorizer interface {
	Authorize(ctx context.Context, req *http.Request) error
	Invalidate()
	Logout(ctx context.Context) error
}

// Manager owns the session of a single Provider. It logs in lazily,
// refreshes proactively before expiry and is safe for concurrent use.
type Manager struct {
	provider Provider
	skew     time.Duration
	clock    func() time.Time
	logger   *zap.Logger

	mu      sync.RWMutex
	session *Session
	retired *Session
	group   singleflight.Group
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRefreshSkew sets how long before expiry a session is renewed.
func WithRefreshSkew(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d >= 0 {
			m.skew = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithLogger sets the logger used for session lifecycle events.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager for the given provider.
func NewManager(provider Provider, opts ...ManagerOption) *Manager {
	m := &Manager{
		provider: provider,
		skew:     defaultRefreshSkew,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Provider returns the wrapped provider.
func (m *Manager) Provider() Provider {
	return m.provider
}

// Session returns the current session without logging in, or nil.
func (m *Manager) Session() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Authenticate returns a valid session, logging in when there is none or
// the current one is about to expire.
func (m *Manager) Authenticate(ctx context.Context) (*Session, error) {
	m.mu.RLock()
	current := m.session
	m.mu.RUnlock()

	if !current.Expired(m.now(), m.skew) {
		return current, nil
	}

	// The login outlives any single caller; each caller only stops waiting
	// when its own context ends.
	ch := m.group.DoChan("login", func() (any, error) {
		loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loginTimeout)
		defer cancel()
		return m.login(loginCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	}
}

func (m *Manager) login(ctx context.Context) (*Session, error) {
	m.mu.RLock()
	current := m.session
	m.mu.RUnlock()
	if !current.Expired(m.now(), m.skew) {
		return current, nil
	}

	fresh, err := m.provider.Login(ctx)
	if err != nil {
		m.logger.Warn("login failed",
			zap.String("provider", m.provider.Name()),
			zap.Error(err))
		return nil, err
	}
	if fresh.IssuedAt.IsZero() {
		fresh.IssuedAt = m.now()
	}

	m.mu.Lock()
	old := m.session
	if old == nil {
		old = m.retired
	}
	m.session = fresh
	m.retired = nil
	m.mu.Unlock()

	m.logger.Debug("session established",
		zap.String("provider", m.provider.Name()),
		zap.Time("expires_at", fresh.ExpiresAt))

	if old != nil {
		if err := m.provider.Logout(ctx, old); err != nil {
			m.logger.Debug("logout of replaced session failed",
				zap.String("provider", m.provider.Name()),
				zap.Error(err))
		}
	}
	return fresh, nil
}

// Authorize applies the current session to req.
func (m *Manager) Authorize(ctx context.Context, req *http.Request) error {
	s, err := m.Authenticate(ctx)
	if err != nil {
		return err
	}
	m.provider.Apply(req, s)
	return nil
}

// Invalidate drops the current session so the next request logs in again.
// The dropped session is logged out once its replacement is established.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	if m.session != nil {
		m.retired = m.session
	}
	m.session = nil
	m.mu.Unlock()
	m.logger.Debug("session invalidated", zap.String("provider", m.provider.Name()))
}

// Logout ends the current session. The session is dropped locally even
// when the server-side logout fails.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	s := m.session
	if s == nil {
		s = m.retired
	}
	m.session = nil
	m.retired = nil
	m.mu.Unlock()

	if s == nil {
		return nil
	}
	return m.provider.Logout(ctx, s)
}

func (m *Manager) now() time.Time {
	if m.clock != nil {
		return m.clock()
	}
	return time.Now()
}
