package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const sessionCookieName = "JSESSIONID"

// ObfuscateAPIKey derives the time-bound key the legacy ZIA and ZTW APIs
// expect in place of the raw API key. It returns the obfuscated key and the
// millisecond timestamp it was derived from; both go into the login body.
func ObfuscateAPIKey(apiKey string, now time.Time) (key, timestamp string, err error) {
	if len(apiKey) < 12 {
		return "", "", ErrInvalidAPIKey
	}

	timestamp = strconv.FormatInt(now.UnixMilli(), 10)
	high := timestamp[len(timestamp)-6:]
	n, err := strconv.Atoi(high)
	if err != nil {
		return "", "", fmt.Errorf("obfuscate api key: %w", err)
	}
	low := fmt.Sprintf("%06d", n>>1)

	var b strings.Builder
	b.Grow(12)
	for _, c := range high {
		b.WriteByte(apiKey[c-'0'])
	}
	for _, c := range low {
		b.WriteByte(apiKey[c-'0'+2])
	}
	return b.String(), timestamp, nil
}

// APIKeySessionProvider implements the cookie-based legacy login used by
// ZIA (/authenticatedSession) and ZTW (/auth).
type APIKeySessionProvider struct {
	endpoint

	Product    string
	Path       string
	Username   string
	Password   string
	APIKey     string
	SessionTTL time.Duration
}

// NewZIASessionProvider returns the legacy ZIA session provider.
func NewZIASessionProvider(baseURL, username, password, apiKey string, httpClient *http.Client) *APIKeySessionProvider {
	return &APIKeySessionProvider{
		endpoint: endpoint{BaseURL: baseURL, HTTPClient: httpClient},
		Product:  "zia",
		Path:     "/authenticatedSession",
		Username: username,
		Password: password,
		APIKey:   apiKey,
	}
}

// NewZTWSessionProvider returns the legacy ZTW (Cloud & Branch Connector)
// session provider.
func NewZTWSessionProvider(baseURL, username, password, apiKey string, httpClient *http.Client) *APIKeySessionProvider {
	return &APIKeySessionProvider{
		endpoint: endpoint{BaseURL: baseURL, HTTPClient: httpClient},
		Product:  "ztw",
		Path:     "/auth",
		Username: username,
		Password: password,
		APIKey:   apiKey,
	}
}

// Name implements Provider.
func (p *APIKeySessionProvider) Name() string {
	return p.Product + "-legacy"
}

// Login implements Provider.
func (p *APIKeySessionProvider) Login(ctx context.Context) (*Session, error) {
	now := p.now()
	key, timestamp, err := ObfuscateAPIKey(p.APIKey, now)
	if err != nil {
		return nil, err
	}

	resp, err := p.postJSON(ctx, p.Name(), p.Path, map[string]string{
		"apiKey":    key,
		"username":  p.Username,
		"password":  p.Password,
		"timestamp": timestamp,
	})
	if err != nil {
		return nil, err
	}

	for _, c := range resp.cookies {
		if c.Name == sessionCookieName && c.Value != "" {
			ttl := p.SessionTTL
			if ttl <= 0 {
				ttl = DefaultSessionTTL
			}
			return &Session{
				Cookie:    &http.Cookie{Name: c.Name, Value: c.Value},
				IssuedAt:  now,
				ExpiresAt: now.Add(ttl),
			}, nil
		}
	}
	return nil, ErrNoSessionCookie
}

// Apply implements Provider.
func (p *APIKeySessionProvider) Apply(req *http.Request, s *Session) {
	if s == nil || s.Cookie == nil {
		return
	}
	req.AddCookie(&http.Cookie{Name: s.Cookie.Name, Value: s.Cookie.Value})
}

// Logout implements Provider.
func (p *APIKeySessionProvider) Logout(ctx context.Context, s *Session) error {
	if s == nil || s.Cookie == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.url(p.Path), nil)
	if err != nil {
		return fmt.Errorf("%s logout request: %w", p.Name(), err)
	}
	p.Apply(req, s)

	resp, err := p.client().Do(req)
	if err != nil {
		return fmt.Errorf("%s logout: %w", p.Name(), err)
	}
	_ = resp.Body.Close()

	// An already expired session answers 401; it is gone either way.
	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusUnauthorized {
		return &LoginError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: "logout rejected"}
	}
	return nil
}
