package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ZCCLoginProvider implements the legacy Client Connector portal login.
type ZCCLoginProvider struct {
	endpoint

	APIKey     string
	SecretKey  string
	SessionTTL time.Duration
}

// NewZCCLoginProvider returns the legacy ZCC provider.
func NewZCCLoginProvider(baseURL, apiKey, secretKey string, httpClient *http.Client) *ZCCLoginProvider {
	return &ZCCLoginProvider{
		endpoint:  endpoint{BaseURL: baseURL, HTTPClient: httpClient},
		APIKey:    apiKey,
		SecretKey: secretKey,
	}
}

// Name implements Provider.
func (p *ZCCLoginProvider) Name() string {
	return "zcc-legacy"
}

// Login implements Provider.
func (p *ZCCLoginProvider) Login(ctx context.Context) (*Session, error) {
	now := p.now()
	resp, err := p.postJSON(ctx, p.Name(), "/auth/v1/login", map[string]string{
		"apiKey":    p.APIKey,
		"secretKey": p.SecretKey,
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		JWTToken string `json:"jwtToken"`
	}
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return nil, fmt.Errorf("%s login response: %w", p.Name(), err)
	}
	if body.JWTToken == "" {
		return nil, &LoginError{Provider: p.Name(), StatusCode: resp.status, Message: "empty jwt token"}
	}

	s := &Session{Token: body.JWTToken, IssuedAt: now}
	if exp, ok := tokenExpiry(body.JWTToken); ok {
		s.ExpiresAt = exp
	} else {
		ttl := p.SessionTTL
		if ttl <= 0 {
			ttl = DefaultSessionTTL
		}
		s.ExpiresAt = now.Add(ttl)
	}
	return s, nil
}

// Apply implements Provider.
func (p *ZCCLoginProvider) Apply(req *http.Request, s *Session) {
	if s == nil || s.Token == "" {
		return
	}
	req.Header.Set("auth-token", s.Token)
}

// Logout implements Provider. The portal API has no logout endpoint.
func (p *ZCCLoginProvider) Logout(context.Context, *Session) error {
	return nil
}

// tokenExpiry reads the exp claim of a JWT without verifying its signature;
// the token came straight from the login endpoint over TLS.
func tokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
