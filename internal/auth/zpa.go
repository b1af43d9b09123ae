package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ZPASigninProvider implements the legacy ZPA client-credentials signin.
type ZPASigninProvider struct {
	endpoint

	ClientID     string
	ClientSecret string
}

// NewZPASigninProvider returns the legacy ZPA provider.
func NewZPASigninProvider(baseURL, clientID, clientSecret string, httpClient *http.Client) *ZPASigninProvider {
	return &ZPASigninProvider{
		endpoint:     endpoint{BaseURL: baseURL, HTTPClient: httpClient},
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
}

// seconds decodes a duration in seconds sent either as a JSON number or
// as a numeric string, which is what ZPA returns for expires_in.
type seconds int64

func (s *seconds) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*s = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid seconds value %q: %w", data, err)
	}
	*s = seconds(n)
	return nil
}

type zpaSigninResponse struct {
	TokenType   string  `json:"token_type"`
	AccessToken string  `json:"access_token"`
	ExpiresIn   seconds `json:"expires_in"`
}

// Name implements Provider.
func (p *ZPASigninProvider) Name() string {
	return "zpa-legacy"
}

// Login implements Provider.
func (p *ZPASigninProvider) Login(ctx context.Context) (*Session, error) {
	now := p.now()
	resp, err := p.postForm(ctx, p.Name(), "/signin", url.Values{
		"client_id":     {p.ClientID},
		"client_secret": {p.ClientSecret},
	})
	if err != nil {
		return nil, err
	}

	var body zpaSigninResponse
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return nil, fmt.Errorf("%s signin response: %w", p.Name(), err)
	}
	if body.AccessToken == "" {
		return nil, &LoginError{Provider: p.Name(), StatusCode: resp.status, Message: "empty access token"}
	}

	s := &Session{Token: body.AccessToken, IssuedAt: now}
	if body.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(body.ExpiresIn) * time.Second)
	} else {
		s.ExpiresAt = now.Add(DefaultSessionTTL)
	}
	return s, nil
}

// Apply implements Provider.
func (p *ZPASigninProvider) Apply(req *http.Request, s *Session) {
	if s == nil || s.Token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
}

// Logout implements Provider. ZPA bearer tokens simply expire.
func (p *ZPASigninProvider) Logout(context.Context, *Session) error {
	return nil
}
