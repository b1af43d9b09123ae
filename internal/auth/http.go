package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	maxLoginBody     = 1 << 20
	maxErrorExcerpt  = 256
	defaultUserAgent = "go-zscaler/1.0"
)

// endpoint holds what every login exchange needs to reach the API.
type endpoint struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	Clock      func() time.Time
}

func (e *endpoint) client() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return http.DefaultClient
}

func (e *endpoint) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e *endpoint) url(path string) string {
	return strings.TrimSuffix(e.BaseURL, "/") + path
}

// loginResponse is the raw result of a login round trip.
type loginResponse struct {
	status  int
	body    []byte
	cookies []*http.Cookie
}

func (e *endpoint) send(provider string, req *http.Request) (*loginResponse, error) {
	ua := e.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s login request: %w", provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLoginBody))
	if err != nil {
		return nil, fmt.Errorf("%s login response: %w", provider, err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &LoginError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    excerpt(body),
		}
	}

	return &loginResponse{status: resp.StatusCode, body: body, cookies: resp.Cookies()}, nil
}

func (e *endpoint) postJSON(ctx context.Context, provider, path string, payload any) (*loginResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s login payload: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url(path), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s login request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return e.send(provider, req)
}

func (e *endpoint) postForm(ctx context.Context, provider, path string, form url.Values) (*loginResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url(path), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s login request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.send(provider, req)
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorExcerpt {
		return s[:maxErrorExcerpt] + "..."
	}
	return s
}
