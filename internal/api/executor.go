// Package api provides the request executor shared by every Zscaler
// product client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tphakala/go-zscaler/internal/auth"
	"github.com/tphakala/go-zscaler/internal/cache"
	"github.com/tphakala/go-zscaler/internal/ratelimit"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxBodySize = 10 * 1024 * 1024 // 10MB
	defaultUserAgent   = "go-zscaler/1.0"

	// HeaderRequestID carries the per-request correlation ID.
	HeaderRequestID = "X-Request-ID"

	tracerName = "github.com/tphakala/go-zscaler"
)

// RetryPolicy bounds the retries of a single call.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt for 429,
	// 5xx and transport failures. The one re-authentication after a 401 is
	// not counted.
	MaxRetries int
	// MaxWait caps every single wait, including server-requested ones.
	MaxWait time.Duration
	// InitialInterval and MaxInterval shape the exponential backoff used
	// when the server gives no hint.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      5,
		MaxWait:         60 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.MaxWait <= 0 {
		p.MaxWait = d.MaxWait
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = d.MaxInterval
	}
	return p
}

// Request represents an API request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers http.Header
	NoCache bool
}

// Response represents an API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	FromCache  bool
	Attempts   int
}

// Executor sends requests for one product: it throttles, authenticates,
// retries and caches.
type Executor struct {
	Product    string
	BaseURL    *url.URL
	HTTPClient *http.Client
	Auth       auth.Authorizer
	Limiter    ratelimit.Limiter
	Cache      cache.Cache
	Retry      RetryPolicy
	Logger     *zap.Logger
	Tracer     trace.Tracer
	UserAgent  string

	// Namespace prefixes cache keys. Executors of different tenants that
	// share a Cache need distinct namespaces. Empty means Product.
	Namespace string

	// Sleep waits between retries. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an Executor with default collaborators.
func NewExecutor(product, baseURL string, authorizer auth.Authorizer, httpClient *http.Client) (*Executor, error) {
	if product == "" {
		return nil, errors.New("product must be provided")
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultHTTPTimeout,
		}
	}

	return &Executor{
		Product:    product,
		BaseURL:    u,
		HTTPClient: httpClient,
		Auth:       authorizer,
		Limiter:    ratelimit.Nop{},
		Retry:      DefaultRetryPolicy(),
		Logger:     zap.NewNop(),
		UserAgent:  defaultUserAgent,
	}, nil
}

// Do executes an API request and returns the raw response. Non-2xx
// responses are returned without error; the caller maps them.
func (e *Executor) Do(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	u := e.resolve(req)

	ctx, span := e.tracer().Start(ctx, "zscaler."+e.Product+" "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("zscaler.product", e.Product),
			attribute.String("http.request.method", method),
			attribute.String("url.path", u.Path),
		))
	defer span.End()

	var key string
	if method == http.MethodGet && e.Cache != nil && !req.NoCache {
		key = cache.Key(e.namespace(), method, u)
		body, ok, err := e.Cache.Get(ctx, key)
		if err != nil {
			e.logger().Warn("cache read failed", zap.String("product", e.Product), zap.Error(err))
		} else if ok {
			span.SetAttributes(attribute.Bool("zscaler.cache_hit", true))
			return &Response{StatusCode: http.StatusOK, Body: body, Headers: http.Header{}, FromCache: true}, nil
		}
	}
	span.SetAttributes(attribute.Bool("zscaler.cache_hit", false))

	var payload []byte
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "marshal")
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	resp, err := e.execute(ctx, method, u, payload, req.Headers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("http.response.status_code", resp.StatusCode),
		attribute.Int("zscaler.attempts", resp.Attempts),
	)
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		e.updateCache(ctx, method, key, u, resp)
	}
	return resp, nil
}

// DoJSON executes a request and unmarshals the JSON response into result.
// It only attempts to unmarshal on success status codes (< 400).
func (e *Executor) DoJSON(ctx context.Context, req *Request, result any) (*Response, error) {
	resp, err := e.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if result != nil && len(resp.Body) > 0 && resp.StatusCode < 400 {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return resp, fmt.Errorf("unmarshaling response: %w", err)
		}
	}

	return resp, nil
}

func (e *Executor) execute(ctx context.Context, method string, u *url.URL, payload []byte, headers http.Header) (*Response, error) {
	policy := e.Retry.withDefaults()
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialInterval
	bo.MaxInterval = policy.MaxInterval

	nextBackoff := func() time.Duration {
		d := bo.NextBackOff()
		if d == backoff.Stop || d < 0 {
			d = policy.MaxInterval
		}
		return min(d, policy.MaxWait)
	}

	reauthenticated := false
	retries := 0
	for attempt := 1; ; attempt++ {
		if err := e.limiter().Wait(ctx, method); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, retryable, err := e.attempt(ctx, method, u, payload, headers, attempt)
		if err != nil {
			if ctx.Err() != nil || !retryable || !idempotent(method) || retries >= policy.MaxRetries {
				return nil, err
			}
			wait := nextBackoff()
			e.logger().Warn("request failed, retrying",
				zap.String("product", e.Product),
				zap.String("method", method),
				zap.String("path", u.Path),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
			if err := e.sleep(ctx, wait); err != nil {
				return nil, err
			}
			retries++
			continue
		}
		resp.Attempts = attempt

		switch {
		case resp.StatusCode == http.StatusUnauthorized && !reauthenticated && e.Auth != nil:
			reauthenticated = true
			e.Auth.Invalidate()
			e.logger().Info("session rejected, re-authenticating",
				zap.String("product", e.Product),
				zap.String("path", u.Path))
			continue

		case resp.StatusCode == http.StatusTooManyRequests && retries < policy.MaxRetries:
			wait := RetryAfter(resp.Headers)
			if wait <= 0 {
				wait = nextBackoff()
			}
			wait = min(wait, policy.MaxWait)
			if err := e.limiter().Backoff(ctx, method, wait); err != nil {
				e.logger().Warn("recording backoff failed", zap.String("product", e.Product), zap.Error(err))
			}
			e.logger().Warn("rate limited, retrying",
				zap.String("product", e.Product),
				zap.String("method", method),
				zap.String("path", u.Path),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait))
			if err := e.sleep(ctx, wait); err != nil {
				return nil, err
			}
			retries++
			continue

		case resp.StatusCode >= http.StatusInternalServerError && idempotent(method) && retries < policy.MaxRetries:
			wait := nextBackoff()
			e.logger().Warn("server error, retrying",
				zap.String("product", e.Product),
				zap.String("method", method),
				zap.String("path", u.Path),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait))
			if err := e.sleep(ctx, wait); err != nil {
				return nil, err
			}
			retries++
			continue
		}

		return resp, nil
	}
}

// attempt sends one request. retryable is false for failures a retry
// cannot fix, such as a rejected login.
func (e *Executor) attempt(ctx context.Context, method string, u *url.URL, payload []byte, headers http.Header, n int) (resp *Response, retryable bool, err error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}

	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", e.userAgent())
	maps.Copy(httpReq.Header, headers)
	if httpReq.Header.Get(HeaderRequestID) == "" {
		httpReq.Header.Set(HeaderRequestID, uuid.NewString())
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	if e.Auth != nil {
		if err := e.Auth.Authorize(ctx, httpReq); err != nil {
			return nil, false, fmt.Errorf("authenticating %s: %w", e.Product, err)
		}
	}

	start := time.Now()
	httpResp, err := e.client().Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	// Limit response body size to prevent memory exhaustion
	limitedReader := io.LimitReader(httpResp.Body, defaultMaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, true, fmt.Errorf("reading response body: %w", err)
	}

	if int64(len(body)) > defaultMaxBodySize {
		return nil, false, fmt.Errorf("response too large: exceeds %d bytes", defaultMaxBodySize)
	}

	e.logger().Debug("request completed",
		zap.String("product", e.Product),
		zap.String("method", method),
		zap.String("path", u.Path),
		zap.Int("status", httpResp.StatusCode),
		zap.Int("attempt", n),
		zap.String("request_id", httpReq.Header.Get(HeaderRequestID)),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}, false, nil
}

func (e *Executor) updateCache(ctx context.Context, method, key string, u *url.URL, resp *Response) {
	if e.Cache == nil {
		return
	}
	if method == http.MethodGet {
		if key == "" {
			return
		}
		if err := e.Cache.Set(ctx, key, resp.Body); err != nil {
			e.logger().Warn("cache write failed", zap.String("product", e.Product), zap.Error(err))
		}
		return
	}
	if method == http.MethodHead {
		return
	}
	if err := e.Cache.DeletePrefix(ctx, cache.CollectionPrefix(e.namespace(), u)); err != nil {
		e.logger().Warn("cache invalidation failed", zap.String("product", e.Product), zap.Error(err))
	}
}

func (e *Executor) namespace() string {
	if e.Namespace != "" {
		return e.Namespace
	}
	return e.Product
}

func (e *Executor) resolve(req *Request) *url.URL {
	u := e.BaseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	return u
}

func (e *Executor) client() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return http.DefaultClient
}

func (e *Executor) limiter() ratelimit.Limiter {
	if e.Limiter != nil {
		return e.Limiter
	}
	return ratelimit.Nop{}
}

func (e *Executor) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

func (e *Executor) tracer() trace.Tracer {
	if e.Tracer != nil {
		return e.Tracer
	}
	return otel.Tracer(tracerName)
}

func (e *Executor) userAgent() string {
	if e.UserAgent != "" {
		return e.UserAgent
	}
	return defaultUserAgent
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
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

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}
