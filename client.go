package zscaler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tphakala/go-zscaler/internal/api"
	"github.com/tphakala/go-zscaler/internal/auth"
	"github.com/tphakala/go-zscaler/internal/cache"
	"github.com/tphakala/go-zscaler/internal/ratelimit"
)

// Default configuration values.
const (
	defaultTimeout = 30 * time.Second
	tracerName     = "github.com/tphakala/go-zscaler"
)

// ZIA groups the Internet Access services.
type ZIA struct {
	Locations         LocationService
	URLFilteringRules URLFilteringRuleService
	Activation        ActivationService
}

// ZPA groups the Private Access services.
type ZPA struct {
	SegmentGroups SegmentGroupService
}

// ZCC groups the Client Connector services.
type ZCC struct {
	Devices DeviceService
}

// ZTW groups the Cloud & Branch Connector services.
type ZTW struct {
	ECGroups ECGroupService
}

// Client is the Zscaler API client. It is safe for concurrent use.
type Client struct {
	ZIA *ZIA
	ZPA *ZPA
	ZCC *ZCC
	ZTW *ZTW

	products  map[Product]*productClient
	sessions  []*auth.Manager
	cache     Cache
	ownsCache bool
	logger    *zap.Logger
}

// SessionInfo describes the session of a product after authentication.
type SessionInfo struct {
	Product   Product
	Provider  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewClient creates a new Zscaler client with the given options.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		timeout: defaultTimeout,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.err != nil {
		return nil, cfg.err
	}

	oneAPI := cfg.clientID != ""
	legacy := cfg.zia != nil || cfg.ztw != nil || cfg.zpa != nil || cfg.zcc != nil
	switch {
	case oneAPI && legacy:
		return nil, ErrConflictingAuth
	case !oneAPI && !legacy:
		return nil, ErrNoCredentials
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.timeout,
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		products: make(map[Product]*productClient),
		logger:   logger,
	}

	respCache, owned, err := cfg.buildCache()
	if err != nil {
		return nil, err
	}
	c.cache = respCache
	c.ownsCache = owned

	b := &builder{cfg: cfg, client: c, httpClient: httpClient, logger: logger}
	if oneAPI {
		err = b.oneAPI()
	} else {
		err = b.legacy()
	}
	if err != nil {
		if owned {
			_ = respCache.Close()
		}
		return nil, err
	}

	c.ZIA = &ZIA{
		Locations:         newLocationService(c.products[ProductZIA]),
		URLFilteringRules: newURLFilteringRuleService(c.products[ProductZIA]),
		Activation:        newActivationService(c.products[ProductZIA]),
	}
	c.ZPA = &ZPA{
		SegmentGroups: newSegmentGroupService(c.products[ProductZPA], cfg.zpaCustomerID),
	}
	c.ZCC = &ZCC{
		Devices: newDeviceService(c.products[ProductZCC]),
	}
	c.ZTW = &ZTW{
		ECGroups: newECGroupService(c.products[ProductZTW]),
	}

	return c, nil
}

// Configured reports the products this client can call.
func (c *Client) Configured() []Product {
	var out []Product
	for _, p := range Products {
		if _, ok := c.products[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// BaseURL returns the configured API base URL of a product, or "" when the
// product is not configured.
func (c *Client) BaseURL(p Product) string {
	pc, ok := c.products[p]
	if !ok {
		return ""
	}
	return pc.exec.BaseURL.String()
}

// Authenticate logs in to a product, or reuses its current session.
func (c *Client) Authenticate(ctx context.Context, p Product) (*SessionInfo, error) {
	pc, ok := c.products[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotConfigured, p)
	}
	s, err := pc.session.Authenticate(ctx)
	if err != nil {
		return nil, wrapError(string(p), err)
	}
	return &SessionInfo{
		Product:   p,
		Provider:  pc.session.Provider().Name(),
		IssuedAt:  s.IssuedAt,
		ExpiresAt: s.ExpiresAt,
	}, nil
}

// ClearCache drops every cached response.
func (c *Client) ClearCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Clear(ctx)
}

// Close logs out of every session and releases the cache it opened.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	for _, m := range c.sessions {
		if err := m.Logout(ctx); err != nil {
			c.logger.Warn("logout failed",
				zap.String("provider", m.Provider().Name()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s logout: %w", m.Provider().Name(), err))
		}
	}
	if c.ownsCache && c.cache != nil {
		if err := c.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	return errors.Join(errs...)
}

// builder assembles the per-product clients.
type builder struct {
	cfg        *clientConfig
	client     *Client
	httpClient *http.Client
	logger     *zap.Logger
}

func (b *builder) oneAPI() error {
	cfg := b.cfg
	if cfg.clientSecret == "" && len(cfg.privateKeyPEM) == 0 {
		return ErrNoCredentials
	}
	tokenURL := cfg.tokenURL
	if tokenURL == "" {
		if cfg.vanityDomain == "" {
			return ErrNoVanityDomain
		}
		tokenURL = auth.OneAPITokenURL(cfg.vanityDomain, cfg.cloud)
	}

	provider := &auth.OAuth2Provider{
		ClientID:     cfg.clientID,
		ClientSecret: cfg.clientSecret,
		TokenURL:     tokenURL,
		HTTPClient:   b.httpClient,
	}
	if len(cfg.privateKeyPEM) > 0 {
		key, err := auth.ParsePrivateKey(cfg.privateKeyPEM)
		if err != nil {
			return fmt.Errorf("zscaler: %w", err)
		}
		provider.PrivateKey = key
	}

	session := b.manager(provider)
	for _, p := range Products {
		if p == ProductZPA && cfg.zpaCustomerID == "" {
			b.logger.Debug("ZPA disabled: no customer ID configured")
			continue
		}
		tenant := []string{cfg.clientID, tokenURL}
		if p == ProductZPA {
			tenant = append(tenant, cfg.zpaCustomerID)
		}
		if err := b.add(p, OneAPIBaseURL(p, cfg.cloud), session, tenant...); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) legacy() error {
	cfg := b.cfg

	if creds := cfg.zia; creds != nil {
		if err := checkAPIKey(creds.apiKey); err != nil {
			return err
		}
		base := b.baseURL(ProductZIA, LegacyBaseURL(ProductZIA, b.cloud(ProductZIA)))
		provider := auth.NewZIASessionProvider(base, creds.username, creds.password, creds.apiKey, b.httpClient)
		provider.SessionTTL = cfg.sessionTTL
		if err := b.add(ProductZIA, base, b.manager(provider), creds.username); err != nil {
			return err
		}
	}

	if creds := cfg.ztw; creds != nil {
		if err := checkAPIKey(creds.apiKey); err != nil {
			return err
		}
		base := b.baseURL(ProductZTW, LegacyBaseURL(ProductZTW, b.cloud(ProductZTW)))
		provider := auth.NewZTWSessionProvider(base, creds.username, creds.password, creds.apiKey, b.httpClient)
		provider.SessionTTL = cfg.sessionTTL
		if err := b.add(ProductZTW, base, b.manager(provider), creds.username); err != nil {
			return err
		}
	}

	if creds := cfg.zpa; creds != nil {
		if cfg.zpaCustomerID == "" {
			return ErrNoCustomerID
		}
		if creds.username == "" || creds.password == "" {
			return fmt.Errorf("%w: zpa client ID and secret", ErrNoCredentials)
		}
		base := b.baseURL(ProductZPA, LegacyBaseURL(ProductZPA, b.cloud(ProductZPA)))
		provider := auth.NewZPASigninProvider(base, creds.username, creds.password, b.httpClient)
		if err := b.add(ProductZPA, base, b.manager(provider), creds.username, cfg.zpaCustomerID); err != nil {
			return err
		}
	}

	if creds := cfg.zcc; creds != nil {
		if creds.username == "" || creds.password == "" {
			return fmt.Errorf("%w: zcc api key and secret", ErrNoCredentials)
		}
		base := b.baseURL(ProductZCC, LegacyBaseURL(ProductZCC, b.cloud(ProductZCC)))
		provider := auth.NewZCCLoginProvider(base, creds.username, creds.password, b.httpClient)
		provider.SessionTTL = cfg.sessionTTL
		if err := b.add(ProductZCC, base, b.manager(provider), creds.username); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) manager(p auth.Provider) *auth.Manager {
	m := auth.NewManager(p, auth.WithLogger(b.logger))
	b.client.sessions = append(b.client.sessions, m)
	return m
}

// add wires product p. tenant identifies the credentials in cache keys.
func (b *builder) add(p Product, defaultURL string, session *auth.Manager, tenant ...string) error {
	exec, err := api.NewExecutor(string(p), b.baseURL(p, defaultURL), session, b.httpClient)
	if err != nil {
		return fmt.Errorf("zscaler: %s: %w", p, err)
	}
	exec.Limiter = b.cfg.newLimiter(p)
	exec.Logger = b.logger
	if b.client.cache != nil {
		exec.Cache = b.client.cache
		exec.Namespace = cacheNamespace(p, tenant...)
	}
	if b.cfg.tracerProvider != nil {
		exec.Tracer = b.cfg.tracerProvider.Tracer(tracerName)
	}
	if b.cfg.userAgent != "" {
		exec.UserAgent = b.cfg.userAgent
	}
	if b.cfg.retrySet {
		exec.Retry.MaxRetries = max(b.cfg.retryMax, 0)
		if b.cfg.retryMaxWait > 0 {
			exec.Retry.MaxWait = b.cfg.retryMaxWait
		}
	}

	b.client.products[p] = &productClient{product: p, exec: exec, session: session}
	b.logger.Debug("product configured",
		zap.String("product", string(p)),
		zap.String("base_url", exec.BaseURL.String()),
		zap.String("auth", session.Provider().Name()))
	return nil
}

// cacheNamespace scopes cached responses to one product and tenant, so
// clients with different credentials can share a cache.
func cacheNamespace(p Product, tenant ...string) string {
	h := sha256.New()
	for _, part := range tenant {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return string(p) + ":" + hex.EncodeToString(h.Sum(nil)[:8])
}

func (b *builder) baseURL(p Product, fallback string) string {
	if u := b.cfg.baseURLs[p]; u != "" {
		return u
	}
	return fallback
}

func (b *builder) cloud(p Product) string {
	if cloud := b.cfg.productClouds[p]; cloud != "" {
		return cloud
	}
	return b.cfg.cloud
}

func (cfg *clientConfig) newLimiter(p Product) RateLimiter {
	if cfg.limiter != nil {
		return cfg.limiter
	}
	limits := cfg.limits
	if limits == nil {
		limits = ratelimit.DefaultLimits
	}
	if cfg.tokenBucket {
		return ratelimit.NewTokenBucketLimiter(limits, cfg.limitMargin)
	}
	l := ratelimit.NewWindowLimiter(limits)
	l.Margin = cfg.limitMargin
	if cfg.redisLimit != nil {
		l.Store = ratelimit.NewRedisStore(cfg.redisLimit, "zscaler:ratelimit:"+string(p))
	}
	return l
}

func (cfg *clientConfig) buildCache() (Cache, bool, error) {
	if cfg.cache != nil {
		return cfg.cache, false, nil
	}
	if cfg.cacheSetup == nil {
		return nil, false, nil
	}
	c, err := cfg.cacheSetup()
	if err != nil {
		return nil, false, fmt.Errorf("zscaler: cache: %w", err)
	}
	return c, true, nil
}

func openSQLiteCache(path string, policy cache.Policy) (Cache, error) {
	c, err := cache.OpenSQLite(context.Background(), path, policy)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func checkAPIKey(apiKey string) error {
	if len(apiKey) < 12 {
		return ErrInvalidAPIKey
	}
	return nil
}
