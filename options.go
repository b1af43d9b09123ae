package zscaler

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tphakala/go-zscaler/internal/cache"
	"github.com/tphakala/go-zscaler/internal/ratelimit"
)

// Cache stores GET response bodies. Implementations must be safe for
// concurrent use.
type Cache = cache.Cache

// RateLimiter throttles requests per HTTP method.
type RateLimiter = ratelimit.Limiter

// RateLimit is a request budget over a window.
type RateLimit = ratelimit.Limit

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type legacyCredentials struct {
	username string
	password string
	apiKey   string
}

type clientConfig struct {
	// OneAPI
	clientID      string
	clientSecret  string
	privateKeyPEM []byte
	vanityDomain  string

	// Legacy, one entry per product
	zia *legacyCredentials
	ztw *legacyCredentials
	zpa *legacyCredentials
	zcc *legacyCredentials

	cloud          string
	productClouds  map[Product]string
	baseURLs       map[Product]string
	tokenURL       string
	zpaCustomerID  string
	httpClient     *http.Client
	timeout        time.Duration
	userAgent      string
	logger         *zap.Logger
	tracerProvider trace.TracerProvider

	limits      map[ratelimit.VerbClass]ratelimit.Limit
	limitMargin float64
	limiter     RateLimiter
	redisLimit  *redis.Client
	tokenBucket bool

	cache      Cache
	cacheSetup func() (Cache, error)

	retrySet     bool
	retryMax     int
	retryMaxWait time.Duration
	sessionTTL   time.Duration

	err error
}

// WithOneAPI authenticates every product through OneAPI with an OAuth2
// client secret.
func WithOneAPI(clientID, clientSecret, vanityDomain string) ClientOption {
	return func(c *clientConfig) {
		c.clientID = clientID
		c.clientSecret = clientSecret
		c.vanityDomain = vanityDomain
	}
}

// WithOneAPIPrivateKey authenticates through OneAPI with a signed JWT
// client assertion instead of a client secret.
func WithOneAPIPrivateKey(clientID string, pemKey []byte, vanityDomain string) ClientOption {
	return func(c *clientConfig) {
		c.clientID = clientID
		c.privateKeyPEM = pemKey
		c.vanityDomain = vanityDomain
	}
}

// WithZIALegacy enables the ZIA API with legacy admin credentials.
func WithZIALegacy(username, password, apiKey string) ClientOption {
	return func(c *clientConfig) {
		c.zia = &legacyCredentials{username: username, password: password, apiKey: apiKey}
	}
}

// WithZTWLegacy enables the ZTW (Cloud & Branch Connector) API with legacy
// admin credentials.
func WithZTWLegacy(username, password, apiKey string) ClientOption {
	return func(c *clientConfig) {
		c.ztw = &legacyCredentials{username: username, password: password, apiKey: apiKey}
	}
}

// WithZPALegacy enables the ZPA API with a legacy API client.
func WithZPALegacy(clientID, clientSecret string) ClientOption {
	return func(c *clientConfig) {
		c.zpa = &legacyCredentials{username: clientID, password: clientSecret}
	}
}

// WithZCCLegacy enables the ZCC API with a legacy API key pair.
func WithZCCLegacy(apiKey, secretKey string) ClientOption {
	return func(c *clientConfig) {
		c.zcc = &legacyCredentials{username: apiKey, password: secretKey}
	}
}

// WithCloud selects the Zscaler cloud. OneAPI defaults to "production";
// legacy clients need the cloud their tenant lives on, e.g. "zscalertwo".
func WithCloud(name string) ClientOption {
	return func(c *clientConfig) {
		c.cloud = name
	}
}

// WithProductCloud selects the cloud of one legacy product, overriding
// WithCloud for it.
func WithProductCloud(p Product, name string) ClientOption {
	return func(c *clientConfig) {
		if c.productClouds == nil {
			c.productClouds = make(map[Product]string)
		}
		c.productClouds[p] = name
	}
}

// WithZPACustomerID sets the ZPA tenant ID used in ZPA resource paths.
func WithZPACustomerID(id string) ClientOption {
	return func(c *clientConfig) {
		c.zpaCustomerID = id
	}
}

// WithBaseURL overrides the API URL of one product.
func WithBaseURL(p Product, url string) ClientOption {
	return func(c *clientConfig) {
		if c.baseURLs == nil {
			c.baseURLs = make(map[Product]string)
		}
		c.baseURLs[p] = url
	}
}

// WithTokenURL overrides the OneAPI token endpoint.
func WithTokenURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.tokenURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the default request timeout.
// Note: This option is ignored when WithHTTPClient is used;
// set the timeout directly on the provided client instead.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(c *clientConfig) {
		c.tracerProvider = tp
	}
}

// WithRateLimits sets the client-side budgets for reads and writes.
func WithRateLimits(read, write RateLimit) ClientOption {
	return func(c *clientConfig) {
		c.limits = map[ratelimit.VerbClass]ratelimit.Limit{
			ratelimit.ClassRead:  read,
			ratelimit.ClassWrite: write,
		}
	}
}

// WithRateLimitMargin scales the budgets down to the given fraction.
func WithRateLimitMargin(margin float64) ClientOption {
	return func(c *clientConfig) {
		c.limitMargin = margin
	}
}

// WithRedisRateLimit keeps limiter state in redis so several processes
// share one budget.
func WithRedisRateLimit(client *redis.Client) ClientOption {
	return func(c *clientConfig) {
		c.redisLimit = client
	}
}

// WithTokenBucket throttles with a smooth token bucket per verb class
// instead of fixed windows.
func WithTokenBucket() ClientOption {
	return func(c *clientConfig) {
		c.tokenBucket = true
	}
}

// WithRateLimiter replaces the built-in limiter.
func WithRateLimiter(l RateLimiter) ClientOption {
	return func(c *clientConfig) {
		c.limiter = l
	}
}

// WithCache enables response caching with a caller-provided backend.
func WithCache(cc Cache) ClientOption {
	return func(c *clientConfig) {
		c.cache = cc
		c.cacheSetup = nil
	}
}

// WithMemoryCache enables an in-process response cache. Zero durations
// select the defaults (TTL 10m, TTI 8m).
func WithMemoryCache(ttl, tti time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.cache = nil
		c.cacheSetup = func() (Cache, error) {
			return cache.NewMemory(cache.Policy{TTL: ttl, TTI: tti}), nil
		}
	}
}

// WithRedisCache enables a response cache shared through redis.
func WithRedisCache(client *redis.Client, ttl, tti time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.cache = nil
		c.cacheSetup = func() (Cache, error) {
			return cache.NewRedis(client, "", cache.Policy{TTL: ttl, TTI: tti}), nil
		}
	}
}

// WithSQLiteCache enables a response cache persisted in a SQLite file.
func WithSQLiteCache(path string, ttl, tti time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.cache = nil
		c.cacheSetup = func() (Cache, error) {
			return openSQLiteCache(path, cache.Policy{TTL: ttl, TTI: tti})
		}
	}
}

// WithRetry bounds retries of rate-limited and failed requests. A
// maxRetries of 0 disables retries; a zero maxWait keeps the default cap
// of 60s per wait.
func WithRetry(maxRetries int, maxWait time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.retrySet = true
		c.retryMax = maxRetries
		c.retryMaxWait = maxWait
	}
}

// WithSessionTTL sets the lifetime assumed for legacy sessions whose
// server does not report one.
func WithSessionTTL(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.sessionTTL = d
	}
}

// RequestOption configures individual API requests.
type RequestOption func(*requestConfig)

type requestConfig struct {
	headers http.Header
	noCache bool
}

func newRequestConfig() *requestConfig {
	return &requestConfig{
		headers: make(http.Header),
	}
}

func (r *requestConfig) apply(opts ...RequestOption) {
	for _, opt := range opts {
		opt(r)
	}
}

// WithHeader adds a custom header to a request.
func WithHeader(key, value string) RequestOption {
	return func(r *requestConfig) {
		r.headers.Set(key, value)
	}
}

// WithHeaders adds multiple custom headers to a request.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *requestConfig) {
		for k, v := range headers {
			r.headers.Set(k, v)
		}
	}
}

// WithRequestID sets the X-Request-ID header for tracing.
func WithRequestID(id string) RequestOption {
	return WithHeader("X-Request-ID", id)
}

// WithNoCache bypasses the response cache for one call.
func WithNoCache() RequestOption {
	return func(r *requestConfig) {
		r.noCache = true
	}
}
