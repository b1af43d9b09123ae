package config

import (
	"time"
)

// Config is the zscalerctl configuration. It is read from a YAML file and
// ZSCALERCTL_ environment variables, the latter taking precedence.
type Config struct {
	Auth      AuthConfig        `mapstructure:"auth" yaml:"auth"`
	BaseURLs  map[string]string `mapstructure:"base_urls" yaml:"base_urls,omitempty"`
	Timeout   time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	Output    string            `mapstructure:"output" yaml:"output"`
	Logging   LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Cache     CacheConfig       `mapstructure:"cache" yaml:"cache"`
	RateLimit RateLimitConfig   `mapstructure:"rate_limit" yaml:"rate_limit"`
	Retry     RetryConfig       `mapstructure:"retry" yaml:"retry"`
	Redis     RedisConfig       `mapstructure:"redis" yaml:"redis"`
	Tracing   TracingConfig     `mapstructure:"tracing" yaml:"tracing"`
	Mock      MockConfig        `mapstructure:"mock" yaml:"mock"`
}

// AuthConfig holds OneAPI credentials and, when no OneAPI client ID is
// set, the per-product legacy credentials.
type AuthConfig struct {
	ClientID       string `mapstructure:"client_id" yaml:"client_id,omitempty"`
	ClientSecret   string `mapstructure:"client_secret" yaml:"client_secret,omitempty"`
	PrivateKey     string `mapstructure:"private_key" yaml:"private_key,omitempty"`
	PrivateKeyFile string `mapstructure:"private_key_file" yaml:"private_key_file,omitempty"`
	VanityDomain   string `mapstructure:"vanity_domain" yaml:"vanity_domain,omitempty"`
	Cloud          string `mapstructure:"cloud" yaml:"cloud,omitempty"`
	CustomerID     string `mapstructure:"customer_id" yaml:"customer_id,omitempty"`
	TokenURL       string `mapstructure:"token_url" yaml:"token_url,omitempty"`

	ZIA LegacyConfig `mapstructure:"zia" yaml:"zia,omitempty"`
	ZTW LegacyConfig `mapstructure:"ztw" yaml:"ztw,omitempty"`
	ZPA LegacyConfig `mapstructure:"zpa" yaml:"zpa,omitempty"`
	ZCC LegacyConfig `mapstructure:"zcc" yaml:"zcc,omitempty"`
}

// LegacyConfig holds legacy credentials of one product. ZIA and ZTW use
// username, password and API key; ZPA and ZCC use client ID and secret.
type LegacyConfig struct {
	Username     string `mapstructure:"username" yaml:"username,omitempty"`
	Password     string `mapstructure:"password" yaml:"password,omitempty"`
	APIKey       string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	ClientID     string `mapstructure:"client_id" yaml:"client_id,omitempty"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret,omitempty"`
	Cloud        string `mapstructure:"cloud" yaml:"cloud,omitempty"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
)

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Backend string        `mapstructure:"backend" yaml:"backend"`
	Path    string        `mapstructure:"path" yaml:"path,omitempty"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	TTI     time.Duration `mapstructure:"tti" yaml:"tti"`
}

// RateLimitConfig overrides the client-side request budgets. Zero
// requests keep the built-in Zscaler limits.
type RateLimitConfig struct {
	ReadRequests  int           `mapstructure:"read_requests" yaml:"read_requests"`
	ReadWindow    time.Duration `mapstructure:"read_window" yaml:"read_window"`
	WriteRequests int           `mapstructure:"write_requests" yaml:"write_requests"`
	WriteWindow   time.Duration `mapstructure:"write_window" yaml:"write_window"`
	Margin        float64       `mapstructure:"margin" yaml:"margin"`
	TokenBucket   bool          `mapstructure:"token_bucket" yaml:"token_bucket"`
	Shared        bool          `mapstructure:"shared" yaml:"shared"`
}

// RetryConfig bounds retries of throttled and failed requests.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	MaxWait    time.Duration `mapstructure:"max_wait" yaml:"max_wait"`
}

// RedisConfig is used by the redis cache backend and the shared rate
// limiter.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// TracingConfig enables OTLP trace export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	SampleRatio float64 `mapstructure:"sample_ratio" yaml:"sample_ratio"`
}

// MockConfig configures `mock serve`.
type MockConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

const redacted = "********"

// Redacted returns a copy with every secret masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.BaseURLs = make(map[string]string, len(c.BaseURLs))
	for k, v := range c.BaseURLs {
		out.BaseURLs[k] = v
	}

	out.Auth.ClientSecret = mask(c.Auth.ClientSecret)
	out.Auth.PrivateKey = mask(c.Auth.PrivateKey)
	for _, l := range []*LegacyConfig{&out.Auth.ZIA, &out.Auth.ZTW, &out.Auth.ZPA, &out.Auth.ZCC} {
		l.Password = mask(l.Password)
		l.APIKey = mask(l.APIKey)
		l.ClientSecret = mask(l.ClientSecret)
	}
	out.Redis.Password = mask(c.Redis.Password)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}
