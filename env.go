package zscaler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds the standard Zscaler SDK environment variables.
type EnvConfig struct {
	ClientID     string `env:"ZSCALER_CLIENT_ID"`
	ClientSecret string `env:"ZSCALER_CLIENT_SECRET"`
	PrivateKey   string `env:"ZSCALER_PRIVATE_KEY"`
	VanityDomain string `env:"ZSCALER_VANITY_DOMAIN"`
	Cloud        string `env:"ZSCALER_CLOUD"`

	ZPACustomerID   string `env:"ZPA_CUSTOMER_ID"`
	ZPAClientID     string `env:"ZPA_CLIENT_ID"`
	ZPAClientSecret string `env:"ZPA_CLIENT_SECRET"`
	ZPACloud        string `env:"ZPA_CLOUD"`

	ZIAUsername string `env:"ZIA_USERNAME"`
	ZIAPassword string `env:"ZIA_PASSWORD"`
	ZIAAPIKey   string `env:"ZIA_API_KEY"`
	ZIACloud    string `env:"ZIA_CLOUD"`

	ZTWUsername string `env:"ZTW_USERNAME"`
	ZTWPassword string `env:"ZTW_PASSWORD"`
	ZTWAPIKey   string `env:"ZTW_API_KEY"`
	ZTWCloud    string `env:"ZTW_CLOUD"`

	ZCCClientID     string `env:"ZCC_CLIENT_ID"`
	ZCCClientSecret string `env:"ZCC_CLIENT_SECRET"`
	ZCCCloud        string `env:"ZCC_CLOUD"`

	CacheEnabled bool   `env:"ZSCALER_CLIENT_CACHE_ENABLED"`
	CacheTTL     string `env:"ZSCALER_CLIENT_CACHE_DEFAULT_TTL"`
	CacheTTI     string `env:"ZSCALER_CLIENT_CACHE_DEFAULT_TTI"`
}

// LoadEnv reads the standard environment variables.
func LoadEnv() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("zscaler: parse env: %w", err)
	}
	return &cfg, nil
}

// Options converts the environment into client options. OneAPI
// credentials take precedence; legacy credentials apply only when no
// OneAPI client ID is set.
func (e *EnvConfig) Options() ([]ClientOption, error) {
	var opts []ClientOption

	if e.ClientID != "" {
		switch {
		case e.PrivateKey != "":
			opts = append(opts, WithOneAPIPrivateKey(e.ClientID, []byte(e.PrivateKey), e.VanityDomain))
		default:
			opts = append(opts, WithOneAPI(e.ClientID, e.ClientSecret, e.VanityDomain))
		}
		if e.Cloud != "" {
			opts = append(opts, WithCloud(e.Cloud))
		}
	} else {
		if e.ZIAUsername != "" {
			opts = append(opts, WithZIALegacy(e.ZIAUsername, e.ZIAPassword, e.ZIAAPIKey))
			opts = appendCloud(opts, ProductZIA, e.ZIACloud)
		}
		if e.ZTWUsername != "" {
			opts = append(opts, WithZTWLegacy(e.ZTWUsername, e.ZTWPassword, e.ZTWAPIKey))
			opts = appendCloud(opts, ProductZTW, e.ZTWCloud)
		}
		if e.ZPAClientID != "" {
			opts = append(opts, WithZPALegacy(e.ZPAClientID, e.ZPAClientSecret))
			opts = appendCloud(opts, ProductZPA, e.ZPACloud)
		}
		if e.ZCCClientID != "" {
			opts = append(opts, WithZCCLegacy(e.ZCCClientID, e.ZCCClientSecret))
			opts = appendCloud(opts, ProductZCC, e.ZCCCloud)
		}
	}

	if e.ZPACustomerID != "" {
		opts = append(opts, WithZPACustomerID(e.ZPACustomerID))
	}

	if e.CacheEnabled {
		ttl, err := parseEnvDuration(e.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("zscaler: ZSCALER_CLIENT_CACHE_DEFAULT_TTL: %w", err)
		}
		tti, err := parseEnvDuration(e.CacheTTI)
		if err != nil {
			return nil, fmt.Errorf("zscaler: ZSCALER_CLIENT_CACHE_DEFAULT_TTI: %w", err)
		}
		opts = append(opts, WithMemoryCache(ttl, tti))
	}

	return opts, nil
}

// WithEnv applies the standard environment variables. Options given after
// it override the environment.
func WithEnv() ClientOption {
	return func(c *clientConfig) {
		cfg, err := LoadEnv()
		if err != nil {
			c.err = err
			return
		}
		opts, err := cfg.Options()
		if err != nil {
			c.err = err
			return
		}
		for _, opt := range opts {
			opt(c)
		}
	}
}

func appendCloud(opts []ClientOption, p Product, cloud string) []ClientOption {
	if cloud == "" {
		return opts
	}
	return append(opts, WithProductCloud(p, cloud))
}

// parseEnvDuration accepts a Go duration ("10m") or plain seconds ("600").
func parseEnvDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", v)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}
