package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tphakala/go-zscaler"
	"github.com/tphakala/go-zscaler/internal/ratelimit"
)

// ClientOptions converts the configuration into SDK options. The returned
// cleanup closes the redis connection when one was opened; it is never
// nil.
func (c *Config) ClientOptions() ([]zscaler.ClientOption, func() error, error) {
	var (
		opts []zscaler.ClientOption
		rdb  *redis.Client
	)
	cleanup := func() error {
		if rdb == nil {
			return nil
		}
		return rdb.Close()
	}
	redisClient := func() *redis.Client {
		if rdb == nil {
			rdb = redis.NewClient(&redis.Options{
				Addr:     c.Redis.Addr,
				Password: c.Redis.Password,
				DB:       c.Redis.DB,
			})
		}
		return rdb
	}

	authOpts, err := c.Auth.options()
	if err != nil {
		return nil, cleanup, err
	}
	opts = append(opts, authOpts...)

	for key, url := range c.BaseURLs {
		opts = append(opts, zscaler.WithBaseURL(zscaler.Product(strings.ToLower(key)), url))
	}
	if c.Timeout > 0 {
		opts = append(opts, zscaler.WithTimeout(c.Timeout))
	}
	opts = append(opts, zscaler.WithRetry(c.Retry.MaxRetries, c.Retry.MaxWait))

	rl := c.RateLimit
	if rl.ReadRequests > 0 || rl.WriteRequests > 0 {
		opts = append(opts, zscaler.WithRateLimits(
			limitOrDefault(rl.ReadRequests, rl.ReadWindow, ratelimit.ClassRead),
			limitOrDefault(rl.WriteRequests, rl.WriteWindow, ratelimit.ClassWrite),
		))
	}
	if rl.Margin > 0 {
		opts = append(opts, zscaler.WithRateLimitMargin(rl.Margin))
	}
	switch {
	case rl.TokenBucket:
		opts = append(opts, zscaler.WithTokenBucket())
	case rl.Shared:
		opts = append(opts, zscaler.WithRedisRateLimit(redisClient()))
	}

	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case CacheRedis:
			opts = append(opts, zscaler.WithRedisCache(redisClient(), c.Cache.TTL, c.Cache.TTI))
		case CacheSQLite:
			opts = append(opts, zscaler.WithSQLiteCache(c.Cache.Path, c.Cache.TTL, c.Cache.TTI))
		default:
			opts = append(opts, zscaler.WithMemoryCache(c.Cache.TTL, c.Cache.TTI))
		}
	}

	return opts, cleanup, nil
}

func limitOrDefault(requests int, window time.Duration, class ratelimit.VerbClass) zscaler.RateLimit {
	def := ratelimit.DefaultLimits[class]
	if requests <= 0 {
		return def
	}
	if window <= 0 {
		window = def.Window
	}
	return zscaler.RateLimit{Requests: requests, Window: window}
}

func (a *AuthConfig) options() ([]zscaler.ClientOption, error) {
	var opts []zscaler.ClientOption

	if a.ClientID != "" {
		key := a.PrivateKey
		if key == "" && a.PrivateKeyFile != "" {
			data, err := os.ReadFile(a.PrivateKeyFile)
			if err != nil {
				return nil, fmt.Errorf("auth.private_key_file: %w", err)
			}
			key = string(data)
		}
		if key != "" {
			opts = append(opts, zscaler.WithOneAPIPrivateKey(a.ClientID, []byte(key), a.VanityDomain))
		} else {
			opts = append(opts, zscaler.WithOneAPI(a.ClientID, a.ClientSecret, a.VanityDomain))
		}
		if a.Cloud != "" {
			opts = append(opts, zscaler.WithCloud(a.Cloud))
		}
		if a.TokenURL != "" {
			opts = append(opts, zscaler.WithTokenURL(a.TokenURL))
		}
	} else {
		if a.ZIA.Username != "" {
			opts = append(opts, zscaler.WithZIALegacy(a.ZIA.Username, a.ZIA.Password, a.ZIA.APIKey))
			opts = withCloud(opts, zscaler.ProductZIA, a.ZIA.Cloud, a.Cloud)
		}
		if a.ZTW.Username != "" {
			opts = append(opts, zscaler.WithZTWLegacy(a.ZTW.Username, a.ZTW.Password, a.ZTW.APIKey))
			opts = withCloud(opts, zscaler.ProductZTW, a.ZTW.Cloud, a.Cloud)
		}
		if a.ZPA.ClientID != "" {
			opts = append(opts, zscaler.WithZPALegacy(a.ZPA.ClientID, a.ZPA.ClientSecret))
			opts = withCloud(opts, zscaler.ProductZPA, a.ZPA.Cloud, a.Cloud)
		}
		if a.ZCC.ClientID != "" {
			opts = append(opts, zscaler.WithZCCLegacy(a.ZCC.ClientID, a.ZCC.ClientSecret))
			opts = withCloud(opts, zscaler.ProductZCC, a.ZCC.Cloud, a.Cloud)
		}
		if len(opts) == 0 {
			return nil, errors.New("auth: set auth.client_id or legacy credentials for at least one product")
		}
	}

	if a.CustomerID != "" {
		opts = append(opts, zscaler.WithZPACustomerID(a.CustomerID))
	}
	return opts, nil
}

func withCloud(opts []zscaler.ClientOption, p zscaler.Product, cloud, fallback string) []zscaler.ClientOption {
	if cloud == "" {
		cloud = fallback
	}
	if cloud == "" {
		return opts
	}
	return append(opts, zscaler.WithProductCloud(p, cloud))
}
