package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// AppName names the config and cache directories.
	AppName = "zscalerctl"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ZSCALERCTL"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

var productKeys = []string{"zia", "zpa", "zcc", "ztw"}

// Dir returns $XDG_CONFIG_HOME/zscalerctl, falling back to the working
// directory when no user config directory is known.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, AppName)
}

// DefaultCachePath is the SQLite cache file used when cache.path is empty.
func DefaultCachePath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, AppName, "cache.db")
}

// SetDefaults registers every key with its default. Keys must be known to
// viper for environment overrides to show up in AllSettings.
func SetDefaults(v *viper.Viper) {
	for _, key := range []string{
		"auth.client_id", "auth.client_secret", "auth.private_key", "auth.private_key_file",
		"auth.vanity_domain", "auth.cloud", "auth.customer_id", "auth.token_url",
	} {
		v.SetDefault(key, "")
	}
	for _, p := range productKeys {
		for _, field := range []string{"username", "password", "api_key", "client_id", "client_secret", "cloud"} {
			v.SetDefault("auth."+p+"."+field, "")
		}
		v.SetDefault("base_urls."+p, "")
	}

	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("output", OutputTable)
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.tti", 8*time.Minute)

	v.SetDefault("rate_limit.read_requests", 0)
	v.SetDefault("rate_limit.read_window", 10*time.Second)
	v.SetDefault("rate_limit.write_requests", 0)
	v.SetDefault("rate_limit.write_window", 10*time.Second)
	v.SetDefault("rate_limit.margin", 0.0)
	v.SetDefault("rate_limit.token_bucket", false)
	v.SetDefault("rate_limit.shared", false)

	v.SetDefault("retry.max_retries", 5)
	v.SetDefault("retry.max_wait", 60*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("mock.addr", "127.0.0.1:8080")
}

// NewViper returns a viper instance with defaults, environment bindings
// and, if present, the config file loaded. An explicit cfgFile must
// exist; the default location is optional.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigType("yaml")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("tracing.endpoint", EnvPrefix+"_OTEL_ENDPOINT", EnvPrefix+"_TRACING_ENDPOINT"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes the settings of v into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	for k, url := range cfg.BaseURLs {
		if strings.TrimSpace(url) == "" {
			delete(cfg.BaseURLs, k)
		}
	}
	cfg.Output = strings.ToLower(strings.TrimSpace(cfg.Output))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	if cfg.Cache.Backend == CacheSQLite && cfg.Cache.Path == "" {
		cfg.Cache.Path = DefaultCachePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("output: unsupported format %q", c.Output)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported format %q", c.Logging.Format)
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis, CacheSQLite:
	default:
		return fmt.Errorf("cache.backend: unsupported backend %q", c.Cache.Backend)
	}
	for k := range c.BaseURLs {
		if !validProduct(k) {
			return fmt.Errorf("base_urls: unknown product %q", k)
		}
	}
	if c.RateLimit.Margin < 0 || c.RateLimit.Margin > 1 {
		return fmt.Errorf("rate_limit.margin: %v is outside [0, 1]", c.RateLimit.Margin)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio: %v is outside [0, 1]", c.Tracing.SampleRatio)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries: must not be negative")
	}
	return nil
}

func validProduct(key string) bool {
	for _, p := range productKeys {
		if strings.EqualFold(key, p) {
			return true
		}
	}
	return false
}

// YAML renders the configuration with secrets masked.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}
