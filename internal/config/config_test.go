package config_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-zscaler"
	"github.com/tphakala/go-zscaler/internal/config"
	"github.com/tphakala/go-zscaler/internal/mockapi"
)

func load(t *testing.T, yamlBody string) (*config.Config, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path := ""
	if yamlBody != "" {
		path = filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))
	}
	v, err := config.NewViper(path)
	if err != nil {
		return nil, err
	}
	return config.Load(v)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, config.OutputTable, cfg.Output)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, config.CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 8*time.Minute, cfg.Cache.TTI)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Minute, cfg.Retry.MaxWait)
	assert.InDelta(t, 1.0, cfg.Tracing.SampleRatio, 0)
	assert.Equal(t, "127.0.0.1:8080", cfg.Mock.Addr)
	assert.Empty(t, cfg.BaseURLs)
}

func TestLoad_DefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	dir := filepath.Join(home, config.AppName)
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("output: json\n"), 0o600))

	v, err := config.NewViper("")
	require.NoError(t, err)
	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, config.OutputJSON, cfg.Output)
}

func TestLoad_File(t *testing.T) {
	cfg, err := load(t, `
auth:
  client_id: file-id
  client_secret: file-secret
  vanity_domain: acme
  customer_id: "216196257331281920"
  zia:
    username: admin@acme.com
base_urls:
  zia: http://localhost:9000/zia/api/v1
output: YAML
cache:
  enabled: true
  backend: sqlite
  ttl: 5m
  tti: 90s
rate_limit:
  read_requests: 40
  read_window: 20s
  margin: 0.8
retry:
  max_retries: 2
  max_wait: 15s
`)
	require.NoError(t, err)

	assert.Equal(t, "file-id", cfg.Auth.ClientID)
	assert.Equal(t, "acme", cfg.Auth.VanityDomain)
	assert.Equal(t, "216196257331281920", cfg.Auth.CustomerID)
	assert.Equal(t, "admin@acme.com", cfg.Auth.ZIA.Username)
	assert.Equal(t, map[string]string{"zia": "http://localhost:9000/zia/api/v1"}, cfg.BaseURLs)
	assert.Equal(t, config.OutputYAML, cfg.Output)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTI)
	assert.Equal(t, config.DefaultCachePath(), cfg.Cache.Path)
	assert.Equal(t, 40, cfg.RateLimit.ReadRequests)
	assert.Equal(t, 20*time.Second, cfg.RateLimit.ReadWindow)
	assert.InDelta(t, 0.8, cfg.RateLimit.Margin, 1e-9)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.Equal(t, 15*time.Second, cfg.Retry.MaxWait)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ZSCALERCTL_AUTH_CLIENT_ID", "env-id")
	t.Setenv("ZSCALERCTL_AUTH_ZPA_CLIENT_SECRET", "zpa-secret")
	t.Setenv("ZSCALERCTL_CACHE_TTL", "90s")
	t.Setenv("ZSCALERCTL_CACHE_ENABLED", "true")
	t.Setenv("ZSCALERCTL_RATE_LIMIT_MARGIN", "0.5")
	t.Setenv("ZSCALERCTL_BASE_URLS_ZCC", "http://localhost:9000/zcc/papi")
	t.Setenv("ZSCALERCTL_OTEL_ENDPOINT", "localhost:4318")

	cfg, err := load(t, "auth:\n  client_id: file-id\n")
	require.NoError(t, err)

	assert.Equal(t, "env-id", cfg.Auth.ClientID)
	assert.Equal(t, "zpa-secret", cfg.Auth.ZPA.ClientSecret)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.InDelta(t, 0.5, cfg.RateLimit.Margin, 1e-9)
	assert.Equal(t, "http://localhost:9000/zcc/papi", cfg.BaseURLs["zcc"])
	assert.Equal(t, "localhost:4318", cfg.Tracing.Endpoint)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"output", "output: csv\n", "output"},
		{"log format", "logging:\n  format: xml\n", "logging.format"},
		{"cache backend", "cache:\n  backend: memcached\n", "cache.backend"},
		{"base url product", "base_urls:\n  zdx: http://localhost\n", "base_urls"},
		{"margin", "rate_limit:\n  margin: 1.5\n", "rate_limit.margin"},
		{"sample ratio", "tracing:\n  sample_ratio: 2\n", "tracing.sample_ratio"},
		{"duration", "cache:\n  ttl: soon\n", "decode config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.body)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewViper_MissingFile(t *testing.T) {
	_, err := config.NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestRedacted(t *testing.T) {
	cfg, err := load(t, `
auth:
  client_id: id
  client_secret: top-secret
  zia:
    username: admin
    password: hunter2
    api_key: abcdefghijklmnop
redis:
  password: redis-pass
`)
	require.NoError(t, err)

	red := cfg.Redacted()
	assert.Equal(t, "id", red.Auth.ClientID)
	assert.Equal(t, "********", red.Auth.ClientSecret)
	assert.Equal(t, "admin", red.Auth.ZIA.Username)
	assert.Equal(t, "********", red.Auth.ZIA.Password)
	assert.Equal(t, "********", red.Auth.ZIA.APIKey)
	assert.Empty(t, red.Auth.ZPA.ClientSecret)
	assert.Equal(t, "********", red.Redis.Password)
	assert.Equal(t, "top-secret", cfg.Auth.ClientSecret, "original must not change")

	out, err := cfg.YAML()
	require.NoError(t, err)
	rendered := string(out)
	assert.NotContains(t, rendered, "top-secret")
	assert.NotContains(t, rendered, "hunter2")
	assert.NotContains(t, rendered, "redis-pass")
	assert.Contains(t, rendered, "client_id: id")
	assert.Contains(t, rendered, "ttl: 10m0s")
}

func TestClientOptions_OneAPI(t *testing.T) {
	mock := mockapi.New(mockapi.WithDemoData())
	server := httptest.NewServer(mock.Handler())
	t.Cleanup(server.Close)
	creds := mock.Credentials()

	cfg, err := load(t, "")
	require.NoError(t, err)
	cfg.Auth = config.AuthConfig{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		VanityDomain: "mock",
		CustomerID:   creds.CustomerID,
		TokenURL:     server.URL + mockapi.TokenPath,
	}
	cfg.BaseURLs = map[string]string{
		"zia": server.URL + mockapi.ZIAPrefix,
		"zpa": server.URL + mockapi.ZPAPrefix,
		"zcc": server.URL + mockapi.ZCCPrefix,
		"ztw": server.URL + mockapi.ZTWPrefix,
	}
	cfg.RateLimit.ReadRequests = 1000
	cfg.RateLimit.WriteRequests = 1000
	cfg.Cache.Enabled = true

	opts, cleanup, err := cfg.ClientOptions()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	client, err := zscaler.NewClient(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	assert.ElementsMatch(t, zscaler.Products, client.Configured())
	assert.Equal(t, server.URL+mockapi.ZPAPrefix, client.BaseURL(zscaler.ProductZPA))

	ctx := context.Background()
	for range 2 {
		locs, err := zscaler.Collect(client.ZIA.Locations.List(ctx, nil, nil))
		require.NoError(t, err)
		assert.Len(t, locs, 4)
	}
	assert.Equal(t, 1, mock.CallCount("GET", mockapi.ZIAPrefix+"/locations"))
}

func TestClientOptions_Legacy(t *testing.T) {
	mock := mockapi.New(mockapi.WithDemoData())
	server := httptest.NewServer(mock.Handler())
	t.Cleanup(server.Close)
	creds := mock.Credentials()

	cfg, err := load(t, "")
	require.NoError(t, err)
	cfg.Auth.ZIA = config.LegacyConfig{Username: creds.Username, Password: creds.Password, APIKey: creds.APIKey}
	cfg.Auth.ZCC = config.LegacyConfig{ClientID: creds.ZCCAPIKey, ClientSecret: creds.ZCCSecretKey}
	cfg.BaseURLs = map[string]string{
		"zia": server.URL + mockapi.ZIAPrefix,
		"zcc": server.URL + mockapi.ZCCPrefix,
	}

	opts, cleanup, err := cfg.ClientOptions()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	client, err := zscaler.NewClient(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	assert.Equal(t, []zscaler.Product{zscaler.ProductZIA, zscaler.ProductZCC}, client.Configured())

	ctx := context.Background()
	status, err := client.ZIA.Activation.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, zscaler.ActivationActive, status.Status)

	devices, err := zscaler.Collect(client.ZCC.Devices.List(ctx, nil, nil))
	require.NoError(t, err)
	assert.Len(t, devices, 3)
}

func TestClientOptions_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	mock := mockapi.New(mockapi.WithDemoData())
	server := httptest.NewServer(mock.Handler())
	t.Cleanup(server.Close)

	cfg, err := load(t, "")
	require.NoError(t, err)
	creds := mock.Credentials()
	cfg.Auth.ZIA = config.LegacyConfig{Username: creds.Username, Password: creds.Password, APIKey: creds.APIKey}
	cfg.BaseURLs = map[string]string{"zia": server.URL + mockapi.ZIAPrefix}
	cfg.Redis.Addr = mr.Addr()
	cfg.Cache.Enabled = true
	cfg.Cache.Backend = config.CacheRedis
	cfg.RateLimit.Shared = true

	opts, cleanup, err := cfg.ClientOptions()
	require.NoError(t, err)

	client, err := zscaler.NewClient(opts...)
	require.NoError(t, err)

	ctx := context.Background()
	for range 2 {
		rules, err := client.ZIA.URLFilteringRules.List(ctx)
		require.NoError(t, err)
		assert.Len(t, rules, 2)
	}
	assert.Equal(t, 1, mock.CallCount("GET", mockapi.ZIAPrefix+"/urlFilteringRules"))
	assert.NotEmpty(t, mr.Keys())

	require.NoError(t, client.Close(ctx))
	require.NoError(t, cleanup())
}

func TestClientOptions_Errors(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)

	_, cleanup, err := cfg.ClientOptions()
	require.Error(t, err)
	assert.NoError(t, cleanup())

	cfg.Auth.ClientID = "id"
	cfg.Auth.PrivateKeyFile = filepath.Join(t.TempDir(), "missing.pem")
	_, _, err = cfg.ClientOptions()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.private_key_file")
}
