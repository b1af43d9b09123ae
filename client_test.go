package zscaler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-zscaler"
	"github.com/tphakala/go-zscaler/internal/cache"
)

const testCustomerID = "216196257331281920"

// unthrottled keeps the client-side limiter out of the way in tests.
var unthrottled = zscaler.RateLimit{Requests: 10000, Window: time.Second}

// setupTestServer starts a fake OneAPI gateway. Token requests are answered
// by the server; everything else goes to handler with the product name as
// the first path segment, e.g. /zia/locations.
func setupTestServer(t *testing.T, handler http.HandlerFunc, opts ...zscaler.ClientOption) *zscaler.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/v1/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`)
	})
	mux.Handle("/", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	base := []zscaler.ClientOption{
		zscaler.WithOneAPI("test-client-id", "test-client-secret", "acme"),
		zscaler.WithTokenURL(server.URL + "/oauth2/v1/token"),
		zscaler.WithZPACustomerID(testCustomerID),
		zscaler.WithRateLimits(unthrottled, unthrottled),
		zscaler.WithRetry(0, time.Second),
	}
	for _, p := range zscaler.Products {
		base = append(base, zscaler.WithBaseURL(p, server.URL+"/"+string(p)))
	}

	client, err := zscaler.NewClient(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestNewClient(t *testing.T) {
	t.Run("OneAPI configures every product", func(t *testing.T) {
		client, err := zscaler.NewClient(
			zscaler.WithOneAPI("client-id", "client-secret", "acme"),
			zscaler.WithZPACustomerID(testCustomerID),
		)
		require.NoError(t, err)
		assert.NotNil(t, client.ZIA)
		assert.NotNil(t, client.ZPA)
		assert.Equal(t, zscaler.Products, client.Configured())
		assert.Equal(t, "https://api.zsapi.net/zia/api/v1", client.BaseURL(zscaler.ProductZIA))
		assert.Equal(t, "https://api.zsapi.net/zpa", client.BaseURL(zscaler.ProductZPA))
	})

	t.Run("OneAPI without customer ID skips ZPA", func(t *testing.T) {
		client, err := zscaler.NewClient(
			zscaler.WithOneAPI("client-id", "client-secret", "acme"),
			zscaler.WithCloud("beta"),
		)
		require.NoError(t, err)
		assert.Equal(t, []zscaler.Product{zscaler.ProductZIA, zscaler.ProductZCC, zscaler.ProductZTW}, client.Configured())
		assert.Empty(t, client.BaseURL(zscaler.ProductZPA))
		assert.Equal(t, "https://api.beta.zsapi.net/zcc/papi", client.BaseURL(zscaler.ProductZCC))

		_, err = client.ZPA.SegmentGroups.Get(context.Background(), "1")
		require.ErrorIs(t, err, zscaler.ErrProductNotConfigured)

		_, err = client.Authenticate(context.Background(), zscaler.ProductZPA)
		require.ErrorIs(t, err, zscaler.ErrProductNotConfigured)
	})

	t.Run("legacy configures only the given products", func(t *testing.T) {
		client, err := zscaler.NewClient(
			zscaler.WithZIALegacy("admin@acme.com", "secret", "abcdefghijkl"),
			zscaler.WithZCCLegacy("zcc-key", "zcc-secret"),
			zscaler.WithCloud("zscalertwo"),
			zscaler.WithProductCloud(zscaler.ProductZCC, "zscalerthree"),
		)
		require.NoError(t, err)
		assert.Equal(t, []zscaler.Product{zscaler.ProductZIA, zscaler.ProductZCC}, client.Configured())
		assert.Equal(t, "https://zsapi.zscalertwo.net/api/v1", client.BaseURL(zscaler.ProductZIA))
		assert.Equal(t, "https://api-mobile.zscalerthree.net/papi", client.BaseURL(zscaler.ProductZCC))

		for _, err := range client.ZTW.ECGroups.List(context.Background(), nil) {
			require.ErrorIs(t, err, zscaler.ErrProductNotConfigured)
		}
	})

	t.Run("base URL override", func(t *testing.T) {
		client, err := zscaler.NewClient(
			zscaler.WithZPALegacy("zpa-id", "zpa-secret"),
			zscaler.WithZPACustomerID(testCustomerID),
			zscaler.WithBaseURL(zscaler.ProductZPA, "https://zpa.internal.example.com"),
		)
		require.NoError(t, err)
		assert.Equal(t, "https://zpa.internal.example.com", client.BaseURL(zscaler.ProductZPA))
	})

	t.Run("success with all options", func(t *testing.T) {
		client, err := zscaler.NewClient(
			zscaler.WithOneAPI("client-id", "client-secret", "acme"),
			zscaler.WithUserAgent("test-agent/1.0"),
			zscaler.WithTimeout(60*time.Second),
			zscaler.WithHTTPClient(&http.Client{Timeout: 90 * time.Second}),
			zscaler.WithRateLimitMargin(0.8),
			zscaler.WithTokenBucket(),
			zscaler.WithRetry(3, 10*time.Second),
			zscaler.WithSessionTTL(time.Hour),
			zscaler.WithMemoryCache(time.Minute, 30*time.Second),
		)
		require.NoError(t, err)
		require.NoError(t, client.ClearCache(context.Background()))
		require.NoError(t, client.Close(context.Background()))
	})

	errorTests := []struct {
		name string
		opts []zscaler.ClientOption
		want error
	}{
		{
			name: "no credentials",
			opts: []zscaler.ClientOption{zscaler.WithCloud("zscalertwo")},
			want: zscaler.ErrNoCredentials,
		},
		{
			name: "OneAPI and legacy",
			opts: []zscaler.ClientOption{
				zscaler.WithOneAPI("client-id", "client-secret", "acme"),
				zscaler.WithZIALegacy("admin@acme.com", "secret", "abcdefghijkl"),
			},
			want: zscaler.ErrConflictingAuth,
		},
		{
			name: "OneAPI without secret",
			opts: []zscaler.ClientOption{zscaler.WithOneAPI("client-id", "", "acme")},
			want: zscaler.ErrNoCredentials,
		},
		{
			name: "OneAPI without vanity domain",
			opts: []zscaler.ClientOption{zscaler.WithOneAPI("client-id", "client-secret", "")},
			want: zscaler.ErrNoVanityDomain,
		},
		{
			name: "short ZIA API key",
			opts: []zscaler.ClientOption{zscaler.WithZIALegacy("admin@acme.com", "secret", "short")},
			want: zscaler.ErrInvalidAPIKey,
		},
		{
			name: "short ZTW API key",
			opts: []zscaler.ClientOption{zscaler.WithZTWLegacy("admin@acme.com", "secret", "short")},
			want: zscaler.ErrInvalidAPIKey,
		},
		{
			name: "legacy ZPA without customer ID",
			opts: []zscaler.ClientOption{zscaler.WithZPALegacy("zpa-id", "zpa-secret")},
			want: zscaler.ErrNoCustomerID,
		},
		{
			name: "legacy ZPA without secret",
			opts: []zscaler.ClientOption{
				zscaler.WithZPALegacy("zpa-id", ""),
				zscaler.WithZPACustomerID(testCustomerID),
			},
			want: zscaler.ErrNoCredentials,
		},
		{
			name: "legacy ZCC without secret",
			opts: []zscaler.ClientOption{zscaler.WithZCCLegacy("zcc-key", "")},
			want: zscaler.ErrNoCredentials,
		},
	}

	for _, tt := range errorTests {
		t.Run("error "+tt.name, func(t *testing.T) {
			_, err := zscaler.NewClient(tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("error with invalid private key", func(t *testing.T) {
		_, err := zscaler.NewClient(
			zscaler.WithOneAPIPrivateKey("client-id", []byte("not a key"), "acme"),
		)
		require.Error(t, err)
	})

	t.Run("error with unusable SQLite path", func(t *testing.T) {
		_, err := zscaler.NewClient(
			zscaler.WithOneAPI("client-id", "client-secret", "acme"),
			zscaler.WithSQLiteCache("   ", 0, 0),
		)
		require.Error(t, err)
	})
}

func TestBaseURLs(t *testing.T) {
	tests := []struct {
		product zscaler.Product
		cloud   string
		oneAPI  string
		legacy  string
	}{
		{zscaler.ProductZIA, "", "https://api.zsapi.net/zia/api/v1", "https://zsapi.zscaler.net/api/v1"},
		{zscaler.ProductZIA, "zscalertwo", "https://api.zscalertwo.zsapi.net/zia/api/v1", "https://zsapi.zscalertwo.net/api/v1"},
		{zscaler.ProductZPA, "production", "https://api.zsapi.net/zpa", "https://config.private.zscaler.com"},
		{zscaler.ProductZPA, "beta", "https://api.beta.zsapi.net/zpa", "https://config.zpabeta.net"},
		{zscaler.ProductZCC, "", "https://api.zsapi.net/zcc/papi", "https://api-mobile.zscaler.net/papi"},
		{zscaler.ProductZTW, "zscalerthree", "https://api.zscalerthree.zsapi.net/ztw/api/v1", "https://connector.zscalerthree.net/api/v1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.product)+"/"+tt.cloud, func(t *testing.T) {
			assert.Equal(t, tt.oneAPI, zscaler.OneAPIBaseURL(tt.product, tt.cloud))
			assert.Equal(t, tt.legacy, zscaler.LegacyBaseURL(tt.product, tt.cloud))
		})
	}
}

func TestClient_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("OneAPI token", func(t *testing.T) {
		client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		info, err := client.Authenticate(ctx, zscaler.ProductZIA)
		require.NoError(t, err)
		assert.Equal(t, zscaler.ProductZIA, info.Product)
		assert.Equal(t, "oneapi", info.Provider)
		assert.True(t, info.ExpiresAt.After(info.IssuedAt))
	})

	t.Run("rejected credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, `{"error":"invalid_client"}`)
		}))
		t.Cleanup(server.Close)

		client, err := zscaler.NewClient(
			zscaler.WithOneAPI("client-id", "wrong", "acme"),
			zscaler.WithTokenURL(server.URL),
		)
		require.NoError(t, err)

		_, err = client.Authenticate(ctx, zscaler.ProductZTW)
		var authErr *zscaler.AuthenticationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
		assert.Equal(t, "ztw", authErr.Product)
	})
}

func TestClient_LegacySession(t *testing.T) {
	ctx := context.Background()

	var logins, logouts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/authenticatedSession", func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "session-1"})
		writeJSON(w, http.StatusOK, `{"authType":"ADMIN_LOGIN"}`)
	})
	mux.HandleFunc("DELETE /api/v1/authenticatedSession", func(w http.ResponseWriter, r *http.Request) {
		logouts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("JSESSIONID")
		if err != nil || cookie.Value != "session-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, `{"status":"PENDING"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := zscaler.NewClient(
		zscaler.WithZIALegacy("admin@acme.com", "secret", "abcdefghijkl"),
		zscaler.WithBaseURL(zscaler.ProductZIA, server.URL+"/api/v1"),
		zscaler.WithRateLimits(unthrottled, unthrottled),
	)
	require.NoError(t, err)

	status, err := client.ZIA.Activation.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, zscaler.ActivationPending, status.Status)

	_, err = client.ZIA.Activation.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), logins.Load(), "session should be reused")

	info, err := client.Authenticate(ctx, zscaler.ProductZIA)
	require.NoError(t, err)
	assert.Equal(t, "zia-legacy", info.Provider)
	assert.Equal(t, 30*time.Minute, info.ExpiresAt.Sub(info.IssuedAt))

	require.NoError(t, client.Close(ctx))
	assert.Equal(t, int32(1), logouts.Load())

	// A closed client logs in again on the next call.
	_, err = client.ZIA.Activation.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), logins.Load())
}

func TestClient_Cache(t *testing.T) {
	ctx := context.Background()

	var hits atomic.Int32
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/zia/locations/5":
			hits.Add(1)
			writeJSON(w, http.StatusOK, `{"id":5,"name":"HQ"}`)
		case r.Method == http.MethodPut && r.URL.Path == "/zia/locations/5":
			writeJSON(w, http.StatusOK, `{"id":5,"name":"HQ renamed"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, zscaler.WithMemoryCache(0, 0))

	for range 3 {
		loc, err := client.ZIA.Locations.Get(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, "HQ", loc.Name)
	}
	assert.Equal(t, int32(1), hits.Load())

	_, err := client.ZIA.Locations.Get(ctx, 5, zscaler.WithNoCache())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	_, err = client.ZIA.Locations.Update(ctx, 5, &zscaler.Location{Name: "HQ renamed"})
	require.NoError(t, err)

	_, err = client.ZIA.Locations.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load(), "write should invalidate the collection")

	require.NoError(t, client.ClearCache(ctx))
	_, err = client.ZIA.Locations.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(4), hits.Load())
}

func TestClient_SharedCacheIsolatesTenants(t *testing.T) {
	ctx := context.Background()

	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/v1/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		writeJSON(w, http.StatusOK, `{"access_token":"token-`+r.PostForm.Get("client_id")+`","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("GET /zia/locations", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		tenant := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer token-")
		writeJSON(w, http.StatusOK, `[{"id":1,"name":"`+tenant+`-hq"}]`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	shared := cache.NewMemory(cache.Policy{TTL: time.Minute})
	t.Cleanup(func() { _ = shared.Close() })

	newTenant := func(clientID string) *zscaler.Client {
		client, err := zscaler.NewClient(
			zscaler.WithOneAPI(clientID, "secret", "acme"),
			zscaler.WithTokenURL(server.URL+"/oauth2/v1/token"),
			zscaler.WithBaseURL(zscaler.ProductZIA, server.URL+"/zia"),
			zscaler.WithRateLimits(unthrottled, unthrottled),
			zscaler.WithRetry(0, time.Second),
			zscaler.WithCache(shared),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close(ctx) })
		return client
	}
	a := newTenant("tenantA")
	b := newTenant("tenantB")

	for range 2 {
		locs, err := zscaler.Collect(a.ZIA.Locations.List(ctx, nil, nil))
		require.NoError(t, err)
		require.Len(t, locs, 1)
		assert.Equal(t, "tenantA-hq", locs[0].Name)
	}
	assert.Equal(t, int32(1), hits.Load())

	locs, err := zscaler.Collect(b.ZIA.Locations.List(ctx, nil, nil))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "tenantB-hq", locs[0].Name)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_RetryDisabled(t *testing.T) {
	var hits atomic.Int32
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, zscaler.WithRetry(0, 0))

	_, err := client.ZIA.Locations.Get(context.Background(), 5)
	var serverErr *zscaler.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_CustomHeaders(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "custom-value", r.Header.Get("X-Custom"))
		assert.Equal(t, "other", r.Header.Get("X-Other"))
		assert.Equal(t, "trace-abc", r.Header.Get("X-Request-ID"))
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		writeJSON(w, http.StatusOK, `{"status":"ACTIVE"}`)
	}, zscaler.WithUserAgent("test-agent/1.0"))

	status, err := client.ZIA.Activation.Status(context.Background(),
		zscaler.WithHeader("X-Custom", "custom-value"),
		zscaler.WithHeaders(map[string]string{"X-Other": "other"}),
		zscaler.WithRequestID("trace-abc"),
	)
	require.NoError(t, err)
	assert.Equal(t, zscaler.ActivationActive, status.Status)
}
