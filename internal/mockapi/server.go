// Package mockapi is an in-memory fake of the Zscaler OneAPI gateway and
// the legacy per-product login endpoints. It backs integration tests and
// the zscalerctl mock command.
package mockapi

import (
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tphakala/go-zscaler"
)

// Route prefixes, matching the OneAPI gateway layout.
const (
	TokenPath = "/oauth2/v1/token"
	ZIAPrefix = "/zia/api/v1"
	ZPAPrefix = "/zpa"
	ZCCPrefix = "/zcc/papi"
	ZTWPrefix = "/ztw/api/v1"
)

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-ID"

// Credentials are the secrets the fake accepts.
type Credentials struct {
	// OneAPI client and legacy ZPA API client.
	ClientID     string
	ClientSecret string

	// Legacy ZIA and ZTW admin.
	Username string
	Password string
	APIKey   string

	// Legacy ZCC key pair.
	ZCCAPIKey    string
	ZCCSecretKey string

	CustomerID string
}

// DefaultCredentials are used unless WithCredentials is given.
var DefaultCredentials = Credentials{
	ClientID:     "mock-client-id",
	ClientSecret: "mock-client-secret",
	Username:     "admin@mock.example.com",
	Password:     "mock-password",
	APIKey:       "abcdefghijklmnop",
	ZCCAPIKey:    "mock-zcc-key",
	ZCCSecretKey: "mock-zcc-secret",
	CustomerID:   "216196257331281920",
}

// Fault is a canned response returned instead of routing a request.
type Fault struct {
	Method     string
	Path       string
	Status     int
	RetryAfter string
	// Times is how many matching requests fail. Zero means once.
	Times int
}

// Call records one request received by the fake.
type Call struct {
	Method string
	Path   string
	Query  string
}

// Option configures a Server.
type Option func(*Server)

// WithCredentials replaces the accepted credentials.
func WithCredentials(c Credentials) Option {
	return func(s *Server) {
		s.creds = c
	}
}

// WithLogger logs every request.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithPublicKey accepts OneAPI private key JWT assertions signed by the
// matching private key.
func WithPublicKey(key *rsa.PublicKey) Option {
	return func(s *Server) {
		s.publicKey = key
	}
}

// WithTokenTTL sets the lifetime of issued tokens and sessions.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) {
		s.tokenTTL = d
	}
}

// WithRateLimit answers 429 once more than requests arrive within window.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		s.limiter = rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
		s.limitWindow = window
	}
}

// WithDemoData seeds a small tenant.
func WithDemoData() Option {
	return func(s *Server) {
		s.seed()
	}
}

// Server is the fake API. It is safe for concurrent use.
type Server struct {
	router *chi.Mux
	logger *zap.Logger

	creds       Credentials
	publicKey   *rsa.PublicKey
	tokenTTL    time.Duration
	limiter     *rate.Limiter
	limitWindow time.Duration

	mu         sync.Mutex
	sessions   map[string]time.Time
	logins     map[string]int
	logouts    map[string]int
	calls      []Call
	faults     []*Fault
	nextID     int
	locations  map[int]*zscaler.Location
	rules      map[int]*zscaler.URLFilteringRule
	groups     map[string]*zscaler.SegmentGroup
	devices    []*zscaler.Device
	ecGroups   []*zscaler.ECGroup
	activation zscaler.ActivationState
}

// New creates a fake API.
func New(opts ...Option) *Server {
	s := &Server{
		logger:     zap.NewNop(),
		creds:      DefaultCredentials,
		tokenTTL:   time.Hour,
		sessions:   make(map[string]time.Time),
		logins:     make(map[string]int),
		logouts:    make(map[string]int),
		nextID:     1000,
		locations:  make(map[int]*zscaler.Location),
		rules:      make(map[int]*zscaler.URLFilteringRule),
		groups:     make(map[string]*zscaler.SegmentGroup),
		activation: zscaler.ActivationActive,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Credentials returns the accepted credentials.
func (s *Server) Credentials() Credentials {
	return s.creds
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.record)
	r.Use(s.injectFaults)
	r.Use(s.rateLimit)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no route for "+req.URL.Path)
	})

	r.Post(TokenPath, s.handleToken)

	r.Route(ZIAPrefix, func(r chi.Router) {
		r.Post("/authenticatedSession", s.handleAdminLogin("zia"))
		r.Delete("/authenticatedSession", s.handleAdminLogout("zia"))
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/locations", s.listLocations)
			r.Post("/locations", s.createLocation)
			r.Get("/locations/{id}", s.getLocation)
			r.Put("/locations/{id}", s.updateLocation)
			r.Delete("/locations/{id}", s.deleteLocation)
			r.Get("/urlFilteringRules", s.listRules)
			r.Post("/urlFilteringRules", s.createRule)
			r.Get("/urlFilteringRules/{id}", s.getRule)
			r.Put("/urlFilteringRules/{id}", s.updateRule)
			r.Delete("/urlFilteringRules/{id}", s.deleteRule)
			r.Get("/status", s.getStatus)
			r.Post("/status/activate", s.activate)
		})
	})

	r.Route(ZPAPrefix, func(r chi.Router) {
		r.Post("/signin", s.handleZPASignin)
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Route("/mgmtconfig/v1/admin/customers/{customerID}/segmentGroup", func(r chi.Router) {
				r.Use(s.checkCustomer)
				r.Get("/", s.listSegmentGroups)
				r.Post("/", s.createSegmentGroup)
				r.Get("/{id}", s.getSegmentGroup)
				r.Put("/{id}", s.updateSegmentGroup)
				r.Delete("/{id}", s.deleteSegmentGroup)
			})
		})
	})

	r.Route(ZCCPrefix, func(r chi.Router) {
		r.Post("/auth/v1/login", s.handleZCCLogin)
		r.With(s.authenticate).Get("/public/v1/getDevices", s.listDevices)
	})

	r.Route(ZTWPrefix, func(r chi.Router) {
		r.Post("/auth", s.handleAdminLogin("ztw"))
		r.Delete("/auth", s.handleAdminLogout("ztw"))
		r.With(s.authenticate).Get("/ecgroup", s.listECGroups)
	})

	s.router = r
}

// requestID echoes or assigns X-Request-ID.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery})
		s.mu.Unlock()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("mock request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", w.Header().Get(RequestIDHeader)))
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f := s.takeFault(r.Method, r.URL.Path); f != nil {
			if f.RetryAfter != "" {
				w.Header().Set("Retry-After", f.RetryAfter)
			}
			writeError(w, f.Status, "INJECTED_FAULT", http.StatusText(f.Status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && r.URL.Path != TokenPath && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				"Rate Limit exceeded for window "+s.limitWindow.String())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate accepts a bearer token, a ZCC auth-token or a JSESSIONID
// cookie issued by one of the login handlers.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var credential string
		switch {
		case strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "):
			credential = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		case r.Header.Get("auth-token") != "":
			credential = r.Header.Get("auth-token")
		default:
			if c, err := r.Cookie(sessionCookie); err == nil {
				credential = c.Value
			}
		}

		if !s.validSession(credential) {
			writeError(w, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "invalid or expired session")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AddFault queues a canned failure for matching requests. An empty Method
// matches any method.
func (s *Server) AddFault(f Fault) {
	if f.Times <= 0 {
		f.Times = 1
	}
	s.mu.Lock()
	s.faults = append(s.faults, &f)
	s.mu.Unlock()
}

func (s *Server) takeFault(method, path string) *Fault {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.faults {
		if f.Path != path || (f.Method != "" && f.Method != method) {
			continue
		}
		f.Times--
		if f.Times <= 0 {
			s.faults = append(s.faults[:i], s.faults[i+1:]...)
		}
		out := *f
		return &out
	}
	return nil
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount counts received requests for method and path.
func (s *Server) CallCount(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// Logins reports successful logins per kind: "oneapi", "zia", "ztw", "zpa"
// or "zcc".
func (s *Server) Logins(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins[kind]
}

// Logouts reports session deletions per kind.
func (s *Server) Logouts(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logouts[kind]
}

// ExpireSessions invalidates every issued token and cookie.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	clear(s.sessions)
	s.mu.Unlock()
}

// ClientOptions configures a client for the fake served at baseURL, using
// OneAPI credentials.
func (s *Server) ClientOptions(baseURL string) []zscaler.ClientOption {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return []zscaler.ClientOption{
		zscaler.WithOneAPI(s.creds.ClientID, s.creds.ClientSecret, "mock"),
		zscaler.WithTokenURL(baseURL + TokenPath),
		zscaler.WithZPACustomerID(s.creds.CustomerID),
		zscaler.WithBaseURL(zscaler.ProductZIA, baseURL+ZIAPrefix),
		zscaler.WithBaseURL(zscaler.ProductZPA, baseURL+ZPAPrefix),
		zscaler.WithBaseURL(zscaler.ProductZCC, baseURL+ZCCPrefix),
		zscaler.WithBaseURL(zscaler.ProductZTW, baseURL+ZTWPrefix),
	}
}

// LegacyClientOptions configures a client for the fake using the legacy
// credentials of every product.
func (s *Server) LegacyClientOptions(baseURL string) []zscaler.ClientOption {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return []zscaler.ClientOption{
		zscaler.WithZIALegacy(s.creds.Username, s.creds.Password, s.creds.APIKey),
		zscaler.WithZTWLegacy(s.creds.Username, s.creds.Password, s.creds.APIKey),
		zscaler.WithZPALegacy(s.creds.ClientID, s.creds.ClientSecret),
		zscaler.WithZCCLegacy(s.creds.ZCCAPIKey, s.creds.ZCCSecretKey),
		zscaler.WithZPACustomerID(s.creds.CustomerID),
		zscaler.WithBaseURL(zscaler.ProductZIA, baseURL+ZIAPrefix),
		zscaler.WithBaseURL(zscaler.ProductZPA, baseURL+ZPAPrefix),
		zscaler.WithBaseURL(zscaler.ProductZCC, baseURL+ZCCPrefix),
		zscaler.WithBaseURL(zscaler.ProductZTW, baseURL+ZTWPrefix),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError uses the ZIA error shape. ZPA handlers use writeZPAError.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

func writeZPAError(w http.ResponseWriter, status int, id, reason string) {
	writeJSON(w, status, map[string]string{"id": id, "reason": reason})
}
