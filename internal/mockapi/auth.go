package mockapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tphakala/go-zscaler/internal/auth"
)

const (
	sessionCookie       = "JSESSIONID"
	clientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
)

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// issue stores a new credential valid for the token TTL.
func (s *Server) issue(kind, credential string) {
	s.mu.Lock()
	s.sessions[credential] = time.Now().Add(s.tokenTTL)
	s.logins[kind]++
	s.mu.Unlock()
}

func (s *Server) validSession(credential string) bool {
	if credential == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.sessions[credential]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(s.sessions, credential)
		return false
	}
	return true
}

// handleToken implements the OAuth2 client-credentials grant with either a
// client secret or a private key JWT assertion.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if r.PostForm.Get("grant_type") != "client_credentials" {
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type")
		return
	}

	clientID := r.PostForm.Get("client_id")
	if !equal(clientID, s.creds.ClientID) {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client")
		return
	}

	switch {
	case r.PostForm.Get("client_assertion") != "":
		if r.PostForm.Get("client_assertion_type") != clientAssertionType || !s.validAssertion(r.PostForm.Get("client_assertion"), clientID) {
			writeOAuthError(w, http.StatusUnauthorized, "invalid_client")
			return
		}
	case !equal(r.PostForm.Get("client_secret"), s.creds.ClientSecret):
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client")
		return
	}

	token := uuid.NewString()
	s.issue("oneapi", token)
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(s.tokenTTL / time.Second),
	})
}

func (s *Server) validAssertion(assertion, clientID string) bool {
	if s.publicKey == nil {
		return false
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(assertion, &claims, func(*jwt.Token) (any, error) {
		return s.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithIssuer(clientID), jwt.WithSubject(clientID))
	return err == nil
}

func writeOAuthError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// handleAdminLogin implements the ZIA /authenticatedSession and ZTW /auth
// logins. The obfuscated key must match the one derived from the request
// timestamp.
func (s *Server) handleAdminLogin(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			APIKey    string `json:"apiKey"`
			Username  string `json:"username"`
			Password  string `json:"password"`
			Timestamp string `json:"timestamp"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_INPUT_ARGUMENT", "malformed login body")
			return
		}

		ms, err := strconv.ParseInt(body.Timestamp, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_INPUT_ARGUMENT", "invalid timestamp")
			return
		}
		want, _, err := auth.ObfuscateAPIKey(s.creds.APIKey, time.UnixMilli(ms))
		if err != nil || !equal(body.APIKey, want) ||
			!equal(body.Username, s.creds.Username) || !equal(body.Password, s.creds.Password) {
			writeError(w, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "invalid credentials")
			return
		}

		session := uuid.NewString()
		s.issue(kind, session)
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: session, Path: "/", HttpOnly: true})
		writeJSON(w, http.StatusOK, map[string]any{
			"authType":           "ADMIN_LOGIN",
			"passwordExpiryTime": -1,
		})
	}
}

func (s *Server) handleAdminLogout(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || !s.validSession(c.Value) {
			writeError(w, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "no session")
			return
		}
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.logouts[kind]++
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleZPASignin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeZPAError(w, http.StatusBadRequest, "invalid.request", "malformed form")
		return
	}
	if !equal(r.PostForm.Get("client_id"), s.creds.ClientID) || !equal(r.PostForm.Get("client_secret"), s.creds.ClientSecret) {
		writeZPAError(w, http.StatusUnauthorized, "authentication.failed", "invalid client credentials")
		return
	}

	token := uuid.NewString()
	s.issue("zpa", token)
	writeJSON(w, http.StatusOK, map[string]string{
		"token_type":   "Bearer",
		"access_token": token,
		"expires_in":   strconv.Itoa(int(s.tokenTTL / time.Second)),
	})
}

// handleZCCLogin returns a JWT whose exp claim carries the session
// lifetime.
func (s *Server) handleZCCLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		APIKey    string `json:"apiKey"`
		SecretKey string `json:"secretKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT_ARGUMENT", "malformed login body")
		return
	}
	if !equal(body.APIKey, s.creds.ZCCAPIKey) || !equal(body.SecretKey, s.creds.ZCCSecretKey) {
		writeError(w, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "invalid api key")
		return
	}

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   body.APIKey,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		ID:        uuid.NewString(),
	}).SignedString([]byte(s.creds.ZCCSecretKey))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	s.issue("zcc", token)
	writeJSON(w, http.StatusOK, map[string]string{"jwtToken": token})
}
