package zscaler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tphakala/go-zscaler/internal/api"
	"github.com/tphakala/go-zscaler/internal/auth"
)

// Sentinel errors for common failure modes.
var (
	ErrNoCredentials        = errors.New("zscaler: no credentials configured")
	ErrConflictingAuth      = errors.New("zscaler: OneAPI and legacy credentials cannot be combined")
	ErrProductNotConfigured = errors.New("zscaler: product not configured")
	ErrNoCustomerID         = errors.New("zscaler: ZPA customer ID is required")
	ErrNoVanityDomain       = errors.New("zscaler: OneAPI vanity domain is required")
	ErrInvalidAPIKey        = auth.ErrInvalidAPIKey
)

// APIError represents a general Zscaler API error.
type APIError struct {
	StatusCode int    `json:"status"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	RequestID  string `json:"requestId,omitempty"`
	Product    string `json:"product,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.Code != "" && msg != "" {
		msg = e.Code + ": " + msg
	} else if e.Code != "" {
		msg = e.Code
	}
	if e.RequestID != "" {
		return fmt.Sprintf("zscaler: API error %d: %s (request_id=%s)", e.StatusCode, msg, e.RequestID)
	}
	return fmt.Sprintf("zscaler: API error %d: %s", e.StatusCode, msg)
}

// AuthenticationError indicates authentication failure (401/403), either
// on an API call or during login.
type AuthenticationError struct {
	APIError
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("zscaler: authentication failed: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *AuthenticationError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// NotFoundError indicates the requested resource was not found (404).
type NotFoundError struct {
	APIError
	ResourceType string
	ResourceID   string
}

func (e *NotFoundError) Error() string {
	if e.ResourceType != "" && e.ResourceID != "" {
		return fmt.Sprintf("zscaler: %s not found: %s", e.ResourceType, e.ResourceID)
	}
	return fmt.Sprintf("zscaler: resource not found: %s", e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *NotFoundError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// ValidationError indicates invalid request data (400).
type ValidationError struct {
	APIError
	Fields map[string]string `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("zscaler: validation error: %s (fields: %v)", e.Message, e.Fields)
	}
	return fmt.Sprintf("zscaler: validation error: %s", e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *ValidationError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// ConflictError indicates a conflicting change (409), such as a ZIA
// configuration edit lock held by another admin session.
type ConflictError struct {
	APIError
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("zscaler: conflict: %s", e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *ConflictError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// RateLimitError indicates the API rate limit was exceeded (429) and
// retries were exhausted.
type RateLimitError struct {
	APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("zscaler: rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "zscaler: rate limit exceeded"
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *RateLimitError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// ServerError indicates an internal server error (5xx).
type ServerError struct {
	APIError
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("zscaler: server error %d: %s", e.StatusCode, e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *ServerError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// errorBody covers the error shapes of the product APIs: ZIA and ZTW send
// {code, message}, ZPA sends {id, reason}.
type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	ID      string            `json:"id"`
	Reason  string            `json:"reason"`
	Params  []string          `json:"params"`
	Fields  map[string]string `json:"fields"`
}

// parseError converts an HTTP response into the appropriate error type.
func parseError(product string, statusCode int, body []byte, headers http.Header) error {
	requestID := headers.Get(api.HeaderRequestID)
	if requestID == "" {
		requestID = headers.Get("X-Zscaler-Request-Id")
	}
	base := APIError{
		StatusCode: statusCode,
		RequestID:  requestID,
		Product:    product,
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		base.Code = firstNonEmpty(parsed.Code, parsed.ID)
		base.Message = firstNonEmpty(parsed.Message, parsed.Reason)
	} else {
		// Fallback to raw body if not valid JSON
		base.Message = strings.TrimSpace(string(body))
	}
	if base.Message == "" {
		base.Message = http.StatusText(statusCode)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &AuthenticationError{APIError: base}
	case statusCode == http.StatusNotFound:
		return &NotFoundError{APIError: base}
	case statusCode == http.StatusBadRequest:
		return &ValidationError{APIError: base, Fields: parsed.Fields}
	case statusCode == http.StatusConflict:
		return &ConflictError{APIError: base}
	case statusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			APIError:   base,
			RetryAfter: api.RetryAfter(headers),
		}
	case statusCode >= http.StatusInternalServerError:
		return &ServerError{APIError: base}
	default:
		return &base
	}
}

// wrapError maps failures below the HTTP status level. Rejected logins
// become AuthenticationError so callers need a single errors.As check.
func wrapError(product string, err error) error {
	var loginErr *auth.LoginError
	if errors.As(err, &loginErr) {
		return &AuthenticationError{
			APIError: APIError{
				StatusCode: loginErr.StatusCode,
				Message:    loginErr.Error(),
				Product:    product,
			},
			Err: err,
		}
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
