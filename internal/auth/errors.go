package auth

import (
	"errors"
	"fmt"
)

// ErrInvalidAPIKey is returned when a legacy API key cannot be obfuscated.
var ErrInvalidAPIKey = errors.New("api key must be at least 12 characters")

// ErrNoSessionCookie is returned when a legacy login succeeds without
// setting a JSESSIONID cookie.
var ErrNoSessionCookie = errors.New("login response did not set a session cookie")

// LoginError reports a rejected login exchange.
type LoginError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *LoginError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s login failed with status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s login failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
}
