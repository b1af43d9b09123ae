package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryAfter returns the wait a 429 response asks for. It understands
// Retry-After as seconds ("5", "5s", "5 seconds") or an HTTP date, then
// falls back to X-RateLimit-Reset in seconds. Zero means no hint.
func RetryAfter(h http.Header) time.Duration {
	return retryAfterAt(h, time.Now())
}

func retryAfterAt(h http.Header, now time.Time) time.Duration {
	if h == nil {
		return 0
	}
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if d, ok := parseSeconds(v); ok {
			return d
		}
		if t, err := http.ParseTime(v); err == nil {
			if d := t.Sub(now); d > 0 {
				return d
			}
			return 0
		}
	}
	if v := strings.TrimSpace(h.Get("X-RateLimit-Reset")); v != "" {
		if d, ok := parseSeconds(v); ok {
			return d
		}
	}
	return 0
}

func parseSeconds(v string) (time.Duration, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, suffix := range []string{"seconds", "second", "sec", "s"} {
		if trimmed, ok := strings.CutSuffix(v, suffix); ok {
			v = strings.TrimSpace(trimmed)
			break
		}
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return time.Duration(n * float64(time.Second)), true
}
