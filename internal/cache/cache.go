// Package cache provides the optional response cache used for GET
// requests. Entries expire a fixed TTL after they were written, or earlier
// when they have not been read for TTI.
package cache

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Default expiry policy.
const (
	DefaultTTL = 10 * time.Minute
	DefaultTTI = 8 * time.Minute
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache is closed")

// Cache stores raw response bodies by request key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	DeletePrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
	Close() error
}

// Policy is the expiry policy of a cache.
type Policy struct {
	TTL time.Duration
	TTI time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.TTL <= 0 {
		p.TTL = DefaultTTL
	}
	if p.TTI <= 0 {
		p.TTI = DefaultTTI
	}
	return p
}

// expired reports whether an entry written at created and last read at
// accessed is dead at now.
func (p Policy) expired(now, created, accessed time.Time) bool {
	return !now.Before(created.Add(p.TTL)) || !now.Before(accessed.Add(p.TTI))
}

// remaining is how long an entry read at now may live: the smaller of its
// remaining TTL and a fresh TTI.
func (p Policy) remaining(now, created time.Time) time.Duration {
	ttl := created.Add(p.TTL).Sub(now)
	if p.TTI < ttl {
		return p.TTI
	}
	return ttl
}

// Key builds the cache key of a GET request: namespace, method and the
// absolute URL with its query sorted.
func Key(namespace, method string, u *url.URL) string {
	return namespace + "|" + method + "|" + canonicalURL(u)
}

// CollectionPrefix returns the key prefix covering the collection a write
// to u touches: the request path with a trailing numeric ID removed, for
// both the collection listing and every member.
func CollectionPrefix(namespace string, u *url.URL) string {
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	if i := strings.LastIndex(path, "/"); i >= 0 && isNumeric(path[i+1:]) {
		path = path[:i]
	}
	base := *u
	base.RawQuery = ""
	base.Fragment = ""
	base.RawPath = ""
	base.Path = ""
	return namespace + "|GET|" + base.String() + path
}

func canonicalURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	q := c.Query()
	if len(q) == 0 {
		c.RawQuery = ""
		return c.String()
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		vals := append([]string(nil), q[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	c.RawQuery = strings.Join(parts, "&")
	return c.String()
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
