// Package cache is the short-TTL response cache injected into services that
// derive views from store snapshots. Values round-trip through JSON so every
// backend hands out copies.
package cache

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Cache stores JSON-encodable values under string keys.
type Cache interface {
	// Get decodes the value under key into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Clear drops every key starting with prefix; an empty prefix drops all.
	Clear(ctx context.Context, prefix string) error
}

// Key builds a stable key from a base and query parameters; empty values are
// skipped and the rest are sorted by name.
func Key(base string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return base
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("?")
	for i, k := range names {
		if i > 0 {
			b.WriteString("&")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return b.String()
}

// Nop never stores anything; tests use it to bypass caching.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Clear(context.Context, string) error                   { return nil }
