// Package cache provides the key/value cache behind read-heavy endpoints.
// A Cache stores opaque bytes with a TTL; Store layers JSON encoding,
// error swallowing and per-user invalidation on top.
package cache

import (
	"context"
	"time"
)

// Cache is the contract every backend implements.
// Get reports a miss with ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) error
	Close() error
}

// Noop is the cache used when none is configured. Every read misses.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Delete(context.Context, string) error { return nil }
func (Noop) DeleteByPrefix(context.Context, string) error { return nil }
func (Noop) Ping(context.Context) error { return nil }
func (Noop) Close() error { return nil }

// IsNoop reports whether c is the unconfigured cache.
func IsNoop(c Cache) bool {
	switch c.(type) {
	case Noop, *Noop:
		return true
	}
	return false
}
