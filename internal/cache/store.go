package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/logger"
)

// TTLs per cached resource.
const (
	TransactionsTTL = 10 * time.Minute
	CategoriesTTL   = time.Hour
	AnalyticsTTL    = 15 * time.Minute
)

// Key namespaces. Per-user keys have the form {namespace}:user:{id}:{rest}.
const (
	nsTransactions = "transactions"
	nsCategories   = "categories"
	nsAnalytics    = "analytics"
)

var userNamespaces = []string{nsTransactions, nsCategories, nsAnalytics}

// UserPrefix returns the prefix shared by every key of one user in ns. The
// trailing colon keeps user 1 from matching user 12.
func UserPrefix(ns string, userID uint) string {
	return fmt.Sprintf("%s:user:%d:", ns, userID)
}

// TransactionsKey is the key of one filtered transaction listing.
func TransactionsKey(userID uint, filter any) string {
	return UserPrefix(nsTransactions, userID) + encodeKeyPart(filter)
}

// CategoriesKey is the key of a user's full category list.
func CategoriesKey(userID uint) string {
	return UserPrefix(nsCategories, userID) + "list"
}

// AnalyticsKey is the key of one analytics query, range included.
func AnalyticsKey(userID uint, query any) string {
	return UserPrefix(nsAnalytics, userID) + encodeKeyPart(query)
}

// userOf extracts the user id from a per-user key.
func userOf(key string) (uint, bool) {
	_, rest, ok := strings.Cut(key, ":user:")
	if !ok {
		return 0, false
	}
	idPart, _, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func encodeKeyPart(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// Store wraps a Cache with JSON encoding. Cache failures never reach the
// caller: a read error is a miss and a write error is a logged warning.
//
// Every invalidation bumps a generation. A fill joins flights and writes back
// only under the generation it started with.
type Store struct {
	backend Cache
	group   singleflight.Group

	// mu is held shared for a fill's check-and-set and exclusively to bump.
	mu    sync.RWMutex
	epoch uint64
	gens  map[uint]uint64
}

// generation identifies the cache state a fill was started against.
type generation struct {
	epoch, user uint64
}

// NewStore creates a Store over c. A nil c behaves like Noop.
func NewStore(c Cache) *Store {
	if c == nil {
		c = Noop{}
	}
	return &Store{backend: c, gens: make(map[uint]uint64)}
}

func (s *Store) generationOf(key string) generation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generationLocked(key)
}

func (s *Store) generationLocked(key string) generation {
	g := generation{epoch: s.epoch}
	if id, ok := userOf(key); ok {
		g.user = s.gens[id]
	}
	return g
}

// setIfCurrent writes v unless an invalidation happened since gen.
func (s *Store) setIfCurrent(ctx context.Context, key string, gen generation, v any, ttl time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.generationLocked(key) != gen {
		return
	}
	s.SetJSON(ctx, key, v, ttl)
}

// Backend returns the underlying cache.
func (s *Store) Backend() Cache {
	return s.backend
}

// Enabled reports whether a real cache is configured.
func (s *Store) Enabled() bool {
	return !IsNoop(s.backend)
}

// GetJSON decodes the value at key into dst and reports whether it was found.
func (s *Store) GetJSON(ctx context.Context, key string, dst any) bool {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		logger.Get().Warnw("cache get failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.Get().Warnw("cache decode failed", "key", key, "error", err)
		return false
	}
	return true
}

// SetJSON encodes v and stores it at key for ttl.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		logger.Get().Warnw("cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.backend.Set(ctx, key, raw, ttl); err != nil {
		logger.Get().Warnw("cache set failed", "key", key, "error", err)
	}
}

// InvalidateUser drops every cached transaction, category and analytics
// entry of one user.
func (s *Store) InvalidateUser(ctx context.Context, userID uint) {
	s.mu.Lock()
	s.gens[userID]++
	s.mu.Unlock()

	for _, ns := range userNamespaces {
		prefix := UserPrefix(ns, userID)
		if err := s.backend.DeleteByPrefix(ctx, prefix); err != nil {
			logger.Get().Warnw("cache invalidation failed", "prefix", prefix, "error", err)
		}
	}
}

// InvalidateAll drops the per-user namespaces for everyone. Used when a
// global category changes.
func (s *Store) InvalidateAll(ctx context.Context) {
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()

	for _, ns := range userNamespaces {
		prefix := ns + ":user:"
		if err := s.backend.DeleteByPrefix(ctx, prefix); err != nil {
			logger.Get().Warnw("cache invalidation failed", "prefix", prefix, "error", err)
		}
	}
}

// Fetch returns the cached value at key, or calls load, caches its result
// and returns it. Concurrent misses on one key within one generation share a
// single load. The load runs on a context detached from the caller's
// cancellation; a cancelled caller stops waiting and returns its context
// error. The boolean reports whether the value came from the cache.
func Fetch[T any](ctx context.Context, s *Store, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	gen := s.generationOf(key)

	var cached T
	if s.GetJSON(ctx, key, &cached) {
		return cached, true, nil
	}

	flight := fmt.Sprintf("%s#%d.%d", key, gen.epoch, gen.user)
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(flight, func() (any, error) {
		fresh, err := load(shared)
		if err != nil {
			return nil, err
		}
		s.setIfCurrent(shared, key, gen, fresh, ttl)
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	}
}
