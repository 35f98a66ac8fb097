// Package ratelimit implements a per-client sliding-window request limiter.
package ratelimit

import (
	"sync"
	"time"
)

// Config holds rate limiter configuration.
type Config struct {
	Max             int
	Window          time.Duration
	CleanupInterval time.Duration
}

// Result describes the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter counts requests per client over a sliding window. Each client keeps
// the timestamps of its accepted requests inside the current window.
type Limiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	max     int
	window  time.Duration
	now     func() time.Time

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	shutdownOnce    sync.Once
}

// NewLimiter creates a limiter and starts its cleanup goroutine.
// Call Stop to release it.
func NewLimiter(config Config) *Limiter {
	if config.Max <= 0 {
		config.Max = 100
	}
	if config.Window <= 0 {
		config.Window = 15 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = config.Window
	}

	l := &Limiter{
		clients:         make(map[string][]time.Time),
		max:             config.Max,
		window:          config.Window,
		now:             time.Now,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	go l.startCleanup()
	return l
}

// Allow records a request from key if the client is under its budget.
func (l *Limiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	hits := prune(l.clients[key], now.Add(-l.window))

	res := Result{Limit: l.max}
	if len(hits) < l.max {
		hits = append(hits, now)
		res.Allowed = true
	} else {
		res.RetryAfter = hits[0].Add(l.window).Sub(now)
	}
	l.clients[key] = hits

	res.Remaining = l.max - len(hits)
	res.ResetAt = hits[0].Add(l.window)
	return res
}

// prune drops timestamps at or before cutoff. hits is sorted ascending.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}

func (l *Limiter) startCleanup() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanupStaleEntries()
		case <-l.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries forgets clients with no request inside the window.
func (l *Limiter) cleanupStaleEntries() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for key, hits := range l.clients {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(l.clients, key)
		}
	}
}

// ActiveClients returns the number of currently tracked clients.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stop shuts down the cleanup goroutine.
func (l *Limiter) Stop() {
	l.shutdownOnce.Do(func() {
		close(l.stopCleanup)
	})
}
