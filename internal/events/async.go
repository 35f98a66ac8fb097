package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"fintrack/internal/logger"
)

// ErrQueueFull is returned by Async.Publish when the buffer is full.
var ErrQueueFull = errors.New("event queue full")

// ErrClosed is returned by Async.Publish after Close.
var ErrClosed = errors.New("event publisher closed")

// DefaultQueueSize is the buffer used by NewAsync when size is not positive.
const DefaultQueueSize = 1024

// Async hands events to a background goroutine that publishes them through
// the wrapped publisher, so request handlers never wait on the broker.
// Events that do not fit the buffer are dropped.
type Async struct {
	next    Publisher
	queue   chan Event
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsync starts a publisher draining a queue of size events into next.
// Each delivery gets timeout.
func NewAsync(next Publisher, size int, timeout time.Duration) *Async {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = publishTimeout
	}
	a := &Async{
		next:    next,
		queue:   make(chan Event, size),
		timeout: timeout,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Publish(ctx, e); err != nil {
			logger.Get().Warnw("event publish failed",
				"type", e.Type,
				"user_id", e.UserID,
				"resource_id", e.ResourceID,
				"error", err,
			)
		}
		cancel()
	}
}

// Publish queues e without blocking. The caller's context is not used for
// delivery.
func (a *Async) Publish(_ context.Context, e Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events, delivers what is queued and closes the
// wrapped publisher.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
	return a.next.Close()
}
