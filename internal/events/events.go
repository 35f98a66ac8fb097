// Package events publishes domain events about user data to interested
// consumers. Publishing is fire-and-forget: callers log failures and move on.
package events

import (
	"context"
	"sync"
	"time"

	"fintrack/internal/logger"
)

// Type names one kind of domain event. It doubles as the AMQP routing key.
type Type string

const (
	TransactionCreated Type = "transaction.created"
	TransactionUpdated Type = "transaction.updated"
	TransactionDeleted Type = "transaction.deleted"
	CategoryCreated    Type = "category.created"
	CategoryUpdated    Type = "category.updated"
	CategoryDeleted    Type = "category.deleted"
	UserDeleted        Type = "user.deleted"
	UserRoleChanged    Type = "user.role_changed"
)

// Event is the message body sent for every mutation.
type Event struct {
	Type       Type      `json:"type"`
	UserID     uint      `json:"user_id"`
	ResourceID uint      `json:"resource_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New builds an event stamped with the current time.
func New(t Type, userID, resourceID uint) Event {
	return Event{Type: t, UserID: userID, ResourceID: resourceID, OccurredAt: time.Now().UTC()}
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Emit publishes e and logs any failure instead of returning it.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.Get().Warnw("event publish failed",
			"type", e.Type,
			"user_id", e.UserID,
			"resource_id", e.ResourceID,
			"error", err,
		)
	}
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []Type {
	evs := r.Events()
	out := make([]Type, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}
