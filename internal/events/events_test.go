package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"fintrack/internal/logger"
)

type fakeChannel struct {
	declared   []string
	kinds      []string
	published  []amqp091.Publishing
	keys       []string
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp091.Table) error {
	f.declared = append(f.declared, name)
	f.kinds = append(f.kinds, kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublish(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newAMQPWithChannel(ch, "fintrack.events")
	if err != nil {
		t.Fatalf("newAMQPWithChannel: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "fintrack.events" || ch.kinds[0] != "topic" {
		t.Fatalf("declared = %v %v, want fintrack.events topic", ch.declared, ch.kinds)
	}

	ev := New(TransactionCreated, 4, 9)
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(ch.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(ch.published))
	}
	msg := ch.published[0]
	if ch.keys[0] != "transaction.created" {
		t.Errorf("routing key = %s, want transaction.created", ch.keys[0])
	}
	if msg.DeliveryMode != amqp091.Persistent {
		t.Errorf("DeliveryMode = %d, want persistent", msg.DeliveryMode)
	}
	if msg.ContentType != "application/json" {
		t.Errorf("ContentType = %s", msg.ContentType)
	}

	var decoded Event
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.Type != TransactionCreated || decoded.UserID != 4 || decoded.ResourceID != 9 {
		t.Errorf("decoded = %+v", decoded)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !ch.closed {
		t.Error("expected channel to be closed")
	}
}

func TestEmitLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	defer logger.Replace(zap.New(core))()

	ch := &fakeChannel{publishErr: errors.New("broker gone")}
	p, err := newAMQPWithChannel(ch, "x")
	if err != nil {
		t.Fatalf("newAMQPWithChannel: %v", err)
	}

	Emit(context.Background(), p, New(UserDeleted, 1, 1))

	if logs.FilterMessage("event publish failed").Len() != 1 {
		t.Error("expected publish failure to be logged")
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	Emit(context.Background(), r, New(CategoryCreated, 1, 2))
	Emit(context.Background(), r, New(CategoryDeleted, 1, 2))
	Emit(context.Background(), nil, New(CategoryDeleted, 1, 2))

	got := r.Types()
	if len(got) != 2 || got[0] != CategoryCreated || got[1] != CategoryDeleted {
		t.Errorf("Types = %v", got)
	}
}
