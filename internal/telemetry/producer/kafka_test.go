package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"saas-control-plane/backend/internal/telemetry/domain"
)

type fakeWriter struct {
	msgs     []kafka.Message
	err      error
	closed   bool
	deadline bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	_, w.deadline = ctx.Deadline()
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaProducer_Disabled(t *testing.T) {
	if p := NewKafkaProducer(nil, "events"); p != nil {
		t.Error("no brokers should disable the producer")
	}
	if p := NewKafkaProducer([]string{"localhost:9092"}, ""); p != nil {
		t.Error("no topic should disable the producer")
	}
	var p *KafkaProducer
	if err := p.Emit(context.Background(), &domain.Event{}); err != nil {
		t.Errorf("nil Emit: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestEmit_KeysByOrg(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "events"}

	event := domain.NewEvent(domain.EventInviteCreated, "invite_service", "org-1", "user-1", map[string]string{"role": "ADMIN"})
	if err := p.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "org-1" {
		t.Errorf("key = %q, want org-1", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != domain.EventInviteCreated {
		t.Errorf("headers = %+v", msg.Headers)
	}
	var decoded domain.Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if decoded.EventType != domain.EventInviteCreated || decoded.UserID != "user-1" {
		t.Errorf("decoded = %+v", decoded)
	}
	if !w.deadline {
		t.Error("write should carry a deadline")
	}
}

func TestEmit_NoOrgMeansNoKey(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w}
	if err := p.Emit(context.Background(), &domain.Event{EventType: domain.EventUserSignedUp}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if w.msgs[0].Key != nil {
		t.Errorf("key = %q, want nil", w.msgs[0].Key)
	}
}

func TestEmit_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := &KafkaProducer{writer: w}
	if err := p.Emit(context.Background(), &domain.Event{EventType: "x"}); err == nil {
		t.Error("expected write error")
	}
	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Close: %v closed=%v", err, w.closed)
	}
}
