package outbox

import (
	"context"
	"testing"

	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestToMessage(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceparent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	rec := Record{
		ID:            7,
		EventID:       "evt-1",
		AggregateType: "appointment",
		AggregateID:   "appt-1",
		EventType:     TopicAppointmentBooked,
		Payload:       []byte(`{"appointment_id":"appt-1"}`),
		Traceparent:   traceparent,
	}

	msg := toMessage(context.Background(), rec)
	if msg.Topic != TopicAppointmentBooked {
		t.Fatalf("unexpected topic %q", msg.Topic)
	}
	if string(msg.Key) != "appt-1" {
		t.Fatalf("expected aggregate id as key, got %q", msg.Key)
	}
	if kafkax.HeaderValue(msg.Headers, "event_id") != "evt-1" || kafkax.HeaderValue(msg.Headers, "event_type") != TopicAppointmentBooked {
		t.Fatalf("unexpected headers %v", msg.Headers)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != traceparent {
		t.Fatalf("expected traceparent to be propagated, got %q", got)
	}
}

func TestNewPublisher_Defaults(t *testing.T) {
	p := NewPublisher(nil, nil, nil, PublisherConfig{Brokers: " kafka-1:9092, ,kafka-2:9092"})
	if !p.Enabled() {
		t.Fatal("expected publisher to be enabled")
	}
	if len(p.brokers) != 2 {
		t.Fatalf("expected 2 brokers, got %v", p.brokers)
	}
	if p.batchSize != 50 || p.pollEvery <= 0 {
		t.Fatalf("expected defaults, got batch=%d poll=%s", p.batchSize, p.pollEvery)
	}
	if NewPublisher(nil, nil, nil, PublisherConfig{}).Enabled() {
		t.Fatal("expected publisher without brokers to be disabled")
	}
}
