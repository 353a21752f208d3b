package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" a:9092,,b:9092 , ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}

func TestInjectTraceHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceparent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.MapCarrier{"traceparent": traceparent})

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: "event_id", Value: []byte("e1")}})
	if HeaderValue(headers, "traceparent") != traceparent {
		t.Fatalf("expected traceparent header, got %v", headers)
	}
	if HeaderValue(headers, "event_id") != "e1" {
		t.Fatal("existing headers must be preserved")
	}
}

func TestReadyCheck_NoBrokers(t *testing.T) {
	if err := ReadyCheck("")(context.Background()); err != nil {
		t.Fatalf("expected ready without brokers, got %v", err)
	}
}
