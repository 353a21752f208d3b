package config

import (
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "70000")
	if _, err := Port("TEST_PORT", "8080"); err == nil {
		t.Fatal("expected out-of-range port to fail")
	}
	t.Setenv("TEST_PORT", "")
	p, err := Port("TEST_PORT", "8083")
	if err != nil || p != "8083" {
		t.Fatalf("expected fallback port, got %q, %v", p, err)
	}
}

func TestOptionalPort(t *testing.T) {
	t.Setenv("TEST_GRPC_PORT", "")
	if _, ok, err := OptionalPort("TEST_GRPC_PORT", "9093"); ok || err != nil {
		t.Fatalf("expected explicitly empty port to disable the listener, got ok=%v err=%v", ok, err)
	}
	t.Setenv("TEST_GRPC_PORT", "9100")
	if p, ok, err := OptionalPort("TEST_GRPC_PORT", "9093"); !ok || err != nil || p != "9100" {
		t.Fatalf("unexpected result %q %v %v", p, ok, err)
	}
}

func TestInt(t *testing.T) {
	t.Setenv("TEST_STEP", "")
	if n, err := Int("TEST_STEP", 30, 240); err != nil || n != 30 {
		t.Fatalf("expected fallback 30, got %d %v", n, err)
	}
	t.Setenv("TEST_STEP", "15")
	if n, err := Int("TEST_STEP", 30, 240); err != nil || n != 15 {
		t.Fatalf("expected 15, got %d %v", n, err)
	}
	t.Setenv("TEST_STEP", "0")
	if _, err := Int("TEST_STEP", 30, 240); err == nil {
		t.Fatal("expected zero to be rejected")
	}
}

func TestMillisAndList(t *testing.T) {
	t.Setenv("TEST_POLL_MS", "250")
	if d, err := Millis("TEST_POLL_MS", time.Second); err != nil || d != 250*time.Millisecond {
		t.Fatalf("unexpected duration %s %v", d, err)
	}
	t.Setenv("TEST_ORIGINS", "https://a.example, ,https://b.example")
	if got := List("TEST_ORIGINS", ""); len(got) != 2 {
		t.Fatalf("unexpected list %v", got)
	}
}

func TestLocation(t *testing.T) {
	t.Setenv("TEST_TZ", "")
	loc, err := Location("TEST_TZ", "UTC")
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC, got %v %v", loc, err)
	}
	t.Setenv("TEST_TZ", "Not/AZone")
	if _, err := Location("TEST_TZ", "UTC"); err == nil {
		t.Fatal("expected unknown zone to fail")
	}
}
