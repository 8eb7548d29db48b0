package logger

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestTickID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No tick ID set
	if tid := TickID(ctx); tid != "" {
		t.Errorf("expected empty tick id, got %q", tid)
	}

	// Set and retrieve
	ctx = WithTickID(ctx, "test-tick-123")
	if tid := TickID(ctx); tid != "test-tick-123" {
		t.Errorf("expected 'test-tick-123', got %q", tid)
	}
}

func TestNewTickID(t *testing.T) {
	ts := time.Date(2025, 6, 15, 10, 30, 0, 123456789, time.UTC)
	tid := NewTickID("BTCUSDT", ts)

	if tid == "" {
		t.Fatal("expected non-empty tick id")
	}
	if !strings.HasPrefix(tid, "BTCUSDT-") {
		t.Errorf("expected tick id to start with 'BTCUSDT-', got %s", tid)
	}
	// Verify it contains the nano timestamp
	if !strings.Contains(tid, "123456789") {
		t.Errorf("expected tick id to contain nanoseconds, got %s", tid)
	}
	// Two IDs for the same tick must still differ
	if other := NewTickID("BTCUSDT", ts); other == tid {
		t.Error("expected unique tick ids")
	}
}

func TestWithTick(t *testing.T) {
	ctx := context.Background()

	// No tick ID
	attrs := WithTick(ctx)
	if attrs != nil {
		t.Errorf("expected nil attrs when no tick id, got %v", attrs)
	}

	ctx = WithTickID(ctx, "abc-123")
	attrs = WithTick(ctx)
	if len(attrs) == 0 {
		t.Fatal("expected non-empty attrs with tick id set")
	}
}
