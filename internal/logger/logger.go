// Package logger provides structured logging using Go 1.21's log/slog.
// It sets up a JSON handler with service-level context and provides
// tick ID propagation through context.Context so every log line emitted
// while processing one tick can be correlated.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

const tickIDKey ctxKey = "tick_id"

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// WithTickID stores a tick ID in the context for downstream propagation.
func WithTickID(ctx context.Context, tickID string) context.Context {
	return context.WithValue(ctx, tickIDKey, tickID)
}

// TickID extracts the tick ID from context. Returns "" if not set.
func TickID(ctx context.Context) string {
	if v, ok := ctx.Value(tickIDKey).(string); ok {
		return v
	}
	return ""
}

// NewTickID creates an ID for one pass of the decision pipeline.
// Format: "{symbol}-{unixNano}-{short uuid}".
func NewTickID(symbol string, ts time.Time) string {
	return fmt.Sprintf("%s-%d-%s", symbol, ts.UnixNano(), uuid.NewString()[:8])
}

// WithTick returns slog attributes including the tick ID from context.
// Usage: slog.Info("msg", logger.WithTick(ctx)...)
func WithTick(ctx context.Context) []any {
	tid := TickID(ctx)
	if tid == "" {
		return nil
	}
	return []any{slog.String("tick_id", tid)}
}
