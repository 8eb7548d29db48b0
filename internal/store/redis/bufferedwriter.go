package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BufferedWriter wraps a Writer with the circuit breaker. While the circuit
// is open, events are buffered in memory and replayed once Redis recovers,
// so a Redis outage degrades the event feed instead of dropping it.
type BufferedWriter struct {
	writer *Writer
	cb     *CircuitBreaker
	log    *slog.Logger

	mu     sync.Mutex
	buffer []bufferedEvent
	maxBuf int

	// Callbacks for metrics; may be nil.
	OnBuffer func()
	OnFlush  func(count int)
}

type bufferedEvent struct {
	ev Event
	at time.Time
}

// NewBufferedWriter creates a BufferedWriter wrapping the given Writer.
// maxBufferSize bounds the in-memory backlog; the oldest events are dropped
// beyond it.
func NewBufferedWriter(w *Writer, cb *CircuitBreaker, maxBufferSize int, log *slog.Logger) *BufferedWriter {
	if maxBufferSize <= 0 {
		maxBufferSize = 10000
	}
	bw := &BufferedWriter{
		writer: w,
		cb:     cb,
		log:    log,
		buffer: make([]bufferedEvent, 0, 256),
		maxBuf: maxBufferSize,
	}

	// Replay the backlog whenever the circuit closes again.
	prev := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		if to == StateClosed {
			go bw.flush(context.Background())
		}
	}

	return bw
}

// Publish writes one event through the circuit breaker, buffering it when
// the circuit is open. Never returns ErrCircuitOpen to the caller.
func (bw *BufferedWriter) Publish(ctx context.Context, ev Event) error {
	err := bw.cb.Execute(func() error {
		return bw.writer.writeEvent(ctx, ev)
	})
	if err == nil {
		return nil
	}
	// Both a tripped circuit and the failing write that trips it get
	// buffered; the event is not lost either way.
	bw.bufferEvent(ev)
	if err != ErrCircuitOpen {
		bw.log.Warn("redis publish failed, event buffered", slog.Any("error", err))
	}
	return nil
}

func (bw *BufferedWriter) bufferEvent(ev Event) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if len(bw.buffer) >= bw.maxBuf {
		bw.buffer = bw.buffer[1:]
	}
	bw.buffer = append(bw.buffer, bufferedEvent{ev: ev, at: time.Now()})

	if bw.OnBuffer != nil {
		bw.OnBuffer()
	}
}

// flush replays all buffered events through the underlying writer.
func (bw *BufferedWriter) flush(ctx context.Context) {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return
	}
	toFlush := bw.buffer
	bw.buffer = make([]bufferedEvent, 0, 256)
	bw.mu.Unlock()

	flushed := 0
	for _, be := range toFlush {
		if err := bw.writer.writeEvent(ctx, be.ev); err != nil {
			bw.log.Warn("flush write failed", slog.Any("error", err))
			continue
		}
		flushed++
	}

	bw.log.Info("flushed buffered events", slog.Int("count", flushed), slog.Int("dropped", len(toFlush)-flushed))
	if bw.OnFlush != nil {
		bw.OnFlush(flushed)
	}
}

// PendingCount returns the number of buffered events waiting to be flushed.
func (bw *BufferedWriter) PendingCount() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

// Underlying returns the wrapped Redis writer for direct access.
func (bw *BufferedWriter) Underlying() *Writer {
	return bw.writer
}
