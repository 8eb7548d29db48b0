// Package ringbuf provides a fixed-capacity sliding window over model.Candle.
// Once full, each append overwrites the oldest candle, so the window always
// holds the most recent N bars in arrival order.
package ringbuf

import (
	"trading-enginev1/internal/model"
)

// Window is a circular buffer of candles. Not safe for concurrent use; each
// strategy session owns its windows and appends from a single goroutine.
type Window struct {
	buf   []model.Candle
	start int // index of the oldest candle
	n     int
	total uint64 // appends since creation, including overwritten ones
}

// NewWindow creates a window holding at most capacity candles.
// Minimum capacity is 2.
func NewWindow(capacity int) *Window {
	if capacity < 2 {
		capacity = 2
	}
	return &Window{buf: make([]model.Candle, capacity)}
}

// Append adds a candle, evicting the oldest one when the window is full.
func (w *Window) Append(c model.Candle) {
	w.total++
	if w.n < len(w.buf) {
		w.buf[(w.start+w.n)%len(w.buf)] = c
		w.n++
		return
	}
	w.buf[w.start] = c
	w.start = (w.start + 1) % len(w.buf)
}

// ReplaceLast overwrites the most recent candle in place, used by the live
// loop to refresh the in-progress bar without duplicating history. Returns
// false when the window is empty.
func (w *Window) ReplaceLast(c model.Candle) bool {
	if w.n == 0 {
		return false
	}
	w.buf[(w.start+w.n-1)%len(w.buf)] = c
	return true
}

// Slice returns the window contents oldest first. The result is a fresh
// slice; mutating it does not affect the window.
func (w *Window) Slice() []model.Candle {
	out := make([]model.Candle, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Last returns the most recent candle, or false if the window is empty.
func (w *Window) Last() (model.Candle, bool) {
	if w.n == 0 {
		return model.Candle{}, false
	}
	return w.buf[(w.start+w.n-1)%len(w.buf)], true
}

// Len returns the number of candles currently held.
func (w *Window) Len() int { return w.n }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Full reports whether the window has reached capacity.
func (w *Window) Full() bool { return w.n == len(w.buf) }

// Total returns the number of candles appended over the window's lifetime.
func (w *Window) Total() uint64 { return w.total }
