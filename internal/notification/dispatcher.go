package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 10 * time.Second
)

// Dispatcher fans alerts out to all configured backends from a single worker
// goroutine. Publishing never blocks the decision pipeline: when the queue is
// full the oldest alert is dropped to make room.
type Dispatcher struct {
	notifiers []Notifier
	queue     chan Alert
	log       *slog.Logger

	dropped uint64
	mu      sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	once    sync.Once
}

// NewDispatcher creates a dispatcher over the given backends and starts its
// worker. Stop must be called to drain it.
func NewDispatcher(log *slog.Logger, notifiers ...Notifier) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		notifiers: notifiers,
		queue:     make(chan Alert, defaultQueueSize),
		log:       log.With(slog.String("component", "notification")),
		cancel:    cancel,
	}
	d.wg.Add(1)
	go d.run(ctx)
	return d
}

// Publish enqueues an alert, dropping the oldest queued alert when full.
func (d *Dispatcher) Publish(alert Alert) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		select {
		case d.queue <- alert:
			return
		default:
		}
		select {
		case <-d.queue:
			d.dropped++
		default:
		}
	}
}

// Dropped returns how many alerts were discarded due to backpressure.
func (d *Dispatcher) Dropped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// Drain whatever is queued before exiting.
			for {
				select {
				case alert := <-d.queue:
					d.deliver(alert)
				default:
					return
				}
			}
		case alert := <-d.queue:
			d.deliver(alert)
		}
	}
}

func (d *Dispatcher) deliver(alert Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultSendTimeout)
	defer cancel()
	for _, n := range d.notifiers {
		if err := n.Send(ctx, alert); err != nil {
			d.log.Warn("alert delivery failed",
				slog.String("title", alert.Title), slog.Any("error", err))
		}
	}
}

// Stop shuts the worker down after draining queued alerts.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		d.cancel()
		d.wg.Wait()
	})
}
