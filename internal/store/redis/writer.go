// Package redis publishes engine events (decisions, fills, equity marks) to
// Redis streams for dashboards and downstream consumers. Redis is a secondary
// store: losing it never blocks trading, writes are buffered behind a circuit
// breaker instead.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/bytedance/sonic"
	goredis "github.com/go-redis/redis/v8"

	"trading-enginev1/internal/model"
)

const (
	// Stream trimming: roughly a day of per-minute events with headroom.
	streamMaxLen     = 5000
	defaultLatestTTL = 30 * time.Minute
)

// Event types published to streams.
const (
	EventDecision = "decision"
	EventTrade    = "trade"
	EventEquity   = "equity"
)

// Event is the wire envelope for one engine event.
type Event struct {
	Type    string    `json:"type"`
	Symbol  string    `json:"symbol,omitempty"`
	At      time.Time `json:"at"`
	Payload []byte    `json:"payload"`
}

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer writes engine events to Redis streams and latest-value keys.
type Writer struct {
	client *goredis.Client
	log    *slog.Logger
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig, log *slog.Logger) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("connected to redis", slog.String("addr", cfg.Addr))
	return &Writer{client: client, log: log}, nil
}

// DecisionEvent wraps a final decision for a symbol into a stream event.
func DecisionEvent(symbol string, d model.Decision) (Event, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: EventDecision, Symbol: symbol, At: time.Now().UTC(), Payload: payload}, nil
}

// TradeEvent wraps an opened or closed trade into a stream event.
func TradeEvent(t model.Trade) (Event, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: EventTrade, Symbol: t.Symbol, At: time.Now().UTC(), Payload: payload}, nil
}

// PublishDecision writes a final decision for a symbol.
func (w *Writer) PublishDecision(ctx context.Context, symbol string, d model.Decision) error {
	ev, err := DecisionEvent(symbol, d)
	if err != nil {
		return err
	}
	return w.writeEvent(ctx, ev)
}

// PublishTrade writes an opened or closed trade.
func (w *Writer) PublishTrade(ctx context.Context, t model.Trade) error {
	ev, err := TradeEvent(t)
	if err != nil {
		return err
	}
	return w.writeEvent(ctx, ev)
}

// EquityMark is the periodic portfolio snapshot published to Redis.
type EquityMark struct {
	StrategyID string  `json:"strategy_id"`
	Equity     float64 `json:"equity"`
	DailyPnL   float64 `json:"daily_pnl"`
	Exposure   float64 `json:"exposure"`
}

// EquityEvent wraps a portfolio equity mark into a stream event.
func EquityEvent(mark EquityMark) (Event, error) {
	payload, err := json.Marshal(mark)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: EventEquity, At: time.Now().UTC(), Payload: payload}, nil
}

// PublishEquity writes a portfolio equity mark.
func (w *Writer) PublishEquity(ctx context.Context, mark EquityMark) error {
	ev, err := EquityEvent(mark)
	if err != nil {
		return err
	}
	return w.writeEvent(ctx, ev)
}

// writeEvent appends to the per-type stream, refreshes the latest-value key,
// and notifies pubsub subscribers, all in one pipeline roundtrip.
func (w *Writer) writeEvent(ctx context.Context, ev Event) error {
	raw, err := json.MarshalString(ev)
	if err != nil {
		return err
	}

	stream := "events:" + ev.Type
	latest := "latest:" + ev.Type
	channel := "pub:" + ev.Type
	if ev.Symbol != "" {
		latest += ":" + ev.Symbol
		channel += ":" + ev.Symbol
	}

	pipe := w.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": raw},
	})
	pipe.Set(ctx, latest, raw, defaultLatestTTL)
	pipe.Publish(ctx, channel, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis write %s: %w", ev.Type, err)
	}
	return nil
}

// Close releases the client connection.
func (w *Writer) Close() error {
	return w.client.Close()
}
