package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trading-enginev1/internal/marketdata"
	"trading-enginev1/internal/metrics"
	"trading-enginev1/internal/model"
)

// LiveConfig tunes one live polling loop.
type LiveConfig struct {
	Interval     string        // candle interval, e.g. "1m"
	PollInterval time.Duration // how often to fetch the latest bar
	Health       *metrics.HealthStatus
}

// Registry runs live sessions and owns their lifecycles. Each session gets
// one goroutine polling market data and feeding candles through the
// pipeline.
type Registry struct {
	mu       sync.Mutex
	log      *slog.Logger
	sessions map[string]*runningSession
}

type runningSession struct {
	session *Session
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRegistry creates an empty session registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{log: log, sessions: make(map[string]*runningSession)}
}

// Start warms the session's windows from history and launches its polling
// loop. Starting an already-running strategy is an error.
func (r *Registry) Start(ctx context.Context, s *Session, provider marketdata.Provider, cfg LiveConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := s.Config().StrategyID
	if _, exists := r.sessions[id]; exists {
		return fmt.Errorf("engine: strategy %q already running", id)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}

	if err := r.warmup(ctx, s, provider, cfg.Interval); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	rs := &runningSession{session: s, cancel: cancel, done: make(chan struct{})}
	r.sessions[id] = rs
	go r.run(loopCtx, rs, provider, cfg)
	return nil
}

// Stop cancels one strategy's loop and waits for it to drain. Cached advisor
// verdicts are discarded so a restart starts clean.
func (r *Registry) Stop(strategyID string) {
	r.mu.Lock()
	rs, ok := r.sessions[strategyID]
	if ok {
		delete(r.sessions, strategyID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	rs.cancel()
	<-rs.done
	rs.session.InvalidateCache()
	r.log.Info("session stopped", slog.String("strategy", strategyID))
}

// StopAll stops every running session.
func (r *Registry) StopAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Stop(id)
	}
}

// Running returns the IDs of the currently running strategies.
func (r *Registry) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// warmup seeds each symbol's window with recent history so indicators have
// a full sample before the first live tick.
func (r *Registry) warmup(ctx context.Context, s *Session, provider marketdata.Provider, interval string) error {
	cfg := s.Config()
	for _, symbol := range cfg.Symbols {
		candles, err := provider.Snapshot(ctx, symbol, interval, cfg.WindowSize)
		if err != nil {
			return fmt.Errorf("engine: warmup %s: %w", symbol, err)
		}
		w := s.window(symbol)
		for _, c := range candles {
			w.Append(c)
		}
		r.log.Info("window warmed",
			slog.String("strategy", cfg.StrategyID),
			slog.String("symbol", symbol),
			slog.Int("candles", len(candles)))
	}
	return nil
}

// run is the per-session live loop: poll the latest bar for every symbol,
// feed it through the pipeline, reset daily P&L on UTC day rollover.
func (r *Registry) run(ctx context.Context, rs *runningSession, provider marketdata.Provider, cfg LiveConfig) {
	defer close(rs.done)

	s := rs.session
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	day := time.Now().UTC().Truncate(24 * time.Hour)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if d := time.Now().UTC().Truncate(24 * time.Hour); !d.Equal(day) {
			s.Ledger().ResetDaily()
			day = d
			r.log.Info("daily pnl reset", slog.String("strategy", s.Config().StrategyID))
		}

		r.pollOnce(ctx, s, provider, cfg)

		if cfg.Health != nil {
			cfg.Health.SetLastTickTime(time.Now().UTC())
			cfg.Health.SetOpenPositions(len(s.Ledger().Positions()))
		}
	}
}

// pollOnce fetches and processes the latest bar for every symbol. A panic in
// one symbol's pipeline is contained to that tick.
func (r *Registry) pollOnce(ctx context.Context, s *Session, provider marketdata.Provider, cfg LiveConfig) {
	anyOK := false
	for _, symbol := range s.Config().Symbols {
		candles, err := provider.Snapshot(ctx, symbol, cfg.Interval, 1)
		if err != nil {
			r.log.Warn("snapshot failed",
				slog.String("symbol", symbol), slog.Any("error", err))
			continue
		}
		anyOK = true
		if len(candles) == 0 {
			continue
		}
		r.processSafely(ctx, s, candles[len(candles)-1])
	}
	if cfg.Health != nil {
		cfg.Health.SetMarketDataOK(anyOK)
	}
}

func (r *Registry) processSafely(ctx context.Context, s *Session, c model.Candle) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("tick panic",
				slog.String("symbol", c.Symbol), slog.Any("panic", rec))
		}
	}()
	if _, err := s.ProcessCandle(ctx, c); err != nil {
		r.log.Error("tick failed",
			slog.String("symbol", c.Symbol), slog.Any("error", err))
	}
}
