// Package engine drives the full decision pipeline: candle ingest, indicator
// and regime computation, signal generation and selection, fast-path
// synthesis, advisor arbitration, risk gating, ledger mutation, and adaptive
// exits. One Session owns everything for one strategy.
package engine

import (
	"log/slog"
	"math/rand"
	"time"

	"trading-enginev1/internal/advisor"
	"trading-enginev1/internal/arbiter"
	"trading-enginev1/internal/exits"
	"trading-enginev1/internal/fastpath"
	"trading-enginev1/internal/indicator"
	"trading-enginev1/internal/ledger"
	"trading-enginev1/internal/metrics"
	"trading-enginev1/internal/model"
	"trading-enginev1/internal/notification"
	"trading-enginev1/internal/regime"
	"trading-enginev1/internal/ringbuf"
	"trading-enginev1/internal/selector"
	"trading-enginev1/internal/signal"
	"trading-enginev1/internal/store/redis"
	"trading-enginev1/internal/store/sqlite"
)

// SessionConfig tunes one strategy session.
type SessionConfig struct {
	StrategyID  string
	Symbols     []string
	WindowSize  int // candles kept per symbol
	MinCandles  int // bars required before the pipeline acts on a symbol
	SlippagePct float64
	Limits      model.RiskLimits
	CacheTTL    time.Duration // advisor decision reuse window
	MCSamples   int           // Monte-Carlo VaR sample count
	Seed        int64         // rng seed; fixed seeds make backtests reproducible
}

// DefaultSessionConfig returns the standard tuning for the given strategy.
func DefaultSessionConfig(strategyID string, symbols []string) SessionConfig {
	return SessionConfig{
		StrategyID:  strategyID,
		Symbols:     symbols,
		WindowSize:  200,
		MinCandles:  30,
		SlippagePct: 0.05,
		Limits:      model.DefaultRiskLimits(),
		CacheTTL:    5 * time.Minute,
		MCSamples:   10000,
		Seed:        1,
	}
}

// Deps are the optional collaborators a session may be wired with. Every
// field may be nil: a bare session (ledger only) still trades.
type Deps struct {
	Advisor    advisor.Advisor
	Metrics    *metrics.Metrics
	Dispatcher *notification.Dispatcher
	Hub        *notification.Hub
	Events     *redis.BufferedWriter
	Journal    *sqlite.Journal
}

// Session is the per-strategy pipeline state. Ticks are processed
// sequentially; Session is not safe for concurrent ProcessCandle calls.
type Session struct {
	cfg  SessionConfig
	deps Deps
	log  *slog.Logger

	ind        *indicator.Engine
	thresholds regime.Thresholds
	generators map[signal.Kind]signal.Generator
	sel        *selector.Selector
	synth      *fastpath.Synthesizer
	arb        *arbiter.Arbiter
	exits      *exits.Controller
	led        *ledger.Ledger
	rng        *rand.Rand

	windows    map[string]*ringbuf.Window
	trackers   map[string]*exits.Tracker
	cache      map[string]cacheEntry
	switchSeen int // selector switch events already reported
}

// NewSession wires a session around an existing ledger.
func NewSession(cfg SessionConfig, led *ledger.Ledger, deps Deps, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("strategy", cfg.StrategyID))

	s := &Session{
		cfg:        cfg,
		deps:       deps,
		log:        log,
		ind:        indicator.NewEngine(indicator.DefaultConfig()),
		thresholds: regime.DefaultThresholds(),
		generators: defaultGenerators(),
		synth:      fastpath.New(fastpath.DefaultConfig()),
		arb:        arbiter.New(arbiter.DefaultConfig(), log),
		exits:      exits.NewController(exits.DefaultBounds()),
		led:        led,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		windows:    make(map[string]*ringbuf.Window, len(cfg.Symbols)),
		trackers:   make(map[string]*exits.Tracker),
		cache:      make(map[string]cacheEntry),
	}
	s.sel = selector.New(selector.DefaultConfig(), perfSource{led}, log)
	return s
}

// Ledger exposes the session's ledger for reporting.
func (s *Session) Ledger() *ledger.Ledger { return s.led }

// Selector exposes the session's selector for switch-event reporting.
func (s *Session) Selector() *selector.Selector { return s.sel }

// Config returns the session configuration.
func (s *Session) Config() SessionConfig { return s.cfg }

// InvalidateCache clears all cached advisor decisions, called when the
// session stops or a position changes out from under the cache.
func (s *Session) InvalidateCache() {
	s.cache = make(map[string]cacheEntry)
}

// perfSource adapts the ledger's per-generator metrics to the selector.
type perfSource struct {
	led *ledger.Ledger
}

func (p perfSource) Performance(kind signal.Kind) selector.Performance {
	return p.led.PerformanceFor(kind)
}

func defaultGenerators() map[signal.Kind]signal.Generator {
	stats := signal.NewZScoreProvider(20)
	gens := []signal.Generator{
		signal.NewTrendFollowing(signal.DefaultTrendConfig()),
		signal.NewMomentum(signal.DefaultMomentumConfig()),
		signal.NewBreakout(signal.DefaultBreakoutConfig()),
		signal.NewGrid(signal.DefaultGridConfig()),
		signal.NewMeanReversion(signal.DefaultMeanRevConfig(), stats),
		signal.NewArbitrage(signal.DefaultMeanRevConfig(), stats),
	}
	byKind := make(map[signal.Kind]signal.Generator, len(gens))
	for _, g := range gens {
		byKind[g.Kind()] = g
	}
	return byKind
}

func (s *Session) window(symbol string) *ringbuf.Window {
	w, ok := s.windows[symbol]
	if !ok {
		w = ringbuf.NewWindow(s.cfg.WindowSize)
		s.windows[symbol] = w
	}
	return w
}
