// Package selector routes each tick to the signal generator best suited to
// the current regime, demoting generators whose recent performance falls
// below the quality bar.
package selector

import (
	"log/slog"
	"sync"
	"time"

	"trading-enginev1/internal/regime"
	"trading-enginev1/internal/signal"
)

// Performance is the rolling per-generator record the selector routes on.
type Performance struct {
	Trades    int
	WinRate   float64 // [0,1]
	AvgReturn float64 // mean per-trade return %
	Sharpe    float64 // Sharpe proxy over per-trade returns
}

// SwitchEvent records one underperformance-driven rerouting.
type SwitchEvent struct {
	From   signal.Kind   `json:"from"`
	To     signal.Kind   `json:"to"`
	Regime regime.Regime `json:"regime"`
	At     time.Time     `json:"at"`
}

// Config tunes the selector's quality bars.
type Config struct {
	MinSamples    int     // trades before performance is trusted
	MinSharpe     float64 // below this (with samples) the generator is demoted
	ArbSharpeBar  float64 // Sharpe an arbitrage edge must clear in choppy markets
}

// DefaultConfig returns the standard bars.
func DefaultConfig() Config {
	return Config{
		MinSamples:   10,
		MinSharpe:    0.5,
		ArbSharpeBar: 1.0,
	}
}

// PerfSource supplies rolling performance per generator kind.
type PerfSource interface {
	Performance(kind signal.Kind) Performance
}

// Selector owns the regime → generator routing table.
type Selector struct {
	mu       sync.Mutex
	cfg      Config
	perf     PerfSource
	switches []SwitchEvent
	log      *slog.Logger
}

// New creates a selector reading performance from src.
func New(cfg Config, src PerfSource, log *slog.Logger) *Selector {
	if log == nil {
		log = slog.Default()
	}
	return &Selector{cfg: cfg, perf: src, log: log}
}

// Select returns the generator kind to trust for this regime, or ok=false
// when no generator qualifies (choppy or high-volatility markets without a
// proven arbitrage edge sit out).
func (s *Selector) Select(r regime.Regime) (signal.Kind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var primary, alternate signal.Kind
	switch {
	case r.Trend == regime.Choppy || r.Volatility == regime.VolHigh:
		// Only a demonstrated arbitrage edge trades these conditions.
		p := s.perf.Performance(signal.KindArbitrage)
		if p.Trades >= s.cfg.MinSamples && p.Sharpe > s.cfg.ArbSharpeBar {
			return signal.KindArbitrage, true
		}
		return "", false
	case r.Trend == regime.Trending:
		primary, alternate = s.betterSharpe(signal.KindTrend, signal.KindMomentum)
	default: // ranging
		primary, alternate = s.betterSharpe(signal.KindMeanReversion, signal.KindGrid)
	}

	if s.underperforming(primary) {
		if s.underperforming(alternate) {
			return "", false
		}
		s.switches = append(s.switches, SwitchEvent{
			From:   primary,
			To:     alternate,
			Regime: r,
			At:     time.Now().UTC(),
		})
		s.log.Info("selector switch",
			slog.String("from", string(primary)),
			slog.String("to", string(alternate)),
			slog.String("trend", string(r.Trend)))
		return alternate, true
	}
	return primary, true
}

// betterSharpe orders the pair by Sharpe, untested generators first kept in
// their given order.
func (s *Selector) betterSharpe(a, b signal.Kind) (signal.Kind, signal.Kind) {
	pa, pb := s.perf.Performance(a), s.perf.Performance(b)
	if pa.Trades >= s.cfg.MinSamples && pb.Trades >= s.cfg.MinSamples && pb.Sharpe > pa.Sharpe {
		return b, a
	}
	return a, b
}

// underperforming reports whether the kind has enough samples and is below
// the quality bar (low Sharpe or negative average return).
func (s *Selector) underperforming(kind signal.Kind) bool {
	p := s.perf.Performance(kind)
	if p.Trades < s.cfg.MinSamples {
		return false
	}
	return p.Sharpe < s.cfg.MinSharpe || p.AvgReturn < 0
}

// Switches returns a copy of the recorded switch events.
func (s *Selector) Switches() []SwitchEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SwitchEvent, len(s.switches))
	copy(out, s.switches)
	return out
}
