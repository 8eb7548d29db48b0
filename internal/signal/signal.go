// Package signal provides the rule-based signal generators.
//
// A Generator inspects the immutable per-tick market context and either
// proposes a Decision or returns nil for "no opinion". Nil is distinct from an
// explicit flat Decision: a generator with unmet preconditions abstains
// rather than voting against a position. Generators never return errors.
package signal

import (
	"trading-enginev1/internal/model"
	"trading-enginev1/internal/regime"
)

// Kind labels a generator's style for regime-aware routing.
type Kind string

const (
	KindTrend         Kind = "trend_following"
	KindMomentum      Kind = "momentum"
	KindBreakout      Kind = "breakout"
	KindGrid          Kind = "grid"
	KindMeanReversion Kind = "mean_reversion"
	KindArbitrage     Kind = "arbitrage"
)

// Input is everything a generator may consult for one tick.
type Input struct {
	Ctx    *model.MarketContext
	Regime regime.Regime
}

// Generator is the interface all signal generators implement.
type Generator interface {
	// Name returns the unique generator name.
	Name() string

	// Kind returns the routing kind for the strategy selector.
	Kind() Kind

	// Evaluate returns a Decision, or nil when the generator has no opinion
	// (insufficient history or unmet entry conditions).
	Evaluate(in Input) *model.Decision
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
