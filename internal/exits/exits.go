// Package exits computes per-position dynamic stop-loss, take-profit, and
// trailing-stop targets, adjusted multiplicatively for the current regime and
// clamped to configured bounds. Checks are pure given position state, price,
// and the tracked favorable extreme, so re-evaluating an unchanged tick is
// idempotent.
package exits

import (
	"fmt"
	"math"

	"trading-enginev1/internal/model"
	"trading-enginev1/internal/regime"
)

// Bounds clamps the effective exit distances.
type Bounds struct {
	MinStopLossPct   float64
	MaxStopLossPct   float64
	MinTakeProfitPct float64
	MaxTakeProfitPct float64
}

// DefaultBounds returns the standard clamp range.
func DefaultBounds() Bounds {
	return Bounds{
		MinStopLossPct:   0.5,
		MaxStopLossPct:   10,
		MinTakeProfitPct: 1,
		MaxTakeProfitPct: 20,
	}
}

// Targets are the effective exit distances for one position, in %.
type Targets struct {
	StopLossPct      float64 `json:"stop_loss_pct"`
	TakeProfitPct    float64 `json:"take_profit_pct"`
	TrailingStopPct  float64 `json:"trailing_stop_pct"`
	ActivationPct    float64 `json:"activation_pct"` // gain required before trailing arms
}

// Trigger names why a position should close.
type Trigger string

const (
	TriggerNone       Trigger = ""
	TriggerStopLoss   Trigger = "stop_loss"
	TriggerTakeProfit Trigger = "take_profit"
	TriggerTrailing   Trigger = "trailing_stop"
)

// Controller derives exit targets and evaluates them each tick.
type Controller struct {
	bounds Bounds

	// Fraction of take-profit exits that hit early; above 0.7 the controller
	// widens future take-profits. Fed back by the ledger, optional.
	earlyTPRate float64
}

// NewController creates a controller with the given clamp bounds.
func NewController(bounds Bounds) *Controller {
	return &Controller{bounds: bounds}
}

// SetEarlyTPRate records the observed early take-profit hit rate in [0,1].
func (c *Controller) SetEarlyTPRate(rate float64) {
	c.earlyTPRate = rate
}

// Targets computes the effective exit distances for the regime: trends let
// winners run on tighter stops, ranges take profit sooner, volatility widens
// everything.
func (c *Controller) Targets(limits model.RiskLimits, ind model.IndicatorSet, r regime.Regime) Targets {
	t := Targets{
		StopLossPct:     limits.StopLossPct,
		TakeProfitPct:   limits.TakeProfitPct,
		TrailingStopPct: limits.TrailingStopPct,
		ActivationPct:   limits.TrailingStopActivationPct,
	}

	trendStrength := math.Min(ind.ADX/50, 1)
	switch {
	case r.Trend == regime.Trending && trendStrength > 0.6:
		t.TakeProfitPct *= 1.5
		t.StopLossPct *= 0.75
		t.ActivationPct *= 1.5
		t.TrailingStopPct *= 1.2
	case r.Trend == regime.Ranging:
		t.TakeProfitPct *= 0.8
		t.StopLossPct *= 1.2
	}

	if r.Volatility == regime.VolHigh || ind.ATRPct > 2 {
		t.TakeProfitPct *= 1.25
		t.StopLossPct *= 1.25
	} else if r.Volatility == regime.VolLow {
		t.TakeProfitPct *= 0.9
		t.StopLossPct *= 0.9
	}

	if c.earlyTPRate > 0.7 {
		t.TakeProfitPct *= 1.2
	}

	t.StopLossPct = clamp(t.StopLossPct, c.bounds.MinStopLossPct, c.bounds.MaxStopLossPct)
	t.TakeProfitPct = clamp(t.TakeProfitPct, c.bounds.MinTakeProfitPct, c.bounds.MaxTakeProfitPct)
	return t
}

// Tracker follows a position's favorable price extreme for trailing stops.
// One tracker lives per open position; it is cleared on close.
type Tracker struct {
	Extreme float64 `json:"extreme"` // best price seen, 0 until first update
	Armed   bool    `json:"armed"`   // activation threshold crossed
}

// Update advances the tracker with the latest price and reports whether
// the trailing stop should fire.
func (tr *Tracker) Update(pos *model.Position, price float64, t Targets) bool {
	if pos == nil || price <= 0 {
		return false
	}

	favorable := price
	better := func(a, b float64) bool { return a > b }
	if pos.Side == model.SideShort {
		better = func(a, b float64) bool { return a < b }
	}
	if tr.Extreme == 0 || better(favorable, tr.Extreme) {
		tr.Extreme = favorable
	}

	gainPct := pos.UnrealizedPnL(tr.Extreme) / pos.Notional() * 100
	if gainPct >= t.ActivationPct {
		tr.Armed = true
	}
	if !tr.Armed {
		return false
	}

	retracePct := math.Abs(price-tr.Extreme) / tr.Extreme * 100
	moved := (pos.Side == model.SideLong && price < tr.Extreme) ||
		(pos.Side == model.SideShort && price > tr.Extreme)
	return moved && retracePct >= t.TrailingStopPct
}

// Evaluate checks a position against its targets at the given price.
// Returns the trigger (if any) and the signed P&L% that was observed.
func (c *Controller) Evaluate(pos *model.Position, price float64, t Targets, tr *Tracker) (Trigger, float64) {
	if pos == nil || price <= 0 || pos.Notional() == 0 {
		return TriggerNone, 0
	}

	pnlPct := pos.UnrealizedPnL(price) / pos.Notional() * 100

	if pnlPct <= -t.StopLossPct {
		return TriggerStopLoss, pnlPct
	}
	if pnlPct >= t.TakeProfitPct {
		return TriggerTakeProfit, pnlPct
	}
	if tr != nil && tr.Update(pos, price, t) {
		return TriggerTrailing, pnlPct
	}
	return TriggerNone, pnlPct
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// String implements fmt.Stringer for logging.
func (t Targets) String() string {
	return fmt.Sprintf("sl=%.2f%% tp=%.2f%% trail=%.2f%%@%.2f%%",
		t.StopLossPct, t.TakeProfitPct, t.TrailingStopPct, t.ActivationPct)
}
