// Package risk provides the stateless risk checks, position sizing, and
// tail-risk (VaR/CVaR) calculations that gate every decision before it can
// touch the ledger.
//
// Policy violations are values, not errors: every check returns an explicit
// allow/deny with the first failing reason, evaluated in a fixed order.
package risk

import (
	"fmt"
	"math"

	"trading-enginev1/internal/model"
)

// Verdict is the result of the ordered risk checks. Rule carries the short
// machine-readable name of the failing check for metrics labels.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Rule    string `json:"rule,omitempty"`
	Reason  string `json:"reason,omitempty"` // first failing check
}

func deny(rule, format string, args ...any) Verdict {
	return Verdict{Allowed: false, Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

var allowed = Verdict{Allowed: true}

// Check runs the ordered risk checks for a proposed trade. notional is the
// new trade's quote value; returns is the per-trade return history used for
// the VaR gate (may be empty). The first failing check wins:
// circuit breaker → daily loss → position size → total exposure → leverage →
// drawdown → tail risk.
func Check(d *model.Decision, notional float64, mc *model.MarketContext, returns []float64) Verdict {
	limits := mc.Limits
	equity := mc.Equity
	if equity <= 0 {
		return deny("equity", "no equity")
	}
	flat := d == nil || d.Action == model.ActionFlat

	// Circuit breaker halts everything non-flat, win or lose.
	if math.Abs(mc.DailyPnL)/equity*100 >= limits.CircuitBreakerPct && !flat {
		return deny("circuit_breaker", "circuit breaker tripped: |daily pnl| %.2f%% >= %.2f%%",
			math.Abs(mc.DailyPnL)/equity*100, limits.CircuitBreakerPct)
	}

	if -mc.DailyPnL/equity*100 >= limits.MaxDailyLossPct && !flat {
		return deny("daily_loss", "daily loss limit reached: %.2f%% >= %.2f%%",
			-mc.DailyPnL/equity*100, limits.MaxDailyLossPct)
	}

	if flat {
		return allowed // closing or holding is always permitted past here
	}

	if notional/equity*100 > limits.MaxPositionPct {
		return deny("position_size", "position size %.2f%% exceeds %.2f%% limit",
			notional/equity*100, limits.MaxPositionPct)
	}

	totalExposure := mc.Exposure + notional
	if totalExposure/equity*100 > 2*limits.MaxPositionPct {
		return deny("exposure", "total exposure %.2f%% exceeds %.2f%% limit",
			totalExposure/equity*100, 2*limits.MaxPositionPct)
	}

	if limits.MaxLeverage > 0 && totalExposure/equity > limits.MaxLeverage {
		return deny("leverage", "leverage %.2fx exceeds %.2fx limit",
			totalExposure/equity, limits.MaxLeverage)
	}

	if mc.Perf.MaxDrawdown > limits.MaxDrawdownPct {
		return deny("drawdown", "drawdown %.2f%% exceeds %.2f%% limit",
			mc.Perf.MaxDrawdown, limits.MaxDrawdownPct)
	}

	if limits.MaxPortfolioVaRPct > 0 && len(returns) > 0 {
		v := VaR(returns, limits.VaRConfidence)
		if v > limits.MaxPortfolioVaRPct {
			return deny("var", "VaR %.2f%% exceeds %.2f%% limit", v, limits.MaxPortfolioVaRPct)
		}
	}

	return allowed
}
