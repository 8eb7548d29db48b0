package risk

import "trading-enginev1/internal/model"

// Small-account floors: below these equity levels fixed fees dominate tiny
// trades, so sizing is forced up to a minimum percentage and notional.
const (
	microEquity      = 10.0
	smallEquity      = 100.0
	microMinPct      = 10.0
	smallMinPct      = 5.0
	minTradeNotional = 0.50
	smallAccountCap  = 20.0 // safety ceiling for boosted small-account sizes
)

// Kelly returns the Kelly fraction as a percent of equity, clamped to
// [0, capPct]. payoffRatio is avg win / avg |loss|.
func Kelly(winRate, payoffRatio, capPct float64) float64 {
	if payoffRatio <= 0 {
		payoffRatio = 1
	}
	f := winRate - (1-winRate)/payoffRatio
	if f < 0 {
		return 0
	}
	f *= 100
	if capPct > 0 && f > capPct {
		return capPct
	}
	return f
}

// Size resolves the final position size percentage for a decision: the
// requested size capped by the Kelly fraction and the position limit, then
// lifted by the small-account floors.
func Size(requestedPct float64, mc *model.MarketContext) float64 {
	limits := mc.Limits
	pct := requestedPct

	if limits.KellyFractionCapPct > 0 && mc.Perf.TotalTrades > 0 {
		kelly := Kelly(mc.Perf.WinRate, mc.Perf.PayoffRatio(), limits.KellyFractionCapPct)
		if kelly > 0 && pct > kelly {
			pct = kelly
		}
	}

	if pct > limits.MaxPositionPct {
		pct = limits.MaxPositionPct
	}
	if pct < 0 {
		pct = 0
	}

	// Small-account floors, then the safety ceiling.
	if mc.Equity < smallEquity && pct > 0 {
		floor := smallMinPct
		if mc.Equity < microEquity {
			floor = microMinPct
		}
		if pct < floor {
			pct = floor
		}
		if mc.Equity > 0 {
			if minPct := minTradeNotional / mc.Equity * 100; pct < minPct {
				pct = minPct
			}
		}
		if pct > smallAccountCap {
			pct = smallAccountCap
		}
	}

	return pct
}
