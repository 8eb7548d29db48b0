package model

// MarketContext is the immutable per-tick view handed to generators, the
// synthesizer, the arbiter, and the risk engine. It is built once at the top
// of a tick and never mutated while the decision pipeline runs.
type MarketContext struct {
	Symbol     string             `json:"symbol"`
	Candles    []Candle           `json:"candles"` // bounded recent window, oldest first
	Indicators IndicatorSet       `json:"indicators"`
	Position   *Position          `json:"position,omitempty"` // open position for this symbol, if any
	Exposure   float64            `json:"exposure"`           // total open notional across symbols (quote)
	Perf       PerformanceMetrics `json:"perf"`
	Limits     RiskLimits         `json:"limits"`
	Equity     float64            `json:"equity"`
	DailyPnL   float64            `json:"daily_pnl"`
}

// Price returns the latest close, or 0 on an empty window.
func (mc *MarketContext) Price() float64 {
	if len(mc.Candles) == 0 {
		return 0
	}
	return mc.Candles[len(mc.Candles)-1].Close
}
