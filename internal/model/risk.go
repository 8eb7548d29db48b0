package model

// RiskLimits defines configurable risk management thresholds.
// All *Pct fields are percentages (0-100) unless noted.
type RiskLimits struct {
	MaxPositionPct           float64 `json:"max_position_pct"`            // max single-position notional as % of equity
	MaxDailyLossPct          float64 `json:"max_daily_loss_pct"`          // max daily loss as % of equity
	StopLossPct              float64 `json:"stop_loss_pct"`               // base stop-loss distance
	TakeProfitPct            float64 `json:"take_profit_pct"`             // base take-profit distance
	TrailingStopPct          float64 `json:"trailing_stop_pct"`           // retrace from favorable extreme
	TrailingStopActivationPct float64 `json:"trailing_stop_activation_pct"` // gain required before trailing arms
	MaxDrawdownPct           float64 `json:"max_drawdown_pct"`            // max peak-to-trough drawdown
	MaxLeverage              float64 `json:"max_leverage"`                // total exposure / equity
	CircuitBreakerPct        float64 `json:"circuit_breaker_pct"`         // |daily pnl| / equity halting level
	MaxPortfolioVaRPct       float64 `json:"max_portfolio_var_pct"`       // VaR ceiling at VaRConfidence
	VaRConfidence            float64 `json:"var_confidence"`              // e.g. 0.95
	KellyFractionCapPct      float64 `json:"kelly_fraction_cap_pct"`      // ceiling for Kelly sizing
}

// DefaultRiskLimits returns conservative default limits.
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxPositionPct:            10,
		MaxDailyLossPct:           5,
		StopLossPct:               2,
		TakeProfitPct:             4,
		TrailingStopPct:           1.5,
		TrailingStopActivationPct: 2,
		MaxDrawdownPct:            15,
		MaxLeverage:               2,
		CircuitBreakerPct:         8,
		MaxPortfolioVaRPct:        5,
		VaRConfidence:             0.95,
		KellyFractionCapPct:       25,
	}
}

// PerformanceMetrics is the rolling per-strategy performance snapshot,
// recomputed from the ledger's trade log each tick.
type PerformanceMetrics struct {
	RealizedPnL   float64 `json:"realized_pnl"`
	MaxDrawdown   float64 `json:"max_drawdown"` // percentage, peak-to-trough
	WinRate       float64 `json:"win_rate"`     // [0,1]
	Sharpe        float64 `json:"sharpe"`
	AvgReturn     float64 `json:"avg_return"` // mean per-trade return pct
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	AvgWin        float64 `json:"avg_win"`  // mean winning pnl (quote)
	AvgLoss       float64 `json:"avg_loss"` // mean |losing pnl| (quote)
}

// PayoffRatio returns avg win / avg |loss|, defaulting to 1 when no losses
// have been observed yet.
func (m *PerformanceMetrics) PayoffRatio() float64 {
	if m.AvgLoss <= 0 {
		return 1
	}
	return m.AvgWin / m.AvgLoss
}
