package ledger

import (
	"math"

	"trading-enginev1/internal/model"
	"trading-enginev1/internal/selector"
	"trading-enginev1/internal/signal"
)

// Performance recomputes the strategy's metrics from the closed-trade log.
func (l *Ledger) Performance() model.PerformanceMetrics {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return computeMetrics(l.trades, l.initialEquity)
}

// Performance implements selector.PerfSource: rolling metrics for the trades
// a single generator kind produced.
func (l *Ledger) PerformanceFor(kind signal.Kind) selector.Performance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var subset []model.Trade
	for _, t := range l.trades {
		if t.Source == string(kind) {
			subset = append(subset, t)
		}
	}
	m := computeMetrics(subset, l.initialEquity)
	return selector.Performance{
		Trades:    m.TotalTrades,
		WinRate:   m.WinRate,
		AvgReturn: m.AvgReturn,
		Sharpe:    m.Sharpe,
	}
}

// computeMetrics derives the full metric set from a trade slice.
func computeMetrics(trades []model.Trade, initialEquity float64) model.PerformanceMetrics {
	m := model.PerformanceMetrics{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return m
	}

	var winSum, lossSum float64
	returns := make([]float64, len(trades))
	equity := initialEquity
	peak := initialEquity
	for i, t := range trades {
		m.RealizedPnL += t.PnL
		returns[i] = t.PnLPct
		if t.PnL > 0 {
			m.WinningTrades++
			winSum += t.PnL
		} else if t.PnL < 0 {
			m.LosingTrades++
			lossSum += -t.PnL
		}

		// Drawdown over the realized equity curve.
		equity += t.PnL
		if equity > peak {
			peak = equity
		} else if peak > 0 {
			if dd := (peak - equity) / peak * 100; dd > m.MaxDrawdown {
				m.MaxDrawdown = dd
			}
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	if m.WinningTrades > 0 {
		m.AvgWin = winSum / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = lossSum / float64(m.LosingTrades)
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	m.AvgReturn = mean

	if len(returns) > 1 {
		variance := 0.0
		for _, r := range returns {
			d := r - mean
			variance += d * d
		}
		variance /= float64(len(returns) - 1)
		if stddev := math.Sqrt(variance); stddev > 0 {
			m.Sharpe = mean / stddev
		}
	}
	return m
}
