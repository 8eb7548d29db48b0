package signal

import (
	cinar "github.com/cinar/indicator"

	"trading-enginev1/internal/model"
)

// StatsSignal is an externally computed statistical view of a symbol:
// deviation from its rolling mean (in standard deviations, signed) and an
// optional cross-venue edge in %. Providers fill in what they know; an
// arbitrage feed may supply only Edge.
type StatsSignal struct {
	Deviation float64 // z-score of last close vs rolling mean
	Edge      float64 // cross-venue price edge in % (0 when unknown)
}

// StatsProvider supplies statistical signals for the mean-reversion and
// arbitrage generators. ok=false means no signal is available this tick.
type StatsProvider interface {
	Stats(candles []model.Candle) (sig StatsSignal, ok bool)
}

// ZScoreProvider computes the deviation signal from the candle window itself
// using rolling mean and standard deviation.
type ZScoreProvider struct {
	Period int
}

// NewZScoreProvider creates a provider with the given rolling period
// (20 when non-positive).
func NewZScoreProvider(period int) *ZScoreProvider {
	if period <= 0 {
		period = 20
	}
	return &ZScoreProvider{Period: period}
}

// Stats returns the z-score of the last close against the Period-bar mean.
func (p *ZScoreProvider) Stats(candles []model.Candle) (StatsSignal, bool) {
	if len(candles) < p.Period {
		return StatsSignal{}, false
	}
	closes := model.Closes(candles)
	means := cinar.Sma(p.Period, closes)
	stds := cinar.Std(p.Period, closes)

	last := len(closes) - 1
	if stds[last] == 0 {
		return StatsSignal{}, false
	}
	return StatsSignal{
		Deviation: (closes[last] - means[last]) / stds[last],
	}, true
}
