// Package regime classifies recent market behavior into coarse trend,
// volatility, and RSI regimes. Classification is a pure function of the
// indicator set: same inputs always yield the same regime.
package regime

import (
	"math"

	"trading-enginev1/internal/model"
)

// Trend is the coarse trend regime.
type Trend string

const (
	Trending Trend = "trending"
	Ranging  Trend = "ranging"
	Choppy   Trend = "choppy"
)

// Volatility is the coarse volatility regime.
type Volatility string

const (
	VolLow    Volatility = "low"
	VolMedium Volatility = "medium"
	VolHigh   Volatility = "high"
)

// RSIZone is the coarse RSI regime.
type RSIZone string

const (
	Oversold   RSIZone = "oversold"
	Neutral    RSIZone = "neutral"
	Overbought RSIZone = "overbought"
)

// Regime is the combined classification for one tick.
type Regime struct {
	Trend      Trend      `json:"trend"`
	Volatility Volatility `json:"volatility"`
	RSI        RSIZone    `json:"rsi"`
}

// String renders the regime as "trend/volatility/rsi" for logs and storage.
func (r Regime) String() string {
	return string(r.Trend) + "/" + string(r.Volatility) + "/" + string(r.RSI)
}

// Thresholds controls the classification boundaries.
type Thresholds struct {
	ADXTrending   float64 // ADX at/above which the market counts as directional
	EMASepPct     float64 // EMA/SMA separation (% of price) confirming a trend
	ATRPctLow     float64 // ATR% below which volatility is low
	ATRPctHigh    float64 // ATR% at/above which volatility is high
	RSIOversold   float64
	RSIOverbought float64
}

// DefaultThresholds returns the standard boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ADXTrending:   25,
		EMASepPct:     0.5,
		ATRPctLow:     0.5,
		ATRPctHigh:    2.0,
		RSIOversold:   30,
		RSIOverbought: 70,
	}
}

// Classify derives the regime from the indicator set.
//
// Trend: EMA fast/slow separation above EMASepPct of price together with
// ADX ≥ ADXTrending means trending; a directional ADX without separation (or
// separation without ADX) means choppy; neither means ranging.
func Classify(ind model.IndicatorSet, th Thresholds) Regime {
	r := Regime{Trend: Ranging, Volatility: VolMedium, RSI: Neutral}

	sepPct := 0.0
	if ind.LastClose > 0 {
		sepPct = math.Abs(ind.EMAFast-ind.EMASlow) / ind.LastClose * 100
	}
	separated := sepPct >= th.EMASepPct
	directional := ind.ADX >= th.ADXTrending
	switch {
	case separated && directional:
		r.Trend = Trending
	case separated != directional:
		r.Trend = Choppy
	}

	switch {
	case ind.ATRPct >= th.ATRPctHigh:
		r.Volatility = VolHigh
	case ind.ATRPct < th.ATRPctLow:
		r.Volatility = VolLow
	}

	switch {
	case ind.RSI <= th.RSIOversold:
		r.RSI = Oversold
	case ind.RSI >= th.RSIOverbought:
		r.RSI = Overbought
	}

	return r
}
