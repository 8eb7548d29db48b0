package indicator

import "trading-enginev1/internal/model"

// Momentum returns the rate of change over period bars as a percentage.
// Insufficient history yields the neutral 0.
func Momentum(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 0
	}
	base := closes[len(closes)-1-period]
	if base == 0 {
		return 0
	}
	return (closes[len(closes)-1] - base) / base * 100
}

// Levels returns support (lowest low) and resistance (highest high) over the
// last lookback candles. An empty window yields 0/0.
func Levels(candles []model.Candle, lookback int) (support, resistance float64) {
	if len(candles) == 0 || lookback <= 0 {
		return 0, 0
	}
	resistance, support = highLow(candles, lookback)
	return support, resistance
}

// TrendStrength returns the fraction of the last period closes sitting on the
// dominant side of the period SMA, in [0.5, 1]. Insufficient history yields
// the neutral 0.5.
func TrendStrength(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0.5
	}
	window := closes[len(closes)-period:]
	sma := SMA(window, period)
	above := 0
	for _, c := range window {
		if c > sma {
			above++
		}
	}
	frac := float64(above) / float64(period)
	if frac < 0.5 {
		frac = 1 - frac
	}
	return frac
}

// VolumeAvg returns the mean volume over the last period candles.
func VolumeAvg(candles []model.Candle, period int) float64 {
	if len(candles) == 0 || period <= 0 {
		return 0
	}
	start := len(candles) - period
	if start < 0 {
		start = 0
	}
	window := candles[start:]
	sum := 0.0
	for _, c := range window {
		sum += c.Volume
	}
	return sum / float64(len(window))
}
