package indicator

import (
	"math"

	"trading-enginev1/internal/model"
)

// highLow returns the highest high and lowest low over the last period candles.
func highLow(candles []model.Candle, period int) (high, low float64) {
	start := len(candles) - period
	if start < 0 {
		start = 0
	}
	window := candles[start:]
	high, low = window[0].High, window[0].Low
	for _, c := range window[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}

// Stochastic computes %K over period candles and %D as a smooth-period SMA of
// %K. Windows shorter than period yield the neutral 50/50.
func Stochastic(candles []model.Candle, period, smooth int) (k, d float64) {
	if period <= 0 || len(candles) < period {
		return 50, 50
	}

	kAt := func(end int) float64 {
		high, low := highLow(candles[:end], period)
		if high == low {
			return 50
		}
		return (candles[end-1].Close - low) / (high - low) * 100
	}

	k = kAt(len(candles))

	if smooth <= 1 || len(candles) < period+smooth-1 {
		return k, k
	}
	sum := 0.0
	for i := 0; i < smooth; i++ {
		sum += kAt(len(candles) - i)
	}
	return k, sum / float64(smooth)
}

// WilliamsR computes Williams %R over the last period candles, in [-100, 0].
// Insufficient history yields the neutral -50.
func WilliamsR(candles []model.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return -50
	}
	high, low := highLow(candles, period)
	if high == low {
		return -50
	}
	return (high - candles[len(candles)-1].Close) / (high - low) * -100
}

// CCI computes the Commodity Channel Index over the last period candles using
// typical price and mean deviation. Insufficient history yields the neutral 0.
func CCI(candles []model.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}
	window := candles[len(candles)-period:]
	tp := make([]float64, len(window))
	sum := 0.0
	for i, c := range window {
		tp[i] = (c.High + c.Low + c.Close) / 3
		sum += tp[i]
	}
	mean := sum / float64(period)
	meanDev := 0.0
	for _, v := range tp {
		meanDev += math.Abs(v - mean)
	}
	meanDev /= float64(period)
	if meanDev == 0 {
		return 0
	}
	return (tp[len(tp)-1] - mean) / (0.015 * meanDev)
}

// ADX computes a simplified Average Directional Index: directional movement
// and true range summed over the period, then DX from the DI spread.
// Fewer than period+1 candles yields the neutral 25.
func ADX(candles []model.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 25
	}

	start := len(candles) - period
	var plusDM, minusDM, trSum float64
	for i := start; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM += upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM += downMove
		}
		trSum += TrueRange(candles, i)
	}
	if trSum == 0 {
		return 25
	}

	plusDI := plusDM / trSum * 100
	minusDI := minusDM / trSum * 100
	if plusDI+minusDI == 0 {
		return 25
	}
	return math.Abs(plusDI-minusDI) / (plusDI + minusDI) * 100
}
