package indicator

import (
	"math"

	"trading-enginev1/internal/model"
)

// TrueRange returns the true range of candle at index i, using the previous
// close when one exists.
func TrueRange(candles []model.Candle, i int) float64 {
	c := candles[i]
	hl := c.High - c.Low
	if i == 0 {
		return hl
	}
	prevClose := candles[i-1].Close
	return math.Max(hl, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
}

// ATR calculates the Average True Range as a simple mean of the last period
// true ranges. Fewer than two candles yields 0.
func ATR(candles []model.Candle, period int) float64 {
	if len(candles) < 2 || period <= 0 {
		return 0
	}
	start := len(candles) - period
	if start < 1 {
		start = 1
	}
	sum := 0.0
	n := 0
	for i := start; i < len(candles); i++ {
		sum += TrueRange(candles, i)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
