package indicator

import "math"

// SMA returns the simple moving average of the last period values.
// With fewer than period values it averages what exists; an empty series
// yields 0.
func SMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}
	if len(values) < period {
		period = len(values)
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average of the series, seeded with the
// SMA of the first period values. With fewer than period values it degrades
// to the SMA of the whole series.
func EMA(values []float64, period int) float64 {
	series := emaSeries(values, period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// emaSeries computes the EMA at every index from period-1 onward. The
// returned slice is aligned to values[period-1:]. Short input degrades to a
// single SMA value.
func emaSeries(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	if len(values) < period {
		return []float64{SMA(values, len(values))}
	}
	k := 2.0 / (float64(period) + 1.0)
	out := make([]float64, 0, len(values)-period+1)
	ema := SMA(values[:period], period)
	out = append(out, ema)
	for _, v := range values[period:] {
		ema = v*k + ema*(1-k)
		out = append(out, ema)
	}
	return out
}

// StdDev returns the population standard deviation of the last period values.
func StdDev(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}
	if len(values) < period {
		period = len(values)
	}
	window := values[len(values)-period:]
	mean := SMA(window, period)
	ss := 0.0
	for _, v := range window {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(period))
}
