package indicator

// Bands holds Bollinger band levels.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger computes SMA ± k·stddev bands over the last period closes.
// With fewer than period closes all three bands collapse to the last close.
func Bollinger(closes []float64, period int, k float64) Bands {
	if len(closes) == 0 {
		return Bands{}
	}
	last := closes[len(closes)-1]
	if period <= 0 || len(closes) < period {
		return Bands{Upper: last, Middle: last, Lower: last}
	}
	mid := SMA(closes, period)
	dev := StdDev(closes, period) * k
	return Bands{Upper: mid + dev, Middle: mid, Lower: mid - dev}
}
