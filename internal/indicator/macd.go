package indicator

// MACDResult carries the MACD line, its signal line, and the histogram.
type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD computes EMA(fast)-EMA(slow) with an EMA(signalPeriod) of the MACD
// series as signal. Windows shorter than slow+signalPeriod degrade gracefully:
// the signal collapses toward the line and the histogram toward 0.
func MACD(closes []float64, fast, slow, signalPeriod int) MACDResult {
	if len(closes) < slow || fast <= 0 || slow <= 0 {
		return MACDResult{}
	}

	fastSeries := emaSeries(closes, fast)
	slowSeries := emaSeries(closes, slow)

	// Align the two series on the slow tail.
	n := len(slowSeries)
	macdSeries := make([]float64, n)
	offset := len(fastSeries) - n
	for i := 0; i < n; i++ {
		macdSeries[i] = fastSeries[i+offset] - slowSeries[i]
	}

	line := macdSeries[n-1]
	signal := line
	if signalPeriod > 0 && n >= signalPeriod {
		signal = EMA(macdSeries, signalPeriod)
	}
	return MACDResult{
		Line:      line,
		Signal:    signal,
		Histogram: line - signal,
	}
}
