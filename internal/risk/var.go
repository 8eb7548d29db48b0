package risk

import (
	"math"
	"math/rand"
	"sort"
)

// VaR returns the historical Value at Risk at the given confidence as a
// positive percentage: the magnitude of the (1-confidence) quantile of the
// return distribution. Empty history yields 0.
func VaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - confidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	q := sorted[idx]
	if q >= 0 {
		return 0
	}
	return -q
}

// CVaR returns the historical Conditional VaR: the mean of returns at or
// below the (1-confidence) quantile, as a positive percentage.
func CVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - confidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	sum := 0.0
	n := 0
	for i := 0; i <= idx; i++ {
		sum += sorted[i]
		n++
	}
	mean := sum / float64(n)
	if mean >= 0 {
		return 0
	}
	return -mean
}

// MonteCarloCVaR estimates CVaR by resampling n normal draws (Box-Muller)
// from the sample mean and stddev, then averaging the tail. More robust than
// the historical estimate when the observed history is sparse. The rng is
// injected so backtests stay deterministic.
func MonteCarloCVaR(returns []float64, confidence float64, n int, rng *rand.Rand) float64 {
	if len(returns) < 2 || n <= 0 {
		return CVaR(returns, confidence)
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	stddev := math.Sqrt(variance)

	draws := make([]float64, n)
	for i := 0; i < n; i += 2 {
		// Box-Muller transform: two uniforms → two independent normals.
		u1 := rng.Float64()
		for u1 == 0 {
			u1 = rng.Float64()
		}
		u2 := rng.Float64()
		r := math.Sqrt(-2 * math.Log(u1))
		draws[i] = mean + stddev*r*math.Cos(2*math.Pi*u2)
		if i+1 < n {
			draws[i+1] = mean + stddev*r*math.Sin(2*math.Pi*u2)
		}
	}

	return CVaR(draws, confidence)
}
