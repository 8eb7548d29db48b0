// Package fastpath provides the deterministic scalar-scoring decision
// synthesizer. It is the floor under the rule-based generators and the
// fallback when the external advisor is unavailable: pure arithmetic over
// the indicator set, no I/O, no randomness.
package fastpath

import (
	"fmt"
	"math"

	"trading-enginev1/internal/model"
	"trading-enginev1/internal/regime"
)

// Config tunes the scoring weights and thresholds.
type Config struct {
	TrendWeight     float64 // short vs long MA separation
	RSIWeight       float64 // RSI zone alignment
	MACDWeight      float64 // histogram agreement
	BollingerWeight float64 // band position vs regime
	MomentumWeight  float64 // short-horizon rate of change

	// Regime-dependent minimum |score| to act at all.
	TrendingThreshold float64
	RangingThreshold  float64
	ChoppyThreshold   float64

	ConfidenceFloor float64 // decisions below this degrade to flat
	BaseSizePct     float64
}

// DefaultConfig returns the standard weights.
func DefaultConfig() Config {
	return Config{
		TrendWeight:       3,
		RSIWeight:         2.5,
		MACDWeight:        2,
		BollingerWeight:   1.5,
		MomentumWeight:    1,
		TrendingThreshold: 1.5,
		RangingThreshold:  2.5,
		ChoppyThreshold:   3.5,
		ConfidenceFloor:   0.4,
		BaseSizePct:       10,
	}
}

// Synthesizer scores the indicator set into a signed scalar and maps it to a
// Decision. Stateless and deterministic.
type Synthesizer struct {
	cfg Config
}

// New creates a synthesizer with the given tuning.
func New(cfg Config) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

// Score computes the signed scalar for the given indicators and regime.
// Positive favors long, negative favors short.
func (s *Synthesizer) Score(ind model.IndicatorSet, r regime.Regime) float64 {
	cfg := s.cfg
	score := 0.0

	// Trend separation: full weight on MA ordering, scaled by separation.
	if ind.LastClose > 0 {
		sepPct := (ind.SMAShort - ind.SMALong) / ind.LastClose * 100
		score += cfg.TrendWeight * clampAbs(sepPct/1.0, 1)
	}

	// RSI alignment, with exhaustion extremes penalized rather than rewarded.
	switch {
	case ind.RSI > 75:
		score += cfg.RSIWeight * 0.3 // overbought: weak residual long credit
	case ind.RSI < 25:
		score -= cfg.RSIWeight * 0.3
	default:
		score += cfg.RSIWeight * (ind.RSI - 50) / 25
	}

	// MACD histogram agreement, normalized against price.
	if ind.LastClose > 0 {
		score += cfg.MACDWeight * clampAbs(ind.MACDHist/(ind.LastClose*0.001), 1)
	}

	// Bollinger position: confirmation in trends, reversion in ranges.
	if half := ind.BollingerUpper - ind.BollingerMiddle; half > 0 {
		pos := clampAbs((ind.LastClose-ind.BollingerMiddle)/half, 1)
		if r.Trend == regime.Trending {
			score += cfg.BollingerWeight * pos
		} else {
			score -= cfg.BollingerWeight * pos
		}
	}

	// Short-horizon momentum.
	score += cfg.MomentumWeight * clampAbs(ind.Momentum/1.0, 1)

	// ADX amplification: conviction scales with directional strength.
	switch {
	case ind.ADX > 25:
		score *= 1.2
	case ind.ADX < 20:
		score *= 0.7
	}

	return score
}

// Threshold returns the minimum score magnitude required to act in the
// given regime.
func (s *Synthesizer) Threshold(r regime.Regime) float64 {
	if r.Trend == regime.Choppy || r.Volatility == regime.VolHigh {
		return s.cfg.ChoppyThreshold
	}
	if r.Trend == regime.Trending {
		return s.cfg.TrendingThreshold
	}
	return s.cfg.RangingThreshold
}

// Decide maps the score to a Decision. Scores below the regime threshold, and
// confidences below the absolute floor, yield an explicit flat.
func (s *Synthesizer) Decide(ind model.IndicatorSet, r regime.Regime, perf model.PerformanceMetrics) *model.Decision {
	score := s.Score(ind, r)
	threshold := s.Threshold(r)

	if math.Abs(score) < threshold {
		return model.Flat("fastpath", fmt.Sprintf("score %.2f below %.2f threshold", score, threshold))
	}

	confidence := 0.5 + 0.1*(math.Abs(score)-threshold)
	if confidence > 0.9 {
		confidence = 0.9
	}

	// Recent win rate nudges conviction once there is a sample.
	if perf.TotalTrades >= 10 {
		if perf.WinRate > 0.55 {
			confidence *= 1.1
		} else if perf.WinRate < 0.45 {
			confidence *= 0.85
		}
	}
	if confidence > 1 {
		confidence = 1
	}

	if confidence < s.cfg.ConfidenceFloor {
		return model.Flat("fastpath", fmt.Sprintf("confidence %.2f below floor", confidence))
	}

	action := model.ActionLong
	if score < 0 {
		action = model.ActionShort
	}
	return &model.Decision{
		Action:     action,
		Confidence: confidence,
		SizePct:    s.cfg.BaseSizePct,
		Source:     "fastpath",
		Reason:     fmt.Sprintf("score %.2f vs threshold %.2f", score, threshold),
	}
}

func clampAbs(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
