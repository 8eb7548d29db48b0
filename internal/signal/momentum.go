package signal

import (
	"fmt"
	"math"

	"trading-enginev1/internal/model"
)

// MomentumConfig tunes the momentum generator.
type MomentumConfig struct {
	MinCandles   int
	VolumeMult   float64 // required multiple of the 20-period average volume
	MinROCPct    float64 // minimum short-horizon rate of change magnitude
	BaseSizePct  float64
}

// DefaultMomentumConfig returns the standard tuning.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		MinCandles:  30,
		VolumeMult:  1.2,
		MinROCPct:   0.3,
		BaseSizePct: 10,
	}
}

// Momentum requires four independent confirmations: RSI in a non-exhausted
// directional zone, MACD histogram agreement, above-average volume, and a
// short-horizon rate of change in the same direction. Confidence is a
// weighted sum of the normalized sub-signals plus an acceleration bonus.
type Momentum struct {
	cfg MomentumConfig
}

// NewMomentum creates the generator with the given tuning.
func NewMomentum(cfg MomentumConfig) *Momentum {
	return &Momentum{cfg: cfg}
}

func (g *Momentum) Name() string { return "momentum" }
func (g *Momentum) Kind() Kind   { return KindMomentum }

func (g *Momentum) Evaluate(in Input) *model.Decision {
	ctx := in.Ctx
	if len(ctx.Candles) < g.cfg.MinCandles {
		return nil
	}
	ind := ctx.Indicators
	price := ctx.Price()
	if price <= 0 {
		return nil
	}

	var action model.Action
	switch {
	// Bullish zone: momentum present but not exhausted.
	case ind.RSI > 50 && ind.RSI < 70 && ind.MACDHist > 0 && ind.Momentum >= g.cfg.MinROCPct:
		action = model.ActionLong
	case ind.RSI < 50 && ind.RSI > 30 && ind.MACDHist < 0 && ind.Momentum <= -g.cfg.MinROCPct:
		action = model.ActionShort
	default:
		return nil
	}

	// Volume confirmation against the 20-period average.
	lastVol := ctx.Candles[len(ctx.Candles)-1].Volume
	if ind.VolumeAvg <= 0 || lastVol < ind.VolumeAvg*g.cfg.VolumeMult {
		return nil
	}

	rsiStrength := clamp01(math.Abs(ind.RSI-50) / 20)
	macdStrength := clamp01(math.Abs(ind.MACDHist) / (price * 0.001))
	volStrength := clamp01(lastVol/ind.VolumeAvg - 1)
	rocStrength := clamp01(math.Abs(ind.Momentum) / 2)

	confidence := 0.30*rsiStrength + 0.30*macdStrength + 0.20*volStrength + 0.20*rocStrength

	// Acceleration bonus: the last bar extends the move.
	n := len(ctx.Candles)
	lastDelta := ctx.Candles[n-1].Close - ctx.Candles[n-2].Close
	if (action == model.ActionLong && lastDelta > 0) || (action == model.ActionShort && lastDelta < 0) {
		confidence += 0.1
	}
	confidence = clamp01(confidence)

	return &model.Decision{
		Action:     action,
		Confidence: confidence,
		SizePct:    g.cfg.BaseSizePct,
		Source:     g.Name(),
		Reason: fmt.Sprintf("momentum %s: RSI %.1f, MACD hist %.4f, ROC %.2f%%, vol %.1fx",
			action, ind.RSI, ind.MACDHist, ind.Momentum, lastVol/ind.VolumeAvg),
	}
}
