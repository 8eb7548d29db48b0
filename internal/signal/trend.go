package signal

import (
	"fmt"
	"math"

	"trading-enginev1/internal/model"
)

// TrendConfig tunes the trend-following generator.
type TrendConfig struct {
	MinCandles     int     // window floor before the generator has an opinion
	ADXThreshold   float64 // directional strength gate
	MaxPullbackPct float64 // how close price must be to the fast EMA, in %
	BaseSizePct    float64 // proposed position size before risk gating
}

// DefaultTrendConfig returns the standard tuning.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		MinCandles:     40,
		ADXThreshold:   25,
		MaxPullbackPct: 2.0,
		BaseSizePct:    10,
	}
}

// TrendFollowing trades pullbacks to the fast EMA inside an established
// trend: trend direction from EMA fast/slow, strength gated by ADX, entry
// only when price has pulled back within MaxPullbackPct of the fast EMA.
type TrendFollowing struct {
	cfg TrendConfig
}

// NewTrendFollowing creates the generator with the given tuning.
func NewTrendFollowing(cfg TrendConfig) *TrendFollowing {
	return &TrendFollowing{cfg: cfg}
}

func (g *TrendFollowing) Name() string { return "trend_following" }
func (g *TrendFollowing) Kind() Kind   { return KindTrend }

func (g *TrendFollowing) Evaluate(in Input) *model.Decision {
	ctx := in.Ctx
	if len(ctx.Candles) < g.cfg.MinCandles {
		return nil
	}
	ind := ctx.Indicators
	if ind.ADX < g.cfg.ADXThreshold {
		return nil
	}

	price := ctx.Price()
	if price <= 0 || ind.EMAFast <= 0 {
		return nil
	}

	var action model.Action
	switch {
	case ind.EMAFast > ind.EMASlow:
		action = model.ActionLong
	case ind.EMAFast < ind.EMASlow:
		action = model.ActionShort
	default:
		return nil
	}

	// Pullback: price must sit within MaxPullbackPct of the fast EMA.
	pullbackPct := math.Abs(price-ind.EMAFast) / ind.EMAFast * 100
	if pullbackPct > g.cfg.MaxPullbackPct {
		return nil
	}

	// Confidence: proximity to the EMA plus EMA/SMA separation strength.
	proximity := 1 - pullbackPct/g.cfg.MaxPullbackPct
	separation := math.Abs(ind.EMAFast-ind.EMASlow) / price * 100
	confidence := clamp01(0.4 + 0.3*proximity + 0.15*math.Min(separation/2, 1) + 0.15*math.Min((ind.ADX-g.cfg.ADXThreshold)/25, 1))

	return &model.Decision{
		Action:     action,
		Confidence: confidence,
		SizePct:    g.cfg.BaseSizePct,
		Source:     g.Name(),
		Reason: fmt.Sprintf("pullback %.2f%% to EMA in %s trend (ADX %.1f)",
			pullbackPct, action, ind.ADX),
	}
}
