package signal

import (
	"fmt"

	"trading-enginev1/internal/indicator"
	"trading-enginev1/internal/model"
)

// BreakoutConfig tunes the breakout generator.
type BreakoutConfig struct {
	MinCandles          int
	LevelLookback       int     // bars of prior history defining the levels
	MinBreakPct         float64 // minimum close beyond the level, in %
	VolumeMult          float64 // required multiple of average volume
	RequireConfirmation bool    // require the prior candle to also close beyond the level
	BaseSizePct         float64
}

// DefaultBreakoutConfig returns the standard tuning.
func DefaultBreakoutConfig() BreakoutConfig {
	return BreakoutConfig{
		MinCandles:          50,
		LevelLookback:       20,
		MinBreakPct:         0.3,
		VolumeMult:          1.5,
		RequireConfirmation: true,
		BaseSizePct:         10,
	}
}

// Breakout trades closes through the prior window's support/resistance,
// confirmed by volume and optionally by the preceding candle.
type Breakout struct {
	cfg BreakoutConfig
}

// NewBreakout creates the generator with the given tuning.
func NewBreakout(cfg BreakoutConfig) *Breakout {
	return &Breakout{cfg: cfg}
}

func (g *Breakout) Name() string { return "breakout" }
func (g *Breakout) Kind() Kind   { return KindBreakout }

func (g *Breakout) Evaluate(in Input) *model.Decision {
	ctx := in.Ctx
	if len(ctx.Candles) < g.cfg.MinCandles {
		return nil
	}
	price := ctx.Price()
	if price <= 0 {
		return nil
	}

	// Levels come from the window *before* the breaking candles; the
	// bars being tested would otherwise absorb their own break. With
	// confirmation on, the previous candle must already have closed beyond
	// the level, so it is excluded from the level window too.
	exclude := 1
	if g.cfg.RequireConfirmation {
		exclude = 2
	}
	prior := ctx.Candles[:len(ctx.Candles)-exclude]
	support, resistance := indicator.Levels(prior, g.cfg.LevelLookback)
	if support <= 0 || resistance <= 0 {
		return nil
	}

	var (
		action   model.Action
		level    float64
		breakPct float64
	)
	switch {
	case price > resistance:
		action, level = model.ActionLong, resistance
		breakPct = (price - resistance) / resistance * 100
	case price < support:
		action, level = model.ActionShort, support
		breakPct = (support - price) / support * 100
	default:
		return nil
	}
	if breakPct < g.cfg.MinBreakPct {
		return nil
	}

	if g.cfg.RequireConfirmation {
		prev := ctx.Candles[len(ctx.Candles)-2].Close
		if action == model.ActionLong && prev <= level {
			return nil
		}
		if action == model.ActionShort && prev >= level {
			return nil
		}
	}

	ind := ctx.Indicators
	lastVol := ctx.Candles[len(ctx.Candles)-1].Volume
	if ind.VolumeAvg <= 0 || lastVol < ind.VolumeAvg*g.cfg.VolumeMult {
		return nil
	}

	volExcess := clamp01(lastVol/(ind.VolumeAvg*g.cfg.VolumeMult) - 1)
	confidence := clamp01(0.45 + 0.35*clamp01(breakPct/(g.cfg.MinBreakPct*3)) + 0.2*volExcess)

	return &model.Decision{
		Action:     action,
		Confidence: confidence,
		SizePct:    g.cfg.BaseSizePct,
		Source:     g.Name(),
		Reason: fmt.Sprintf("%s break of %.4f by %.2f%% on %.1fx volume",
			action, level, breakPct, lastVol/ind.VolumeAvg),
	}
}
