package signal

import (
	"fmt"
	"math"

	"trading-enginev1/internal/model"
	"trading-enginev1/internal/regime"
)

// GridConfig tunes the grid generator.
type GridConfig struct {
	MinCandles  int
	SpacingPct  float64 // base grid step as % of the anchor price
	Levels      int     // ladder depth on each side
	VolAdjust   bool    // widen the step with ATR%
	BaseSizePct float64
}

// DefaultGridConfig returns the standard tuning.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		MinCandles:  28,
		SpacingPct:  1.0,
		Levels:      5,
		VolAdjust:   true,
		BaseSizePct: 5,
	}
}

// Grid lays symmetric buy/sell ladders around the Bollinger middle band and
// fires when price comes within half a grid step of the nearest level. It
// only trades ranging regimes; anywhere else it abstains.
type Grid struct {
	cfg GridConfig
}

// NewGrid creates the generator with the given tuning.
func NewGrid(cfg GridConfig) *Grid {
	return &Grid{cfg: cfg}
}

func (g *Grid) Name() string { return "grid" }
func (g *Grid) Kind() Kind   { return KindGrid }

// Step returns the effective grid step in % for the given indicators.
// With VolAdjust the base spacing stretches as ATR% grows past 1%.
func (g *Grid) Step(ind model.IndicatorSet) float64 {
	step := g.cfg.SpacingPct
	if g.cfg.VolAdjust && ind.ATRPct > 1 {
		step *= math.Min(ind.ATRPct, 3)
	}
	return step
}

func (g *Grid) Evaluate(in Input) *model.Decision {
	ctx := in.Ctx
	if len(ctx.Candles) < g.cfg.MinCandles {
		return nil
	}
	if in.Regime.Trend != regime.Ranging {
		return nil
	}

	price := ctx.Price()
	anchor := ctx.Indicators.BollingerMiddle
	if price <= 0 || anchor <= 0 {
		return nil
	}

	stepPct := g.Step(ctx.Indicators)
	step := anchor * stepPct / 100
	halfStep := step / 2

	// Buy ladder below the anchor, sell ladder above.
	for i := 1; i <= g.cfg.Levels; i++ {
		buyLevel := anchor - float64(i)*step
		sellLevel := anchor + float64(i)*step

		var (
			action model.Action
			level  float64
		)
		switch {
		case buyLevel > 0 && math.Abs(price-buyLevel) <= halfStep:
			action, level = model.ActionLong, buyLevel
		case math.Abs(price-sellLevel) <= halfStep:
			action, level = model.ActionShort, sellLevel
		default:
			continue
		}

		// Deeper levels are further from fair value and carry a stronger reversion edge.
		confidence := clamp01(0.45 + 0.1*float64(i))
		return &model.Decision{
			Action:     action,
			Confidence: confidence,
			SizePct:    g.cfg.BaseSizePct,
			Source:     g.Name(),
			Reason: fmt.Sprintf("grid %s at level %d (%.4f, step %.2f%%)",
				action, i, level, stepPct),
		}
	}
	return nil
}
