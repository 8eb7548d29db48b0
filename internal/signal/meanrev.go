package signal

import (
	"fmt"
	"math"

	"trading-enginev1/internal/model"
)

// MeanRevConfig tunes the mean-reversion and arbitrage generators.
type MeanRevConfig struct {
	MinCandles   int
	EntryZScore  float64 // deviation (in stddevs) required to fade the move
	MinEdgePct   float64 // cross-venue edge required for the arbitrage variant
	BaseSizePct  float64
}

// DefaultMeanRevConfig returns the standard tuning.
func DefaultMeanRevConfig() MeanRevConfig {
	return MeanRevConfig{
		MinCandles:  30,
		EntryZScore: 2.0,
		MinEdgePct:  0.4,
		BaseSizePct: 8,
	}
}

// MeanReversion fades statistically stretched prices. The statistics come
// from an injected StatsProvider rather than the generator itself, so the
// same contract covers in-window z-scores and externally computed signals.
type MeanReversion struct {
	cfg      MeanRevConfig
	provider StatsProvider
}

// NewMeanReversion creates the generator backed by the given provider.
func NewMeanReversion(cfg MeanRevConfig, provider StatsProvider) *MeanReversion {
	return &MeanReversion{cfg: cfg, provider: provider}
}

func (g *MeanReversion) Name() string { return "mean_reversion" }
func (g *MeanReversion) Kind() Kind   { return KindMeanReversion }

func (g *MeanReversion) Evaluate(in Input) *model.Decision {
	ctx := in.Ctx
	if len(ctx.Candles) < g.cfg.MinCandles || g.provider == nil {
		return nil
	}
	sig, ok := g.provider.Stats(ctx.Candles)
	if !ok {
		return nil
	}

	var action model.Action
	switch {
	case sig.Deviation <= -g.cfg.EntryZScore:
		action = model.ActionLong // stretched below the mean
	case sig.Deviation >= g.cfg.EntryZScore:
		action = model.ActionShort
	default:
		return nil
	}

	excess := math.Abs(sig.Deviation) - g.cfg.EntryZScore
	confidence := clamp01(0.5 + 0.25*math.Min(excess, 2))

	return &model.Decision{
		Action:     action,
		Confidence: confidence,
		SizePct:    g.cfg.BaseSizePct,
		Source:     g.Name(),
		Reason:     fmt.Sprintf("reversion %s at z=%.2f", action, sig.Deviation),
	}
}

// Arbitrage trades externally supplied cross-venue edges. It shares the
// StatsProvider contract with MeanReversion; a provider that reports no edge
// keeps this generator silent.
type Arbitrage struct {
	cfg      MeanRevConfig
	provider StatsProvider
}

// NewArbitrage creates the generator backed by the given provider.
func NewArbitrage(cfg MeanRevConfig, provider StatsProvider) *Arbitrage {
	return &Arbitrage{cfg: cfg, provider: provider}
}

func (g *Arbitrage) Name() string { return "arbitrage" }
func (g *Arbitrage) Kind() Kind   { return KindArbitrage }

func (g *Arbitrage) Evaluate(in Input) *model.Decision {
	ctx := in.Ctx
	if len(ctx.Candles) < g.cfg.MinCandles || g.provider == nil {
		return nil
	}
	sig, ok := g.provider.Stats(ctx.Candles)
	if !ok || math.Abs(sig.Edge) < g.cfg.MinEdgePct {
		return nil
	}

	action := model.ActionLong
	if sig.Edge < 0 {
		action = model.ActionShort
	}
	confidence := clamp01(0.5 + 0.3*math.Min(math.Abs(sig.Edge)/g.cfg.MinEdgePct-1, 1))

	return &model.Decision{
		Action:     action,
		Confidence: confidence,
		SizePct:    g.cfg.BaseSizePct,
		Source:     g.Name(),
		Reason:     fmt.Sprintf("cross-venue edge %.2f%%", sig.Edge),
	}
}
