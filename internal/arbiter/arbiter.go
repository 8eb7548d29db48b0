// Package arbiter reconciles an opaque external advisor's decision with the
// locally synthesized one. It validates and clamps the advisor's output
// against risk limits and recent performance, then blends or rejects it.
// The arbiter performs no I/O; fetching the advisor decision (and timing it
// out) is the driver's job.
package arbiter

import (
	"fmt"
	"log/slog"
	"math"

	"trading-enginev1/internal/model"
)

// Config tunes the validation and blending behavior.
type Config struct {
	MinConfidence      float64 // advisor decisions below this are rejected outright
	FlatDiscount       float64 // advisor confidence/size discount when local is flat
	LocalBlendWeight   float64 // local weight when both agree on direction
	OverrideRatio      float64 // advisor confidence must exceed local×ratio to win a disagreement
	OverrideSizeShrink float64 // size multiplier applied when the advisor overrides
	MaxLossStreak      int     // estimated consecutive losses tolerated
}

// DefaultConfig returns the standard arbitration tuning.
func DefaultConfig() Config {
	return Config{
		MinConfidence:      0.3,
		FlatDiscount:       0.8,
		LocalBlendWeight:   0.7,
		OverrideRatio:      1.11,
		OverrideSizeShrink: 0.8,
		MaxLossStreak:      3,
	}
}

// Arbiter validates and blends advisor decisions against local ones.
type Arbiter struct {
	cfg Config
	log *slog.Logger
}

// New creates an arbiter.
func New(cfg Config, log *slog.Logger) *Arbiter {
	if log == nil {
		log = slog.Default()
	}
	return &Arbiter{cfg: cfg, log: log}
}

// Arbitrate returns the decision to act on. Any validation failure keeps the
// local decision; otherwise the advisor's is discounted, blended, or adopted
// per the configured rules. Neither input is mutated.
func (a *Arbiter) Arbitrate(local, advisor *model.Decision, mc *model.MarketContext) *model.Decision {
	if advisor == nil {
		return local
	}
	if local == nil {
		local = model.Flat("arbiter", "no local decision")
	}

	adv := *advisor // clamped copy
	if reason, ok := a.validate(&adv, mc); !ok {
		a.log.Debug("advisor decision rejected", slog.String("reason", reason))
		return local
	}

	switch {
	case local.Action == model.ActionFlat && adv.Action != model.ActionFlat:
		// Local sees nothing; let the advisor act at a discount.
		adv.Confidence *= a.cfg.FlatDiscount
		adv.SizePct *= a.cfg.FlatDiscount
		adv.Reason = fmt.Sprintf("advisor over flat local (discounted): %s", adv.Reason)
		return &adv

	case local.Action == adv.Action:
		// Agreement: local-weighted average of confidence and size.
		w := a.cfg.LocalBlendWeight
		blended := *local
		blended.Confidence = w*local.Confidence + (1-w)*adv.Confidence
		blended.SizePct = w*local.SizePct + (1-w)*adv.SizePct
		blended.Source = "arbiter"
		blended.Reason = fmt.Sprintf("local+advisor agree on %s", local.Action)
		return &blended

	default:
		// Disagreement: local wins unless the advisor is decisively more
		// confident, and then only at reduced size.
		if adv.Confidence < local.Confidence*a.cfg.OverrideRatio {
			return local
		}
		adv.SizePct *= a.cfg.OverrideSizeShrink
		adv.Reason = fmt.Sprintf("advisor override (%s over local %s): %s",
			adv.Action, local.Action, adv.Reason)
		return &adv
	}
}

// validate applies the rejection and clamping rules. The size clamp mutates
// the (copied) advisor decision in place; every other failure rejects it.
func (a *Arbiter) validate(adv *model.Decision, mc *model.MarketContext) (string, bool) {
	if !model.ValidAction(adv.Action) {
		return fmt.Sprintf("unknown action %q", adv.Action), false
	}
	if adv.Confidence < 0 || adv.Confidence > 1 {
		return fmt.Sprintf("confidence %.2f outside [0,1]", adv.Confidence), false
	}
	if adv.Confidence < a.cfg.MinConfidence {
		return fmt.Sprintf("confidence %.2f below %.2f", adv.Confidence, a.cfg.MinConfidence), false
	}
	if adv.SizePct < 0 || adv.SizePct > 100 {
		return fmt.Sprintf("size %.1f%% outside [0,100]", adv.SizePct), false
	}
	if adv.SizePct > mc.Limits.MaxPositionPct {
		adv.SizePct = mc.Limits.MaxPositionPct // clamp, not reject
	}

	if adv.Action != model.ActionFlat {
		// Losing-streak heuristic: with a meaningful sample and a poor win
		// rate, the estimated current streak gates new exposure.
		perf := mc.Perf
		if perf.TotalTrades >= 5 && perf.WinRate < 0.4 && estimatedLossStreak(perf) > a.cfg.MaxLossStreak {
			return "losing streak", false
		}
		if mc.Equity > 0 {
			dailyLossPct := -mc.DailyPnL / mc.Equity * 100
			if dailyLossPct >= mc.Limits.MaxDailyLossPct {
				return "daily loss limit breached", false
			}
		}
		if perf.MaxDrawdown > mc.Limits.MaxDrawdownPct {
			return "drawdown limit breached", false
		}
	}
	return "", true
}

// estimatedLossStreak approximates the current consecutive-loss run from the
// aggregate win rate: with win rate w, the expected run length is the mean of
// the geometric distribution over losses.
func estimatedLossStreak(perf model.PerformanceMetrics) int {
	if perf.TotalTrades == 0 {
		return 0
	}
	lossRate := 1 - perf.WinRate
	if lossRate >= 1 {
		return perf.LosingTrades
	}
	return int(math.Ceil(lossRate / (1 - lossRate)))
}
