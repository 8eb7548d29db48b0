package exits

import (
	"math"
	"testing"
	"time"

	"trading-enginev1/internal/model"
	"trading-enginev1/internal/regime"
)

func pos(side model.Side, entry float64) *model.Position {
	return &model.Position{
		Symbol:     "BTCUSDT",
		Side:       side,
		Size:       1,
		EntryPrice: entry,
		OpenedAt:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func medium(trend regime.Trend) regime.Regime {
	return regime.Regime{Trend: trend, Volatility: regime.VolMedium, RSI: regime.Neutral}
}

func TestTargets_StrongTrendAdjustments(t *testing.T) {
	c := NewController(DefaultBounds())
	limits := model.DefaultRiskLimits() // SL 2, TP 4, trail 1.5 @ 2
	ind := model.NeutralIndicators(100)
	ind.ADX = 40 // strength 0.8 > 0.6

	got := c.Targets(limits, ind, medium(regime.Trending))
	if math.Abs(got.TakeProfitPct-6) > 1e-9 { // 4 × 1.5
		t.Errorf("TP: expected 6, got %v", got.TakeProfitPct)
	}
	if math.Abs(got.StopLossPct-1.5) > 1e-9 { // 2 × 0.75
		t.Errorf("SL: expected 1.5, got %v", got.StopLossPct)
	}
	if math.Abs(got.ActivationPct-3) > 1e-9 { // 2 × 1.5
		t.Errorf("activation: expected 3, got %v", got.ActivationPct)
	}
	if math.Abs(got.TrailingStopPct-1.8) > 1e-9 { // 1.5 × 1.2
		t.Errorf("trail: expected 1.8, got %v", got.TrailingStopPct)
	}
}

func TestTargets_RangingAndVolatility(t *testing.T) {
	c := NewController(DefaultBounds())
	limits := model.DefaultRiskLimits()
	ind := model.NeutralIndicators(100)
	ind.ATRPct = 1

	ranging := c.Targets(limits, ind, medium(regime.Ranging))
	if math.Abs(ranging.TakeProfitPct-3.2) > 1e-9 { // 4 × 0.8
		t.Errorf("ranging TP: expected 3.2, got %v", ranging.TakeProfitPct)
	}
	if math.Abs(ranging.StopLossPct-2.4) > 1e-9 { // 2 × 1.2
		t.Errorf("ranging SL: expected 2.4, got %v", ranging.StopLossPct)
	}

	highVol := c.Targets(limits, ind, regime.Regime{Trend: regime.Ranging, Volatility: regime.VolHigh})
	if math.Abs(highVol.TakeProfitPct-4) > 1e-9 { // 4 × 0.8 × 1.25
		t.Errorf("high-vol TP: expected 4, got %v", highVol.TakeProfitPct)
	}

	lowVol := c.Targets(limits, ind, regime.Regime{Trend: regime.Ranging, Volatility: regime.VolLow})
	if math.Abs(lowVol.StopLossPct-2.16) > 1e-9 { // 2 × 1.2 × 0.9
		t.Errorf("low-vol SL: expected 2.16, got %v", lowVol.StopLossPct)
	}
}

func TestTargets_EarlyTPFeedback(t *testing.T) {
	c := NewController(DefaultBounds())
	limits := model.DefaultRiskLimits()
	ind := model.NeutralIndicators(100)

	base := c.Targets(limits, ind, medium(regime.Choppy))
	c.SetEarlyTPRate(0.8)
	fed := c.Targets(limits, ind, medium(regime.Choppy))
	if math.Abs(fed.TakeProfitPct-base.TakeProfitPct*1.2) > 1e-9 {
		t.Errorf("early-TP feedback: expected %v, got %v", base.TakeProfitPct*1.2, fed.TakeProfitPct)
	}
}

func TestTargets_Clamped(t *testing.T) {
	c := NewController(DefaultBounds())
	limits := model.DefaultRiskLimits()
	limits.StopLossPct = 50
	limits.TakeProfitPct = 100
	ind := model.NeutralIndicators(100)

	got := c.Targets(limits, ind, medium(regime.Choppy))
	if got.StopLossPct > DefaultBounds().MaxStopLossPct {
		t.Errorf("SL not clamped: %v", got.StopLossPct)
	}
	if got.TakeProfitPct > DefaultBounds().MaxTakeProfitPct {
		t.Errorf("TP not clamped: %v", got.TakeProfitPct)
	}
}

func TestEvaluate_StopLossAndTakeProfit(t *testing.T) {
	c := NewController(DefaultBounds())
	targets := Targets{StopLossPct: 2, TakeProfitPct: 4, TrailingStopPct: 1.5, ActivationPct: 2}

	cases := []struct {
		name  string
		side  model.Side
		price float64
		want  Trigger
	}{
		{"long stop", model.SideLong, 97.9, TriggerStopLoss},
		{"long hold", model.SideLong, 99.5, TriggerNone},
		{"long take profit", model.SideLong, 104.1, TriggerTakeProfit},
		{"short stop", model.SideShort, 102.1, TriggerStopLoss},
		{"short take profit", model.SideShort, 95.9, TriggerTakeProfit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := c.Evaluate(pos(tc.side, 100), tc.price, targets, &Tracker{})
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	c := NewController(DefaultBounds())
	targets := Targets{StopLossPct: 2, TakeProfitPct: 4, TrailingStopPct: 1.5, ActivationPct: 2}
	p := pos(model.SideLong, 100)
	tr := &Tracker{}

	first, firstPnL := c.Evaluate(p, 101, targets, tr)
	for i := 0; i < 5; i++ {
		got, pnl := c.Evaluate(p, 101, targets, tr)
		if got != first || pnl != firstPnL {
			t.Fatalf("repeat evaluation diverged: %q/%v vs %q/%v", got, pnl, first, firstPnL)
		}
	}
}

func TestTrailing_ArmsThenFires(t *testing.T) {
	c := NewController(DefaultBounds())
	targets := Targets{StopLossPct: 5, TakeProfitPct: 50, TrailingStopPct: 1.5, ActivationPct: 2}
	p := pos(model.SideLong, 100)
	tr := &Tracker{}

	// Below activation: retrace must not fire.
	if got, _ := c.Evaluate(p, 101, targets, tr); got != TriggerNone {
		t.Fatalf("unarmed trailing fired: %q", got)
	}
	if got, _ := c.Evaluate(p, 100.2, targets, tr); got != TriggerNone {
		t.Fatalf("unarmed retrace fired: %q", got)
	}

	// Cross activation (+3%), then retrace 1.5% from the extreme.
	if got, _ := c.Evaluate(p, 103, targets, tr); got != TriggerNone {
		t.Fatalf("fresh extreme fired: %q", got)
	}
	if !tr.Armed {
		t.Fatal("tracker should be armed past activation")
	}
	if got, _ := c.Evaluate(p, 102.5, targets, tr); got != TriggerNone {
		t.Fatalf("small retrace fired: %q", got)
	}
	got, pnl := c.Evaluate(p, 101.4, targets, tr) // 1.55% off the 103 extreme
	if got != TriggerTrailing {
		t.Fatalf("expected trailing trigger, got %q", got)
	}
	if pnl <= 0 {
		t.Errorf("trailing exit should lock in a gain, got %v", pnl)
	}
}

func TestTrailing_Short(t *testing.T) {
	c := NewController(DefaultBounds())
	targets := Targets{StopLossPct: 5, TakeProfitPct: 50, TrailingStopPct: 1.5, ActivationPct: 2}
	p := pos(model.SideShort, 100)
	tr := &Tracker{}

	c.Evaluate(p, 97, targets, tr) // +3% short gain, arms and sets extreme
	if !tr.Armed {
		t.Fatal("short tracker should arm")
	}
	got, _ := c.Evaluate(p, 98.5, targets, tr) // +1.55% retrace off 97
	if got != TriggerTrailing {
		t.Fatalf("expected trailing trigger on short, got %q", got)
	}
}
