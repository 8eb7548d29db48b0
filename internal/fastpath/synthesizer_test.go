package fastpath

import (
	"testing"

	"trading-enginev1/internal/model"
	"trading-enginev1/internal/regime"
)

func trendingRegime() regime.Regime {
	return regime.Regime{Trend: regime.Trending, Volatility: regime.VolMedium, RSI: regime.Neutral}
}

func rangingRegime() regime.Regime {
	return regime.Regime{Trend: regime.Ranging, Volatility: regime.VolMedium, RSI: regime.Neutral}
}

func choppyRegime() regime.Regime {
	return regime.Regime{Trend: regime.Choppy, Volatility: regime.VolHigh, RSI: regime.Neutral}
}

// bullishSet builds indicators that align every sub-signal long.
func bullishSet() model.IndicatorSet {
	ind := model.NeutralIndicators(100)
	ind.SMAShort = 102
	ind.SMALong = 100
	ind.RSI = 65
	ind.MACDHist = 0.15
	ind.BollingerMiddle = 99
	ind.BollingerUpper = 101
	ind.BollingerLower = 97
	ind.Momentum = 1.5
	ind.ADX = 30
	return ind
}

func TestDecide_NeutralIsFlat(t *testing.T) {
	s := New(DefaultConfig())
	d := s.Decide(model.NeutralIndicators(100), rangingRegime(), model.PerformanceMetrics{})
	if d.Action != model.ActionFlat {
		t.Fatalf("neutral indicators must yield flat, got %s", d.Action)
	}
}

func TestDecide_AlignedBullish(t *testing.T) {
	s := New(DefaultConfig())
	d := s.Decide(bullishSet(), trendingRegime(), model.PerformanceMetrics{})
	if d.Action != model.ActionLong {
		t.Fatalf("expected long, got %s (%s)", d.Action, d.Reason)
	}
	if d.Confidence < 0.4 || d.Confidence > 1 {
		t.Errorf("confidence out of range: %v", d.Confidence)
	}
}

func TestDecide_MirroredBearish(t *testing.T) {
	ind := model.NeutralIndicators(100)
	ind.SMAShort = 98
	ind.SMALong = 100
	ind.RSI = 35
	ind.MACDHist = -0.15
	ind.BollingerMiddle = 101
	ind.BollingerUpper = 103
	ind.BollingerLower = 99
	ind.Momentum = -1.5
	ind.ADX = 30

	s := New(DefaultConfig())
	d := s.Decide(ind, trendingRegime(), model.PerformanceMetrics{})
	if d.Action != model.ActionShort {
		t.Fatalf("expected short, got %s (%s)", d.Action, d.Reason)
	}
}

func TestDecide_Deterministic(t *testing.T) {
	s := New(DefaultConfig())
	ind := bullishSet()
	first := s.Decide(ind, trendingRegime(), model.PerformanceMetrics{})
	for i := 0; i < 20; i++ {
		d := s.Decide(ind, trendingRegime(), model.PerformanceMetrics{})
		if *d != *first {
			t.Fatalf("decision differed between identical calls: %+v vs %+v", d, first)
		}
	}
}

func TestThreshold_RegimeOrdering(t *testing.T) {
	s := New(DefaultConfig())
	trending := s.Threshold(trendingRegime())
	ranging := s.Threshold(rangingRegime())
	choppy := s.Threshold(choppyRegime())
	if !(trending < ranging && ranging < choppy) {
		t.Errorf("thresholds must tighten trending<ranging<choppy, got %v/%v/%v",
			trending, ranging, choppy)
	}
}

func TestScore_ADXAmplification(t *testing.T) {
	s := New(DefaultConfig())
	weak := bullishSet()
	weak.ADX = 15
	strong := bullishSet()
	strong.ADX = 30

	r := trendingRegime()
	if s.Score(strong, r) <= s.Score(weak, r) {
		t.Errorf("strong ADX %v should amplify beyond weak ADX %v",
			s.Score(strong, r), s.Score(weak, r))
	}
}

func TestScore_OverboughtPenalized(t *testing.T) {
	s := New(DefaultConfig())
	healthy := bullishSet()
	healthy.RSI = 65
	exhausted := bullishSet()
	exhausted.RSI = 80

	r := trendingRegime()
	if s.Score(exhausted, r) >= s.Score(healthy, r) {
		t.Errorf("RSI>75 should score below a healthy bullish zone: %v vs %v",
			s.Score(exhausted, r), s.Score(healthy, r))
	}
}

func TestDecide_WinRateAdjustment(t *testing.T) {
	s := New(DefaultConfig())
	ind := bullishSet()
	r := trendingRegime()

	base := s.Decide(ind, r, model.PerformanceMetrics{})
	hot := s.Decide(ind, r, model.PerformanceMetrics{TotalTrades: 20, WinRate: 0.65})
	cold := s.Decide(ind, r, model.PerformanceMetrics{TotalTrades: 20, WinRate: 0.30})

	if hot.Confidence <= base.Confidence && base.Confidence < 1 {
		t.Errorf("winning streak should boost confidence: %v vs %v", hot.Confidence, base.Confidence)
	}
	if cold.Action != model.ActionFlat && cold.Confidence >= base.Confidence {
		t.Errorf("losing streak should reduce confidence: %v vs %v", cold.Confidence, base.Confidence)
	}
}

func TestDecide_SmallSampleIgnoresWinRate(t *testing.T) {
	s := New(DefaultConfig())
	ind := bullishSet()
	r := trendingRegime()
	base := s.Decide(ind, r, model.PerformanceMetrics{})
	few := s.Decide(ind, r, model.PerformanceMetrics{TotalTrades: 5, WinRate: 1.0})
	if base.Confidence != few.Confidence {
		t.Errorf("fewer than 10 trades must not adjust confidence: %v vs %v",
			base.Confidence, few.Confidence)
	}
}
