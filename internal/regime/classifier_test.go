package regime

import (
	"testing"

	"trading-enginev1/internal/model"
)

func baseSet() model.IndicatorSet {
	set := model.NeutralIndicators(100)
	set.ATRPct = 1.0
	return set
}

func TestClassify(t *testing.T) {
	th := DefaultThresholds()

	cases := []struct {
		name   string
		mutate func(*model.IndicatorSet)
		want   Regime
	}{
		{
			name:   "neutral defaults are ranging/medium/neutral",
			mutate: func(s *model.IndicatorSet) {},
			want:   Regime{Trend: Ranging, Volatility: VolMedium, RSI: Neutral},
		},
		{
			name: "separated EMAs with strong ADX trend",
			mutate: func(s *model.IndicatorSet) {
				s.EMAFast = 102
				s.EMASlow = 100
				s.ADX = 30
			},
			want: Regime{Trend: Trending, Volatility: VolMedium, RSI: Neutral},
		},
		{
			name: "ADX strong but EMAs converged is choppy",
			mutate: func(s *model.IndicatorSet) {
				s.ADX = 40
			},
			want: Regime{Trend: Choppy, Volatility: VolMedium, RSI: Neutral},
		},
		{
			name: "high ATR pct",
			mutate: func(s *model.IndicatorSet) {
				s.ATRPct = 2.5
			},
			want: Regime{Trend: Ranging, Volatility: VolHigh, RSI: Neutral},
		},
		{
			name: "low ATR pct",
			mutate: func(s *model.IndicatorSet) {
				s.ATRPct = 0.2
			},
			want: Regime{Trend: Ranging, Volatility: VolLow, RSI: Neutral},
		},
		{
			name: "oversold RSI",
			mutate: func(s *model.IndicatorSet) {
				s.RSI = 25
			},
			want: Regime{Trend: Ranging, Volatility: VolMedium, RSI: Oversold},
		},
		{
			name: "overbought RSI",
			mutate: func(s *model.IndicatorSet) {
				s.RSI = 75
			},
			want: Regime{Trend: Ranging, Volatility: VolMedium, RSI: Overbought},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := baseSet()
			tc.mutate(&set)
			got := Classify(set, th)
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	set := baseSet()
	set.EMAFast = 103
	set.ADX = 28
	first := Classify(set, DefaultThresholds())
	for i := 0; i < 10; i++ {
		if got := Classify(set, DefaultThresholds()); got != first {
			t.Fatalf("classification changed between identical calls: %+v vs %+v", got, first)
		}
	}
}
