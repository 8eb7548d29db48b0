package advisor

import (
	"errors"
	"strings"
	"testing"

	"trading-enginev1/internal/model"
)

func TestParseVerdict_Clean(t *testing.T) {
	v, err := parseVerdict(`{"action":"long","confidence":0.7,"size_pct":5,"reason":"breakout","analysis":"uptrend"}`)
	if err != nil {
		t.Fatal(err)
	}
	if v.Action != "long" || v.Confidence != 0.7 || v.SizePct != 5 {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestParseVerdict_RepairsSloppyOutput(t *testing.T) {
	// Models routinely wrap JSON in fences or leave trailing commas.
	sloppy := "```json\n{\"action\": \"short\", \"confidence\": 0.55, \"size_pct\": 3,}\n```"
	v, err := parseVerdict(sloppy)
	if err != nil {
		t.Fatal(err)
	}
	if v.Action != "short" || v.Confidence != 0.55 {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestVerdictDecision(t *testing.T) {
	tests := []struct {
		name    string
		v       verdict
		wantErr bool
		skip    bool
	}{
		{"valid long", verdict{Action: "long", Confidence: 0.6, SizePct: 5}, false, false},
		{"flat close", verdict{Action: "FLAT", Confidence: 0.9}, false, false},
		{"explicit skip", verdict{Action: "skip"}, true, true},
		{"empty action", verdict{}, true, true},
		{"unknown action", verdict{Action: "hodl", Confidence: 0.5}, true, false},
		{"confidence above one", verdict{Action: "long", Confidence: 1.2}, true, false},
		{"negative size", verdict{Action: "long", Confidence: 0.5, SizePct: -1}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.v.decision("llm:test")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if tt.skip && !errors.Is(err, ErrNoOpinion) {
					t.Errorf("expected ErrNoOpinion, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if d.Source != "llm:test" {
				t.Errorf("source not stamped: %+v", d)
			}
			if !model.ValidAction(d.Action) {
				t.Errorf("invalid action %q", d.Action)
			}
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	mc := model.MarketContext{
		Symbol:     "BTCUSDT",
		Candles:    []model.Candle{{Symbol: "BTCUSDT", Close: 50000}},
		Indicators: model.NeutralIndicators(50000),
		Equity:     10000,
		Limits:     model.DefaultRiskLimits(),
	}
	local := model.Decision{Action: model.ActionLong, Confidence: 0.6, SizePct: 5, Source: "fastpath"}

	prompt, err := buildUserPrompt(mc, local, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"BTCUSDT", "local_decision", "first review"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	prompt, err = buildUserPrompt(mc, local, "trend intact, waiting for pullback")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "trend intact") {
		t.Error("previous analysis must be carried into the prompt")
	}
}
