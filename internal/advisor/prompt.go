package advisor

import (
	"fmt"

	json "github.com/bytedance/sonic"

	"trading-enginev1/internal/model"
)

const systemPrompt = `You are a quantitative trading strategist reviewing one symbol at a time.

You receive a JSON snapshot with the latest indicators, the open position
(if any), realized performance, the active risk limits, and the decision the
local engine has already made. Respond with a single JSON object and nothing
else:

{
  "action": "long" | "short" | "flat" | "skip",
  "confidence": <0.0 to 1.0>,
  "size_pct": <percent of equity, 0 to the position limit>,
  "reason": "<one sentence>",
  "analysis": "<one short paragraph of market read, carried to your next call>"
}

Rules:
- "skip" means you have no edge over the local decision; prefer it when unsure.
- Never exceed the max position limit in the snapshot.
- "flat" closes any open position.
- confidence below 0.3 will be discarded, do not pad it.`

// snapshot is the condensed market state serialized into the user prompt.
// Raw candles are omitted; the indicator set carries what the model needs.
type snapshot struct {
	Symbol     string                   `json:"symbol"`
	Price      float64                  `json:"price"`
	Indicators model.IndicatorSet       `json:"indicators"`
	Position   *model.Position          `json:"position,omitempty"`
	Exposure   float64                  `json:"exposure"`
	Equity     float64                  `json:"equity"`
	DailyPnL   float64                  `json:"daily_pnl"`
	Perf       model.PerformanceMetrics `json:"performance"`
	Limits     model.RiskLimits         `json:"risk_limits"`
	Local      model.Decision           `json:"local_decision"`
}

func buildUserPrompt(mc model.MarketContext, local model.Decision, lastAnalysis string) (string, error) {
	snap := snapshot{
		Symbol:     mc.Symbol,
		Price:      mc.Price(),
		Indicators: mc.Indicators,
		Position:   mc.Position,
		Exposure:   mc.Exposure,
		Equity:     mc.Equity,
		DailyPnL:   mc.DailyPnL,
		Perf:       mc.Perf,
		Limits:     mc.Limits,
		Local:      local,
	}
	raw, err := json.MarshalString(snap)
	if err != nil {
		return "", err
	}

	if lastAnalysis == "" {
		lastAnalysis = "None. This is the first review of this session."
	}
	return fmt.Sprintf("Market snapshot:\n%s\n\nYour previous analysis:\n%s", raw, lastAnalysis), nil
}
