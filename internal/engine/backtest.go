package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"trading-enginev1/internal/model"
)

// Summary is the result of one backtest run.
type Summary struct {
	StrategyID     string    `json:"strategy_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Ticks          int       `json:"ticks"`
	InitialEquity  float64   `json:"initial_equity"`
	FinalEquity    float64   `json:"final_equity"`
	ReturnPct      float64   `json:"return_pct"`
	Trades         int       `json:"trades"`
	WinRate        float64   `json:"win_rate"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	Sharpe         float64   `json:"sharpe"`
	Switches       int       `json:"switches"`
}

// Backtest replays historical candles through the full pipeline. Candles are
// merged across symbols into one time-ordered sequence, day boundaries reset
// the daily P&L the way the live loop does, and any position still open at
// the end is closed at its symbol's last price. sampleEvery keeps every nth
// candle per symbol (0 or 1 replays everything); sampling preserves order,
// so runs with the same inputs and seed are reproducible.
func (s *Session) Backtest(ctx context.Context, candles map[string][]model.Candle, sampleEvery int) (Summary, error) {
	merged := mergeCandles(candles, sampleEvery)
	if len(merged) == 0 {
		return Summary{}, fmt.Errorf("engine: no candles to replay")
	}

	lastPrice := make(map[string]float64, len(candles))
	var day time.Time
	ticks := 0

	for _, c := range merged {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}

		if d := c.TS.UTC().Truncate(24 * time.Hour); !d.Equal(day) {
			if !day.IsZero() {
				s.led.ResetDaily()
			}
			day = d
		}

		if _, err := s.ProcessCandle(ctx, c); err != nil {
			return Summary{}, fmt.Errorf("engine: replay %s at %s: %w", c.Symbol, c.TS, err)
		}
		lastPrice[c.Symbol] = c.Close
		ticks++
	}

	// Realize whatever is still open so the summary reflects round trips
	// only.
	for _, pos := range s.led.Positions() {
		price, ok := lastPrice[pos.Symbol]
		if !ok {
			price = pos.EntryPrice
		}
		trade, err := s.led.Close(pos.Symbol, price, "backtest end", merged[len(merged)-1].TS)
		if err != nil {
			return Summary{}, fmt.Errorf("engine: final close %s: %w", pos.Symbol, err)
		}
		s.onClose(ctx, trade, "backtest_end")
	}

	perf := s.led.Performance()
	initial := s.led.InitialEquity()
	final := s.led.Equity()
	sum := Summary{
		StrategyID:     s.cfg.StrategyID,
		Start:          merged[0].TS,
		End:            merged[len(merged)-1].TS,
		Ticks:          ticks,
		InitialEquity:  initial,
		FinalEquity:    final,
		Trades:         perf.TotalTrades,
		WinRate:        perf.WinRate,
		MaxDrawdownPct: perf.MaxDrawdown,
		Sharpe:         perf.Sharpe,
		Switches:       len(s.sel.Switches()),
	}
	if initial > 0 {
		sum.ReturnPct = (final - initial) / initial * 100
	}

	s.log.Info("backtest complete",
		slog.Int("ticks", sum.Ticks),
		slog.Float64("final_equity", sum.FinalEquity),
		slog.Float64("return_pct", sum.ReturnPct),
		slog.Int("trades", sum.Trades))
	return sum, nil
}

// mergeCandles flattens per-symbol histories into one chronological stream.
// Ties on timestamp break by symbol so replay order is deterministic.
func mergeCandles(bySymbol map[string][]model.Candle, sampleEvery int) []model.Candle {
	if sampleEvery < 1 {
		sampleEvery = 1
	}
	var merged []model.Candle
	for _, candles := range bySymbol {
		for i := 0; i < len(candles); i += sampleEvery {
			merged = append(merged, candles[i])
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].TS.Equal(merged[j].TS) {
			return merged[i].Symbol < merged[j].Symbol
		}
		return merged[i].TS.Before(merged[j].TS)
	})
	return merged
}
