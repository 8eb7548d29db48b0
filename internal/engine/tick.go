package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trading-enginev1/internal/advisor"
	"trading-enginev1/internal/exits"
	"trading-enginev1/internal/logger"
	"trading-enginev1/internal/model"
	"trading-enginev1/internal/notification"
	"trading-enginev1/internal/regime"
	"trading-enginev1/internal/risk"
	"trading-enginev1/internal/signal"
	"trading-enginev1/internal/store/redis"
)

// TickResult reports what one candle did to the session.
type TickResult struct {
	Symbol   string
	Regime   regime.Regime
	Decision model.Decision
	Verdict  risk.Verdict
	Opened   *model.Trade
	Closed   *model.Trade
	Trigger  exits.Trigger
	Skipped  string // non-empty when the pipeline did not run
}

// ProcessCandle runs the full pipeline for one closed (or in-progress)
// candle. A candle with the same timestamp as the window's last entry
// replaces it, so live in-progress bars update in place instead of
// duplicating rows.
func (s *Session) ProcessCandle(ctx context.Context, c model.Candle) (*TickResult, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("engine: invalid candle for %s at %s", c.Symbol, c.TS)
	}
	ctx = logger.WithTickID(ctx, logger.NewTickID(c.Symbol, c.TS))

	if s.deps.Metrics != nil {
		s.deps.Metrics.TicksTotal.WithLabelValues(c.Symbol).Inc()
	}

	w := s.window(c.Symbol)
	if last, ok := w.Last(); ok && last.TS.Equal(c.TS) {
		w.ReplaceLast(c)
	} else {
		w.Append(c)
	}

	res := &TickResult{Symbol: c.Symbol}
	if w.Len() < s.cfg.MinCandles {
		res.Skipped = "warmup"
		if s.deps.Metrics != nil {
			s.deps.Metrics.TicksSkipped.WithLabelValues(c.Symbol, "warmup").Inc()
		}
		return res, nil
	}

	started := time.Now()
	defer func() {
		if s.deps.Metrics != nil {
			s.deps.Metrics.PipelineDur.Observe(time.Since(started).Seconds())
		}
	}()

	candles := w.Slice()
	ind := s.ind.Compute(candles)
	r := regime.Classify(ind, s.thresholds)
	res.Regime = r
	price := c.Close

	// Protective exits run before any new decision so a stopped-out
	// position cannot be resized on the same bar it dies.
	if pos := s.led.Position(c.Symbol); pos != nil {
		if done, err := s.checkExits(ctx, pos, price, ind, r, c.TS, res); err != nil {
			return res, err
		} else if done {
			return res, nil
		}
	}

	mc := s.marketContext(c.Symbol, candles, ind)

	local, origin := s.localDecision(mc, r)
	s.flushSwitches()

	advDecision := s.advisorDecision(ctx, mc, r, local, c.TS)

	final := s.arb.Arbitrate(local, advDecision, mc)
	if final == nil {
		final = model.Flat("arbiter", "no decision")
	}
	if advDecision != nil && final.Source == advDecision.Source && final.Action != local.Action {
		if s.deps.Metrics != nil {
			s.deps.Metrics.AdvisorOverride.Inc()
		}
	}

	// Risk sizing, then the hard gates. A denial does not just veto the
	// entry, it forces the decision flat so breached limits also unwind
	// whatever is already open.
	notional := 0.0
	if final.Action != model.ActionFlat {
		sized := risk.Size(final.SizePct, mc)
		if sized != final.SizePct && s.deps.Metrics != nil {
			s.deps.Metrics.SizeAdjustments.Inc()
		}
		final.SizePct = sized
		notional = sized / 100 * mc.Equity
	}

	returns := s.led.Returns()
	verdict := risk.Check(final, notional, mc, returns)
	res.Verdict = verdict
	if !verdict.Allowed {
		if s.deps.Metrics != nil {
			s.deps.Metrics.RiskDenialsTotal.WithLabelValues(verdict.Rule).Inc()
		}
		if s.deps.Dispatcher != nil {
			s.deps.Dispatcher.Publish(notification.RiskBreach(c.Symbol, verdict.Rule, verdict.Reason))
		}
		s.log.WarnContext(ctx, "risk denial",
			slog.String("symbol", c.Symbol),
			slog.String("rule", verdict.Rule),
			slog.String("reason", verdict.Reason))
		final = model.Flat("risk", verdict.Reason)
	}
	res.Decision = *final

	if s.deps.Metrics != nil {
		s.deps.Metrics.DecisionsTotal.WithLabelValues(string(final.Action), final.Source).Inc()
	}

	if err := s.applyDecision(ctx, final, origin, c, res); err != nil {
		return res, err
	}

	s.logTailRisk(ctx, c.Symbol, returns, mc.Limits)
	s.publishState(ctx, c.Symbol, *final)
	return res, nil
}

// checkExits evaluates stop-loss, take-profit, and trailing stop for an open
// position. Returns done=true when a trigger fired and closed the position,
// in which case entry logic sits out the rest of the bar.
func (s *Session) checkExits(ctx context.Context, pos *model.Position, price float64, ind model.IndicatorSet, r regime.Regime, at time.Time, res *TickResult) (bool, error) {
	tr, ok := s.trackers[pos.Symbol]
	if !ok {
		tr = &exits.Tracker{}
		s.trackers[pos.Symbol] = tr
	}

	targets := s.exits.Targets(s.cfg.Limits, ind, r)
	trigger, pnlPct := s.exits.Evaluate(pos, price, targets, tr)
	if trigger == exits.TriggerNone {
		return false, nil
	}

	trade, err := s.led.Close(pos.Symbol, price, string(trigger), at)
	if err != nil {
		return false, fmt.Errorf("engine: exit close %s: %w", pos.Symbol, err)
	}
	s.onClose(ctx, trade, string(trigger))
	res.Closed = &trade
	res.Trigger = trigger
	res.Decision = *model.Flat("exits", string(trigger))

	s.log.InfoContext(ctx, "exit triggered",
		slog.String("symbol", pos.Symbol),
		slog.String("trigger", string(trigger)),
		slog.Float64("pnl_pct", pnlPct),
		slog.String("targets", targets.String()))
	s.publishState(ctx, pos.Symbol, res.Decision)
	return true, nil
}

// marketContext assembles the immutable per-tick view from ledger state.
func (s *Session) marketContext(symbol string, candles []model.Candle, ind model.IndicatorSet) *model.MarketContext {
	return &model.MarketContext{
		Symbol:     symbol,
		Candles:    candles,
		Indicators: ind,
		Position:   s.led.Position(symbol),
		Exposure:   s.led.Exposure(),
		Perf:       s.led.Performance(),
		Limits:     s.cfg.Limits,
		Equity:     s.led.Equity(),
		DailyPnL:   s.led.DailyPnL(),
	}
}

// localDecision asks the selected generator first and falls back to the
// fast-path synthesizer when no generator qualifies or the chosen one has no
// opinion. origin is the source recorded on any resulting trade, so
// per-generator performance stays attributable.
func (s *Session) localDecision(mc *model.MarketContext, r regime.Regime) (*model.Decision, string) {
	if kind, ok := s.sel.Select(r); ok {
		if g := s.generators[kind]; g != nil {
			if d := g.Evaluate(signal.Input{Ctx: mc, Regime: r}); d != nil {
				return d, string(kind)
			}
		}
	}
	d := s.synth.Decide(mc.Indicators, r, mc.Perf)
	return d, d.Source
}

// advisorDecision consults the advisor, reusing a cached verdict when the
// market fingerprint has not moved. Advisor failures degrade to local-only
// operation, never to a dead tick.
func (s *Session) advisorDecision(ctx context.Context, mc *model.MarketContext, r regime.Regime, local *model.Decision, at time.Time) *model.Decision {
	if s.deps.Advisor == nil {
		return nil
	}

	fp := fingerprint(mc, r)
	if d, ok := s.cachedDecision(mc.Symbol, fp, at); ok {
		if s.deps.Metrics != nil {
			s.deps.Metrics.CacheHits.Inc()
		}
		return &d
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.CacheMisses.Inc()
	}

	started := time.Now()
	d, err := s.deps.Advisor.Decide(ctx, *mc, *local)
	if s.deps.Metrics != nil {
		s.deps.Metrics.AdvisorLatency.Observe(time.Since(started).Seconds())
	}
	if err != nil {
		if !errors.Is(err, advisor.ErrNoOpinion) {
			if s.deps.Metrics != nil {
				s.deps.Metrics.AdvisorFailures.Inc()
			}
			s.log.WarnContext(ctx, "advisor unavailable",
				slog.String("symbol", mc.Symbol), slog.Any("error", err))
		}
		return nil
	}

	s.storeDecision(mc.Symbol, fp, *d, at)
	return d
}

// applyDecision reconciles the final decision against the current position.
func (s *Session) applyDecision(ctx context.Context, d *model.Decision, origin string, c model.Candle, res *TickResult) error {
	pos := s.led.Position(c.Symbol)
	price := c.Close

	switch {
	case d.Action == model.ActionFlat:
		if pos == nil {
			return nil
		}
		trade, err := s.led.Close(c.Symbol, price, d.Reason, c.TS)
		if err != nil {
			return fmt.Errorf("engine: close %s: %w", c.Symbol, err)
		}
		s.onClose(ctx, trade, "signal")
		res.Closed = &trade
		return nil

	case pos == nil:
		trade, err := s.led.Open(c.Symbol, sideFor(d.Action), d.SizePct, price, s.cfg.SlippagePct, origin, d.Reason, c.TS)
		if err != nil {
			return fmt.Errorf("engine: open %s: %w", c.Symbol, err)
		}
		s.onOpen(ctx, trade)
		res.Opened = &trade
		return nil

	case sideFor(d.Action) == pos.Side:
		closed, opened, changed, err := s.led.Rebalance(c.Symbol, d.SizePct, price, origin, c.TS)
		if err != nil {
			return fmt.Errorf("engine: rebalance %s: %w", c.Symbol, err)
		}
		if changed {
			s.onClose(ctx, closed, "rebalance")
			s.onOpen(ctx, opened)
			res.Closed = &closed
			res.Opened = &opened
		}
		return nil

	default:
		// Reversal: realize the open side, then enter the other.
		closed, err := s.led.Close(c.Symbol, price, "reversal to "+string(d.Action), c.TS)
		if err != nil {
			return fmt.Errorf("engine: reversal close %s: %w", c.Symbol, err)
		}
		s.onClose(ctx, closed, "reversal")
		res.Closed = &closed

		opened, err := s.led.Open(c.Symbol, sideFor(d.Action), d.SizePct, price, s.cfg.SlippagePct, origin, d.Reason, c.TS)
		if err != nil {
			return fmt.Errorf("engine: reversal open %s: %w", c.Symbol, err)
		}
		s.onOpen(ctx, opened)
		res.Opened = &opened
		return nil
	}
}

func (s *Session) onOpen(ctx context.Context, t model.Trade) {
	s.trackers[t.Symbol] = &exits.Tracker{}
	delete(s.cache, t.Symbol)

	if s.deps.Metrics != nil {
		s.deps.Metrics.TradesOpened.WithLabelValues(t.Symbol, string(t.Side)).Inc()
	}
	if s.deps.Dispatcher != nil {
		s.deps.Dispatcher.Publish(notification.TradeOpened(t))
	}
	s.publishTrade(ctx, t)
	s.log.InfoContext(ctx, "position opened",
		slog.String("symbol", t.Symbol),
		slog.String("side", string(t.Side)),
		slog.Float64("size", t.Size),
		slog.Float64("entry", t.EntryPrice),
		slog.String("source", t.Source))
}

func (s *Session) onClose(ctx context.Context, t model.Trade, trigger string) {
	delete(s.trackers, t.Symbol)
	delete(s.cache, t.Symbol)

	if s.deps.Metrics != nil {
		s.deps.Metrics.TradesClosed.WithLabelValues(t.Symbol, trigger).Inc()
	}
	if s.deps.Dispatcher != nil {
		s.deps.Dispatcher.Publish(notification.TradeClosed(t))
	}
	if s.deps.Journal != nil {
		if err := s.deps.Journal.SavePerformance(s.cfg.StrategyID, s.led.Performance()); err != nil {
			s.log.WarnContext(ctx, "performance snapshot failed", slog.Any("error", err))
		}
	}
	s.publishTrade(ctx, t)
	s.log.InfoContext(ctx, "position closed",
		slog.String("symbol", t.Symbol),
		slog.Float64("pnl", t.PnL),
		slog.Float64("pnl_pct", t.PnLPct),
		slog.String("trigger", trigger))
}

// flushSwitches reports selector switch events recorded since the last tick.
func (s *Session) flushSwitches() {
	switches := s.sel.Switches()
	for _, ev := range switches[s.switchSeen:] {
		if s.deps.Metrics != nil {
			s.deps.Metrics.StrategySwitches.Inc()
		}
		if s.deps.Journal != nil {
			if err := s.deps.Journal.RecordSwitch(ev); err != nil {
				s.log.Warn("switch event persist failed", slog.Any("error", err))
			}
		}
		if s.deps.Dispatcher != nil {
			s.deps.Dispatcher.Publish(notification.StrategySwitch(string(ev.From), string(ev.To), ev.Regime.String()))
		}
	}
	s.switchSeen = len(switches)
}

// publishState pushes the final decision and a portfolio mark to every
// configured outlet. All outlets are best-effort.
func (s *Session) publishState(ctx context.Context, symbol string, d model.Decision) {
	perf := s.led.Performance()
	mark := redis.EquityMark{
		StrategyID: s.cfg.StrategyID,
		Equity:     s.led.Equity(),
		DailyPnL:   s.led.DailyPnL(),
		Exposure:   s.led.Exposure(),
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.Equity.Set(mark.Equity)
		s.deps.Metrics.DailyPnL.Set(mark.DailyPnL)
		s.deps.Metrics.Exposure.Set(mark.Exposure)
		s.deps.Metrics.Drawdown.Set(perf.MaxDrawdown)
	}

	if s.deps.Events != nil {
		if ev, err := redis.DecisionEvent(symbol, d); err == nil {
			_ = s.deps.Events.Publish(ctx, ev)
		}
		if ev, err := redis.EquityEvent(mark); err == nil {
			_ = s.deps.Events.Publish(ctx, ev)
		}
	}
	if s.deps.Hub != nil {
		s.deps.Hub.Broadcast("decision", map[string]any{"symbol": symbol, "decision": d})
		s.deps.Hub.Broadcast("equity", mark)
	}
}

func (s *Session) publishTrade(ctx context.Context, t model.Trade) {
	if s.deps.Events != nil {
		if ev, err := redis.TradeEvent(t); err == nil {
			_ = s.deps.Events.Publish(ctx, ev)
		}
	}
	if s.deps.Hub != nil {
		s.deps.Hub.Broadcast("trade", t)
	}
}

// logTailRisk samples a Monte-Carlo CVaR estimate once there is enough trade
// history for the resampling to mean anything.
func (s *Session) logTailRisk(ctx context.Context, symbol string, returns []float64, limits model.RiskLimits) {
	if len(returns) < 10 || s.cfg.MCSamples <= 0 {
		return
	}
	cvar := risk.MonteCarloCVaR(returns, limits.VaRConfidence, s.cfg.MCSamples, s.rng)
	s.log.DebugContext(ctx, "tail risk",
		slog.String("symbol", symbol),
		slog.Float64("mc_cvar_pct", cvar),
		slog.Float64("confidence", limits.VaRConfidence))
}

func sideFor(a model.Action) model.Side {
	if a == model.ActionShort {
		return model.SideShort
	}
	return model.SideLong
}
