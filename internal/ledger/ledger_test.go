package ledger

import (
	"errors"
	"math"
	"testing"
	"time"

	"trading-enginev1/internal/model"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestOpenClose_RoundTripZeroFees(t *testing.T) {
	l := New("s1", 10000, 0, nil)

	_, err := l.Open("BTCUSDT", model.SideLong, 10, 100, 0, "test", "", t0)
	if err != nil {
		t.Fatal(err)
	}
	closed, err := l.Close("BTCUSDT", 100, "", t0.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if closed.PnL != 0 {
		t.Errorf("round trip at entry price with zero fees: expected pnl 0, got %v", closed.PnL)
	}
	if l.Equity() != 10000 {
		t.Errorf("equity must be unchanged, got %v", l.Equity())
	}
}

func TestOpenClose_RoundTripWithFees(t *testing.T) {
	l := New("s1", 10000, 0.001, nil)

	open, err := l.Open("BTCUSDT", model.SideLong, 10, 100, 0, "test", "", t0)
	if err != nil {
		t.Fatal(err)
	}
	if open.Fees <= 0 {
		t.Fatal("entry fee must be debited")
	}
	closed, err := l.Close("BTCUSDT", 100, "", t0.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	// pnl = -total fees for a flat round trip.
	if math.Abs(closed.PnL+closed.Fees) > 1e-9 {
		t.Errorf("expected pnl = -fees (%v), got %v", -closed.Fees, closed.PnL)
	}
	if math.Abs(l.Equity()-(10000+closed.PnL)) > 1e-9 {
		t.Errorf("equity %v must equal initial + pnl %v", l.Equity(), 10000+closed.PnL)
	}
}

func TestOpen_OnePositionPerSymbol(t *testing.T) {
	l := New("s1", 10000, 0, nil)
	if _, err := l.Open("ETHUSDT", model.SideLong, 5, 200, 0, "test", "", t0); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Open("ETHUSDT", model.SideShort, 5, 200, 0, "test", "", t0); !errors.Is(err, ErrPositionExists) {
		t.Fatalf("expected ErrPositionExists, got %v", err)
	}
	// A different symbol is fine.
	if _, err := l.Open("BTCUSDT", model.SideLong, 5, 100, 0, "test", "", t0); err != nil {
		t.Fatal(err)
	}
}

func TestClose_NoPosition(t *testing.T) {
	l := New("s1", 10000, 0, nil)
	if _, err := l.Close("BTCUSDT", 100, "", t0); !errors.Is(err, ErrNoPosition) {
		t.Fatalf("expected ErrNoPosition, got %v", err)
	}
}

func TestClose_ShortPnL(t *testing.T) {
	l := New("s1", 10000, 0, nil)
	if _, err := l.Open("BTCUSDT", model.SideShort, 10, 100, 0, "test", "", t0); err != nil {
		t.Fatal(err)
	}
	closed, err := l.Close("BTCUSDT", 90, "", t0.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	// Short 1000 notional (size 10) from 100 to 90: +100.
	if math.Abs(closed.PnL-100) > 1e-9 {
		t.Errorf("expected pnl 100, got %v", closed.PnL)
	}
	if math.Abs(l.Equity()-10100) > 1e-9 {
		t.Errorf("expected equity 10100, got %v", l.Equity())
	}
	if math.Abs(closed.PnLPct-10) > 1e-9 {
		t.Errorf("expected pnl pct 10, got %v", closed.PnLPct)
	}
}

func TestSlippage_MovesFillAgainstPosition(t *testing.T) {
	l := New("s1", 10000, 0, nil)
	long, _ := l.Open("A", model.SideLong, 5, 100, 0.1, "test", "", t0)
	if long.EntryPrice <= 100 {
		t.Errorf("long slippage must raise the fill, got %v", long.EntryPrice)
	}
	short, _ := l.Open("B", model.SideShort, 5, 100, 0.1, "test", "", t0)
	if short.EntryPrice >= 100 {
		t.Errorf("short slippage must lower the fill, got %v", short.EntryPrice)
	}
}

func TestDailyPnLAndReset(t *testing.T) {
	l := New("s1", 10000, 0, nil)
	l.Open("BTCUSDT", model.SideLong, 10, 100, 0, "test", "", t0)
	l.Close("BTCUSDT", 110, "", t0.Add(time.Minute))
	if l.DailyPnL() <= 0 {
		t.Fatalf("winning close must raise daily pnl, got %v", l.DailyPnL())
	}
	l.ResetDaily()
	if l.DailyPnL() != 0 {
		t.Errorf("daily pnl must reset to 0, got %v", l.DailyPnL())
	}
	// Equity is untouched by the reset.
	if l.Equity() <= 10000 {
		t.Errorf("equity keeps the realized gain, got %v", l.Equity())
	}
}

func TestRebalance_WithinTolerance(t *testing.T) {
	l := New("s1", 10000, 0, nil)
	l.Open("BTCUSDT", model.SideLong, 10, 100, 0, "test", "", t0)
	_, _, changed, err := l.Rebalance("BTCUSDT", 10.05, 100, "test", t0.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("deviation under 1% must hold, not rebalance")
	}
}

func TestRebalance_CloseThenReopen(t *testing.T) {
	l := New("s1", 10000, 0, nil)
	l.Open("BTCUSDT", model.SideLong, 10, 100, 0, "test", "", t0)
	closed, reopened, changed, err := l.Rebalance("BTCUSDT", 5, 100, "test", t0.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a rebalance")
	}
	if !closed.Closed {
		t.Error("first leg must be a closed trade")
	}
	if reopened.Closed {
		t.Error("second leg must be a fresh open")
	}
	pos := l.Position("BTCUSDT")
	if pos == nil {
		t.Fatal("position must exist after rebalance")
	}
	if math.Abs(pos.Size*pos.EntryPrice-10000*0.05) > 1e-6 {
		t.Errorf("expected notional 500, got %v", pos.Size*pos.EntryPrice)
	}
	if pos.Side != model.SideLong {
		t.Errorf("rebalance must preserve side, got %s", pos.Side)
	}
}

type failingSink struct{ fail bool }

func (s *failingSink) RecordTrade(model.Trade) error {
	if s.fail {
		return errors.New("disk full")
	}
	return nil
}

func TestOpen_FailClosedOnSinkError(t *testing.T) {
	sink := &failingSink{fail: true}
	l := New("s1", 10000, 0.001, sink)
	if _, err := l.Open("BTCUSDT", model.SideLong, 10, 100, 0, "test", "", t0); err == nil {
		t.Fatal("expected sink error to propagate")
	}
	if l.Position("BTCUSDT") != nil {
		t.Error("no position may exist after a failed persist")
	}
	if l.Equity() != 10000 {
		t.Errorf("equity must be untouched after a failed persist, got %v", l.Equity())
	}

	// The same tick may retry once persistence recovers.
	sink.fail = false
	if _, err := l.Open("BTCUSDT", model.SideLong, 10, 100, 0, "test", "", t0); err != nil {
		t.Fatal(err)
	}
}

func TestExposure(t *testing.T) {
	l := New("s1", 10000, 0, nil)
	l.Open("BTCUSDT", model.SideLong, 10, 100, 0, "test", "", t0)
	l.Open("ETHUSDT", model.SideShort, 5, 50, 0, "test", "", t0)
	if math.Abs(l.Exposure()-1500) > 1e-6 {
		t.Errorf("expected exposure 1500, got %v", l.Exposure())
	}
}

func TestPerformance_FromTradeLog(t *testing.T) {
	l := New("s1", 10000, 0, nil)

	// Two wins, one loss.
	l.Open("A", model.SideLong, 10, 100, 0, "trend_following", "", t0)
	l.Close("A", 110, "", t0.Add(time.Minute))
	l.Open("A", model.SideLong, 10, 100, 0, "trend_following", "", t0.Add(2*time.Minute))
	l.Close("A", 95, "", t0.Add(3*time.Minute))
	l.Open("A", model.SideShort, 10, 100, 0, "grid", "", t0.Add(4*time.Minute))
	l.Close("A", 95, "", t0.Add(5*time.Minute))

	m := l.Performance()
	if m.TotalTrades != 3 || m.WinningTrades != 2 || m.LosingTrades != 1 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if math.Abs(m.WinRate-2.0/3.0) > 1e-9 {
		t.Errorf("expected win rate 2/3, got %v", m.WinRate)
	}
	if m.MaxDrawdown <= 0 {
		t.Error("the losing trade must register drawdown")
	}
	if m.AvgWin <= 0 || m.AvgLoss <= 0 {
		t.Errorf("avg win/loss must be positive: %+v", m)
	}

	// Per-generator view: only trend_following trades.
	p := l.PerformanceFor("trend_following")
	if p.Trades != 2 {
		t.Errorf("expected 2 trend trades, got %d", p.Trades)
	}
}

func TestEquityInvariant(t *testing.T) {
	l := New("s1", 10000, 0.001, nil)
	symbols := []string{"A", "B", "C"}
	prices := []float64{100, 104, 98, 102, 97, 105}

	at := t0
	for i, px := range prices {
		sym := symbols[i%len(symbols)]
		if l.Position(sym) == nil {
			l.Open(sym, model.SideLong, 5, px, 0.05, "test", "", at)
		} else {
			l.Close(sym, px, "", at)
		}
		at = at.Add(time.Minute)
	}
	for _, sym := range symbols {
		if l.Position(sym) != nil {
			l.Close(sym, 100, "", at)
		}
	}

	// With every position closed, equity delta over each round trip equals
	// the trade's net pnl, so equity = initial + sum of trade pnl exactly.
	sum := 0.0
	for _, tr := range l.Trades() {
		sum += tr.PnL
	}
	if math.Abs(l.Equity()-(10000+sum)) > 1e-6 {
		t.Errorf("equity %v != initial + Σpnl %v", l.Equity(), 10000+sum)
	}
}
