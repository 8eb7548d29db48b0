// Package ledger is the authoritative per-strategy record of open positions,
// equity, daily P&L, and the trade log.
//
// One Ledger instance belongs to one strategy session. Mutations hold the
// ledger lock for the whole open/close operation so a recorded Trade and its
// equity delta are always applied as one unit, so no tick can observe a trade
// without its equity effect. Money deltas run through shopspring/decimal and
// are stored back as float64.
package ledger

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trading-enginev1/internal/model"
)

// ErrPositionExists is returned when opening over an existing position.
var ErrPositionExists = errors.New("position already open for symbol")

// ErrNoPosition is returned when closing a symbol with nothing open.
var ErrNoPosition = errors.New("no open position for symbol")

// TradeSink receives a trade before the ledger commits it. A failed sink
// write on open/close aborts the mutation entirely (fail-closed), keeping
// the durable log and the in-memory ledger in lockstep.
type TradeSink interface {
	RecordTrade(t model.Trade) error
}

// nopSink accepts every trade; used when no persistence is attached.
type nopSink struct{}

func (nopSink) RecordTrade(model.Trade) error { return nil }

// Ledger tracks one strategy's positions, equity, and trades.
type Ledger struct {
	mu sync.RWMutex

	strategyID    string
	initialEquity float64
	equity        float64
	peakEquity    float64
	dailyPnL      float64

	feeRate float64 // taker fee fraction per fill, e.g. 0.001

	positions map[string]*model.Trade // symbol → open trade (entry state)
	trades    []model.Trade           // closed round trips
	sink      TradeSink
}

// New creates a ledger for one strategy with the given starting equity and
// per-fill fee rate. sink may be nil.
func New(strategyID string, initialEquity, feeRate float64, sink TradeSink) *Ledger {
	if sink == nil {
		sink = nopSink{}
	}
	return &Ledger{
		strategyID:    strategyID,
		initialEquity: initialEquity,
		equity:        initialEquity,
		peakEquity:    initialEquity,
		feeRate:       feeRate,
		positions:     make(map[string]*model.Trade),
		sink:          sink,
	}
}

// InitialEquity returns the starting equity the ledger was created with.
func (l *Ledger) InitialEquity() float64 { return l.initialEquity }

// Restore reinstates open positions recorded by a previous run. Closed
// trades and symbols that already hold a position are skipped.
func (l *Ledger) Restore(open []model.Trade) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	restored := 0
	for i := range open {
		t := open[i]
		if t.Closed {
			continue
		}
		if _, exists := l.positions[t.Symbol]; exists {
			continue
		}
		l.positions[t.Symbol] = &t
		restored++
	}
	return restored
}

// Open creates a position of sizePct of current equity at the given price,
// debiting the entry fee. At most one position per symbol.
func (l *Ledger) Open(symbol string, side model.Side, sizePct, price, slippagePct float64, source, reason string, at time.Time) (model.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.positions[symbol]; exists {
		return model.Trade{}, ErrPositionExists
	}
	if price <= 0 || sizePct <= 0 {
		return model.Trade{}, errors.New("invalid price or size")
	}

	// Slippage moves the fill against the position's direction.
	fill := decimal.NewFromFloat(price)
	slip := fill.Mul(decimal.NewFromFloat(slippagePct / 100))
	if side == model.SideLong {
		fill = fill.Add(slip)
	} else {
		fill = fill.Sub(slip)
	}

	notional := decimal.NewFromFloat(l.equity).Mul(decimal.NewFromFloat(sizePct / 100))
	size := notional.Div(fill)
	entryFee := notional.Mul(decimal.NewFromFloat(l.feeRate))

	trade := model.Trade{
		ID:         uuid.NewString(),
		StrategyID: l.strategyID,
		Symbol:     symbol,
		Side:       side,
		Size:       size.InexactFloat64(),
		EntryPrice: fill.InexactFloat64(),
		Fees:       entryFee.InexactFloat64(),
		Slippage:   slip.InexactFloat64(),
		OpenedAt:   at,
		Source:     source,
		Reason:     reason,
	}

	if err := l.sink.RecordTrade(trade); err != nil {
		return model.Trade{}, err // fail-closed: no ledger mutation
	}

	l.applyEquityDelta(entryFee.Neg())
	l.positions[symbol] = &trade
	return trade, nil
}

// Close exits the open position at the given price, finalizing pnl and
// applying the equity delta atomically with the trade record.
func (l *Ledger) Close(symbol string, price float64, reason string, at time.Time) (model.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	open, exists := l.positions[symbol]
	if !exists {
		return model.Trade{}, ErrNoPosition
	}
	if price <= 0 {
		return model.Trade{}, errors.New("invalid price")
	}

	exit := decimal.NewFromFloat(price)
	entry := decimal.NewFromFloat(open.EntryPrice)
	size := decimal.NewFromFloat(open.Size)

	diff := exit.Sub(entry)
	if open.Side == model.SideShort {
		diff = diff.Neg()
	}
	gross := diff.Mul(size)
	exitFee := exit.Mul(size).Mul(decimal.NewFromFloat(l.feeRate))
	pnl := gross.Sub(exitFee) // entry fee was debited at open

	closed := *open
	closed.ExitPrice = price
	closed.Fees = decimal.NewFromFloat(open.Fees).Add(exitFee).InexactFloat64()
	// Trade-level pnl is net of all fees, entry fee included.
	closed.PnL = gross.Sub(exitFee).Sub(decimal.NewFromFloat(open.Fees)).InexactFloat64()
	if notional := entry.Mul(size); !notional.IsZero() {
		closed.PnLPct = decimal.NewFromFloat(closed.PnL).Div(notional).InexactFloat64() * 100
	}
	closed.Closed = true
	closed.ClosedAt = at
	if reason != "" {
		closed.Reason = reason
	}

	if err := l.sink.RecordTrade(closed); err != nil {
		return model.Trade{}, err // fail-closed
	}

	l.applyEquityDelta(pnl)
	delete(l.positions, symbol)
	l.trades = append(l.trades, closed)
	return closed, nil
}

// Rebalance resizes an open position toward targetSizePct by closing and
// reopening, but only when the deviation exceeds 1% of the current size.
// Returns (closed, reopened, changed).
func (l *Ledger) Rebalance(symbol string, targetSizePct, price float64, source string, at time.Time) (model.Trade, model.Trade, bool, error) {
	l.mu.RLock()
	open, exists := l.positions[symbol]
	if !exists {
		l.mu.RUnlock()
		return model.Trade{}, model.Trade{}, false, ErrNoPosition
	}
	side := open.Side
	currentNotional := open.Size * open.EntryPrice
	equity := l.equity
	l.mu.RUnlock()

	if equity <= 0 || price <= 0 {
		return model.Trade{}, model.Trade{}, false, errors.New("invalid equity or price")
	}
	targetNotional := equity * targetSizePct / 100
	if currentNotional > 0 && math.Abs(targetNotional-currentNotional)/currentNotional <= 0.01 {
		return model.Trade{}, model.Trade{}, false, nil // within tolerance, hold
	}

	closed, err := l.Close(symbol, price, "rebalance", at)
	if err != nil {
		return model.Trade{}, model.Trade{}, false, err
	}
	reopened, err := l.Open(symbol, side, targetSizePct, price, 0, source, "rebalance", at)
	if err != nil {
		return closed, model.Trade{}, true, err
	}
	return closed, reopened, true, nil
}

// applyEquityDelta mutates equity, peak, and daily P&L. Callers hold l.mu.
func (l *Ledger) applyEquityDelta(delta decimal.Decimal) {
	d := delta.InexactFloat64()
	l.equity += d
	l.dailyPnL += d
	if l.equity > l.peakEquity {
		l.peakEquity = l.equity
	}
}

// Position returns the open position for symbol, or nil.
func (l *Ledger) Position(symbol string) *model.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	open, ok := l.positions[symbol]
	if !ok {
		return nil
	}
	return &model.Position{
		Symbol:     open.Symbol,
		Side:       open.Side,
		Size:       open.Size,
		EntryPrice: open.EntryPrice,
		OpenedAt:   open.OpenedAt,
	}
}

// Positions returns a snapshot of all open positions.
func (l *Ledger) Positions() []model.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Position, 0, len(l.positions))
	for _, open := range l.positions {
		out = append(out, model.Position{
			Symbol:     open.Symbol,
			Side:       open.Side,
			Size:       open.Size,
			EntryPrice: open.EntryPrice,
			OpenedAt:   open.OpenedAt,
		})
	}
	return out
}

// Exposure returns the total open entry notional in quote currency.
func (l *Ledger) Exposure() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := 0.0
	for _, open := range l.positions {
		total += open.Size * open.EntryPrice
	}
	return total
}

// Equity returns current equity.
func (l *Ledger) Equity() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.equity
}

// DailyPnL returns the running daily P&L.
func (l *Ledger) DailyPnL() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dailyPnL
}

// ResetDaily zeroes the daily P&L counter (call at UTC midnight).
func (l *Ledger) ResetDaily() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dailyPnL = 0
}

// Trades returns a copy of the closed-trade log.
func (l *Ledger) Trades() []model.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Returns extracts the per-trade return % series for tail-risk estimation.
func (l *Ledger) Returns() []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]float64, len(l.trades))
	for i, t := range l.trades {
		out[i] = t.PnLPct
	}
	return out
}
