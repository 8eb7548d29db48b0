package model

import "time"

// Side is the direction of an open position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Position is one open position. At most one exists per (strategy, symbol).
type Position struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Size       float64   `json:"size"`        // base-asset quantity
	EntryPrice float64   `json:"entry_price"` // quote per unit
	OpenedAt   time.Time `json:"opened_at"`
}

// Notional returns the position's entry notional in quote currency.
func (p *Position) Notional() float64 {
	return p.Size * p.EntryPrice
}

// UnrealizedPnL computes unrealized profit/loss at the given price,
// sign-adjusted for shorts.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Side == SideShort {
		return (p.EntryPrice - price) * p.Size
	}
	return (price - p.EntryPrice) * p.Size
}

// Trade is one entry or round trip recorded by the ledger.
// An open trade has ExitPrice == 0 and Closed == false; closing it sets
// ExitPrice and finalizes PnL.
type Trade struct {
	ID         string    `json:"id"`
	StrategyID string    `json:"strategy_id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Size       float64   `json:"size"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price,omitempty"`
	Fees       float64   `json:"fees"`
	Slippage   float64   `json:"slippage"`
	PnL        float64   `json:"pnl"`
	PnLPct     float64   `json:"pnl_pct"`
	Closed     bool      `json:"closed"`
	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `json:"closed_at,omitempty"`
	Source     string    `json:"source,omitempty"` // generator/synthesizer that opened it
	Reason     string    `json:"reason,omitempty"`
}
