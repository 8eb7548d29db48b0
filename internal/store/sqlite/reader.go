package sqlite

import (
	"time"

	"trading-enginev1/internal/model"
)

// Trades returns the last N trades for a strategy, newest first.
func (j *Journal) Trades(strategyID string, limit int) ([]model.Trade, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, strategy, symbol, side, size, entry_price,
		        COALESCE(exit_price, 0), fees, slippage,
		        COALESCE(pnl, 0), COALESCE(pnl_pct, 0), closed,
		        COALESCE(source, ''), COALESCE(reason, ''), opened_at, closed_at
		 FROM trades WHERE strategy = ? ORDER BY opened_at DESC LIMIT ?`,
		strategyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// OpenTrades returns trades whose close leg never made it to the journal.
// Used on restart to rebuild the in-memory position book.
func (j *Journal) OpenTrades(strategyID string) ([]model.Trade, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, strategy, symbol, side, size, entry_price,
		        COALESCE(exit_price, 0), fees, slippage,
		        COALESCE(pnl, 0), COALESCE(pnl_pct, 0), closed,
		        COALESCE(source, ''), COALESCE(reason, ''), opened_at, closed_at
		 FROM trades WHERE strategy = ? AND closed = 0 ORDER BY opened_at`,
		strategyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (model.Trade, error) {
	var (
		t        model.Trade
		side     string
		closed   int
		openedAt string
		closedAt *string
	)
	if err := row.Scan(&t.ID, &t.StrategyID, &t.Symbol, &side, &t.Size, &t.EntryPrice,
		&t.ExitPrice, &t.Fees, &t.Slippage, &t.PnL, &t.PnLPct, &closed,
		&t.Source, &t.Reason, &openedAt, &closedAt); err != nil {
		return model.Trade{}, err
	}
	t.Side = model.Side(side)
	t.Closed = closed != 0
	if ts, err := time.Parse(time.RFC3339Nano, openedAt); err == nil {
		t.OpenedAt = ts
	}
	if closedAt != nil {
		if ts, err := time.Parse(time.RFC3339Nano, *closedAt); err == nil {
			t.ClosedAt = ts
		}
	}
	return t, nil
}
