// Package sqlite persists the trade journal. Every position open and close
// is written here before the in-memory ledger mutates, so the journal is the
// source of truth after a crash.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	json "github.com/bytedance/sonic"
	_ "github.com/mattn/go-sqlite3"

	"trading-enginev1/internal/metrics"
	"trading-enginev1/internal/model"
	"trading-enginev1/internal/selector"
)

// Journal is a single-writer SQLite store for trades, performance snapshots
// and strategy switch events.
type Journal struct {
	mu  sync.Mutex
	db  *sql.DB
	met *metrics.Metrics // optional
	log *slog.Logger
}

// NewJournal opens (or creates) the journal database in WAL mode.
// met may be nil when running without a metrics registry (backtests).
func NewJournal(dbPath string, met *metrics.Metrics, log *slog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Info("opened trade journal", slog.String("path", dbPath))
	return &Journal{db: db, met: met, log: log}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id          TEXT PRIMARY KEY,
			strategy    TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			side        TEXT NOT NULL,
			size        REAL NOT NULL,
			entry_price REAL NOT NULL,
			exit_price  REAL,
			fees        REAL NOT NULL DEFAULT 0,
			slippage    REAL NOT NULL DEFAULT 0,
			pnl         REAL,
			pnl_pct     REAL,
			closed      INTEGER NOT NULL DEFAULT 0,
			source      TEXT,
			reason      TEXT,
			opened_at   DATETIME NOT NULL,
			closed_at   DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_trades_strategy ON trades(strategy);
		CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
		CREATE INDEX IF NOT EXISTS idx_trades_opened_at ON trades(opened_at);

		CREATE TABLE IF NOT EXISTS performance_snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			strategy   TEXT NOT NULL,
			data       TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS switch_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			from_kind  TEXT NOT NULL,
			to_kind    TEXT NOT NULL,
			regime     TEXT NOT NULL,
			at         DATETIME NOT NULL
		);
	`)
	return err
}

// DB returns the underlying sql.DB for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// RecordTrade upserts a trade row. The open leg inserts it; the close leg
// replaces it with exit fields populated. Implements ledger.TradeSink.
func (j *Journal) RecordTrade(t model.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	start := time.Now()
	var closedAt any
	if t.Closed {
		closedAt = t.ClosedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := j.db.Exec(
		`INSERT OR REPLACE INTO trades
		 (id, strategy, symbol, side, size, entry_price, exit_price, fees, slippage,
		  pnl, pnl_pct, closed, source, reason, opened_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.StrategyID, t.Symbol, string(t.Side), t.Size, t.EntryPrice, t.ExitPrice,
		t.Fees, t.Slippage, t.PnL, t.PnLPct, boolToInt(t.Closed), t.Source, t.Reason,
		t.OpenedAt.UTC().Format(time.RFC3339Nano), closedAt,
	)
	if j.met != nil {
		j.met.SQLiteCommitDur.Observe(time.Since(start).Seconds())
	}
	return err
}

// SavePerformance stores a JSON snapshot of the strategy's realized metrics.
func (j *Journal) SavePerformance(strategyID string, m model.PerformanceMetrics) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	raw, err := json.MarshalString(m)
	if err != nil {
		return err
	}
	_, err = j.db.Exec(
		`INSERT INTO performance_snapshots (strategy, data) VALUES (?, ?)`,
		strategyID, raw,
	)
	return err
}

// RecordSwitch appends a strategy switch event.
func (j *Journal) RecordSwitch(ev selector.SwitchEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO switch_events (from_kind, to_kind, regime, at) VALUES (?, ?, ?, ?)`,
		string(ev.From), string(ev.To), ev.Regime.String(), ev.At.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
