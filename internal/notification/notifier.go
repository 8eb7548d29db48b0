// Package notification provides alert delivery to external channels
// (Telegram, webhooks) for trading events.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"trading-enginev1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Symbol  string     `json:"symbol,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts through slog (useful for development and backtests).
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	n.log.Info("alert",
		slog.String("level", string(alert.Level)),
		slog.String("title", alert.Title),
		slog.String("message", alert.Message),
		slog.String("symbol", alert.Symbol),
	)
	return nil
}

// TradeOpened builds the alert for a freshly opened position.
func TradeOpened(t model.Trade) Alert {
	return Alert{
		Level:  AlertInfo,
		Title:  fmt.Sprintf("Opened %s %s", t.Side, t.Symbol),
		Symbol: t.Symbol,
		Message: fmt.Sprintf("size %.6f @ %.2f (%s: %s)",
			t.Size, t.EntryPrice, t.Source, t.Reason),
	}
}

// TradeClosed builds the alert for a closed position. Losing trades warn.
func TradeClosed(t model.Trade) Alert {
	level := AlertInfo
	if t.PnL < 0 {
		level = AlertWarning
	}
	return Alert{
		Level:  level,
		Title:  fmt.Sprintf("Closed %s %s", t.Side, t.Symbol),
		Symbol: t.Symbol,
		Message: fmt.Sprintf("exit %.2f pnl %.2f (%.2f%%) %s",
			t.ExitPrice, t.PnL, t.PnLPct, t.Reason),
	}
}

// RiskBreach builds the alert for a risk rule halting an action.
func RiskBreach(symbol, rule, detail string) Alert {
	return Alert{
		Level:   AlertCritical,
		Title:   "Risk limit breached: " + rule,
		Symbol:  symbol,
		Message: detail,
	}
}

// StrategySwitch builds the alert for a generator rerouting.
func StrategySwitch(from, to, regime string) Alert {
	return Alert{
		Level:   AlertInfo,
		Title:   "Strategy switch",
		Message: fmt.Sprintf("%s -> %s (regime %s)", from, to, regime),
	}
}
