package notification

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"trading-enginev1/internal/model"
)

type captureNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

func (c *captureNotifier) Send(ctx context.Context, alert Alert) error {
	c.mu.Lock()
	c.alerts = append(c.alerts, alert)
	c.mu.Unlock()
	return nil
}

func (c *captureNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_DeliversAll(t *testing.T) {
	cap1 := &captureNotifier{}
	cap2 := &captureNotifier{}
	d := NewDispatcher(discard(), cap1, cap2)

	for i := 0; i < 10; i++ {
		d.Publish(Alert{Level: AlertInfo, Title: "t"})
	}
	d.Stop()

	if cap1.count() != 10 || cap2.count() != 10 {
		t.Errorf("expected 10 alerts per backend, got %d and %d", cap1.count(), cap2.count())
	}
	if d.Dropped() != 0 {
		t.Errorf("expected no drops, got %d", d.Dropped())
	}
}

func TestDispatcher_PublishNeverBlocks(t *testing.T) {
	// No notifier consuming and a full queue: Publish must still return.
	d := NewDispatcher(discard())
	defer d.Stop()

	for i := 0; i < defaultQueueSize*3; i++ {
		d.Publish(Alert{Title: "flood"})
	}
	// Drops are expected once the queue wrapped.
	if d.Dropped() == 0 {
		t.Log("queue drained fast enough to avoid drops")
	}
}

func TestTradeAlerts(t *testing.T) {
	opened := TradeOpened(model.Trade{Symbol: "BTCUSDT", Side: model.SideLong, Size: 0.5, EntryPrice: 50000, Source: "trend_following"})
	if opened.Level != AlertInfo || opened.Symbol != "BTCUSDT" {
		t.Errorf("unexpected open alert: %+v", opened)
	}

	losing := TradeClosed(model.Trade{Symbol: "BTCUSDT", Side: model.SideLong, PnL: -12, PnLPct: -1.2})
	if losing.Level != AlertWarning {
		t.Errorf("losing close must warn, got %s", losing.Level)
	}
	winning := TradeClosed(model.Trade{Symbol: "BTCUSDT", Side: model.SideLong, PnL: 30, PnLPct: 3})
	if winning.Level != AlertInfo {
		t.Errorf("winning close must be info, got %s", winning.Level)
	}

	breach := RiskBreach("ETHUSDT", "daily_loss", "daily loss 5.2% past limit 5%")
	if breach.Level != AlertCritical {
		t.Errorf("risk breach must be critical, got %s", breach.Level)
	}
}
