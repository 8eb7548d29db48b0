package marketdata

import (
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
)

func kline(open, high, low, close, volume string) *binance.Kline {
	return &binance.Kline{
		OpenTime: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    close,
		Volume:   volume,
	}
}

func TestParseKline(t *testing.T) {
	c, err := parseKline("BTCUSDT", kline("50000", "50500.5", "49800", "50400", "123.45"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Symbol != "BTCUSDT" || c.High != 50500.5 || c.Volume != 123.45 {
		t.Errorf("unexpected candle: %+v", c)
	}
	if c.TS.IsZero() || c.TS.Location() != time.UTC {
		t.Errorf("open time must be set in UTC, got %v", c.TS)
	}
}

func TestParseKline_Malformed(t *testing.T) {
	if _, err := parseKline("BTCUSDT", kline("not-a-number", "2", "1", "1.5", "10")); err == nil {
		t.Error("expected error for unparseable price")
	}
	// Parseable but nonsensical: high below low.
	if _, err := parseKline("BTCUSDT", kline("100", "90", "110", "100", "10")); err == nil {
		t.Error("expected error for high < low")
	}
	if _, err := parseKline("BTCUSDT", kline("0", "0", "0", "0", "0")); err == nil {
		t.Error("expected error for zero prices")
	}
}

func TestParseKlines_FailsWholeBatch(t *testing.T) {
	batch := []*binance.Kline{
		kline("100", "101", "99", "100.5", "10"),
		kline("bad", "101", "99", "100.5", "10"),
	}
	if _, err := parseKlines("BTCUSDT", batch); err == nil {
		t.Error("one malformed kline must fail the batch, not silently drop it")
	}

	good := batch[:1]
	candles, err := parseKlines("BTCUSDT", good)
	if err != nil {
		t.Fatal(err)
	}
	if len(candles) != 1 || candles[0].Close != 100.5 {
		t.Errorf("unexpected candles: %+v", candles)
	}
}
