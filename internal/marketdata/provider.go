// Package marketdata fetches OHLCV candles from the exchange. Providers
// never fabricate data: a fetch failure yields an error (or a skipped symbol
// in batch mode), and the caller decides whether to sit the tick out.
package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"golang.org/x/sync/errgroup"

	"trading-enginev1/internal/model"
)

// Provider serves candle windows for one or more symbols.
type Provider interface {
	// Snapshot returns the most recent candles for a symbol, oldest first.
	Snapshot(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
	// Historical returns candles in [start, end), paging through the
	// exchange's per-request limit, oldest first.
	Historical(ctx context.Context, symbol, interval string, start, end time.Time) ([]model.Candle, error)
}

const (
	// Binance caps klines at 1000 per request.
	maxKlinesPerFetch = 1000
	defaultInterval   = "1m"
)

// BinanceProvider pulls spot klines through the official REST API.
type BinanceProvider struct {
	client *binance.Client
	log    *slog.Logger
}

func NewBinance(apiKey, secretKey string, log *slog.Logger) *BinanceProvider {
	return &BinanceProvider{
		client: binance.NewClient(apiKey, secretKey),
		log:    log.With(slog.String("component", "marketdata")),
	}
}

func (b *BinanceProvider) Snapshot(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	if interval == "" {
		interval = defaultInterval
	}
	if limit <= 0 || limit > maxKlinesPerFetch {
		limit = maxKlinesPerFetch
	}
	klines, err := b.client.NewKlinesService().
		Symbol(strings.ToUpper(symbol)).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("marketdata: klines %s %s: %w", symbol, interval, err)
	}
	return parseKlines(symbol, klines)
}

func (b *BinanceProvider) Historical(ctx context.Context, symbol, interval string, start, end time.Time) ([]model.Candle, error) {
	if interval == "" {
		interval = defaultInterval
	}
	symbol = strings.ToUpper(symbol)

	var out []model.Candle
	cursor := start.UnixMilli()
	endMs := end.UnixMilli()

	for cursor < endMs {
		klines, err := b.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(cursor).
			EndTime(endMs).
			Limit(maxKlinesPerFetch).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("marketdata: historical %s %s: %w", symbol, interval, err)
		}
		if len(klines) == 0 {
			break
		}
		batch, err := parseKlines(symbol, klines)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)

		last := klines[len(klines)-1].CloseTime
		if last <= cursor {
			break // no forward progress, stop rather than loop
		}
		cursor = last + 1
	}
	return out, nil
}

// SnapshotAll fetches windows for many symbols in parallel. A symbol whose
// fetch fails is logged and omitted from the result; the map never contains
// fabricated candles.
func (b *BinanceProvider) SnapshotAll(ctx context.Context, symbols []string, interval string, limit int) map[string][]model.Candle {
	var (
		mu  sync.Mutex
		out = make(map[string][]model.Candle, len(symbols))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		local := symbol
		g.Go(func() error {
			candles, err := b.Snapshot(gctx, local, interval, limit)
			if err != nil {
				b.log.Warn("snapshot fetch failed, skipping symbol",
					slog.String("symbol", local), slog.Any("error", err))
				return nil
			}
			mu.Lock()
			out[local] = candles
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return out
}

func parseKlines(symbol string, klines []*binance.Kline) ([]model.Candle, error) {
	out := make([]model.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := parseKline(symbol, k)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseKline(symbol string, k *binance.Kline) (model.Candle, error) {
	var (
		c    = model.Candle{Symbol: symbol, TS: time.UnixMilli(k.OpenTime).UTC()}
		err  error
		errs []string
	)
	parse := func(field, raw string) float64 {
		var v float64
		if v, err = strconv.ParseFloat(raw, 64); err != nil {
			errs = append(errs, field)
		}
		return v
	}
	c.Open = parse("open", k.Open)
	c.High = parse("high", k.High)
	c.Low = parse("low", k.Low)
	c.Close = parse("close", k.Close)
	c.Volume = parse("volume", k.Volume)
	if len(errs) > 0 {
		return model.Candle{}, fmt.Errorf("marketdata: malformed kline %s fields %v", symbol, errs)
	}
	if !c.Valid() {
		return model.Candle{}, fmt.Errorf("marketdata: invalid kline %s at %s", symbol, c.TS)
	}
	return c, nil
}
