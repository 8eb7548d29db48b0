package engine

import (
	"fmt"
	"math"
	"time"

	"trading-enginev1/internal/model"
	"trading-enginev1/internal/regime"
)

// cacheEntry is one remembered advisor verdict. Entries are keyed by symbol
// and matched by fingerprint; at is the candle timestamp the verdict was
// produced for, so backtests age entries by market time rather than wall
// clock.
type cacheEntry struct {
	fingerprint string
	decision    model.Decision
	at          time.Time
}

// fingerprint collapses the market state into a short key. Two ticks with the
// same fingerprint are close enough that a fresh advisor call would produce
// the same verdict: price bucketed on a 0.5% log scale, RSI to a bucket of
// five, plus the coarse regime and the presence and side of an open position.
func fingerprint(mc *model.MarketContext, r regime.Regime) string {
	priceBucket := 0
	if price := mc.Price(); price > 0 {
		priceBucket = int(math.Round(math.Log(price) / math.Log(1.005)))
	}
	rsiBucket := int(mc.Indicators.RSI/5) * 5

	pos := "none"
	if mc.Position != nil {
		pos = string(mc.Position.Side)
	}
	return fmt.Sprintf("%s|%d|%d|%s|%s", mc.Symbol, priceBucket, rsiBucket, r.String(), pos)
}

// cachedDecision returns a remembered advisor verdict when the current market
// state matches its fingerprint and it has not aged past the TTL.
func (s *Session) cachedDecision(symbol, fp string, now time.Time) (model.Decision, bool) {
	e, ok := s.cache[symbol]
	if !ok || e.fingerprint != fp {
		return model.Decision{}, false
	}
	if now.Sub(e.at) > s.cfg.CacheTTL {
		delete(s.cache, symbol)
		return model.Decision{}, false
	}
	return e.decision, true
}

func (s *Session) storeDecision(symbol, fp string, d model.Decision, now time.Time) {
	s.cache[symbol] = cacheEntry{fingerprint: fp, decision: d, at: now}
}
