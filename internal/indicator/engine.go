package indicator

import "trading-enginev1/internal/model"

// Engine computes the full indicator set for a candle window.
// Stateless, safe to share across goroutines.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine with the given periods.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Compute evaluates every indicator over the window. It never fails: an empty
// window returns the neutral set anchored at 0, and any indicator whose
// lookback exceeds the window falls back to its neutral default.
func (e *Engine) Compute(candles []model.Candle) model.IndicatorSet {
	if len(candles) == 0 {
		return model.NeutralIndicators(0)
	}

	closes := model.Closes(candles)
	last := closes[len(closes)-1]
	set := model.NeutralIndicators(last)
	cfg := e.cfg

	set.RSI = RSI(closes, cfg.RSIPeriod)
	set.EMAFast = EMA(closes, cfg.EMAFastPeriod)
	set.EMASlow = EMA(closes, cfg.EMASlowPeriod)
	set.SMAShort = SMA(closes, cfg.SMAShortPeriod)
	set.SMALong = SMA(closes, cfg.SMALongPeriod)

	set.ATR = ATR(candles, cfg.ATRPeriod)
	if last > 0 {
		set.ATRPct = set.ATR / last * 100
	}

	macd := MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	set.MACD = macd.Line
	set.MACDSignal = macd.Signal
	set.MACDHist = macd.Histogram

	bands := Bollinger(closes, cfg.BollPeriod, cfg.BollStdDev)
	set.BollingerUpper = bands.Upper
	set.BollingerMiddle = bands.Middle
	set.BollingerLower = bands.Lower

	set.StochK, set.StochD = Stochastic(candles, cfg.StochPeriod, cfg.StochSmooth)
	set.ADX = ADX(candles, cfg.ADXPeriod)
	set.WilliamsR = WilliamsR(candles, cfg.WilliamsPeriod)
	set.CCI = CCI(candles, cfg.CCIPeriod)
	set.Momentum = Momentum(closes, cfg.MomentumPeriod)

	if support, resistance := Levels(candles, cfg.LevelLookback); support > 0 {
		set.Support = support
		set.Resistance = resistance
	}
	set.TrendStrength = TrendStrength(closes, cfg.SMAShortPeriod)
	set.VolumeAvg = VolumeAvg(candles, cfg.VolumePeriod)
	set.LastClose = last

	return set
}
