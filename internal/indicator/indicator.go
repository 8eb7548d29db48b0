// Package indicator provides technical indicator calculations over candle
// windows.
//
// All computations are pure functions of an ordered candle slice. The engine
// never returns an error: for any window too short for a given indicator it
// fills in that indicator's documented neutral default (RSI=50, ADX=25,
// Bollinger bands collapsed to the last close, and so on) so downstream
// consumers never have to distinguish "missing" from "zero".
package indicator

// Config holds lookback periods for every indicator the engine computes.
type Config struct {
	RSIPeriod      int     `json:"rsi_period"`
	EMAFastPeriod  int     `json:"ema_fast_period"`
	EMASlowPeriod  int     `json:"ema_slow_period"`
	SMAShortPeriod int     `json:"sma_short_period"`
	SMALongPeriod  int     `json:"sma_long_period"`
	ATRPeriod      int     `json:"atr_period"`
	MACDFast       int     `json:"macd_fast"`
	MACDSlow       int     `json:"macd_slow"`
	MACDSignal     int     `json:"macd_signal"`
	BollPeriod     int     `json:"boll_period"`
	BollStdDev     float64 `json:"boll_std_dev"`
	StochPeriod    int     `json:"stoch_period"`
	StochSmooth    int     `json:"stoch_smooth"`
	ADXPeriod      int     `json:"adx_period"`
	WilliamsPeriod int     `json:"williams_period"`
	CCIPeriod      int     `json:"cci_period"`
	MomentumPeriod int     `json:"momentum_period"`
	LevelLookback  int     `json:"level_lookback"`
	VolumePeriod   int     `json:"volume_period"`
}

// DefaultConfig returns the standard periods used across the engine.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:      14,
		EMAFastPeriod:  9,
		EMASlowPeriod:  21,
		SMAShortPeriod: 10,
		SMALongPeriod:  50,
		ATRPeriod:      14,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		BollPeriod:     20,
		BollStdDev:     2.0,
		StochPeriod:    14,
		StochSmooth:    3,
		ADXPeriod:      14,
		WilliamsPeriod: 14,
		CCIPeriod:      20,
		MomentumPeriod: 10,
		LevelLookback:  20,
		VolumePeriod:   20,
	}
}
