package model

// IndicatorSet is the fixed-schema output of the indicator engine.
// Every field is always populated: when history is too short for a given
// indicator the engine fills in the documented neutral default instead,
// so a legitimate zero is never confused with "missing".
type IndicatorSet struct {
	RSI float64 `json:"rsi"` // [0,100], neutral 50

	EMAFast  float64 `json:"ema_fast"`
	EMASlow  float64 `json:"ema_slow"`
	SMAShort float64 `json:"sma_short"`
	SMALong  float64 `json:"sma_long"`

	ATR    float64 `json:"atr"`
	ATRPct float64 `json:"atr_pct"` // ATR as % of last close

	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`

	BollingerUpper  float64 `json:"bollinger_upper"`
	BollingerMiddle float64 `json:"bollinger_middle"`
	BollingerLower  float64 `json:"bollinger_lower"`

	StochK float64 `json:"stoch_k"` // [0,100], neutral 50
	StochD float64 `json:"stoch_d"`

	ADX      float64 `json:"adx"`       // [0,100], neutral 25
	WilliamsR float64 `json:"williams_r"` // [-100,0], neutral -50
	CCI      float64 `json:"cci"`       // neutral 0

	Momentum float64 `json:"momentum"` // rate of change %, neutral 0

	Support    float64 `json:"support"`    // window low
	Resistance float64 `json:"resistance"` // window high

	TrendStrength float64 `json:"trend_strength"` // [0,1], fraction of closes on one side of SMA
	VolumeAvg     float64 `json:"volume_avg"`     // 20-period mean volume

	LastClose float64 `json:"last_close"`
}

// NeutralIndicators returns the all-defaults set anchored at the given price.
func NeutralIndicators(price float64) IndicatorSet {
	return IndicatorSet{
		RSI:             50,
		EMAFast:         price,
		EMASlow:         price,
		SMAShort:        price,
		SMALong:         price,
		MACD:            0,
		MACDSignal:      0,
		MACDHist:        0,
		BollingerUpper:  price,
		BollingerMiddle: price,
		BollingerLower:  price,
		StochK:          50,
		StochD:          50,
		ADX:             25,
		WilliamsR:       -50,
		CCI:             0,
		Momentum:        0,
		Support:         price,
		Resistance:      price,
		TrendStrength:   0.5,
		LastClose:       price,
	}
}
