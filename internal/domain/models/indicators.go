package models

// Nil pointers mean "not enough history" and render as N/A downstream.

type MACDValue struct {
	Line      *float64 `json:"line"`
	Signal    *float64 `json:"signal"`
	Histogram *float64 `json:"histogram"`
}

type BollingerValue struct {
	Upper    *float64 `json:"upper"`
	Middle   *float64 `json:"middle"`
	Lower    *float64 `json:"lower"`
	Position *float64 `json:"position"`
}

type EMAValue struct {
	EMA20         *float64 `json:"ema20"`
	EMA50         *float64 `json:"ema50"`
	EMA200        *float64 `json:"ema200"`
	EMA20Above50  *bool    `json:"ema20AboveEma50"`
	EMA50Above200 *bool    `json:"ema50AboveEma200"`
}

type ADXValue struct {
	ADX     *float64 `json:"adx"`
	PlusDI  *float64 `json:"plusDI"`
	MinusDI *float64 `json:"minusDI"`
}

type StochasticValue struct {
	K *float64 `json:"k"`
	D *float64 `json:"d"`
}

type OBVValue struct {
	Value *float64 `json:"value"`
	Trend string   `json:"trend"` // rising | falling
}

type LevelsValue struct {
	Support    *float64 `json:"support"`
	Resistance *float64 `json:"resistance"`
}

type IndicatorSnapshot struct {
	Price             float64         `json:"price"`
	RSI               *float64        `json:"rsi"`
	MACD              MACDValue       `json:"macd"`
	Bollinger         BollingerValue  `json:"bollinger"`
	EMA               EMAValue        `json:"ema"`
	ADX               ADXValue        `json:"adx"`
	Stochastic        StochasticValue `json:"stochastic"`
	ATR               *float64        `json:"atr"`
	OBV               OBVValue        `json:"obv"`
	MFI               *float64        `json:"mfi"`
	VolumeRatio       *float64        `json:"volumeRatio"`
	SupportResistance LevelsValue     `json:"supportResistance"`
	VWAP              *float64        `json:"vwap"`
	RecentCloses      []float64       `json:"recentCloses"`
	RecentVolumes     []float64       `json:"recentVolumes"`
}
