package models

import "time"

type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionHold  Direction = "hold"
)

type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Analysis is the validated output of the reasoning step. Every field has
// been defaulted and range-checked; nothing raw from the model survives.
type Analysis struct {
	Direction           Direction `json:"direction"`
	Confidence          float64   `json:"confidence"`
	MarketSentiment     Sentiment `json:"market_sentiment"`
	RiskLevel           RiskLevel `json:"risk_level"`
	Analysis            string    `json:"analysis"`
	KeyFactors          []string  `json:"key_factors"`
	TechnicalSummary    string    `json:"technical_summary"`
	LongScore           *float64  `json:"long_score"`
	ShortScore          *float64  `json:"short_score"`
	SuggestedEntry      *float64  `json:"suggested_entry"`
	SuggestedStopLoss   *float64  `json:"suggested_stop_loss"`
	SuggestedTakeProfit *float64  `json:"suggested_take_profit"`
	Overridden          bool      `json:"overridden,omitempty"`
	ModelVersion        string    `json:"model_version"`
	TokenUsage          *int64    `json:"token_usage"`
}

const AnalysisSourceReasoning = "reasoning"

// Signal is one persisted recommendation with the indicator state it was
// derived from.
type Signal struct {
	ID                  string    `json:"id"`
	Pair                string    `json:"pair"`
	Direction           Direction `json:"direction"`
	Confidence          float64   `json:"confidence"`
	PriceAtSignal       float64   `json:"price_at_signal"`
	RSI                 *float64  `json:"rsi"`
	MACD                *float64  `json:"macd"`
	MACDSignal          *float64  `json:"macd_signal"`
	BBUpper             *float64  `json:"bb_upper"`
	BBLower             *float64  `json:"bb_lower"`
	ADX                 *float64  `json:"adx"`
	ATR                 *float64  `json:"atr"`
	MarketSentiment     Sentiment `json:"market_sentiment"`
	RiskLevel           RiskLevel `json:"risk_level"`
	AnalysisText        string    `json:"analysis_text"`
	KeyFactors          []string  `json:"key_factors"`
	TechnicalSummary    string    `json:"technical_summary"`
	LongScore           *float64  `json:"long_score"`
	ShortScore          *float64  `json:"short_score"`
	SuggestedEntry      *float64  `json:"suggested_entry"`
	SuggestedStopLoss   *float64  `json:"suggested_stop_loss"`
	SuggestedTakeProfit *float64  `json:"suggested_take_profit"`
	ModelVersion        string    `json:"model_version"`
	TokenUsage          *int64    `json:"token_usage"`
	AnalysisSource      string    `json:"analysis_source"`
	LiquidityAssessment string    `json:"global_liquidity_assessment"`
	CreatedAt           time.Time `json:"created_at"`
}

// NewSignal denormalizes the indicator snapshot and analysis into a record.
func NewSignal(pair string, snap *IndicatorSnapshot, a *Analysis, liquidity string, now time.Time) *Signal {
	s := &Signal{
		Pair:                pair,
		Direction:           a.Direction,
		Confidence:          a.Confidence,
		MarketSentiment:     a.MarketSentiment,
		RiskLevel:           a.RiskLevel,
		AnalysisText:        a.Analysis,
		KeyFactors:          a.KeyFactors,
		TechnicalSummary:    a.TechnicalSummary,
		LongScore:           a.LongScore,
		ShortScore:          a.ShortScore,
		SuggestedEntry:      a.SuggestedEntry,
		SuggestedStopLoss:   a.SuggestedStopLoss,
		SuggestedTakeProfit: a.SuggestedTakeProfit,
		ModelVersion:        a.ModelVersion,
		TokenUsage:          a.TokenUsage,
		AnalysisSource:      AnalysisSourceReasoning,
		LiquidityAssessment: liquidity,
		CreatedAt:           now,
	}
	if snap != nil {
		s.PriceAtSignal = snap.Price
		s.RSI = snap.RSI
		s.MACD = snap.MACD.Line
		s.MACDSignal = snap.MACD.Signal
		s.BBUpper = snap.Bollinger.Upper
		s.BBLower = snap.Bollinger.Lower
		s.ADX = snap.ADX.ADX
		s.ATR = snap.ATR
	}
	if s.KeyFactors == nil {
		s.KeyFactors = []string{}
	}
	return s
}
