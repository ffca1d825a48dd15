package models

import "time"

type LiquidityTrend string

const (
	LiquidityExpanding   LiquidityTrend = "expanding"
	LiquidityNeutral     LiquidityTrend = "neutral"
	LiquidityContracting LiquidityTrend = "contracting"
)

type LiquidityContext struct {
	TotalMarketCapUSD     float64        `json:"totalMarketCapUsd"`
	Volume24hUSD          float64        `json:"volume24hUsd"`
	MarketCapChange24hPct float64        `json:"marketCapChange24hPct"`
	BTCDominancePct       float64        `json:"btcDominancePct"`
	Score                 int            `json:"liquidityScore"`
	Trend                 LiquidityTrend `json:"trend"`
	FetchedAt             time.Time      `json:"fetchedAt"`
}
