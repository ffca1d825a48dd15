package models

import "time"

// Candle is one OHLCV bar. VWAP and Count are zero when the source does not
// report them.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	VWAP   float64   `json:"vwap"`
	Volume float64   `json:"volume"`
	Count  int64     `json:"count"`
}

type Ticker struct {
	Pair      string  `json:"pair"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change24h"` // percent
	Volume24h float64 `json:"volume24h"`
	High24h   float64 `json:"high24h"`
	Low24h    float64 `json:"low24h"`
	Open24h   float64 `json:"open24h"`
	VWAP24h   float64 `json:"vwap24h"`
	Trades24h int64   `json:"trades24h"`
}

type BookLevel struct {
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

type OrderBook struct {
	Bids []BookLevel `json:"bids"`
	Asks []BookLevel `json:"asks"`
}

// BestBid returns the top bid, or nil on an empty side.
func (b *OrderBook) BestBid() *BookLevel {
	if b == nil || len(b.Bids) == 0 {
		return nil
	}
	return &b.Bids[0]
}

func (b *OrderBook) BestAsk() *BookLevel {
	if b == nil || len(b.Asks) == 0 {
		return nil
	}
	return &b.Asks[0]
}

// MarketData is everything the reasoning step sees for one pair.
type MarketData struct {
	Pair       string
	Ticker     *Ticker
	OrderBook  *OrderBook
	Indicators *IndicatorSnapshot
	Liquidity  *LiquidityContext
}
