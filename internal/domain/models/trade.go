package models

import "time"

// ClosedTrade is a completed paper trade. Owned by the trading subsystem;
// read-only here.
type ClosedTrade struct {
	ID         string    `json:"id"`
	Pair       string    `json:"pair"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	Confidence *float64  `json:"confidence"`
	PnL        float64   `json:"pnl"`
	EntryTime  time.Time `json:"entry_time"`
	ClosedAt   time.Time `json:"closed_at"`
}

func (t ClosedTrade) Win() bool { return t.PnL > 0 }
