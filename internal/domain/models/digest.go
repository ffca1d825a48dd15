package models

import "time"

type Bucket struct {
	Name   string  `json:"name"`
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	PnL    float64 `json:"pnl"`
}

// WinRate is a percentage in [0,100]; zero when the bucket is empty.
func (b Bucket) WinRate() float64 {
	if b.Trades == 0 {
		return 0
	}
	return float64(b.Wins) / float64(b.Trades) * 100
}

func (b Bucket) Losses() int { return b.Trades - b.Wins }

type RecentTrade struct {
	Pair      string    `json:"pair"`
	Direction Direction `json:"direction"`
	PnL       float64   `json:"pnl"`
	RSI       *float64  `json:"rsi"`
	ClosedAt  time.Time `json:"closed_at"`
}

// Digest is regenerated wholesale from all closed trades on every rebuild.
type Digest struct {
	GeneratedAt  time.Time     `json:"generated_at"`
	TotalTrades  int           `json:"total_trades"`
	Overall      Bucket        `json:"overall"`
	ByPair       []Bucket      `json:"by_pair"`
	ByDirection  []Bucket      `json:"by_direction"`
	ByRSIZone    []Bucket      `json:"by_rsi_zone"`
	ByConfidence []Bucket      `json:"by_confidence"`
	Recent       []RecentTrade `json:"recent"`
	Lessons      []string      `json:"lessons"`
	Text         string        `json:"text"`
}

// BucketByName returns the named bucket or a zero bucket.
func BucketByName(buckets []Bucket, name string) Bucket {
	for _, b := range buckets {
		if b.Name == name {
			return b
		}
	}
	return Bucket{Name: name}
}
