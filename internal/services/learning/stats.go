package learning

import (
	"fmt"
	"sort"
	"time"

	"CryptoEdge/internal/domain/models"
)

const (
	minSamples     = 3
	directionEdge  = 15.0 // win-rate points
	recentTrades   = 10
	zoneOversold   = "oversold"
	zoneNeutral    = "neutral"
	zoneOverbought = "overbought"
	confidenceLow  = "<50%"
	confidenceMid  = "50-70%"
	confidenceHigh = ">70%"
)

// joinedTrade is a closed trade paired with the signal active at its entry.
type joinedTrade struct {
	models.ClosedTrade
	SignalRSI        *float64
	SignalConfidence *float64
}

func (j joinedTrade) direction() models.Direction {
	if j.Direction == models.DirectionShort {
		return models.DirectionShort
	}
	return models.DirectionLong
}

func (j joinedTrade) confidence() *float64 {
	if j.SignalConfidence != nil {
		return j.SignalConfidence
	}
	return j.Confidence
}

func rsiZone(rsi float64) string {
	switch {
	case rsi < 30:
		return zoneOversold
	case rsi > 70:
		return zoneOverbought
	default:
		return zoneNeutral
	}
}

func confidenceBucket(c float64) string {
	switch {
	case c < 50:
		return confidenceLow
	case c <= 70:
		return confidenceMid
	default:
		return confidenceHigh
	}
}

type tally struct {
	order   []string
	buckets map[string]*models.Bucket
}

func newTally(order ...string) *tally {
	return &tally{order: order, buckets: make(map[string]*models.Bucket)}
}

func (t *tally) add(name string, tr joinedTrade) {
	b, ok := t.buckets[name]
	if !ok {
		b = &models.Bucket{Name: name}
		t.buckets[name] = b
	}
	b.Trades++
	if tr.Win() {
		b.Wins++
	}
	b.PnL += tr.PnL
}

// list returns non-empty buckets in the fixed order, then any others sorted.
func (t *tally) list() []models.Bucket {
	out := make([]models.Bucket, 0, len(t.buckets))
	seen := make(map[string]bool, len(t.order))
	for _, name := range t.order {
		seen[name] = true
		if b, ok := t.buckets[name]; ok {
			out = append(out, *b)
		}
	}
	var rest []string
	for name := range t.buckets {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		out = append(out, *t.buckets[name])
	}
	return out
}

// buildDigest aggregates every joined trade. It never patches a previous
// digest.
func buildDigest(trades []joinedTrade, now time.Time) *models.Digest {
	d := &models.Digest{GeneratedAt: now, TotalTrades: len(trades), Overall: models.Bucket{Name: "overall"}}
	if len(trades) == 0 {
		return d
	}

	sorted := make([]joinedTrade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ClosedAt.After(sorted[j].ClosedAt) })

	byPair := newTally()
	byDir := newTally(string(models.DirectionLong), string(models.DirectionShort))
	byZone := newTally(zoneOversold, zoneNeutral, zoneOverbought)
	byConf := newTally(confidenceLow, confidenceMid, confidenceHigh)

	for _, tr := range sorted {
		d.Overall.Trades++
		if tr.Win() {
			d.Overall.Wins++
		}
		d.Overall.PnL += tr.PnL

		byPair.add(tr.Pair, tr)
		byDir.add(string(tr.direction()), tr)
		if tr.SignalRSI != nil {
			byZone.add(rsiZone(*tr.SignalRSI), tr)
		}
		if c := tr.confidence(); c != nil {
			byConf.add(confidenceBucket(*c), tr)
		}
	}

	d.ByPair = byPair.list()
	d.ByDirection = byDir.list()
	d.ByRSIZone = byZone.list()
	d.ByConfidence = byConf.list()

	for _, tr := range sorted[:min(recentTrades, len(sorted))] {
		d.Recent = append(d.Recent, models.RecentTrade{
			Pair:      tr.Pair,
			Direction: tr.direction(),
			PnL:       tr.PnL,
			RSI:       tr.SignalRSI,
			ClosedAt:  tr.ClosedAt,
		})
	}

	d.Lessons = deriveLessons(d)
	return d
}

func deriveLessons(d *models.Digest) []string {
	var lessons []string

	long := models.BucketByName(d.ByDirection, string(models.DirectionLong))
	short := models.BucketByName(d.ByDirection, string(models.DirectionShort))
	if long.Trades >= minSamples && short.Trades >= minSamples {
		switch {
		case long.WinRate() > short.WinRate()+directionEdge:
			lessons = append(lessons, fmt.Sprintf(
				"LONG signals significantly outperform SHORT (%.0f%% vs %.0f%%). Favor LONG entries.", long.WinRate(), short.WinRate()))
		case short.WinRate() > long.WinRate()+directionEdge:
			lessons = append(lessons, fmt.Sprintf(
				"SHORT signals significantly outperform LONG (%.0f%% vs %.0f%%). Favor SHORT entries.", short.WinRate(), long.WinRate()))
		}
	}

	if high := models.BucketByName(d.ByConfidence, confidenceHigh); high.Trades >= minSamples {
		switch wr := high.WinRate(); {
		case wr < 50:
			lessons = append(lessons, fmt.Sprintf(
				"WARNING: High confidence signals (>70%%) only winning %.0f%%. Model is overconfident. Raise threshold.", wr))
		case wr > 70:
			lessons = append(lessons, fmt.Sprintf(
				"High confidence signals (>70%%) performing well at %.0f%% win rate. Trust them.", wr))
		}
	}

	if oversold := models.BucketByName(d.ByRSIZone, zoneOversold); oversold.Trades >= minSamples {
		switch wr := oversold.WinRate(); {
		case wr > 65:
			lessons = append(lessons, fmt.Sprintf(
				"Oversold RSI (<30) entries have %.0f%% win rate. Good reversal signals.", wr))
		case wr < 35:
			lessons = append(lessons, fmt.Sprintf(
				"Oversold RSI (<30) entries only %.0f%% win rate. Catching falling knives, avoid.", wr))
		}
	}

	return lessons
}
