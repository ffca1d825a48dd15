package liquidity

import (
	"fmt"
	"math"

	"CryptoEdge/internal/domain/models"
)

const trendThreshold = 15

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

// ComputeScore folds the macro inputs into a composite in [-100,100]:
// 60% market-cap momentum, 20% BTC dominance deviation from 50%, 20%
// volume/market-cap ratio deviation from a 5% baseline.
func ComputeScore(capChange24hPct, btcDominancePct, totalMarketCap, volume24h float64) int {
	momentum := clamp(capChange24hPct*10, -100, 100)

	// Falling dominance means capital is spreading into the broader market.
	dominance := clamp((50-btcDominancePct)*4, -100, 100)

	volRatio := 5.0
	if totalMarketCap > 0 {
		volRatio = volume24h / totalMarketCap * 100
	}
	activity := clamp((volRatio-5)*33, -100, 100)

	composite := momentum*0.6 + dominance*0.2 + activity*0.2
	return roundHalfUp(clamp(composite, -100, 100))
}

// roundHalfUp rounds .5 toward +Inf, so -15.5 becomes -15.
func roundHalfUp(v float64) int { return int(math.Floor(v + 0.5)) }

// TrendFor maps a score onto expanding / neutral / contracting.
func TrendFor(score int) models.LiquidityTrend {
	switch {
	case score > trendThreshold:
		return models.LiquidityExpanding
	case score < -trendThreshold:
		return models.LiquidityContracting
	default:
		return models.LiquidityNeutral
	}
}

// Assessment renders the one-line summary stored on each signal, e.g.
// "expanding (score +30)". Empty when there is no context.
func Assessment(lc *models.LiquidityContext) string {
	if lc == nil {
		return ""
	}
	return fmt.Sprintf("%s (score %+d)", lc.Trend, lc.Score)
}
