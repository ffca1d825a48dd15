package indicators

import (
	"fmt"
	"math"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
)

// MinCandles is the shortest history ComputeAll accepts.
const MinCandles = 30

const recentWindow = 12

// ComputeAll builds the indicator snapshot at the last candle.
func ComputeAll(candles []models.Candle) (*models.IndicatorSnapshot, error) {
	if len(candles) < MinCandles {
		return nil, fmt.Errorf("%w: have %d candles, need %d", domain.ErrInsufficientHistory, len(candles), MinCandles)
	}

	n := len(candles)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	vwaps := make([]float64, n)
	for i, c := range candles {
		closes[i], highs[i], lows[i], volumes[i], vwaps[i] = c.Close, c.High, c.Low, c.Volume, c.VWAP
	}
	price := Last(closes)

	macd := MACD(closes, 12, 26, 9)
	bb := Bollinger(closes, 20, 2)
	ema20, ema50, ema200 := Last(EMA(closes, 20)), Last(EMA(closes, 50)), Last(EMA(closes, 200))
	adx := ADX(highs, lows, closes, 14)
	stoch := Stochastic(highs, lows, closes, 14, 3)
	obv := OBV(closes, volumes)
	levels := SupportResistance(highs, lows, 50)

	upper, middle, lower := Last(bb.Upper), Last(bb.Middle), Last(bb.Lower)

	return &models.IndicatorSnapshot{
		Price: price,
		RSI:   Ptr(Last(RSI(closes, 14))),
		MACD: models.MACDValue{
			Line:      Ptr(Last(macd.Line)),
			Signal:    Ptr(Last(macd.Signal)),
			Histogram: Ptr(Last(macd.Histogram)),
		},
		Bollinger: models.BollingerValue{
			Upper:    Ptr(upper),
			Middle:   Ptr(middle),
			Lower:    Ptr(lower),
			Position: Ptr(bandPosition(price, upper, lower)),
		},
		EMA: models.EMAValue{
			EMA20:         Ptr(ema20),
			EMA50:         Ptr(ema50),
			EMA200:        Ptr(ema200),
			EMA20Above50:  above(ema20, ema50),
			EMA50Above200: above(ema50, ema200),
		},
		ADX: models.ADXValue{
			ADX:     Ptr(adx.ADX),
			PlusDI:  Ptr(adx.PlusDI),
			MinusDI: Ptr(adx.MinusDI),
		},
		Stochastic: models.StochasticValue{
			K: Ptr(Last(stoch.K)),
			D: Ptr(Last(stoch.D)),
		},
		ATR:         Ptr(ATR(highs, lows, closes, 14)),
		OBV:         models.OBVValue{Value: Ptr(obv.Value), Trend: obv.Trend},
		MFI:         Ptr(MFI(highs, lows, closes, volumes, 14)),
		VolumeRatio: Ptr(VolumeRatio(volumes, 20)),
		SupportResistance: models.LevelsValue{
			Support:    Ptr(levels.Support),
			Resistance: Ptr(levels.Resistance),
		},
		VWAP:          Ptr(VWAP(highs, lows, closes, volumes, vwaps)),
		RecentCloses:  tail(closes, recentWindow),
		RecentVolumes: tail(volumes, recentWindow),
	}, nil
}

// bandPosition places price within the bands, clamped to [0,1]. NaN for
// degenerate bands.
func bandPosition(price, upper, lower float64) float64 {
	if !Defined(upper) || !Defined(lower) || upper == lower {
		return nan
	}
	return math.Min(1, math.Max(0, (price-lower)/(upper-lower)))
}

func above(a, b float64) *bool {
	if !Defined(a) || !Defined(b) {
		return nil
	}
	v := a > b
	return &v
}

func tail(s []float64, n int) []float64 {
	if len(s) > n {
		s = s[len(s)-n:]
	}
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
