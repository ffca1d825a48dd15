package indicators

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
)

func randomCandles(seed int64, n int, drift float64) []models.Candle {
	r := rand.New(rand.NewSource(seed))
	out := make([]models.Candle, n)
	prev := 100.0
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		cl := math.Max(1, prev+drift+r.NormFloat64()*2)
		hi := math.Max(prev, cl) + r.Float64()
		lo := math.Min(prev, cl) - r.Float64()
		out[i] = models.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   prev,
			High:   hi,
			Low:    lo,
			Close:  cl,
			Volume: 1 + r.Float64()*10,
		}
		prev = cl
	}
	return out
}

func split(candles []models.Candle) (closes, highs, lows, volumes []float64) {
	for _, c := range candles {
		closes = append(closes, c.Close)
		highs = append(highs, c.High)
		lows = append(lows, c.Low)
		volumes = append(volumes, c.Volume)
	}
	return
}

func TestEMASeededWithSMA(t *testing.T) {
	got := EMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.False(t, Defined(got[0]))
	assert.False(t, Defined(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-9)
	assert.InDelta(t, 3.0, got[3], 1e-9)
	assert.InDelta(t, 4.0, got[4], 1e-9)
}

func TestSeriesUndefinedBeforeHistory(t *testing.T) {
	closes, highs, lows, volumes := split(randomCandles(1, 10, 0))

	for i, v := range SMA(closes, 5) {
		assert.Equal(t, i >= 4, Defined(v), "sma[%d]", i)
	}
	for i, v := range RSI(closes, 14) {
		assert.False(t, Defined(v), "rsi[%d]", i)
	}
	assert.False(t, Defined(ATR(highs, lows, closes, 14)))
	assert.False(t, Defined(MFI(highs, lows, closes, volumes, 14)))
	assert.False(t, Defined(VolumeRatio(volumes, 20)))
	assert.False(t, Defined(ADX(highs, lows, closes, 14).ADX))

	assert.NotPanics(t, func() {
		MACD(nil, 12, 26, 9)
		Stochastic(nil, nil, nil, 14, 3)
		OBV(nil, nil)
		SupportResistance(nil, nil, 50)
	})
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	assert.Equal(t, 100.0, Last(RSI(closes, 14)))
}

func TestStochasticFlatRange(t *testing.T) {
	flat := []float64{5, 5, 5, 5, 5}
	s := Stochastic(flat, flat, flat, 3, 2)
	assert.Equal(t, 50.0, Last(s.K))
	assert.Equal(t, 50.0, Last(s.D))
	assert.False(t, Defined(s.D[2]))
	assert.True(t, Defined(s.D[3]))
}

func TestOBVTrend(t *testing.T) {
	r := OBV([]float64{1, 2, 1, 3}, []float64{10, 5, 7, 2})
	assert.Equal(t, 0.0, r.Value)
	assert.Equal(t, TrendFalling, r.Trend)

	r = OBV([]float64{1, 2, 3, 4}, []float64{1, 1, 1, 5})
	assert.Equal(t, 7.0, r.Value)
	assert.Equal(t, TrendRising, r.Trend)
}

func TestSupportResistance(t *testing.T) {
	highs := []float64{1, 2, 5, 2, 1, 2, 7, 2, 1}
	lows := []float64{5, 4, 1, 4, 5, 4, 2, 4, 5}
	lv := SupportResistance(highs, lows, 50)
	assert.Equal(t, 7.0, lv.Resistance)
	assert.Equal(t, 1.0, lv.Support)

	lv = SupportResistance([]float64{1, 2, 3}, []float64{1, 2, 3}, 50)
	assert.False(t, Defined(lv.Resistance))
	assert.False(t, Defined(lv.Support))
}

func TestVWAPPrefersReported(t *testing.T) {
	h, l, c, v := []float64{3, 6}, []float64{1, 2}, []float64{2, 4}, []float64{1, 1}
	assert.Equal(t, 9.5, VWAP(h, l, c, v, []float64{0, 9.5}))
	assert.InDelta(t, 3.0, VWAP(h, l, c, v, nil), 1e-9)
}

func TestIndicatorBounds(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		for _, n := range []int{30, 45, 120, 250} {
			candles := randomCandles(seed, n, float64(seed%5)-2)
			closes, highs, lows, volumes := split(candles)

			for i, v := range RSI(closes, 14) {
				if Defined(v) {
					require.True(t, v >= 0 && v <= 100, "rsi[%d]=%v seed=%d", i, v, seed)
				}
			}

			adx := ADX(highs, lows, closes, 14)
			if Defined(adx.ADX) {
				assert.True(t, adx.ADX >= 0 && adx.ADX <= 100, "adx=%v seed=%d", adx.ADX, seed)
			}

			bb := Bollinger(closes, 20, 2)
			for i := range closes {
				if Defined(bb.Upper[i]) && Defined(bb.Middle[i]) && Defined(bb.Lower[i]) {
					require.GreaterOrEqual(t, bb.Upper[i], bb.Middle[i])
					require.GreaterOrEqual(t, bb.Middle[i], bb.Lower[i])
				}
			}

			macd := MACD(closes, 12, 26, 9)
			for i := range closes {
				if Defined(macd.Line[i]) && Defined(macd.Signal[i]) {
					require.InDelta(t, macd.Line[i]-macd.Signal[i], macd.Histogram[i], 1e-9)
				} else {
					require.False(t, Defined(macd.Histogram[i]))
				}
			}

			mfi := MFI(highs, lows, closes, volumes, 14)
			assert.True(t, mfi >= 0 && mfi <= 100, "mfi=%v", mfi)
		}
	}
}

func TestComputeAllRequiresHistory(t *testing.T) {
	_, err := ComputeAll(randomCandles(7, MinCandles-1, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientHistory))
}

func TestComputeAllSnapshot(t *testing.T) {
	candles := randomCandles(3, 60, 0.5)
	snap, err := ComputeAll(candles)
	require.NoError(t, err)

	assert.Equal(t, candles[59].Close, snap.Price)
	require.NotNil(t, snap.RSI)
	assert.True(t, *snap.RSI >= 0 && *snap.RSI <= 100)
	require.NotNil(t, snap.MACD.Histogram)
	assert.InDelta(t, *snap.MACD.Line-*snap.MACD.Signal, *snap.MACD.Histogram, 1e-9)
	require.NotNil(t, snap.Bollinger.Position)
	assert.True(t, *snap.Bollinger.Position >= 0 && *snap.Bollinger.Position <= 1)
	assert.NotNil(t, snap.EMA.EMA50)
	assert.NotNil(t, snap.EMA.EMA20Above50)
	assert.Nil(t, snap.EMA.EMA200)
	assert.Nil(t, snap.EMA.EMA50Above200)
	assert.NotNil(t, snap.ADX.ADX)
	assert.NotNil(t, snap.ATR)
	assert.NotNil(t, snap.VWAP)
	assert.Len(t, snap.RecentCloses, 12)
	assert.Len(t, snap.RecentVolumes, 12)
	assert.Contains(t, []string{TrendRising, TrendFalling}, snap.OBV.Trend)
}
