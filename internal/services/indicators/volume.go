package indicators

type OBVResult struct {
	Value float64
	Trend string
}

const (
	TrendRising  = "rising"
	TrendFalling = "falling"
)

// OBV accumulates signed volume. Trend compares the final value with the mean
// of the last 10 values.
func OBV(closes, volumes []float64) OBVResult {
	if len(closes) == 0 {
		return OBVResult{Value: nan}
	}

	series := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		series[i] = series[i-1]
		switch {
		case closes[i] > closes[i-1]:
			series[i] += volumes[i]
		case closes[i] < closes[i-1]:
			series[i] -= volumes[i]
		}
	}

	recent := series
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	last := Last(series)
	trend := TrendFalling
	if last > mean(recent) {
		trend = TrendRising
	}
	return OBVResult{Value: last, Trend: trend}
}

// VolumeRatio divides the last volume by the mean of the last period volumes.
func VolumeRatio(volumes []float64, period int) float64 {
	if period <= 0 || len(volumes) < period {
		return nan
	}
	avg := mean(volumes[len(volumes)-period:])
	if avg <= 0 {
		return nan
	}
	return Last(volumes) / avg
}

// VWAP returns the exchange-reported VWAP of the last candle, falling back to
// the cumulative typical-price VWAP when none is reported.
func VWAP(highs, lows, closes, volumes, reported []float64) float64 {
	if n := len(reported); n > 0 && reported[n-1] > 0 {
		return reported[n-1]
	}

	var pv, vol float64
	for i := range closes {
		pv += (highs[i] + lows[i] + closes[i]) / 3 * volumes[i]
		vol += volumes[i]
	}
	if vol == 0 {
		return nan
	}
	return pv / vol
}
