// Package indicators computes technical indicators from OHLCV candles.
//
// Series functions return a slice aligned with their input where positions
// without enough history hold NaN. Scalar functions return NaN when the input
// is too short. Nothing here panics on short input or extrapolates.
package indicators

import "math"

var nan = math.NaN()

// Defined reports whether v holds a computed value.
func Defined(v float64) bool { return !math.IsNaN(v) }

// Last returns the final element of s, or NaN for an empty series.
func Last(s []float64) float64 {
	if len(s) == 0 {
		return nan
	}
	return s[len(s)-1]
}

// Ptr converts NaN into nil.
func Ptr(v float64) *float64 {
	if !Defined(v) {
		return nil
	}
	return &v
}

func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = nan
	}
	return out
}

// definedTail returns the contiguous run of defined values at the end of s
// and the index where it starts.
func definedTail(s []float64) ([]float64, int) {
	start := len(s)
	for start > 0 && Defined(s[start-1]) {
		start--
	}
	return s[start:], start
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return nan
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SMA computes the simple moving average.
func SMA(data []float64, period int) []float64 {
	out := undefinedSeries(len(data))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(data); i++ {
		out[i] = mean(data[i-period+1 : i+1])
	}
	return out
}

// EMA computes the exponential moving average seeded with the SMA of the
// first period values.
func EMA(data []float64, period int) []float64 {
	out := undefinedSeries(len(data))
	if period <= 0 || len(data) < period {
		return out
	}

	k := 2.0 / (float64(period) + 1.0)
	prev := mean(data[:period])
	out[period-1] = prev
	for i := period; i < len(data); i++ {
		prev = (data[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

func trueRanges(highs, lows, closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	trs := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		trs = append(trs, math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1]))))
	}
	return trs
}
