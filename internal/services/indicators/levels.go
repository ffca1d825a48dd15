package indicators

import "math"

type Levels struct {
	Support    float64
	Resistance float64
}

// SupportResistance finds swing highs and lows (strictly above/below two bars
// on each side) within the last lookback bars. Resistance is the highest of the
// last three swing highs; support is the lowest of the last three swing lows.
func SupportResistance(highs, lows []float64, lookback int) Levels {
	if len(highs) > lookback {
		highs = highs[len(highs)-lookback:]
		lows = lows[len(lows)-lookback:]
	}

	var swingHighs, swingLows []float64
	for i := 2; i < len(highs)-2; i++ {
		h := highs[i]
		if h > highs[i-1] && h > highs[i-2] && h > highs[i+1] && h > highs[i+2] {
			swingHighs = append(swingHighs, h)
		}
		l := lows[i]
		if l < lows[i-1] && l < lows[i-2] && l < lows[i+1] && l < lows[i+2] {
			swingLows = append(swingLows, l)
		}
	}

	lv := Levels{Support: nan, Resistance: nan}
	if n := len(swingHighs); n > 0 {
		lv.Resistance = math.Inf(-1)
		for _, h := range swingHighs[max(0, n-3):] {
			lv.Resistance = math.Max(lv.Resistance, h)
		}
	}
	if n := len(swingLows); n > 0 {
		lv.Support = math.Inf(1)
		for _, l := range swingLows[max(0, n-3):] {
			lv.Support = math.Min(lv.Support, l)
		}
	}
	return lv
}
