package indicators

import "math"

type BollingerSeries struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes SMA(period) ± mult·σ using the population deviation.
func Bollinger(closes []float64, period int, mult float64) BollingerSeries {
	middle := SMA(closes, period)
	upper := undefinedSeries(len(closes))
	lower := undefinedSeries(len(closes))

	for i := range closes {
		if !Defined(middle[i]) {
			continue
		}
		var sumSq float64
		for _, v := range closes[i-period+1 : i+1] {
			d := v - middle[i]
			sumSq += d * d
		}
		std := math.Sqrt(sumSq / float64(period))
		upper[i] = middle[i] + mult*std
		lower[i] = middle[i] - mult*std
	}
	return BollingerSeries{Upper: upper, Middle: middle, Lower: lower}
}

// ATR computes Wilder's average true range. NaN when fewer than period+1
// candles are supplied.
func ATR(highs, lows, closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return nan
	}
	trs := trueRanges(highs, lows, closes)

	atr := mean(trs[:period])
	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
	}
	return atr
}

type ADXResult struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

func undefinedADX() ADXResult { return ADXResult{ADX: nan, PlusDI: nan, MinusDI: nan} }

// ADX computes Wilder's average directional index with +DI and -DI. The whole
// bundle is NaN unless there are enough bars to smooth period DX values.
func ADX(highs, lows, closes []float64, period int) ADXResult {
	if period <= 0 || len(closes) < period+1 {
		return undefinedADX()
	}

	trs := trueRanges(highs, lows, closes)
	plusDM := make([]float64, len(trs))
	minusDM := make([]float64, len(trs))
	for i := 1; i < len(closes); i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	p := float64(period)
	atr := mean(trs[:period])
	sPlus := mean(plusDM[:period])
	sMinus := mean(minusDM[:period])

	di := func() (float64, float64) {
		if atr <= 0 {
			return 0, 0
		}
		return sPlus / atr * 100, sMinus / atr * 100
	}

	dx := make([]float64, 0, len(trs))
	for i := period; i < len(trs); i++ {
		atr = (atr*(p-1) + trs[i]) / p
		sPlus = (sPlus*(p-1) + plusDM[i]) / p
		sMinus = (sMinus*(p-1) + minusDM[i]) / p

		pdi, mdi := di()
		if sum := pdi + mdi; sum > 0 {
			dx = append(dx, math.Abs(pdi-mdi)/sum*100)
		} else {
			dx = append(dx, 0)
		}
	}

	if len(dx) < period {
		return undefinedADX()
	}

	adx := mean(dx[:period])
	for _, v := range dx[period:] {
		adx = (adx*(p-1) + v) / p
	}
	pdi, mdi := di()
	return ADXResult{ADX: adx, PlusDI: pdi, MinusDI: mdi}
}
