package indicators

import "math"

// RSI computes Wilder's relative strength index. The first value is defined
// at index period. A window with no losses reads 100.
func RSI(closes []float64, period int) []float64 {
	out := undefinedSeries(len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	p := float64(period)
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain := math.Max(change, 0)
		loss := math.Max(-change, 0)

		if i <= period {
			avgGain += gain / p
			avgLoss += loss / p
			if i < period {
				continue
			}
		} else {
			avgGain = (avgGain*(p-1) + gain) / p
			avgLoss = (avgLoss*(p-1) + loss) / p
		}

		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

type MACDSeries struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes EMA(fast)-EMA(slow), its EMA(signal) and the histogram.
func MACD(closes []float64, fast, slow, signal int) MACDSeries {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	line := undefinedSeries(len(closes))
	for i := range closes {
		if Defined(emaFast[i]) && Defined(emaSlow[i]) {
			line[i] = emaFast[i] - emaSlow[i]
		}
	}

	sig := undefinedSeries(len(closes))
	valid, start := definedTail(line)
	copy(sig[start:], EMA(valid, signal))

	hist := undefinedSeries(len(closes))
	for i := range closes {
		if Defined(line[i]) && Defined(sig[i]) {
			hist[i] = line[i] - sig[i]
		}
	}
	return MACDSeries{Line: line, Signal: sig, Histogram: hist}
}

type StochasticSeries struct {
	K []float64
	D []float64
}

// Stochastic computes %K over kPeriod bars and %D as the SMA(dPeriod) of %K.
// A flat range reads 50.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) StochasticSeries {
	k := undefinedSeries(len(closes))
	if kPeriod <= 0 {
		return StochasticSeries{K: k, D: undefinedSeries(len(closes))}
	}
	for i := kPeriod - 1; i < len(closes); i++ {
		hh, ll := highs[i], lows[i]
		for j := i - kPeriod + 1; j <= i; j++ {
			hh = math.Max(hh, highs[j])
			ll = math.Min(ll, lows[j])
		}
		if r := hh - ll; r > 0 {
			k[i] = (closes[i] - ll) / r * 100
		} else {
			k[i] = 50
		}
	}

	d := undefinedSeries(len(closes))
	valid, start := definedTail(k)
	copy(d[start:], SMA(valid, dPeriod))
	return StochasticSeries{K: k, D: d}
}

// MFI computes the money flow index over the trailing period using typical
// price. Returns NaN when fewer than period+1 candles are supplied.
func MFI(highs, lows, closes, volumes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return nan
	}

	tp := make([]float64, len(closes))
	for i := range closes {
		tp[i] = (highs[i] + lows[i] + closes[i]) / 3
	}

	var pos, neg float64
	for i := len(closes) - period; i < len(closes); i++ {
		flow := tp[i] * volumes[i]
		if tp[i] > tp[i-1] {
			pos += flow
		} else {
			neg += flow
		}
	}

	if neg == 0 {
		return 100
	}
	return 100 - 100/(1+pos/neg)
}
