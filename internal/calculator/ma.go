package calculator

import (
	"math"

	"BreakoutScanner/internal/model"
)

// EMA computes the exponential moving average with alpha = 2/(span+1),
// seeded with the first value (no SMA warm-up).
func EMA(series []float64, span int) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 {
		return out
	}
	if span <= 0 {
		fillNaN(out)
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = alpha*series[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RollingMean returns the trailing mean over window bars.
func RollingMean(series []float64, window int) []float64 {
	return rolling(series, window, func(w []float64) float64 {
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		return sum / float64(len(w))
	})
}

// RollingStd returns the trailing sample standard deviation (n-1 denominator).
// A window of one bar has no sample deviation and yields NaN.
func RollingStd(series []float64, window int) []float64 {
	return rolling(series, window, func(w []float64) float64 {
		n := len(w)
		if n < 2 {
			return math.NaN()
		}
		mean := 0.0
		for _, v := range w {
			mean += v
		}
		mean /= float64(n)
		ss := 0.0
		for _, v := range w {
			d := v - mean
			ss += d * d
		}
		return math.Sqrt(ss / float64(n-1))
	})
}

// rolling applies fn to each trailing inclusive window. Indices before
// window-1, and windows holding any NaN, yield NaN.
func rolling(series []float64, window int, fn func(w []float64) float64) []float64 {
	out := make([]float64, len(series))
	fillNaN(out)
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(series); i++ {
		w := series[i-window+1 : i+1]
		if !IsDefined(w...) {
			continue
		}
		out[i] = fn(w)
	}
	return out
}

// IsDefined reports whether none of vals is NaN or infinite.
func IsDefined(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// At returns series[i], or NaN when i is out of range.
func At(series []float64, i int) float64 {
	if i < 0 || i >= len(series) {
		return math.NaN()
	}
	return series[i]
}

func fillNaN(s []float64) {
	for i := range s {
		s[i] = math.NaN()
	}
}

// Closes extracts close prices.
func Closes(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts volumes.
func Volumes(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
