package calculator

import (
	"sort"

	"BreakoutScanner/internal/model"
)

// RollingMax returns the trailing maximum over window bars.
func RollingMax(series []float64, window int) []float64 {
	return rolling(series, window, func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			if v > m {
				m = v
			}
		}
		return m
	})
}

// RollingMin returns the trailing minimum over window bars.
func RollingMin(series []float64, window int) []float64 {
	return rolling(series, window, func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			if v < m {
				m = v
			}
		}
		return m
	})
}

// RollingMedian returns the trailing median over window bars. Even windows
// average the two middle values.
func RollingMedian(series []float64, window int) []float64 {
	buf := make([]float64, 0, max(window, 0))
	return rolling(series, window, func(w []float64) float64 {
		buf = append(buf[:0], w...)
		sort.Float64s(buf)
		n := len(buf)
		if n%2 == 1 {
			return buf[n/2]
		}
		return (buf[n/2-1] + buf[n/2]) / 2
	})
}

// Subtract returns a[i]-b[i]; NaN propagates.
func Subtract(a, b []float64) []float64 {
	n := min(len(a), len(b))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] - b[i]
	}
	return out
}

// Highs extracts bar highs.
func Highs(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts bar lows.
func Lows(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}
