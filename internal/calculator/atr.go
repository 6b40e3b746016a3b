package calculator

import (
	"math"

	"BreakoutScanner/internal/model"
)

// TrueRange computes max(high-low, |high-prevClose|, |low-prevClose|) per bar.
// The first bar has no previous close and yields high-low.
func TrueRange(bars []model.OHLCV) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		hl := b.High - b.Low
		if i == 0 {
			tr[i] = hl
			continue
		}
		prev := bars[i-1].Close
		tr[i] = math.Max(hl, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
	}
	return tr
}

// ATR is the simple rolling mean of true range over n bars. The first n-1
// values are NaN.
func ATR(bars []model.OHLCV, n int) []float64 {
	return RollingMean(TrueRange(bars), n)
}
