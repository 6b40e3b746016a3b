package calculator

import "math"

// BollingerWidth returns (upper-lower)/middle for 2-sigma bands, which is
// std*4/mean over window closes. A zero mean yields NaN instead of Inf.
func BollingerWidth(closes []float64, window int) []float64 {
	std := RollingStd(closes, window)
	mean := RollingMean(closes, window)
	out := make([]float64, len(closes))
	for i := range out {
		if !IsDefined(std[i], mean[i]) || mean[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = std[i] * 4 / mean[i]
	}
	return out
}
