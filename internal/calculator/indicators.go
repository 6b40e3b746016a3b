package calculator

import "BreakoutScanner/internal/model"

// Periods configures the windows used by Compute.
type Periods struct {
	EMAFast      int
	EMASlow      int
	ATRFast      int
	ATRSlow      int
	RangeWindow  int
	MedianWindow int
	VolumeWindow int
	BBWindow     int
}

// DefaultPeriods returns EMA 20/50, ATR 14/40, 10-bar range, 40-bar medians,
// 20-bar volume mean and 20-bar Bollinger width.
func DefaultPeriods() Periods {
	return Periods{
		EMAFast:      20,
		EMASlow:      50,
		ATRFast:      14,
		ATRSlow:      40,
		RangeWindow:  10,
		MedianWindow: 40,
		VolumeWindow: 20,
		BBWindow:     20,
	}
}

// Compute derives the full indicator set for bars.
func Compute(bars []model.OHLCV, p Periods) model.IndicatorSet {
	closes := Closes(bars)
	highs := Highs(bars)
	lows := Lows(bars)

	rangeHigh := RollingMax(highs, p.RangeWindow)
	rangeLow := RollingMin(lows, p.RangeWindow)
	width := Subtract(rangeHigh, rangeLow)
	bb := BollingerWidth(closes, p.BBWindow)

	return model.IndicatorSet{
		EMAFast:       EMA(closes, p.EMAFast),
		EMASlow:       EMA(closes, p.EMASlow),
		ATRFast:       ATR(bars, p.ATRFast),
		ATRSlow:       ATR(bars, p.ATRSlow),
		RangeHigh:     rangeHigh,
		RangeLow:      rangeLow,
		RangeWidth:    width,
		RangeMedian:   RollingMedian(width, p.MedianWindow),
		VolumeMean:    RollingMean(Volumes(bars), p.VolumeWindow),
		BBWidth:       bb,
		BBWidthMedian: RollingMedian(bb, p.MedianWindow),
	}
}
