package model

// IndicatorSet holds every derived sequence used by the scorer.
// Each slice is aligned index-for-index with the bars it was computed from;
// NaN marks an index where the window is not yet full.
type IndicatorSet struct {
	EMAFast []float64 // EMA(20) of close
	EMASlow []float64 // EMA(50) of close

	ATRFast []float64 // ATR(14)
	ATRSlow []float64 // ATR(40)

	RangeHigh   []float64 // rolling 10-bar high of highs
	RangeLow    []float64 // rolling 10-bar low of lows
	RangeWidth  []float64 // RangeHigh - RangeLow
	RangeMedian []float64 // rolling 40-bar median of RangeWidth

	VolumeMean []float64 // rolling 20-bar mean of volume

	BBWidth       []float64 // std(20)*4/mean(20) of close
	BBWidthMedian []float64 // rolling 40-bar median of BBWidth
}
