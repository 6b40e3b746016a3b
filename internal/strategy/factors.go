package strategy

import (
	"BreakoutScanner/internal/calculator"
	"BreakoutScanner/internal/model"
)

// Condition names as reported in model.Signal.Conditions.
const (
	CondATRContraction  = "atr14<atr40"
	CondATRNotExpanding = "atr14 not expanding"
	CondRangeNarrow     = "range10<median40"
	CondBBSqueeze       = "bbwidth<median40"
	CondQuietVolume     = "volume<mean20"
	CondBreakout        = "close>range high"
	CondNearBreakout    = "close near range high"
	CondAboveEMAFast    = "close>ema20"
	CondAboveEMASlow    = "close>ema50"
)

// bench is the view of one bar the rules read from. Breakout comparisons use
// the range computed through the prior bar so today's high never counts.
type bench struct {
	bars []model.OHLCV
	ind  model.IndicatorSet
	i    int
}

func (b bench) close() float64 { return b.bars[b.i].Close }

// priorRangeHigh is the rolling range high as of the previous bar.
func (b bench) priorRangeHigh() float64 { return calculator.At(b.ind.RangeHigh, b.i-1) }

// breakout reports close > prior-bar range high. Undefined values are false.
func (b bench) breakout() bool {
	if b.i < 1 {
		return false
	}
	hi := b.priorRangeHigh()
	return calculator.IsDefined(hi) && b.close() > hi
}

func cond(name string, met bool, points int) model.Condition {
	if !met {
		return model.Condition{Name: name}
	}
	return model.Condition{Name: name, Met: true, Points: points}
}

// compression awards one point per quiet-market condition.
func compression(b bench, cfg Config) []model.Condition {
	ind, i := b.ind, b.i

	atrFast := calculator.At(ind.ATRFast, i)
	atrSlow := calculator.At(ind.ATRSlow, i)
	atrBack := calculator.At(ind.ATRFast, i-cfg.ATRLookback)
	priorWidth := calculator.At(ind.RangeWidth, i-1)
	rangeMedian := calculator.At(ind.RangeMedian, i)
	bb := calculator.At(ind.BBWidth, i)
	bbMedian := calculator.At(ind.BBWidthMedian, i)
	volMean := calculator.At(ind.VolumeMean, i)
	vol := b.bars[i].Volume

	return []model.Condition{
		cond(CondATRContraction,
			calculator.IsDefined(atrFast, atrSlow) && atrFast < atrSlow, 1),
		cond(CondATRNotExpanding,
			calculator.IsDefined(atrFast, atrBack) && atrFast <= atrBack*cfg.ATRExpansionTolerance, 1),
		cond(CondRangeNarrow,
			calculator.IsDefined(priorWidth, rangeMedian) && priorWidth < rangeMedian, 1),
		cond(CondBBSqueeze,
			calculator.IsDefined(bb, bbMedian) && bb < bbMedian, 1),
		cond(CondQuietVolume,
			calculator.IsDefined(vol, volMean) && vol < volMean, 1),
	}
}

// breakoutAndTrend scores the breakout (or proximity) and the EMA filter.
func breakoutAndTrend(b bench, cfg Config) []model.Condition {
	c := b.close()
	broke := b.breakout()
	conds := []model.Condition{cond(CondBreakout, broke, cfg.BreakoutPoints)}

	if cfg.ProximityPoints > 0 {
		hi := b.priorRangeHigh()
		near := !broke && calculator.IsDefined(hi) && c >= cfg.ProximityRatio*hi
		conds = append(conds, cond(CondNearBreakout, near, cfg.ProximityPoints))
	}

	emaFast := calculator.At(b.ind.EMAFast, b.i)
	emaSlow := calculator.At(b.ind.EMASlow, b.i)
	conds = append(conds,
		cond(CondAboveEMAFast, calculator.IsDefined(emaFast) && c > emaFast, 1),
		cond(CondAboveEMASlow, calculator.IsDefined(emaSlow) && c > emaSlow, 1),
	)
	return conds
}

func sumPoints(conds []model.Condition) int {
	total := 0
	for _, c := range conds {
		total += c.Points
	}
	return total
}
