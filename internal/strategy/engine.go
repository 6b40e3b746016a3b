package strategy

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"BreakoutScanner/internal/calculator"
	"BreakoutScanner/internal/model"
)

var (
	// ErrInsufficientHistory means the series is shorter than Config.MinBars.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrDegenerateRisk means the stop is not below the entry.
	ErrDegenerateRisk = errors.New("degenerate risk: stop not below entry")
	// ErrUndefinedIndicator means a value needed for trade levels is not defined.
	ErrUndefinedIndicator = errors.New("undefined indicator")
)

// Evaluate scores the most recent bar using the last close as entry.
func Evaluate(bars []model.OHLCV, cfg Config) (*model.Signal, error) {
	return evaluate(bars, cfg, 0)
}

// EvaluateLive scores the most recent bar and derives levels from a live
// market price instead of the last close. A non-positive price falls back to
// the close.
func EvaluateLive(bars []model.OHLCV, cfg Config, marketPrice float64) (*model.Signal, error) {
	return evaluate(bars, cfg, marketPrice)
}

func evaluate(bars []model.OHLCV, cfg Config, marketPrice float64) (*model.Signal, error) {
	need := max(cfg.MinBars, 2)
	if len(bars) < need {
		return nil, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientHistory, len(bars), need)
	}

	ind := calculator.Compute(bars, cfg.Periods)
	last := len(bars) - 1
	b := bench{bars: bars, ind: ind, i: last}

	conds := append(compression(b, cfg), breakoutAndTrend(b, cfg)...)
	points := sumPoints(conds)
	score := scorePct(points, cfg.MaxPoints)
	status := classify(b.breakout(), score, cfg.MinScore)
	prior := bench{bars: bars, ind: ind, i: last - 1}

	sig := &model.Signal{
		Status:     status,
		Score:      score,
		Points:     points,
		MaxPoints:  cfg.MaxPoints,
		Conditions: conds,
		Breakout:   status == model.StatusTrigger,
		Fresh:      status == model.StatusTrigger && !prior.breakout(),
		Close:      b.close(),
		RangeHigh:  b.priorRangeHigh(),
		ATR:        calculator.At(ind.ATRFast, last),
		AsOf:       bars[last].Time,
	}

	if status == model.StatusNone || score < cfg.MinScore {
		return sig, nil
	}

	levels, err := TradeLevelsFor(b.close(), sig.ATR, calculator.At(ind.RangeLow, last), marketPrice, cfg)
	if err != nil {
		return nil, err
	}
	sig.Levels = &levels
	return sig, nil
}

// classify maps a bar to TRIGGER when it broke out, SETUP when the score
// reaches the minimum, NONE otherwise.
func classify(breakout bool, score, minScore float64) model.Status {
	switch {
	case breakout:
		return model.StatusTrigger
	case score >= minScore:
		return model.StatusSetup
	default:
		return model.StatusNone
	}
}

// scorePct is round(points/maxPoints*100, 2), clamped to [0, 100].
func scorePct(points, maxPoints int) float64 {
	if maxPoints <= 0 || points <= 0 {
		return 0
	}
	if points >= maxPoints {
		return 100
	}
	return round2(float64(points) / float64(maxPoints) * 100)
}

// TradeLevelsFor derives entry, stop, targets and risk-reward. All prices are
// rounded to cents first and the ratios are computed from the rounded prices.
func TradeLevelsFor(close, atr, rangeLow, marketPrice float64, cfg Config) (model.TradeLevels, error) {
	if !calculator.IsDefined(close, atr, rangeLow, marketPrice) {
		return model.TradeLevels{}, ErrUndefinedIndicator
	}

	entry, shift := close, 0.0
	if marketPrice > 0 {
		entry = marketPrice
		if cfg.AnchorToLivePrice {
			shift = marketPrice - close
		}
	}

	lv := model.TradeLevels{
		Entry:       round2(entry),
		StopLoss:    round2(rangeLow - cfg.StopATRMultiple*atr + shift),
		TakeProfit1: round2(entry + cfg.Target1ATRMultiple*atr),
		TakeProfit2: round2(entry + cfg.Target2ATRMultiple*atr),
	}
	lv.Risk = round2(lv.Entry - lv.StopLoss)
	if lv.Risk <= 0 {
		return model.TradeLevels{}, fmt.Errorf("%w: entry %.2f stop %.2f", ErrDegenerateRisk, lv.Entry, lv.StopLoss)
	}
	lv.RiskReward = round2((lv.TakeProfit1 - lv.Entry) / lv.Risk)
	lv.RiskReward2 = round2((lv.TakeProfit2 - lv.Entry) / lv.Risk)
	return lv, nil
}

func round2(v float64) float64 {
	if !calculator.IsDefined(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
