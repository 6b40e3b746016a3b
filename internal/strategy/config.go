package strategy

import (
	"errors"
	"fmt"

	"BreakoutScanner/internal/calculator"
)

// compressionRules is the number of one-point compression conditions.
const compressionRules = 5

// trendRules is the number of one-point EMA trend conditions.
const trendRules = 2

// Config is the scoring contract of the compression-to-breakout rule set.
type Config struct {
	Periods calculator.Periods

	MinBars  int     // fewer bars is insufficient history
	MinScore float64 // SETUP threshold and level-derivation threshold, 0..100

	// MaxPoints is the score denominator. It must be at least RuleMaxPoints
	// so a score can never exceed 100.
	MaxPoints int

	BreakoutPoints  int     // close above the prior-bar range high
	ProximityPoints int     // close within ProximityRatio of the range high, 0 disables
	ProximityRatio  float64 // e.g. 0.98

	ATRLookback           int     // bars back for the ATR expansion check
	ATRExpansionTolerance float64 // e.g. 1.05

	StopATRMultiple    float64 // stop = range low - k*ATR
	Target1ATRMultiple float64
	Target2ATRMultiple float64

	// AnchorToLivePrice shifts the stop by (live price - last close) so the
	// stop distance stays the same when a live quote replaces the close.
	AnchorToLivePrice bool
}

// DefaultConfig returns the canonical rule set: five compression points,
// a two-point breakout and two trend points over a nine-point denominator.
func DefaultConfig() Config {
	return Config{
		Periods:               calculator.DefaultPeriods(),
		MinBars:               70,
		MinScore:              65,
		MaxPoints:             9,
		BreakoutPoints:        2,
		ProximityPoints:       0,
		ProximityRatio:        0.98,
		ATRLookback:           10,
		ATRExpansionTolerance: 1.05,
		StopATRMultiple:       0.2,
		Target1ATRMultiple:    2,
		Target2ATRMultiple:    3,
		AnchorToLivePrice:     true,
	}
}

// RuleMaxPoints is the most points the configured rules can award on one bar.
// Breakout and proximity are mutually exclusive.
func (c Config) RuleMaxPoints() int {
	return compressionRules + max(c.BreakoutPoints, c.ProximityPoints) + trendRules
}

// Validate checks the configuration is internally consistent.
func (c Config) Validate() error {
	p := c.Periods
	for name, v := range map[string]int{
		"ema_fast": p.EMAFast, "ema_slow": p.EMASlow,
		"atr_fast": p.ATRFast, "atr_slow": p.ATRSlow,
		"range_window": p.RangeWindow, "median_window": p.MedianWindow,
		"volume_window": p.VolumeWindow, "bb_window": p.BBWindow,
	} {
		if v <= 0 {
			return fmt.Errorf("period %s must be positive, got %d", name, v)
		}
	}
	if c.MinBars < 2 {
		return errors.New("min_bars must be at least 2")
	}
	if c.ATRLookback <= 0 {
		return errors.New("atr_lookback must be positive")
	}
	if c.BreakoutPoints < 0 || c.ProximityPoints < 0 {
		return errors.New("rule points must not be negative")
	}
	if c.MaxPoints < c.RuleMaxPoints() {
		return fmt.Errorf("max_points %d is below the rule set maximum %d", c.MaxPoints, c.RuleMaxPoints())
	}
	if c.MinScore < 0 || c.MinScore > 100 {
		return fmt.Errorf("min_score must be within [0, 100], got %.2f", c.MinScore)
	}
	if c.StopATRMultiple < 0 || c.Target1ATRMultiple <= 0 || c.Target2ATRMultiple <= 0 {
		return errors.New("atr multiples must be positive")
	}
	return nil
}
