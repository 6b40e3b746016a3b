package model

import "time"

// Status classifies a ticker at one bar.
type Status string

const (
	StatusNone    Status = "NONE"
	StatusSetup   Status = "SETUP"
	StatusTrigger Status = "TRIGGER"
)

// Rank orders statuses for result sorting: TRIGGER first.
func (s Status) Rank() int {
	switch s {
	case StatusTrigger:
		return 0
	case StatusSetup:
		return 1
	default:
		return 2
	}
}

// Condition is one scoring rule's outcome.
type Condition struct {
	Name   string
	Met    bool
	Points int
}

// TradeLevels are the suggested entry, stop and targets for a signal.
type TradeLevels struct {
	Entry       float64
	StopLoss    float64
	TakeProfit1 float64
	TakeProfit2 float64
	Risk        float64
	RiskReward  float64 // to TakeProfit1
	RiskReward2 float64 // to TakeProfit2
}

// Signal is the evaluation result for one ticker at its most recent bar.
type Signal struct {
	Status     Status
	Score      float64 // 0..100
	Points     int
	MaxPoints  int
	Conditions []Condition
	Breakout   bool
	Fresh      bool // TRIGGER on this bar but not on the prior bar
	Close      float64
	RangeHigh  float64 // prior-bar 10-bar high the close is compared against
	ATR        float64
	AsOf       time.Time
	Levels     *TradeLevels // nil unless the signal qualified for levels
}

// ScanRow is one accepted ticker in a scan.
type ScanRow struct {
	Ticker       string
	Signal       Signal
	Price        float64 // resolved market price (live quote or last close)
	LivePrice    bool
	EarningsSoon bool
}

// ScanCounters summarize what happened to every ticker in a scan.
type ScanCounters struct {
	Total            int
	Evaluated        int
	FetchFailures    int
	Insufficient     int
	Rejected         int
	BelowThreshold   int
	EarningsExcluded int
	Accepted         int
}

// ScanResult is the ordered output of one scan invocation. Rows and Counters
// depend only on the input bars; RunID and the timestamps identify the run.
type ScanResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Rows       []ScanRow
	Counters   ScanCounters
	Cancelled  bool
}

// Empty reports whether the scan ran but accepted nothing.
func (r *ScanResult) Empty() bool { return r != nil && len(r.Rows) == 0 }
