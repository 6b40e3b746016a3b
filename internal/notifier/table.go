package notifier

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"BreakoutScanner/internal/model"
)

// TableSink prints results as an aligned text table.
type TableSink struct {
	W io.Writer
}

func NewTableSink(w io.Writer) *TableSink { return &TableSink{W: w} }

func (t *TableSink) Name() string { return "table" }

func (t *TableSink) Publish(_ context.Context, res *model.ScanResult) error {
	c := res.Counters
	fmt.Fprintf(t.W, "run %s: scanned %d, ok %d, failed %d, insufficient %d, rejected %d, below threshold %d, earnings excluded %d\n",
		res.RunID, c.Total, c.Evaluated, c.FetchFailures, c.Insufficient, c.Rejected, c.BelowThreshold, c.EarningsExcluded)
	if res.Cancelled {
		fmt.Fprintln(t.W, "scan cancelled: partial results")
	}
	if len(res.Rows) == 0 {
		_, err := fmt.Fprintln(t.W, "no signals")
		return err
	}

	tw := tabwriter.NewWriter(t.W, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Ticker\tStatus\tPrice\tScore\tEntry\tStop\tTP1\tTP2\tR:R\tEarnings\t")
	for _, row := range res.Rows {
		sig := row.Signal
		lv := model.TradeLevels{}
		if sig.Levels != nil {
			lv = *sig.Levels
		}
		earnings := ""
		if row.EarningsSoon {
			earnings = "soon"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t\n",
			row.Ticker, sig.Status, row.Price, sig.Score,
			lv.Entry, lv.StopLoss, lv.TakeProfit1, lv.TakeProfit2, lv.RiskReward, earnings)
	}
	return tw.Flush()
}
