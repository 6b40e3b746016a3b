package notifier

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"BreakoutScanner/internal/model"
)

// DefaultMaxMessage is the per-message cap used for chat sinks.
const DefaultMaxMessage = 1900

// Style selects chat markup for summaries.
type Style int

const (
	StyleHTML     Style = iota // Telegram
	StyleMarkdown              // Discord
)

func (s Style) bold(text string) string {
	if s == StyleMarkdown {
		return "**" + text + "**"
	}
	return "<b>" + html.EscapeString(text) + "</b>"
}

// FormatScanSummary renders a scan result as a chat message body.
func FormatScanSummary(res *model.ScanResult, style Style) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 %s | %s\n", style.bold("Breakout scan"), res.StartedAt.UTC().Format("2006-01-02 15:04 MST")))
	c := res.Counters
	b.WriteString(fmt.Sprintf("Scanned %d | ok %d | failed %d | accepted %d\n",
		c.Total, c.Evaluated, c.FetchFailures, c.Accepted))
	if res.Cancelled {
		b.WriteString("⚠️ scan was cancelled, results are partial\n")
	}
	b.WriteString("\n")

	if len(res.Rows) == 0 {
		b.WriteString("No tickers met the score and risk-reward thresholds.\n")
		return b.String()
	}
	for _, row := range res.Rows {
		b.WriteString(formatRow(row, style))
		b.WriteString("\n")
	}
	return b.String()
}

func formatRow(row model.ScanRow, style Style) string {
	sig := row.Signal
	icon := "👀"
	if sig.Status == model.StatusTrigger {
		icon = "🚀"
	}
	line := fmt.Sprintf("%s %s %s %.2f | score %.2f", icon, style.bold(row.Ticker), sig.Status, row.Price, sig.Score)
	if lv := sig.Levels; lv != nil {
		line += fmt.Sprintf(" | entry %.2f stop %.2f tp1 %.2f tp2 %.2f R:R %.2f",
			lv.Entry, lv.StopLoss, lv.TakeProfit1, lv.TakeProfit2, lv.RiskReward)
	}
	if row.EarningsSoon {
		line += " | ⚠️ earnings soon"
	}
	return line
}

// SplitMessage breaks text into chunks of at most limit bytes, preferring
// line boundaries. Lines longer than limit are cut on rune boundaries. No
// chunk is empty.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxMessage
	}
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimRight(cur.String(), "\n"); strings.TrimSpace(s) != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			flush()
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len() > 0 && cur.Len()+1+len(line) > limit {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n")
		}
		cur.WriteString(line)
	}
	flush()
	return chunks
}
