package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"BreakoutScanner/internal/metrics"
	"BreakoutScanner/internal/model"
)

// Sink receives the ordered result of a scan.
type Sink interface {
	Name() string
	Publish(ctx context.Context, res *model.ScanResult) error
}

// MultiSink publishes to every sink. A failing sink is logged and counted;
// the others still run.
type MultiSink struct {
	sinks   []Sink
	metrics metrics.Metrics
	log     zerolog.Logger
}

// NewMultiSink fans out to sinks. m may be nil.
func NewMultiSink(log zerolog.Logger, m metrics.Metrics, sinks ...Sink) *MultiSink {
	if m == nil {
		m = metrics.Noop{}
	}
	return &MultiSink{sinks: sinks, metrics: m, log: log.With().Str("component", "notifier").Logger()}
}

func (m *MultiSink) Name() string { return "multi" }

// Len returns the number of configured sinks.
func (m *MultiSink) Len() int { return len(m.sinks) }

func (m *MultiSink) Publish(ctx context.Context, res *model.ScanResult) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, res); err != nil {
			m.log.Error().Err(err).Str("sink", s.Name()).Msg("publish failed")
			m.metrics.NotificationFailed(s.Name())
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Sender delivers one chat message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// publishChunks formats res, splits it and sends every chunk in order. A
// failed chunk does not stop the remaining ones.
func publishChunks(ctx context.Context, s Sender, res *model.ScanResult, style Style, limit int) error {
	var errs []error
	for i, chunk := range SplitMessage(FormatScanSummary(res, style), limit) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.Send(ctx, chunk); err != nil {
			errs = append(errs, fmt.Errorf("chunk %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}
