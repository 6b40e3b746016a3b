package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"BreakoutScanner/internal/model"
	"BreakoutScanner/internal/notifier"
	"BreakoutScanner/internal/tickers"
)

// publishTimeout bounds publishing and after-run hooks, which run even when
// the scan context was cancelled.
const publishTimeout = 30 * time.Second

// ErrScanRunning is returned when a scan is requested while one is in flight.
var ErrScanRunning = errors.New("a scan is already running")

// Runner executes one scan over a universe.
type Runner interface {
	Scan(ctx context.Context, tickers []string) (*model.ScanResult, error)
}

// Scheduler runs scans on a cron schedule and on demand, and keeps the
// latest result in memory.
type Scheduler struct {
	Cron   *cron.Cron
	runner Runner
	source tickers.Source
	sink   notifier.Sink
	log    zerolog.Logger
	ctx    context.Context

	running  atomic.Bool
	mu       sync.RWMutex
	last     *model.ScanResult
	afterRun []func(ctx context.Context)
}

// NewScheduler creates a Scheduler. Cron jobs run with ctx.
func NewScheduler(ctx context.Context, runner Runner, source tickers.Source, sink notifier.Sink, log zerolog.Logger) *Scheduler {
	l := log.With().Str("component", "scheduler").Logger()
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds(), cron.WithLogger(cronLogger{l})),
		runner: runner,
		source: source,
		sink:   sink,
		log:    l,
		ctx:    ctx,
	}
}

// AfterRun adds a hook that runs after every completed scan, once the
// result has been published. It must be called before Start.
func (s *Scheduler) AfterRun(fn func(ctx context.Context)) {
	s.afterRun = append(s.afterRun, fn)
}

// Register adds the recurring scan. Ticks that fire while a scan is still
// running are skipped.
func (s *Scheduler) Register(spec string) error {
	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{s.log})).Then(cron.FuncJob(s.scheduledScan))
	if _, err := s.Cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) scheduledScan() {
	_, err := s.RunNow(s.ctx)
	switch {
	case errors.Is(err, ErrScanRunning):
		s.log.Warn().Msg("skipping scheduled scan, manual scan in progress")
	case err != nil:
		s.log.Error().Err(err).Msg("scheduled scan failed")
	}
}

// RunNow loads the universe, scans it and publishes the result. A
// publishing failure is logged and does not fail the scan.
func (s *Scheduler) RunNow(ctx context.Context) (*model.ScanResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanRunning
	}
	defer s.running.Store(false)

	list, err := s.source.Tickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tickers: %w", err)
	}
	res, err := s.runner.Scan(ctx, list)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	// A cancelled scan still delivers its partial result.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if s.sink != nil {
		if err := s.sink.Publish(pubCtx, res); err != nil {
			s.log.Error().Err(err).Str("run_id", res.RunID).Msg("publish result")
		}
	}
	for _, fn := range s.afterRun {
		fn(pubCtx)
	}
	return res, nil
}

// Last returns the most recent completed scan, or nil.
func (s *Scheduler) Last() *model.ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

const helpText = "Available commands:\n• /scan run a scan now\n• /last show the latest result\n• /help this message"

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // /scan@BotName
	}
	switch cmd {
	case "/scan":
		_, err := s.RunNow(ctx)
		switch {
		case errors.Is(err, ErrScanRunning):
			return "⏳ a scan is already running"
		case err != nil:
			return fmt.Sprintf("❌ scan failed: %v", err)
		}
		return ""
	case "/last":
		last := s.Last()
		if last == nil {
			return "No scan has run yet."
		}
		return notifier.FormatScanSummary(last, notifier.StyleHTML)
	default:
		return helpText
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
