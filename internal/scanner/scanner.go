package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"BreakoutScanner/internal/collector"
	"BreakoutScanner/internal/metrics"
	"BreakoutScanner/internal/model"
	"BreakoutScanner/internal/strategy"
)

// Options are the per-scan thresholds and resource limits.
type Options struct {
	Strategy strategy.Config

	LookbackDays  int
	MinScore      float64
	MinRiskReward float64
	// MinFetchBars rejects short series before evaluation. 0 means
	// Strategy.MinBars.
	MinFetchBars int

	TriggerOnly bool // drop SETUP rows
	EdgeOnly    bool // keep only triggers that are new on the last bar

	EarningsWindowDays int
	ExcludeEarnings    bool // drop rows with earnings soon instead of tagging them

	Workers       int
	RatePerSecond float64 // provider calls per second, <= 0 is unlimited
	Burst         int
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithLivePrices substitutes a live quote for the last close when deriving levels.
func WithLivePrices(p collector.PriceFetcher) Option {
	return func(s *Scanner) { s.prices = p }
}

// WithEarnings tags or drops tickers reporting earnings soon.
func WithEarnings(c collector.EarningsCalendar) Option {
	return func(s *Scanner) { s.earnings = c }
}

// WithMetrics reports scan outcomes.
func WithMetrics(m metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithProgress is called after each ticker completes. Calls are serialized.
func WithProgress(fn func(done, total int)) Option {
	return func(s *Scanner) { s.progress = fn }
}

// Scanner runs the fetch, evaluate and filter pipeline over a universe.
type Scanner struct {
	fetcher  collector.Fetcher
	prices   collector.PriceFetcher
	earnings collector.EarningsCalendar
	metrics  metrics.Metrics
	progress func(done, total int)

	opts    Options
	limiter *rate.Limiter
	log     zerolog.Logger
	now     func() time.Time
}

// New validates opts and builds a Scanner.
func New(fetcher collector.Fetcher, opts Options, log zerolog.Logger, options ...Option) (*Scanner, error) {
	if fetcher == nil {
		return nil, errors.New("scanner: nil fetcher")
	}
	if err := opts.Strategy.Validate(); err != nil {
		return nil, fmt.Errorf("scanner: %w", err)
	}
	if opts.MinFetchBars <= 0 {
		opts.MinFetchBars = opts.Strategy.MinBars
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 160
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := max(opts.Burst, 1)

	s := &Scanner{
		fetcher: fetcher,
		metrics: metrics.Noop{},
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
		log:     log.With().Str("component", "scanner").Logger(),
		now:     time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

type outcome int

const (
	skipped outcome = iota // never attempted because the scan was cancelled
	fetchFailed
	insufficient
	rejected
	belowThreshold
	earningsExcluded
	accepted
)

var outcomeLabels = map[outcome]string{
	fetchFailed:      metrics.OutcomeFetchFailure,
	insufficient:     metrics.OutcomeInsufficient,
	rejected:         metrics.OutcomeRejected,
	belowThreshold:   metrics.OutcomeBelowThreshold,
	earningsExcluded: metrics.OutcomeEarnings,
	accepted:         metrics.OutcomeAccepted,
}

type tickerResult struct {
	outcome   outcome
	evaluated bool
	row       model.ScanRow
}

// Scan evaluates every ticker and returns the accepted rows ordered by
// status, then score descending, then input order. Per-ticker failures are
// counted, never returned. When ctx is cancelled mid-scan the partial result
// is returned with Cancelled set. An error means the scan did not run.
func (s *Scanner) Scan(ctx context.Context, tickers []string) (*model.ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan not started: %w", err)
	}

	res := &model.ScanResult{RunID: uuid.NewString(), StartedAt: s.now()}
	s.metrics.ScanStarted()
	s.log.Info().Str("run_id", res.RunID).Int("tickers", len(tickers)).
		Str("source", s.fetcher.Name()).Msg("scan started")

	results := make([]tickerResult, len(tickers))
	var (
		mu   sync.Mutex
		done int
	)

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, ticker := range tickers {
		if ctx.Err() != nil {
			break
		}
		i, ticker := i, ticker
		g.Go(func() error {
			results[i] = s.scanOne(ctx, ticker)
			if s.progress != nil {
				mu.Lock()
				done++
				s.progress(done, len(tickers))
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	res.Cancelled = ctx.Err() != nil
	res.Counters.Total = len(tickers)
	for _, r := range results {
		if r.evaluated {
			res.Counters.Evaluated++
		}
		switch r.outcome {
		case fetchFailed:
			res.Counters.FetchFailures++
		case insufficient:
			res.Counters.Insufficient++
		case rejected:
			res.Counters.Rejected++
		case belowThreshold:
			res.Counters.BelowThreshold++
		case earningsExcluded:
			res.Counters.EarningsExcluded++
		case accepted:
			res.Counters.Accepted++
			res.Rows = append(res.Rows, r.row)
			s.metrics.SignalAccepted(string(r.row.Signal.Status))
		}
		if label, ok := outcomeLabels[r.outcome]; ok {
			s.metrics.TickerEvaluated(label)
		}
	}
	SortRows(res.Rows)

	res.FinishedAt = s.now()
	elapsed := res.FinishedAt.Sub(res.StartedAt)
	s.metrics.ScanFinished(elapsed, len(res.Rows))

	c := res.Counters
	s.log.Info().Str("run_id", res.RunID).
		Int("total", c.Total).Int("evaluated", c.Evaluated).Int("fetch_failures", c.FetchFailures).
		Int("insufficient", c.Insufficient).Int("rejected", c.Rejected).
		Int("below_threshold", c.BelowThreshold).Int("earnings_excluded", c.EarningsExcluded).
		Int("accepted", c.Accepted).Bool("cancelled", res.Cancelled).Dur("elapsed", elapsed).
		Msg("scan finished")
	return res, nil
}

func (s *Scanner) scanOne(ctx context.Context, ticker string) tickerResult {
	log := s.log.With().Str("ticker", ticker).Logger()

	if err := s.limiter.Wait(ctx); err != nil {
		return tickerResult{outcome: skipped}
	}
	bars, err := s.fetcher.FetchDailyBars(ctx, ticker, s.opts.LookbackDays)
	if err != nil {
		if ctx.Err() != nil {
			return tickerResult{outcome: skipped}
		}
		log.Warn().Err(err).Msg("fetch failed")
		return tickerResult{outcome: fetchFailed}
	}
	if len(bars) < s.opts.MinFetchBars {
		log.Debug().Int("bars", len(bars)).Msg("insufficient bars")
		return tickerResult{outcome: insufficient}
	}

	r := tickerResult{evaluated: true}
	sig, err := strategy.Evaluate(bars, s.opts.Strategy)
	if err != nil {
		return s.classifyErr(log, r, err)
	}
	if sig.Levels == nil || !s.passesStatus(sig) {
		r.outcome = belowThreshold
		return r
	}

	row := model.ScanRow{Ticker: ticker, Price: sig.Close}
	if s.prices != nil {
		if live, ok := s.livePrice(ctx, log, ticker); ok {
			sig, err = strategy.EvaluateLive(bars, s.opts.Strategy, live)
			if err != nil {
				return s.classifyErr(log, r, err)
			}
			row.Price, row.LivePrice = live, true
		}
	}
	if sig.Score < s.opts.MinScore || sig.Levels.RiskReward < s.opts.MinRiskReward {
		r.outcome = belowThreshold
		return r
	}

	if s.earnings != nil {
		near, err := s.earnings.HasEarningsNear(ctx, ticker, s.opts.EarningsWindowDays)
		if err != nil {
			log.Debug().Err(err).Msg("earnings lookup failed")
		}
		if near && s.opts.ExcludeEarnings {
			r.outcome = earningsExcluded
			return r
		}
		row.EarningsSoon = near
	}

	row.Signal = *sig
	r.row, r.outcome = row, accepted
	return r
}

func (s *Scanner) passesStatus(sig *model.Signal) bool {
	switch {
	case sig.Status == model.StatusNone:
		return false
	case s.opts.TriggerOnly && sig.Status != model.StatusTrigger:
		return false
	case s.opts.EdgeOnly && !sig.Fresh:
		return false
	}
	return true
}

func (s *Scanner) livePrice(ctx context.Context, log zerolog.Logger, ticker string) (float64, bool) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, false
	}
	p, err := s.prices.FetchCurrentPrice(ctx, ticker)
	if err != nil || p <= 0 {
		log.Debug().Err(err).Msg("live price unavailable, using last close")
		return 0, false
	}
	return p, true
}

func (s *Scanner) classifyErr(log zerolog.Logger, r tickerResult, err error) tickerResult {
	switch {
	case errors.Is(err, strategy.ErrInsufficientHistory):
		r.outcome = insufficient
	default:
		log.Debug().Err(err).Msg("signal rejected")
		r.outcome = rejected
	}
	return r
}

// SortRows orders rows TRIGGER first, then SETUP, by score descending.
// Equal rows keep their input order.
func SortRows(rows []model.ScanRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := rows[i].Signal.Status.Rank(), rows[j].Signal.Status.Rank()
		if ri != rj {
			return ri < rj
		}
		return rows[i].Signal.Score > rows[j].Signal.Score
	})
}
