package collector

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	"BreakoutScanner/internal/model"
)

// RetryFetcher retries a failed fetch a bounded number of times when the
// failure looks transient: timeouts, 429 and 5xx responses.
type RetryFetcher struct {
	Next    Fetcher
	Retries int
	Backoff time.Duration
	log     zerolog.Logger
}

// NewRetryFetcher wraps next. retries < 0 is treated as 0.
func NewRetryFetcher(next Fetcher, retries int, backoff time.Duration, log zerolog.Logger) *RetryFetcher {
	if retries < 0 {
		retries = 0
	}
	return &RetryFetcher{
		Next:    next,
		Retries: retries,
		Backoff: backoff,
		log:     log.With().Str("component", "retry_fetcher").Logger(),
	}
}

func (f *RetryFetcher) Name() string { return f.Next.Name() }

func (f *RetryFetcher) FetchDailyBars(ctx context.Context, ticker string, lookbackDays int) ([]model.OHLCV, error) {
	var lastErr error
	for attempt := 0; attempt <= f.Retries; attempt++ {
		bars, err := f.Next.FetchDailyBars(ctx, ticker, lookbackDays)
		if err == nil {
			return bars, nil
		}
		lastErr = err
		if attempt == f.Retries || !Transient(err) || ctx.Err() != nil {
			break
		}
		backoff := f.Backoff * time.Duration(1<<uint(attempt))
		f.log.Debug().Err(err).Str("ticker", ticker).Int("attempt", attempt+1).
			Dur("backoff", backoff).Msg("fetch failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

// Transient reports whether err is worth one more attempt.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
