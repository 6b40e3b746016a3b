package collector

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"BreakoutScanner/internal/cache"
	"BreakoutScanner/internal/model"
)

// CachedFetcher serves bars from a BarCache keyed by ticker and date window,
// falling through to the wrapped fetcher on a miss. Cache errors are logged
// and never fail the fetch.
type CachedFetcher struct {
	Next  Fetcher
	Cache cache.BarCache
	TTL   time.Duration
	Now   func() time.Time
	log   zerolog.Logger
}

// NewCachedFetcher wraps next with the given cache.
func NewCachedFetcher(next Fetcher, c cache.BarCache, ttl time.Duration, log zerolog.Logger) *CachedFetcher {
	return &CachedFetcher{
		Next:  next,
		Cache: c,
		TTL:   ttl,
		Now:   time.Now,
		log:   log.With().Str("component", "bar_cache").Logger(),
	}
}

func (f *CachedFetcher) Name() string { return f.Next.Name() + "+cache" }

func (f *CachedFetcher) FetchDailyBars(ctx context.Context, ticker string, lookbackDays int) ([]model.OHLCV, error) {
	from, to := DateWindow(f.Now(), lookbackDays)
	key := cache.Key(ticker, from, to)

	bars, err := f.Cache.Get(ctx, key)
	if err == nil && len(bars) > 0 {
		return bars, nil
	}
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		f.log.Warn().Err(err).Str("ticker", ticker).Msg("cache read failed")
	}

	bars, err = f.Next.FetchDailyBars(ctx, ticker, lookbackDays)
	if err != nil {
		return nil, err
	}
	if err := f.Cache.Set(ctx, key, bars, f.TTL); err != nil {
		f.log.Warn().Err(err).Str("ticker", ticker).Msg("cache write failed")
	}
	return bars, nil
}
