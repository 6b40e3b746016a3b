package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"BreakoutScanner/internal/model"
)

var (
	// ErrNoData means the provider answered but returned no bars.
	ErrNoData = errors.New("no data returned")
	// ErrStatus matches any *StatusError.
	ErrStatus = errors.New("unexpected http status")
)

// Fetcher loads daily bars for one ticker.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, ticker string, lookbackDays int) ([]model.OHLCV, error)
	Name() string
}

// PriceFetcher returns a live quote that supersedes the last close.
type PriceFetcher interface {
	FetchCurrentPrice(ctx context.Context, ticker string) (float64, error)
}

// EarningsCalendar reports whether a ticker reports earnings soon.
type EarningsCalendar interface {
	HasEarningsNear(ctx context.Context, ticker string, windowDays int) (bool, error)
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d, body: %s", e.Provider, e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// Retryable reports whether the provider may succeed on a second attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// NewHTTPClient builds the pooled client shared by every provider, with
// optional proxy support.
func NewHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// truncate keeps error bodies readable in logs.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
