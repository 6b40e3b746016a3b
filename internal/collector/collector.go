package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"BreakoutScanner/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Bars maps ticker to its series; tickers listed in Errors fail with that
// error. Unknown tickers get a generated flat series around Price.
type MockFetcher struct {
	Price  float64
	Bars   map[string][]model.OHLCV
	Errors map[string]error
	Prices map[string]float64

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, ticker string, days int) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[ticker]++
	m.mu.Unlock()

	if err, ok := m.Errors[ticker]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[ticker]; ok {
		out := make([]model.OHLCV, len(bars))
		copy(out, bars)
		return out, nil
	}
	if m.Price <= 0 {
		return nil, fmt.Errorf("mock %s: %w", ticker, ErrNoData)
	}
	return generateMockBars(m.Price, days), nil
}

// FetchCurrentPrice returns Prices[ticker], or ErrNoData when absent.
func (m *MockFetcher) FetchCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if p, ok := m.Prices[ticker]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("mock price %s: %w", ticker, ErrNoData)
}

// Calls returns how many times FetchDailyBars was called for ticker.
func (m *MockFetcher) Calls(ticker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[ticker]
}

// MockCalendar reports earnings for the listed tickers.
type MockCalendar struct {
	Reporting map[string]bool
	Err       error
}

func (m *MockCalendar) HasEarningsNear(_ context.Context, ticker string, _ int) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.Reporting[ticker], nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
