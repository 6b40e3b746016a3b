package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"BreakoutScanner/internal/cache"
	"BreakoutScanner/internal/model"
)

var fixedNow = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

func TestPolygonFetcher_FetchDailyBars(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		// deliberately out of order
		fmt.Fprint(w, `{"status":"OK","results":[
			{"t":1717459200000,"o":11,"h":12,"l":10.5,"c":11.5,"v":2000},
			{"t":1717372800000,"o":10,"h":11,"l":9.5,"c":10.5,"v":1000}]}`)
	}))
	defer srv.Close()

	f := NewPolygonFetcher(srv.URL, "secret", srv.Client())
	f.Now = func() time.Time { return fixedNow }

	bars, err := f.FetchDailyBars(context.Background(), "AAPL", 160)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "/v2/aggs/ticker/AAPL/range/1/day/2025-01-01/2025-06-10"; gotPath != want {
		t.Errorf("path = %s, want %s", gotPath, want)
	}
	for _, p := range []string{"adjusted=true", "sort=asc", "limit=50000", "apiKey=secret"} {
		if !strings.Contains(gotQuery, p) {
			t.Errorf("query %q missing %s", gotQuery, p)
		}
	}
	if len(bars) != 2 || bars[0].Close != 10.5 || bars[1].Close != 11.5 {
		t.Fatalf("bars not sorted ascending: %+v", bars)
	}
}

func TestPolygonFetcher_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"empty results", 200, `{"status":"OK","results":[]}`, ErrNoData},
		{"rate limited", 429, `{"status":"ERROR"}`, ErrStatus},
		{"malformed", 200, `{"results":[`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			f := NewPolygonFetcher(srv.URL, "k", srv.Client())
			_, err := f.FetchDailyBars(context.Background(), "MSFT", 30)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("error %v does not match %v", err, tc.want)
			}
		})
	}
}

func TestPolygonFetcher_FetchCurrentPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/last/trade/NVDA" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"results":{"p":123.45}}`)
	}))
	defer srv.Close()

	f := NewPolygonFetcher(srv.URL, "k", srv.Client())
	p, err := f.FetchCurrentPrice(context.Background(), "NVDA")
	if err != nil || p != 123.45 {
		t.Fatalf("price = %v, err = %v", p, err)
	}
}

func TestYahooFetcher_SkipsNullBars(t *testing.T) {
	now := time.Now().UTC()
	ts1 := now.AddDate(0, 0, -2).Unix()
	ts2 := now.AddDate(0, 0, -1).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/BRK-B" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"chart":{"result":[{"meta":{"regularMarketPrice":410.5},
			"timestamp":[%d,%d],
			"indicators":{"quote":[{"open":[400,null],"high":[405,null],"low":[398,null],"close":[404,null],"volume":[100,null]}]}}]}}`,
			ts1, ts2)
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, srv.Client())
	bars, err := f.FetchDailyBars(context.Background(), "BRK.B", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 || bars[0].Close != 404 {
		t.Fatalf("expected one non-null bar, got %+v", bars)
	}
	p, err := f.FetchCurrentPrice(context.Background(), "BRK.B")
	if err != nil || p != 410.5 {
		t.Fatalf("price = %v, err = %v", p, err)
	}
}

func TestFinnhubCalendar_HasEarningsNear(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("from") != "2025-06-10" || q.Get("to") != "2025-06-17" || q.Get("token") != "tok" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		switch q.Get("symbol") {
		case "AAPL":
			fmt.Fprint(w, `{"earningsCalendar":[{"date":"2025-06-12","symbol":"AAPL"}]}`)
		default:
			fmt.Fprint(w, `{"earningsCalendar":[]}`)
		}
	}))
	defer srv.Close()

	c := NewFinnhubCalendar(srv.URL, "tok", srv.Client())
	c.Now = func() time.Time { return fixedNow }

	ok, err := c.HasEarningsNear(context.Background(), "AAPL", 7)
	if err != nil || !ok {
		t.Errorf("AAPL: got %v, %v; want true", ok, err)
	}
	ok, err = c.HasEarningsNear(context.Background(), "MSFT", 7)
	if err != nil || ok {
		t.Errorf("MSFT: got %v, %v; want false", ok, err)
	}
}

func TestCachedFetcher(t *testing.T) {
	ctx := context.Background()
	mock := &MockFetcher{Bars: map[string][]model.OHLCV{"AAPL": generateMockBars(100, 5)}}
	mem := cache.NewMemoryCache(0)
	f := NewCachedFetcher(mock, mem, time.Hour, zerolog.Nop())
	f.Now = func() time.Time { return fixedNow }

	for i := 0; i < 3; i++ {
		bars, err := f.FetchDailyBars(ctx, "AAPL", 160)
		if err != nil || len(bars) != 5 {
			t.Fatalf("call %d: %d bars, err %v", i, len(bars), err)
		}
	}
	if n := mock.Calls("AAPL"); n != 1 {
		t.Errorf("expected one upstream call, got %d", n)
	}

	// a different window is a different key
	if _, err := f.FetchDailyBars(ctx, "AAPL", 90); err != nil {
		t.Fatal(err)
	}
	if n := mock.Calls("AAPL"); n != 2 {
		t.Errorf("expected a second upstream call for a new window, got %d", n)
	}

	mock.Errors = map[string]error{"BAD": ErrNoData}
	if _, err := f.FetchDailyBars(ctx, "BAD", 160); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

type flakyFetcher struct {
	failures int32
	err      error
	calls    atomic.Int32
}

func (f *flakyFetcher) Name() string { return "flaky" }

func (f *flakyFetcher) FetchDailyBars(_ context.Context, _ string, _ int) ([]model.OHLCV, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, f.err
	}
	return generateMockBars(50, 3), nil
}

func TestRetryFetcher(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		failures  int32
		wantCalls int32
		wantErr   bool
	}{
		{"transient then ok", &StatusError{Provider: "p", Code: 503}, 1, 2, false},
		{"timeout then ok", context.DeadlineExceeded, 1, 2, false},
		{"retries exhausted", &StatusError{Provider: "p", Code: 429}, 5, 2, true},
		{"not retryable", &StatusError{Provider: "p", Code: 404}, 1, 1, true},
		{"no data", ErrNoData, 1, 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next := &flakyFetcher{failures: tc.failures, err: tc.err}
			f := NewRetryFetcher(next, 1, time.Millisecond, zerolog.Nop())
			_, err := f.FetchDailyBars(context.Background(), "X", 10)
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got := next.calls.Load(); got != tc.wantCalls {
				t.Errorf("calls = %d, want %d", got, tc.wantCalls)
			}
		})
	}
}

func TestRetryFetcher_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	next := &flakyFetcher{failures: 10, err: &StatusError{Provider: "p", Code: 500}}
	f := NewRetryFetcher(next, 3, time.Hour, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := f.FetchDailyBars(ctx, "X", 10)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not stop on cancellation")
	}
}

func TestDateWindow(t *testing.T) {
	from, to := DateWindow(fixedNow, 160)
	if from != "2025-01-01" || to != "2025-06-10" {
		t.Errorf("got %s..%s", from, to)
	}
}
