package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"BreakoutScanner/internal/model"
)

const polygonBaseURL = "https://api.polygon.io"

// PolygonFetcher implements Fetcher and PriceFetcher using the Polygon REST API.
type PolygonFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Now     func() time.Time
}

// NewPolygonFetcher creates a fetcher sharing the given client.
func NewPolygonFetcher(baseURL, apiKey string, client *http.Client) *PolygonFetcher {
	if baseURL == "" {
		baseURL = polygonBaseURL
	}
	return &PolygonFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  client,
		Now:     time.Now,
	}
}

func (f *PolygonFetcher) Name() string { return "polygon" }

// polygonBar is one element of the aggregates "results" array.
type polygonBar struct {
	Timestamp int64   `json:"t"` // ms
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

type polygonAggs struct {
	Status  string       `json:"status"`
	Results []polygonBar `json:"results"`
}

// FetchDailyBars loads adjusted daily aggregates for the last lookbackDays
// calendar days.
func (f *PolygonFetcher) FetchDailyBars(ctx context.Context, ticker string, lookbackDays int) ([]model.OHLCV, error) {
	from, to := DateWindow(f.Now(), lookbackDays)
	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&limit=50000&apiKey=%s",
		f.BaseURL, url.PathEscape(ticker), from, to, url.QueryEscape(f.APIKey))

	var aggs polygonAggs
	if err := f.getJSON(ctx, endpoint, &aggs); err != nil {
		return nil, fmt.Errorf("polygon aggs %s: %w", ticker, err)
	}
	if len(aggs.Results) == 0 {
		return nil, fmt.Errorf("polygon aggs %s: %w", ticker, ErrNoData)
	}

	bars := make([]model.OHLCV, len(aggs.Results))
	for i, pb := range aggs.Results {
		bars[i] = model.OHLCV{
			Time:   time.UnixMilli(pb.Timestamp).UTC(),
			Open:   pb.Open,
			High:   pb.High,
			Low:    pb.Low,
			Close:  pb.Close,
			Volume: pb.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// FetchCurrentPrice returns the last trade price.
func (f *PolygonFetcher) FetchCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	endpoint := fmt.Sprintf("%s/v2/last/trade/%s?apiKey=%s", f.BaseURL, url.PathEscape(ticker), url.QueryEscape(f.APIKey))
	var result struct {
		Results struct {
			Price float64 `json:"p"`
		} `json:"results"`
	}
	if err := f.getJSON(ctx, endpoint, &result); err != nil {
		return 0, fmt.Errorf("polygon last trade %s: %w", ticker, err)
	}
	if result.Results.Price <= 0 {
		return 0, fmt.Errorf("polygon last trade %s: %w", ticker, ErrNoData)
	}
	return result.Results.Price, nil
}

func (f *PolygonFetcher) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Provider: "polygon", Code: resp.StatusCode, Body: truncate(body, 200)}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// DateWindow returns the inclusive [from, to] calendar dates ending at now.
func DateWindow(now time.Time, lookbackDays int) (from, to string) {
	end := now.UTC()
	start := end.AddDate(0, 0, -lookbackDays)
	return start.Format(time.DateOnly), end.Format(time.DateOnly)
}
