package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubCalendar implements EarningsCalendar using the Finnhub earnings calendar.
type FinnhubCalendar struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Now     func() time.Time
}

// NewFinnhubCalendar creates a calendar sharing the given client.
func NewFinnhubCalendar(baseURL, apiKey string, client *http.Client) *FinnhubCalendar {
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}
	return &FinnhubCalendar{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  client,
		Now:     time.Now,
	}
}

type finnhubEarnings struct {
	EarningsCalendar []struct {
		Date   string `json:"date"`
		Symbol string `json:"symbol"`
	} `json:"earningsCalendar"`
}

// HasEarningsNear reports an earnings date within the next windowDays days.
func (c *FinnhubCalendar) HasEarningsNear(ctx context.Context, ticker string, windowDays int) (bool, error) {
	now := c.Now().UTC()
	from := now.Format(time.DateOnly)
	to := now.AddDate(0, 0, windowDays).Format(time.DateOnly)

	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	q.Set("symbol", ticker)
	q.Set("token", c.APIKey)
	endpoint := c.BaseURL + "/calendar/earnings?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("finnhub earnings %s: %w", ticker, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, &StatusError{Provider: "finnhub", Code: resp.StatusCode, Body: truncate(body, 200)}
	}

	var result finnhubEarnings
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("finnhub decode: %w", err)
	}
	for _, e := range result.EarningsCalendar {
		if strings.EqualFold(e.Symbol, ticker) && e.Date >= from && e.Date <= to {
			return true, nil
		}
	}
	return false, nil
}
