package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"BreakoutScanner/internal/model"
)

func sampleResult() *model.ScanResult {
	return &model.ScanResult{
		RunID:     "run-1",
		StartedAt: time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC),
		Counters:  model.ScanCounters{Total: 3, Evaluated: 2, FetchFailures: 1, Accepted: 2},
		Rows: []model.ScanRow{
			{Ticker: "BRK", Price: 101.1, EarningsSoon: true, Signal: model.Signal{
				Status: model.StatusTrigger, Score: 88.89,
				Levels: &model.TradeLevels{Entry: 101.1, StopLoss: 98.97, TakeProfit1: 103.91, TakeProfit2: 105.3, Risk: 2.13, RiskReward: 1.32},
			}},
			{Ticker: "SET", Price: 100.6, Signal: model.Signal{
				Status: model.StatusSetup, Score: 77.78,
				Levels: &model.TradeLevels{Entry: 100.6, StopLoss: 98.97, TakeProfit1: 103.35, TakeProfit2: 104.73, Risk: 1.63, RiskReward: 1.69},
			}},
		},
	}
}

func TestSplitMessage(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"fits", "a\nb", 10, []string{"a\nb"}},
		{"line boundaries", "aaaa\nbbbb\ncccc", 9, []string{"aaaa\nbbbb", "cccc"}},
		{"overlong line", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"blank input", "\n\n", 10, nil},
		{"skip blank chunks", "aaaa\n\n\nbbbb", 4, []string{"aaaa", "bbbb"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitMessage(tc.text, tc.limit)
			if fmt.Sprint(got) != fmt.Sprint(tc.want) || len(got) != len(tc.want) {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSplitMessage_RuneSafeAndCapped(t *testing.T) {
	text := strings.Repeat("🚀 breakout ✅\n", 400)
	chunks := SplitMessage(text, DefaultMaxMessage)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > DefaultMaxMessage || c == "" || !utf8.ValidString(c) {
			t.Errorf("chunk %d invalid: len %d", i, len(c))
		}
	}
	if strings.Join(chunks, "\n") != strings.TrimRight(text, "\n") {
		t.Error("chunks do not reassemble the message")
	}

	long := strings.Repeat("é", 10)
	for _, c := range SplitMessage(long, 5) {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %q splits a rune", c)
		}
	}
}

func TestFormatScanSummary(t *testing.T) {
	html := FormatScanSummary(sampleResult(), StyleHTML)
	for _, want := range []string{"<b>BRK</b>", "TRIGGER", "R:R 1.32", "earnings soon", "Scanned 3 | ok 2 | failed 1 | accepted 2"} {
		if !strings.Contains(html, want) {
			t.Errorf("summary missing %q:\n%s", want, html)
		}
	}
	if strings.Index(html, "BRK") > strings.Index(html, "SET") {
		t.Error("rows must keep result order")
	}

	md := FormatScanSummary(sampleResult(), StyleMarkdown)
	if !strings.Contains(md, "**BRK**") {
		t.Errorf("expected markdown bold, got:\n%s", md)
	}

	empty := &model.ScanResult{Counters: model.ScanCounters{Total: 5, Evaluated: 5}}
	if s := FormatScanSummary(empty, StyleHTML); !strings.Contains(s, "No tickers met") {
		t.Errorf("empty scan must say so:\n%s", s)
	}
}

func TestTableSink(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTableSink(&buf).Publish(context.Background(), sampleResult()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Ticker", "R:R", "BRK", "101.10", "98.97", "soon"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	NewTableSink(&buf).Publish(context.Background(), &model.ScanResult{RunID: "r"})
	if !strings.Contains(buf.String(), "no signals") {
		t.Errorf("expected no-signals line, got %q", buf.String())
	}
}

func TestTelegramNotifier_Publish(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			http.NotFound(w, r)
			return
		}
		var p map[string]string
		json.NewDecoder(r.Body).Decode(&p)
		if p["chat_id"] != "42" || p["parse_mode"] != "HTML" {
			t.Errorf("unexpected payload %v", p)
		}
		mu.Lock()
		texts = append(texts, p["text"])
		mu.Unlock()
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", srv.Client(), zerolog.Nop())
	tn.BaseURL = srv.URL
	tn.MaxMessage = 120

	if err := tn.Publish(context.Background(), sampleResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(texts) < 2 {
		t.Fatalf("expected the summary split into several messages, got %d", len(texts))
	}
	for _, txt := range texts {
		if len(txt) > 120 {
			t.Errorf("message over cap: %d", len(txt))
		}
	}
}

func TestDiscordNotifier_FailureIsReported(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	dn := NewDiscordNotifier(srv.URL, srv.Client())
	dn.MaxMessage = 120
	err := dn.Publish(context.Background(), sampleResult())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() < 2 {
		t.Errorf("a failed chunk must not stop the rest, calls = %d", calls.Load())
	}
}

type fakeSink struct {
	name string
	err  error
	got  int
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Publish(context.Context, *model.ScanResult) error {
	f.got++
	return f.err
}

func TestMultiSink(t *testing.T) {
	boom := errors.New("boom")
	a := &fakeSink{name: "a", err: boom}
	b := &fakeSink{name: "b"}
	m := NewMultiSink(zerolog.Nop(), nil, a, b)

	err := m.Publish(context.Background(), sampleResult())
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error, got %v", err)
	}
	if a.got != 1 || b.got != 1 {
		t.Errorf("every sink must be called: a=%d b=%d", a.got, b.got)
	}
}

func TestStartPolling(t *testing.T) {
	var polls atomic.Int32
	replies := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			if polls.Add(1) == 1 {
				fmt.Fprint(w, `{"ok":true,"result":[
					{"update_id":7,"message":{"text":" /help ","chat":{"id":42}}},
					{"update_id":8,"message":{"text":"/scan","chat":{"id":99}}}]}`)
				return
			}
			if r.URL.Query().Get("offset") != "9" {
				t.Errorf("offset not advanced: %s", r.URL.RawQuery)
			}
			time.Sleep(10 * time.Millisecond)
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		case "/botTOKEN/sendMessage":
			var p map[string]string
			json.NewDecoder(r.Body).Decode(&p)
			replies <- p["text"]
			fmt.Fprint(w, `{"ok":true}`)
		}
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", srv.Client(), zerolog.Nop())
	tn.BaseURL = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var handled []string
	go func() {
		tn.StartPolling(ctx, func(_ context.Context, cmd string) string {
			handled = append(handled, cmd)
			return "help text"
		})
		close(done)
	}()

	select {
	case got := <-replies:
		if got != "help text" {
			t.Errorf("reply = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reply sent")
	}
	cancel()
	<-done
	if len(handled) != 1 || handled[0] != "/help" {
		t.Errorf("handled = %v, want [/help] only", handled)
	}
}
