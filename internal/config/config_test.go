package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"BreakoutScanner/internal/strategy"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	if err != nil {
		t.Fatalf("a missing file must not fail: %v", err)
	}
	if cfg.Scan.LookbackDays != 160 || cfg.Scan.MinScore != 65 || cfg.Scan.MinRiskReward != 1.3 {
		t.Errorf("scan defaults not applied: %+v", cfg.Scan)
	}
	if cfg.DataSource.Timeout != 10*time.Second || cfg.Cache.TTL != 6*time.Hour {
		t.Errorf("duration defaults not applied")
	}
	if !cfg.TableEnabled() {
		t.Error("table output should default on")
	}

	got := cfg.StrategyConfig()
	want := strategy.DefaultConfig()
	if got != want {
		t.Errorf("strategy config from defaults = %+v, want %+v", got, want)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", `
data_source:
  provider: yahoo
universe:
  tickers: [aapl, msft]
scan:
  min_score: 70
  workers: 8
scoring:
  anchor_to_live_price: false
notify:
  table: false
`)
	env := writeFile(t, ".env", "TELEGRAM_BOT_TOKEN=tok\nTELEGRAM_CHAT_ID=42\n")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MIN_RR", "1.5")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	os.Unsetenv("TELEGRAM_BOT_TOKEN")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	os.Unsetenv("TELEGRAM_CHAT_ID")

	cfg, err := Load(path, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DataSource.Provider != "yahoo" || cfg.Scan.MinScore != 70 || cfg.Scan.Workers != 8 {
		t.Errorf("file values not applied: %+v %+v", cfg.DataSource, cfg.Scan)
	}
	if cfg.Log.Level != "debug" || cfg.Scan.MinRiskReward != 1.5 {
		t.Errorf("env overrides not applied: level %s rr %v", cfg.Log.Level, cfg.Scan.MinRiskReward)
	}
	if cfg.Notify.Telegram.BotToken != "tok" || cfg.Notify.Telegram.ChatID != "42" {
		t.Errorf(".env not loaded: %+v", cfg.Notify.Telegram)
	}
	if cfg.StrategyConfig().AnchorToLivePrice || cfg.TableEnabled() {
		t.Error("explicit false must survive defaults")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config: %v", err)
	}

	opts := cfg.ScannerOptions()
	if opts.MinScore != 70 || opts.Strategy.MinScore != 70 || opts.MinFetchBars != 100 {
		t.Errorf("scanner options = %+v", opts)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "scan: [")
	if _, err := Load(path, ""); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"), "")
		if err != nil {
			t.Fatal(err)
		}
		cfg.DataSource.PolygonAPIKey = "key"
		cfg.Universe.Tickers = []string{"AAPL"}
		return cfg
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	cases := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"missing polygon key", func(c *Config) { c.DataSource.PolygonAPIKey = "" }, "polygon_api_key"},
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }, "Provider"},
		{"denominator too small", func(c *Config) { c.Scoring.MaxPoints = 7 }, "max_points"},
		{"half telegram", func(c *Config) { c.Notify.Telegram.BotToken = "t" }, "telegram"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis" }, "redis_addr"},
		{"no universe", func(c *Config) { c.Universe.Tickers = nil }, "universe"},
		{"earnings without key", func(c *Config) { c.Earnings.Enabled = true }, "finnhub"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "Level"},
		{"score out of range", func(c *Config) { c.Scan.MinScore = 120 }, "MinScore"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoad_ExplicitZerosSurvive(t *testing.T) {
	path := writeFile(t, "config.yaml", `
scan:
  min_risk_reward: 0
  min_fetch_bars: 0
scoring:
  stop_atr_multiple: 0
  breakout_points: 0
`)
	t.Setenv("MIN_SCORE", "0")

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scan.MinScore != 0 || cfg.Scan.MinRiskReward != 0 || cfg.Scan.MinFetchBars != 0 {
		t.Errorf("explicit zero replaced by a default: %+v", cfg.Scan)
	}
	if cfg.Scoring.StopATRMultiple != 0 || cfg.Scoring.BreakoutPoints != 0 {
		t.Errorf("explicit zero replaced by a default: %+v", cfg.Scoring)
	}
	// untouched fields still carry their defaults
	if cfg.Scan.LookbackDays != 160 || cfg.Scoring.MaxPoints != 9 {
		t.Errorf("defaults lost for unset fields: %+v", cfg.Scan)
	}

	opts := cfg.ScannerOptions()
	if opts.MinFetchBars != 0 || opts.MinScore != 0 {
		t.Errorf("scanner options = %+v, want zero thresholds", opts)
	}
}
