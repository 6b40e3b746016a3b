package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"BreakoutScanner/internal/cache"
	"BreakoutScanner/internal/calculator"
	"BreakoutScanner/internal/logger"
	"BreakoutScanner/internal/scanner"
	"BreakoutScanner/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider       string        `yaml:"provider" default:"polygon" validate:"oneof=polygon yahoo"`
		PolygonBaseURL string        `yaml:"polygon_base_url"`
		PolygonAPIKey  string        `yaml:"polygon_api_key"`
		YahooBaseURL   string        `yaml:"yahoo_base_url"`
		Timeout        time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
		Retries        int           `yaml:"retries" default:"1" validate:"gte=0,lte=5"`
		RetryBackoff   time.Duration `yaml:"retry_backoff" default:"500ms"`
		LivePrices     bool          `yaml:"live_prices"`
	} `yaml:"data_source"`

	Earnings struct {
		Enabled       bool   `yaml:"enabled"`
		FinnhubAPIKey string `yaml:"finnhub_api_key"`
		BaseURL       string `yaml:"base_url"`
		WindowDays    int    `yaml:"window_days" default:"7" validate:"gte=0,lte=90"`
		Exclude       bool   `yaml:"exclude"`
	} `yaml:"earnings"`

	Universe struct {
		Tickers []string `yaml:"tickers"`
		File    string   `yaml:"file"`
		Limit   int      `yaml:"limit" validate:"gte=0"`
	} `yaml:"universe"`

	Scan struct {
		LookbackDays  int     `yaml:"lookback_days" default:"160" validate:"gt=0"`
		MinScore      float64 `yaml:"min_score" default:"65" validate:"gte=0,lte=100"`
		MinRiskReward float64 `yaml:"min_risk_reward" default:"1.3" validate:"gte=0"`
		MinFetchBars  int     `yaml:"min_fetch_bars" default:"100" validate:"gte=0"`
		TriggerOnly   bool    `yaml:"trigger_only"`
		EdgeOnly      bool    `yaml:"edge_only"`
		Workers       int     `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
		RatePerSecond float64 `yaml:"rate_per_second" default:"4" validate:"gte=0"`
		Burst         int     `yaml:"burst" default:"1" validate:"gte=1"`
	} `yaml:"scan"`

	Scoring struct {
		MinBars               int     `yaml:"min_bars" default:"70" validate:"gte=2"`
		MaxPoints             int     `yaml:"max_points" default:"9" validate:"gt=0"`
		EMAFast               int     `yaml:"ema_fast" default:"20" validate:"gt=0"`
		EMASlow               int     `yaml:"ema_slow" default:"50" validate:"gt=0"`
		ATRFast               int     `yaml:"atr_fast" default:"14" validate:"gt=0"`
		ATRSlow               int     `yaml:"atr_slow" default:"40" validate:"gt=0"`
		RangeWindow           int     `yaml:"range_window" default:"10" validate:"gt=0"`
		MedianWindow          int     `yaml:"median_window" default:"40" validate:"gt=0"`
		VolumeWindow          int     `yaml:"volume_window" default:"20" validate:"gt=0"`
		BBWindow              int     `yaml:"bb_window" default:"20" validate:"gt=1"`
		BreakoutPoints        int     `yaml:"breakout_points" default:"2" validate:"gte=0"`
		ProximityPoints       int     `yaml:"proximity_points" validate:"gte=0"`
		ProximityRatio        float64 `yaml:"proximity_ratio" default:"0.98" validate:"gt=0,lte=1"`
		ATRLookback           int     `yaml:"atr_lookback" default:"10" validate:"gt=0"`
		ATRExpansionTolerance float64 `yaml:"atr_expansion_tolerance" default:"1.05" validate:"gt=0"`
		StopATRMultiple       float64 `yaml:"stop_atr_multiple" default:"0.2" validate:"gte=0"`
		Target1ATRMultiple    float64 `yaml:"target1_atr_multiple" default:"2" validate:"gt=0"`
		Target2ATRMultiple    float64 `yaml:"target2_atr_multiple" default:"3" validate:"gt=0"`
		AnchorToLivePrice     *bool   `yaml:"anchor_to_live_price" default:"true"`
	} `yaml:"scoring"`

	Cache struct {
		Backend       string        `yaml:"backend" default:"memory" validate:"oneof=none memory sqlite redis"`
		SQLitePath    string        `yaml:"sqlite_path" default:"data/bar_cache.db"`
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
		TTL           time.Duration `yaml:"ttl" default:"6h"`
		MaxEntries    int           `yaml:"max_entries" default:"10000" validate:"gte=0"`
	} `yaml:"cache"`

	Notify struct {
		Table      *bool `yaml:"table" default:"true"`
		MaxMessage int   `yaml:"max_message" default:"1900" validate:"gte=100,lte=4000"`
		Telegram   struct {
			BotToken string `yaml:"bot_token"`
			ChatID   string `yaml:"chat_id"`
			Polling  bool   `yaml:"polling"`
		} `yaml:"telegram"`
		Discord struct {
			WebhookURL string `yaml:"webhook_url" validate:"omitempty,url"`
		} `yaml:"discord"`
	} `yaml:"notify"`

	Schedule struct {
		Cron string `yaml:"cron" default:"CRON_TZ=America/New_York 0 15 16 * * 1-5"`
	} `yaml:"schedule"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`

	Metrics struct {
		Addr string `yaml:"addr"` // empty disables the /metrics endpoint
	} `yaml:"metrics"`

	Proxy string `yaml:"proxy"`
}

var validate = validator.New()

// Load fills defaults, reads an optional .env file and the YAML file on top
// of them, then applies environment variable overrides. Explicit zero values
// survive. Missing files are not an error.
func Load(path, envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.DataSource.Provider, "DATA_PROVIDER")
	setString(&cfg.DataSource.PolygonAPIKey, "POLYGON_API_KEY")
	setString(&cfg.Earnings.FinnhubAPIKey, "FINNHUB_API_KEY")
	setString(&cfg.Notify.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Notify.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&cfg.Notify.Discord.WebhookURL, "DISCORD_WEBHOOK_URL")
	setString(&cfg.Cache.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Cache.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Proxy, "HTTPS_PROXY")
	setString(&cfg.Schedule.Cron, "SCAN_CRON")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Universe.File, "TICKERS_FILE")
	setString(&cfg.Metrics.Addr, "METRICS_ADDR")

	if v := os.Getenv("TICKER_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Universe.Limit = n
		}
	}
	if v := os.Getenv("MIN_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scan.MinScore = f
		}
	}
	if v := os.Getenv("MIN_RR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scan.MinRiskReward = f
		}
	}
}

// Validate checks field constraints and the rules that span sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if err := c.StrategyConfig().Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if c.DataSource.Provider == "polygon" && c.DataSource.PolygonAPIKey == "" {
		return errors.New("data_source.polygon_api_key is required for the polygon provider")
	}
	if c.Earnings.Enabled && c.Earnings.FinnhubAPIKey == "" {
		return errors.New("earnings.finnhub_api_key is required when earnings are enabled")
	}
	if (c.Notify.Telegram.BotToken == "") != (c.Notify.Telegram.ChatID == "") {
		return errors.New("notify.telegram needs both bot_token and chat_id")
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return errors.New("cache.redis_addr is required for the redis backend")
	}
	if len(c.Universe.Tickers) == 0 && c.Universe.File == "" {
		return errors.New("universe.tickers or universe.file is required")
	}
	return nil
}

// StrategyConfig converts the scoring section.
func (c *Config) StrategyConfig() strategy.Config {
	s := c.Scoring
	anchor := s.AnchorToLivePrice == nil || *s.AnchorToLivePrice
	return strategy.Config{
		Periods: calculator.Periods{
			EMAFast:      s.EMAFast,
			EMASlow:      s.EMASlow,
			ATRFast:      s.ATRFast,
			ATRSlow:      s.ATRSlow,
			RangeWindow:  s.RangeWindow,
			MedianWindow: s.MedianWindow,
			VolumeWindow: s.VolumeWindow,
			BBWindow:     s.BBWindow,
		},
		MinBars:               s.MinBars,
		MinScore:              c.Scan.MinScore,
		MaxPoints:             s.MaxPoints,
		BreakoutPoints:        s.BreakoutPoints,
		ProximityPoints:       s.ProximityPoints,
		ProximityRatio:        s.ProximityRatio,
		ATRLookback:           s.ATRLookback,
		ATRExpansionTolerance: s.ATRExpansionTolerance,
		StopATRMultiple:       s.StopATRMultiple,
		Target1ATRMultiple:    s.Target1ATRMultiple,
		Target2ATRMultiple:    s.Target2ATRMultiple,
		AnchorToLivePrice:     anchor,
	}
}

// ScannerOptions converts the scan and earnings sections.
func (c *Config) ScannerOptions() scanner.Options {
	return scanner.Options{
		Strategy:           c.StrategyConfig(),
		LookbackDays:       c.Scan.LookbackDays,
		MinScore:           c.Scan.MinScore,
		MinRiskReward:      c.Scan.MinRiskReward,
		MinFetchBars:       c.Scan.MinFetchBars,
		TriggerOnly:        c.Scan.TriggerOnly,
		EdgeOnly:           c.Scan.EdgeOnly,
		EarningsWindowDays: c.Earnings.WindowDays,
		ExcludeEarnings:    c.Earnings.Exclude,
		Workers:            c.Scan.Workers,
		RatePerSecond:      c.Scan.RatePerSecond,
		Burst:              c.Scan.Burst,
	}
}

// CacheConfig converts the cache section.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Backend:    c.Cache.Backend,
		SQLitePath: c.Cache.SQLitePath,
		RedisAddr:  c.Cache.RedisAddr,
		RedisPass:  c.Cache.RedisPassword,
		RedisDB:    c.Cache.RedisDB,
		MaxEntries: c.Cache.MaxEntries,
	}
}

// LoggerConfig converts the log section.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Log.Level, Format: c.Log.Format, Output: c.Log.Output}
}

// TableEnabled reports whether results are printed to stdout.
func (c *Config) TableEnabled() bool {
	return c.Notify.Table == nil || *c.Notify.Table
}
