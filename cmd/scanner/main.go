package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"BreakoutScanner/internal/cache"
	"BreakoutScanner/internal/collector"
	"BreakoutScanner/internal/config"
	"BreakoutScanner/internal/logger"
	"BreakoutScanner/internal/metrics"
	"BreakoutScanner/internal/notifier"
	"BreakoutScanner/internal/scanner"
	"BreakoutScanner/internal/scheduler"
	"BreakoutScanner/internal/tickers"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath, ".env")
	if err != nil {
		zlog.Fatal().Err(err).Msg("load config")
	}
	log, closer, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		zlog.Fatal().Err(err).Msg("init logger")
	}
	defer closer.Close()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	log.Info().Str("config", cfgPath).Msg("BreakoutScanner starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewPrometheus(reg)
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg); err != nil {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint enabled")
	}

	// Data source, shared HTTP client
	client := collector.NewHTTPClient(cfg.Proxy, cfg.DataSource.Timeout)
	var (
		base   collector.Fetcher
		prices collector.PriceFetcher
	)
	switch cfg.DataSource.Provider {
	case "yahoo":
		yf := collector.NewYahooFetcher(cfg.DataSource.YahooBaseURL, client)
		base, prices = yf, yf
	default:
		pf := collector.NewPolygonFetcher(cfg.DataSource.PolygonBaseURL, cfg.DataSource.PolygonAPIKey, client)
		base, prices = pf, pf
	}
	log.Info().Str("provider", base.Name()).Msg("data source")

	// Bar cache
	barCache, err := cache.New(cfg.CacheConfig(), log)
	if err != nil {
		log.Warn().Err(err).Str("backend", cfg.Cache.Backend).Msg("init bar cache failed, caching disabled")
		barCache = cache.NewNoopCache()
	}
	defer barCache.Close()

	fetcher := collector.NewCachedFetcher(
		collector.NewRetryFetcher(base, cfg.DataSource.Retries, cfg.DataSource.RetryBackoff, log),
		barCache, cfg.Cache.TTL, log,
	)

	// Scanner
	opts := []scanner.Option{scanner.WithMetrics(m), scanner.WithProgress(progressLogger(log))}
	if cfg.DataSource.LivePrices {
		opts = append(opts, scanner.WithLivePrices(prices))
	}
	if cfg.Earnings.Enabled {
		opts = append(opts, scanner.WithEarnings(collector.NewFinnhubCalendar(cfg.Earnings.BaseURL, cfg.Earnings.FinnhubAPIKey, client)))
	}
	sc, err := scanner.New(fetcher, cfg.ScannerOptions(), log, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("init scanner")
	}

	// Sinks
	var sinks []notifier.Sink
	if cfg.TableEnabled() {
		sinks = append(sinks, notifier.NewTableSink(os.Stdout))
	}
	var tn *notifier.TelegramNotifier
	if cfg.Notify.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID, client, log)
		tn.MaxMessage = cfg.Notify.MaxMessage
		sinks = append(sinks, tn)
	}
	if cfg.Notify.Discord.WebhookURL != "" {
		dn := notifier.NewDiscordNotifier(cfg.Notify.Discord.WebhookURL, client)
		dn.MaxMessage = cfg.Notify.MaxMessage
		sinks = append(sinks, dn)
	}
	sink := notifier.NewMultiSink(log, m, sinks...)
	log.Info().Int("sinks", sink.Len()).Msg("notifiers ready")

	source := tickers.NewSource(cfg.Universe.Tickers, cfg.Universe.File, cfg.Universe.Limit)
	sched := scheduler.NewScheduler(ctx, sc, source, sink, log)
	sched.AfterRun(func(ctx context.Context) {
		n, err := cache.Purge(ctx, barCache)
		if err != nil {
			log.Warn().Err(err).Msg("purge bar cache")
			return
		}
		if n > 0 {
			log.Debug().Int64("rows", n).Msg("purged expired bars")
		}
	})

	if os.Getenv("RUN_ONCE") == "true" {
		res, err := sched.RunNow(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("scan did not run")
		}
		log.Info().Int("accepted", len(res.Rows)).Bool("cancelled", res.Cancelled).Msg("single scan complete")
		return
	}

	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		log.Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil && cfg.Notify.Telegram.Polling {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("Telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, scanning now")
		go func() {
			if _, err := sched.RunNow(ctx); err != nil {
				log.Error().Err(err).Msg("startup scan")
			}
		}()
	}

	log.Info().Str("cron", cfg.Schedule.Cron).Msg("BreakoutScanner is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping...")
}

// progressLogger reports scan progress every 100 tickers.
func progressLogger(log zerolog.Logger) func(done, total int) {
	return func(done, total int) {
		if done%100 == 0 || done == total {
			log.Debug().Int("done", done).Int("total", total).Msg("scan progress")
		}
	}
}
