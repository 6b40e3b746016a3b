package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ticker outcomes reported by the scanner.
const (
	OutcomeAccepted       = "accepted"
	OutcomeFetchFailure   = "fetch_failure"
	OutcomeInsufficient   = "insufficient"
	OutcomeRejected       = "rejected"
	OutcomeBelowThreshold = "below_threshold"
	OutcomeEarnings       = "earnings_excluded"
)

// Metrics is what the scanner and notifiers report.
type Metrics interface {
	ScanStarted()
	TickerEvaluated(outcome string)
	SignalAccepted(status string)
	NotificationFailed(sink string)
	ScanFinished(d time.Duration, accepted int)
}

// Prometheus implements Metrics with client_golang collectors.
type Prometheus struct {
	scans        prometheus.Counter
	tickers      *prometheus.CounterVec
	signals      *prometheus.CounterVec
	notifyErrors *prometheus.CounterVec
	duration     prometheus.Histogram
	lastAccepted prometheus.Gauge
}

// NewPrometheus registers the scanner collectors on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		scans: f.NewCounter(prometheus.CounterOpts{
			Name: "breakout_scans_total",
			Help: "Total number of scans started",
		}),
		tickers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_tickers_total",
			Help: "Tickers processed, by outcome",
		}, []string{"outcome"}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_signals_total",
			Help: "Accepted signals, by status",
		}, []string{"status"}),
		notifyErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_notification_errors_total",
			Help: "Failed notification sends, by sink",
		}, []string{"sink"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "breakout_scan_duration_seconds",
			Help:    "Duration of a full scan in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		lastAccepted: f.NewGauge(prometheus.GaugeOpts{
			Name: "breakout_last_scan_accepted",
			Help: "Rows accepted by the most recent scan",
		}),
	}
}

func (p *Prometheus) ScanStarted()                   { p.scans.Inc() }
func (p *Prometheus) TickerEvaluated(outcome string) { p.tickers.WithLabelValues(outcome).Inc() }
func (p *Prometheus) SignalAccepted(status string)   { p.signals.WithLabelValues(status).Inc() }
func (p *Prometheus) NotificationFailed(sink string) { p.notifyErrors.WithLabelValues(sink).Inc() }

func (p *Prometheus) ScanFinished(d time.Duration, accepted int) {
	p.duration.Observe(d.Seconds())
	p.lastAccepted.Set(float64(accepted))
}

// Noop discards everything.
type Noop struct{}

func (Noop) ScanStarted()                    {}
func (Noop) TickerEvaluated(string)          {}
func (Noop) SignalAccepted(string)           {}
func (Noop) NotificationFailed(string)       {}
func (Noop) ScanFinished(time.Duration, int) {}

// Serve exposes reg on addr at /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
