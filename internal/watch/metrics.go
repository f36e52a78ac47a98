package watch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// File outcomes recorded in qpcr_files_processed_total.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusLocked    = "locked"
	StatusDuplicate = "duplicate"
)

// Metrics are the watcher's Prometheus collectors.
type Metrics struct {
	Files    *prometheus.CounterVec
	Calls    *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Files: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qpcr_files_processed_total",
			Help: "Export files handled by the watcher, by outcome.",
		}, []string{"status"}),
		Calls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qpcr_wells_classified_total",
			Help: "Per-target calls made on watched exports.",
		}, []string{"call"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "qpcr_process_seconds",
			Help:    "Time to read, classify and write one export.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}

// Handler serves the text exposition format for g.
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}

// Serve exposes /metrics on addr until ctx ends.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *zap.Logger) error {
	srv := &http.Server{Addr: addr, Handler: Handler(g), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("serving metrics", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := srv.Shutdown(sctx)
		if lerr := <-errc; lerr != nil && !errors.Is(lerr, http.ErrServerClosed) && err == nil {
			err = lerr
		}
		return err
	}
}
