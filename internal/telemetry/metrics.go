// Package telemetry exposes Prometheus metrics for the engine and the AI client.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "glossa"

// Metrics implements engine.Recorder and ai.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	Fetches            *prometheus.CounterVec
	Saves              *prometheus.CounterVec
	SaveDuration       prometheus.Histogram
	Rollbacks          prometheus.Counter
	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
}

// New creates the metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "fetches_total",
			Help:      "Note list fetches by result",
		}, []string{"result"}),
		Saves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "saves_total",
			Help:      "Debounced saves by result",
		}, []string{"result"}),
		SaveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "save_duration_seconds",
			Help:      "Duration of debounced saves",
			Buckets:   prometheus.DefBuckets,
		}),
		Rollbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rollbacks_total",
			Help:      "Optimistic changes reverted after a failed write",
		}),
		Generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "generations_total",
			Help:      "Generation requests by operation and result",
		}, []string{"op", "result"}),
		GenerationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "generation_duration_seconds",
			Help:      "Duration of generation requests",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"op"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveFetch implements engine.Recorder.
func (m *Metrics) ObserveFetch(err error) {
	m.Fetches.WithLabelValues(result(err)).Inc()
}

// ObserveSave implements engine.Recorder.
func (m *Metrics) ObserveSave(elapsed time.Duration, err error) {
	m.Saves.WithLabelValues(result(err)).Inc()
	m.SaveDuration.Observe(elapsed.Seconds())
}

// ObserveRollback implements engine.Recorder.
func (m *Metrics) ObserveRollback() {
	m.Rollbacks.Inc()
}

// ObserveGeneration implements ai.Recorder.
func (m *Metrics) ObserveGeneration(op string, elapsed time.Duration, err error) {
	m.Generations.WithLabelValues(op, result(err)).Inc()
	m.GenerationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	lifecycle.Go(ctx, func(context.Context) error {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		logger.Error("metrics server stopped", "error", err)
	}))
}
