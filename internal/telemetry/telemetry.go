package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Trial and window outcome labels (bounded set)
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"

	WindowCompleted = "completed"
	WindowSkipped   = "skipped"
)

// Recorder holds the optimizer and walk-forward metrics. Every method is safe
// to call on a nil Recorder, which records nothing.
type Recorder struct {
	registry *prometheus.Registry

	trials        *prometheus.CounterVec
	trialDuration *prometheus.HistogramVec
	fallbacks     *prometheus.CounterVec
	windows       *prometheus.CounterVec
}

// NewRecorder registers the metrics on a dedicated registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,

		trials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paramwalk_trials_total",
			Help: "Objective evaluations by search method and status",
		}, []string{"method", "status"}),

		trialDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paramwalk_trial_duration_seconds",
			Help:    "Objective evaluation latency",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"method"}),

		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paramwalk_parallel_fallbacks_total",
			Help: "Batches re-run serially after a parallel dispatch failure",
		}, []string{"method"}),

		windows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paramwalk_walkforward_windows_total",
			Help: "Walk-forward windows by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveTrial records one objective evaluation.
func (r *Recorder) ObserveTrial(method string, succeeded bool, duration time.Duration) {
	if r == nil {
		return
	}
	status := StatusSucceeded
	if !succeeded {
		status = StatusFailed
	}
	r.trials.WithLabelValues(method, status).Inc()
	r.trialDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ParallelFallback records a serial re-run.
func (r *Recorder) ParallelFallback(method string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(method).Inc()
}

// ObserveWindow records a walk-forward window outcome.
func (r *Recorder) ObserveWindow(outcome string) {
	if r == nil {
		return
	}
	r.windows.WithLabelValues(outcome).Inc()
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// Handler returns the Prometheus metrics HTTP handler
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}

// RegisterHandlers registers metrics endpoints on an HTTP mux
func (r *Recorder) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", r.Handler())
}
