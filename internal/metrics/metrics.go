// Package metrics provides Prometheus metrics for the prediction pipeline
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains Prometheus metrics for prediction and inference operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	predictionsTotal     *prometheus.CounterVec
	predictionErrorTotal *prometheus.CounterVec
	upstreamDuration     *prometheus.HistogramVec
	csvRowsPerBatch      prometheus.Histogram
}

// New creates and registers all metrics on a fresh registry
func New() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_stored_total",
			Help: "Total number of predictions appended to collections",
		},
		[]string{"source"}, // manual, csv
	)

	m.predictionErrorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_errors_total",
			Help: "Total number of failed prediction requests by error kind",
		},
		[]string{"source", "kind"},
	)

	m.upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "inference_request_duration_seconds",
			Help: "Time taken by calls to the inference service",
			// 50ms to ~100s
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"endpoint", "outcome"},
	)

	m.csvRowsPerBatch = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "csv_batch_rows",
			Help:    "Number of rows in accepted CSV prediction batches",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	for _, c := range []prometheus.Collector{
		m.predictionsTotal,
		m.predictionErrorTotal,
		m.upstreamDuration,
		m.csvRowsPerBatch,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordPredictions counts stored predictions by source
func (m *Metrics) RecordPredictions(source string, n int) {
	if m == nil {
		return
	}
	m.predictionsTotal.WithLabelValues(source).Add(float64(n))
	if source == "csv" {
		m.csvRowsPerBatch.Observe(float64(n))
	}
}

// RecordError counts a failed prediction request
func (m *Metrics) RecordError(source, kind string) {
	if m == nil {
		return
	}
	m.predictionErrorTotal.WithLabelValues(source, kind).Inc()
}

// ObserveUpstream records the duration and outcome of an inference call
func (m *Metrics) ObserveUpstream(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(endpoint, outcome).Observe(d.Seconds())
}
