// Package metrics exposes Prometheus collectors for synthesis traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voicemagic"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeLimited  = "limited"
	OutcomeTimeout  = "timeout"
	OutcomeFailure  = "failure"
	OutcomeCanceled = "canceled"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	audioBytes prometheus.Histogram
	inFlight   prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_requests_total",
			Help:      "Synthesis requests by voice and outcome.",
		}, []string{"voice", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_seconds",
			Help:      "Time spent in the synthesis backend.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"voice"}),
		audioBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_audio_bytes",
			Help:      "Size of produced audio artifacts.",
			Buckets:   prometheus.ExponentialBuckets(4<<10, 2, 10),
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "synthesis_in_flight",
			Help:      "Synthesis calls currently running.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.audioBytes,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveRequest counts a finished request.
func (m *Metrics) ObserveRequest(voice, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(voice, outcome).Inc()
}

// ObserveSynthesis records backend latency and audio size of a successful call.
func (m *Metrics) ObserveSynthesis(voice string, d time.Duration, size int) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(voice).Observe(d.Seconds())
	m.audioBytes.Observe(float64(size))
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}
