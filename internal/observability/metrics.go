// Package observability holds the Prometheus metrics for the scoring
// service.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the service counters on a private registry so tests
// can build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	scoreTotal    *prometheus.CounterVec
	scoreDuration prometheus.Histogram
	fallbackTotal prometheus.Counter
	learnTotal    prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scoreTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "score_requests_total",
			Help: "Total count of scoring requests by outcome.",
		}, []string{"outcome"}),
		scoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "score_duration_seconds",
			Help:    "Histogram of scoring request durations.",
			Buckets: prometheus.DefBuckets,
		}),
		fallbackTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "score_fallbacks_total",
			Help: "Total count of degraded fallback results served.",
		}),
		learnTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "learn_batches_total",
			Help: "Total count of accepted booking-outcome batches.",
		}),
	}
	m.registry.MustRegister(m.scoreTotal, m.scoreDuration, m.fallbackTotal, m.learnTotal)
	return m
}

// ObserveScore records one scoring request. Outcome is one of "ok",
// "fallback", "rejected".
func (m *Metrics) ObserveScore(outcome string, d time.Duration) {
	m.scoreTotal.WithLabelValues(outcome).Inc()
	m.scoreDuration.Observe(d.Seconds())
	if outcome == "fallback" {
		m.fallbackTotal.Inc()
	}
}

// ObserveLearn records one accepted outcome batch.
func (m *Metrics) ObserveLearn() {
	m.learnTotal.Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
