// Package metrics exposes verification and fetch instrumentation to
// Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certverify/internal/models"
)

const namespace = "certverify"

// Metrics implements crawler.Recorder and verifier.Recorder.
type Metrics struct {
	verifications *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cacheHits     prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Finished verifications by outcome.",
		}, []string{"outcome"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Page fetches by strategy and status.",
		}, []string{"strategy", "status"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Page fetch latency by strategy.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"strategy"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Page fetches served from the cache.",
		}),
	}
	reg.MustRegister(m.verifications, m.fetches, m.fetchDuration, m.cacheHits)
	return m
}

func (m *Metrics) VerificationDone(outcome models.Outcome) {
	m.verifications.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) FetchDone(strategy string, status models.FetchStatus, d time.Duration) {
	m.fetches.WithLabelValues(strategy, string(status)).Inc()
	m.fetchDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

func (m *Metrics) CacheHit() {
	m.cacheHits.Inc()
}

// Handler serves the /metrics endpoint for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
