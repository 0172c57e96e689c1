// Package metrics holds the Prometheus collectors for the scoring service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers in one
// process do not collide. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	scores          *prometheus.CounterVec
	similarity      prometheus.Histogram
	acquisitions    *prometheus.CounterVec
	acquireDuration prometheus.Histogram
}

// New registers all collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essayscore_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "essayscore_http_request_duration_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 120},
		}, []string{"method", "route"}),
		scores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essayscore_answers_scored_total",
			Help: "Answers scored, by outcome (scored, empty, degraded).",
		}, []string{"outcome"}),
		similarity: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "essayscore_similarity",
			Help:    "Distribution of raw key/student similarity.",
			Buckets: []float64{0, 0.2, 0.4, 0.55, 0.7, 0.85, 0.95, 1},
		}),
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essayscore_model_acquisitions_total",
			Help: "Model acquisition attempts, by source and result.",
		}, []string{"source", "result"}),
		acquireDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "essayscore_model_acquire_duration_seconds",
			Help:    "Time spent acquiring the embedding model.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	reg.MustRegister(
		m.requests, m.requestLatency,
		m.scores, m.similarity,
		m.acquisitions, m.acquireDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveScore records the outcome of scoring one answer. similarity is only
// recorded for scored answers.
func (m *Metrics) ObserveScore(outcome string, similarity float64) {
	if m == nil {
		return
	}
	m.scores.WithLabelValues(outcome).Inc()
	if outcome == "scored" {
		m.similarity.Observe(similarity)
	}
}

// ObserveAcquire records one model acquisition attempt.
func (m *Metrics) ObserveAcquire(source string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.acquisitions.WithLabelValues(source, result).Inc()
	m.acquireDuration.Observe(d.Seconds())
}
