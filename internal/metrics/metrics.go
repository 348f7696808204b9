// Package metrics exposes storage and HTTP counters in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homestore"

// Operation results recorded for storage calls.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Metrics collects storage and HTTP metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	storageOps       *prometheus.CounterVec
	storageLatency   *prometheus.HistogramVec
	storageBytes     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
}

// New creates a collector with Go runtime and process collectors attached.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storageOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Storage operations by operation and result.",
		}, []string{"op", "result"}),
		storageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Time spent inside one storage transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"op"}),
		storageBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "value_bytes_total",
			Help:      "Value bytes written and read.",
		}, []string{"direction"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Requests currently being served.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.storageOps,
		m.storageLatency,
		m.storageBytes,
		m.httpRequests,
		m.httpLatency,
		m.requestsInFlight,
	)
	return m
}

// RecordStorage records one storage call.
func (m *Metrics) RecordStorage(op, result string, latency time.Duration) {
	if m == nil {
		return
	}
	m.storageOps.WithLabelValues(op, result).Inc()
	m.storageLatency.WithLabelValues(op).Observe(latency.Seconds())
}

// RecordBytesWritten adds to the written value bytes counter.
func (m *Metrics) RecordBytesWritten(n int) {
	if m == nil {
		return
	}
	m.storageBytes.WithLabelValues("written").Add(float64(n))
}

// RecordBytesRead adds to the read value bytes counter.
func (m *Metrics) RecordBytesRead(n int) {
	if m == nil {
		return
	}
	m.storageBytes.WithLabelValues("read").Add(float64(n))
}

// RecordRequest records a finished HTTP request.
func (m *Metrics) RecordRequest(method, route string, code int, latency time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(latency.Seconds())
}

// RequestStarted increments the in-flight gauge; the returned func decrements it.
func (m *Metrics) RequestStarted() func() {
	if m == nil {
		return func() {}
	}
	m.requestsInFlight.Inc()
	return m.requestsInFlight.Dec
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
