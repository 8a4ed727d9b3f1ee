// Package metrics exposes the dispatcher's Prometheus instrumentation
// (A2), grounded on the teacher's own metrics.go pattern of a handful of
// package-level collectors plus small observe/inc helpers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	reservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_reservations_total",
			Help: "Total backend reservation attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	backendQueueSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_backend_queue_size",
			Help: "Last observed queue size per backend.",
		},
		[]string{"backend"},
	)

	backendAvailable = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_backend_available",
			Help: "1 if the backend is currently available for reservation, else 0.",
		},
		[]string{"backend"},
	)

	proxyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_proxy_duration_seconds",
			Help:    "Latency of a single proxied backend call.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)

	splitterChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_splitter_chunks_total",
			Help: "Chunks processed by the Splitter, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(reservationsTotal, backendQueueSize, backendAvailable, proxyDuration, splitterChunks)
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncReservation records a reservation attempt's outcome ("reserved" or
// "exhausted").
func IncReservation(outcome string) {
	reservationsTotal.WithLabelValues(outcome).Inc()
}

// SetQueueGauge records the last observed queue size for backend.
func SetQueueGauge(backend string, size int) {
	backendQueueSize.WithLabelValues(backend).Set(float64(size))
}

// SetAvailableGauge records whether backend is currently available.
func SetAvailableGauge(backend string, available bool) {
	v := 0.0
	if available {
		v = 1.0
	}
	backendAvailable.WithLabelValues(backend).Set(v)
}

// ObserveProxy records one proxied call's latency, labeled by endpoint
// and resulting HTTP status.
func ObserveProxy(endpoint string, status int, elapsed time.Duration) {
	proxyDuration.WithLabelValues(endpoint, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// IncSplitterChunk records one Splitter chunk's outcome ("ok" or
// "error").
func IncSplitterChunk(outcome string) {
	splitterChunks.WithLabelValues(outcome).Inc()
}
