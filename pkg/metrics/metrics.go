// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
		[]string{"type"},
	)

	// MessagesTotal tracks total messages appended.
	MessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages appended",
		},
	)

	// LeavesTotal tracks total leaves created, including main leaves.
	LeavesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leaves_total",
			Help: "Total conversation leaves created",
		},
	)

	// VersionsTotal tracks total message versions stored.
	VersionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "message_versions_total",
			Help: "Total message versions stored",
		},
	)

	// WSConnectionsActive tracks active WebSocket connections.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	// WSBroadcastsTotal tracks broadcast events fanned out.
	WSBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_broadcasts_total",
			Help: "Total WebSocket events broadcast",
		},
		[]string{"type"},
	)

	// WSDroppedSendsTotal tracks sends dropped on slow or dead peers.
	WSDroppedSendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_dropped_sends_total",
			Help: "Total WebSocket sends dropped",
		},
	)

	// NATSPublishesTotal tracks events mirrored to JetStream.
	NATSPublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_publishes_total",
			Help: "Total events published to NATS",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// IncrementWSConnections increments the active WebSocket connection count.
func IncrementWSConnections() {
	WSConnectionsActive.Inc()
}

// DecrementWSConnections decrements the active WebSocket connection count.
func DecrementWSConnections() {
	WSConnectionsActive.Dec()
}
