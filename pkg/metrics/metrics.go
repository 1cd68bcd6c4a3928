// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks console API request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_request_duration_seconds",
			Help:    "Console API request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total console API requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_requests_total",
			Help: "Total console API requests",
		},
		[]string{"method", "path", "status"},
	)

	// BackendRequestDuration tracks calls made to the Message Whisperer backend.
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation", "status"},
	)

	// ThreadPollsTotal counts message thread poll ticks by result.
	ThreadPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thread_polls_total",
			Help: "Message thread poll ticks",
		},
		[]string{"result"},
	)

	// OptimisticMessagesPending tracks optimistic messages not yet confirmed.
	OptimisticMessagesPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "optimistic_messages_pending",
			Help: "Optimistic messages waiting for server confirmation",
		},
	)

	// MutationsTotal counts agent mutations by operation and outcome.
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutations_total",
			Help: "Agent mutations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// RollbacksTotal counts optimistic rollbacks by operation.
	RollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optimistic_rollbacks_total",
			Help: "Optimistic state rollbacks after a failed mutation",
		},
		[]string{"operation"},
	)

	// NotificationsTotal counts notifications emitted to the agent.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notifications emitted to the agent",
		},
		[]string{"kind", "operation"},
	)

	// MediaCacheLookups counts media cache lookups by result.
	MediaCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cache_lookups_total",
			Help: "Media cache lookups",
		},
		[]string{"result"},
	)

	// DraftDuration tracks AI reply drafting latency.
	DraftDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "draft_duration_seconds",
			Help:    "AI reply draft duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)

	// DraftTokensTotal tracks LLM tokens used for drafting.
	DraftTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draft_tokens_total",
			Help: "LLM tokens used for reply drafts",
		},
		[]string{"model", "direction"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)
)

// RecordRequest records metrics for a console API request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordBackendCall records metrics for a backend request.
func RecordBackendCall(operation, status string, duration float64) {
	BackendRequestDuration.WithLabelValues(operation, status).Observe(duration)
}

// RecordMutation records the outcome of an agent mutation.
func RecordMutation(operation string, err error) {
	if err != nil {
		MutationsTotal.WithLabelValues(operation, "failure").Inc()
		RollbacksTotal.WithLabelValues(operation).Inc()
		return
	}
	MutationsTotal.WithLabelValues(operation, "success").Inc()
}

// RecordDraft records metrics for an AI reply draft.
func RecordDraft(provider, model, status string, duration float64, tokensIn, tokensOut int) {
	DraftDuration.WithLabelValues(provider, status).Observe(duration)
	DraftTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	DraftTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
