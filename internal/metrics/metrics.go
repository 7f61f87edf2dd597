// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollCycles counts global poll cycles by outcome.
	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_poll_cycles_total",
			Help: "Global poll cycles by outcome",
		},
		[]string{"outcome"},
	)

	// PollDuration tracks global poll round-trip duration.
	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inbox_poll_duration_seconds",
			Help:    "Global poll round-trip duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// MergedMessages counts messages merged into the store.
	MergedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_merged_messages_total",
			Help: "Messages merged from poll snapshots",
		},
	)

	// Cursor exposes the current poll watermark.
	Cursor = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_poll_cursor",
			Help: "Highest merged server message id",
		},
	)

	// LongPollResults counts long-poll completions by result.
	LongPollResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_longpoll_results_total",
			Help: "Long-poll completions by result",
		},
		[]string{"result"},
	)

	// OutboxSends counts outgoing message sends by outcome.
	OutboxSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_outbox_sends_total",
			Help: "Outgoing message sends by outcome",
		},
		[]string{"outcome"},
	)

	// RequestDuration tracks local API request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inbox_api_request_duration_seconds",
			Help:    "Local API request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// SSEConnectionsActive tracks active event stream subscribers.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)
)
