// Package metrics declares the process-wide Prometheus collectors, exposed
// on /metrics by cmd/server. Package-level promauto vars, so no explicit
// registration is needed.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream2graph_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream2graph_sessions_active",
			Help: "Number of currently live sessions",
		},
	)

	ChunksIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream2graph_chunks_ingested_total",
			Help: "Total number of transcript chunks ingested",
		},
	)

	UpdatesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream2graph_updates_emitted_total",
			Help: "Total number of streaming updates dispatched, by boundary reason",
		},
		[]string{"boundary_reason"},
	)

	IntentDistribution = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream2graph_intent_classifications_total",
			Help: "Total number of updates classified, by intent type",
		},
		[]string{"intent_type"},
	)

	WaitKCurrent = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stream2graph_wait_k_current",
			Help:    "Wait-k value in effect at dispatch time",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	ProcessingLatencyMs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stream2graph_processing_latency_ms",
			Help:    "Pipeline processing latency per update, in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2000, 5000},
		},
	)

	RenderLatencyMs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stream2graph_render_latency_ms",
			Help:    "Renderer apply-update latency, in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	FlickerIndex = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stream2graph_flicker_index",
			Help:    "Per-frame mean node displacement",
			Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
		},
	)

	MentalMapScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stream2graph_mental_map_score",
			Help:    "Per-frame mental-map stability score",
			Buckets: []float64{0, 0.25, 0.5, 0.7, 0.85, 0.9, 0.95, 1},
		},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream2graph_http_requests_total",
			Help: "Total number of HTTP requests, by route and status",
		},
		[]string{"route", "status"},
	)

	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream2graph_websocket_connections",
			Help: "Number of currently open websocket live-push connections",
		},
	)
)
