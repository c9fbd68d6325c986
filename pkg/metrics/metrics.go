package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records admin login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_auth_attempts_total",
			Help: "Total number of admin authentication attempts",
		},
		[]string{"result"},
	)

	// LeadsCreated counts created leads by source (website|booking|admin|...).
	LeadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_leads_created_total",
			Help: "Total number of leads created",
		},
		[]string{"source"},
	)

	// PipelineMoves counts stage moves by result (success|failure|noop).
	PipelineMoves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_pipeline_moves_total",
			Help: "Total number of pipeline stage moves",
		},
		[]string{"result"},
	)

	// NotificationEmitFailures counts notifications that could not be stored or pushed.
	NotificationEmitFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadflow_notification_emit_failures_total",
			Help: "Total number of swallowed notification emit failures",
		},
	)

	// RealtimeConnections tracks open websocket connections.
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadflow_realtime_connections",
			Help: "Number of open realtime connections",
		},
	)

	// ChatReplies counts chatbot replies by origin (keyword|webhook|fallback).
	ChatReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_chat_replies_total",
			Help: "Total number of chatbot replies",
		},
		[]string{"origin"},
	)

	// EventsPublished counts events delivered to external sinks by sink and result.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadflow_events_published_total",
			Help: "Total number of domain events forwarded to external sinks",
		},
		[]string{"sink", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadflow_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
