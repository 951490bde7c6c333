// Package metrics holds the process-wide prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "portal",
		Subsystem: "chat",
		Name:      "connected_clients",
		Help:      "Live websocket connections in the local registry.",
	})

	BroadcastDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "chat",
		Name:      "broadcast_deliveries_total",
		Help:      "Per-connection broadcast attempts by outcome.",
	}, []string{"result"})

	MessagesPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "chat",
		Name:      "messages_persisted_total",
		Help:      "Chat messages stored, by kind.",
	}, []string{"kind"})

	AICompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "ai",
		Name:      "completions_total",
		Help:      "Completion attempts by model and outcome.",
	}, []string{"model", "result"})

	AICompletionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Subsystem: "ai",
		Name:      "completion_seconds",
		Help:      "Completion latency by model.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
	}, []string{"model"})

	RelayFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "relay",
		Name:      "local_fallbacks_total",
		Help:      "Broadcasts delivered locally because the stream publish failed.",
	})

	SessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "jobs",
		Name:      "sessions_swept_total",
		Help:      "Expired sessions removed by the sweeper.",
	})
)
