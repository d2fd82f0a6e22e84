/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TracksAdvanced counts accepted track advances per source.
	TracksAdvanced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muse_tracks_advanced_total",
		Help: "Tracks accepted by a playlist advance, by source.",
	}, []string{"source"})

	// MemoryShuffleRuns counts memory shuffle invocations by algorithm and outcome.
	MemoryShuffleRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muse_memory_shuffle_runs_total",
		Help: "Memory shuffle runs by algorithm and outcome (skipped, converged, best_effort).",
	}, []string{"algorithm", "outcome"})

	// MemoryShuffleScanned observes positions inspected by a thorough scour.
	MemoryShuffleScanned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "muse_memory_shuffle_scanned_tracks",
		Help:    "Positions inspected by a thorough memory shuffle.",
		Buckets: prometheus.ExponentialBuckets(50, 4, 8),
	})

	// TaperRejections counts random-source candidates rejected as recent repeats.
	TaperRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muse_taper_rejections_total",
		Help: "Random source candidates rejected because they were played recently.",
	})

	// TaperExhausted counts selections that accepted a repeat after running out of retries.
	TaperExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muse_taper_exhausted_total",
		Help: "Selections that accepted a recent repeat after exhausting retries.",
	})

	// OverridesConsumed counts injected tracks played ahead of normal selection.
	OverridesConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muse_overrides_consumed_total",
		Help: "Override tracks consumed by the master.",
	})

	// Seeks counts seek requests by result.
	Seeks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muse_seeks_total",
		Help: "Seek requests by result (found, not_found).",
	}, []string{"result"})

	// ActiveSources reports how many master sources are currently eligible.
	ActiveSources = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "muse_active_sources",
		Help: "Master sources currently eligible for selection.",
	})

	// APIRequestsTotal counts control API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muse_api_requests_total",
		Help: "Control API requests by method, route and status.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes control API latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "muse_api_request_duration_seconds",
		Help:    "Control API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight control API requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "muse_api_active_connections",
		Help: "In-flight control API requests.",
	})

	// APIWebSocketConnections tracks open event stream sockets.
	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "muse_api_websocket_connections",
		Help: "Open event stream websocket connections.",
	})

	// DatabaseQueryDuration observes history store queries.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "muse_database_query_duration_seconds",
		Help:    "History store query latency by operation and table.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts failed history store queries.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muse_database_errors_total",
		Help: "Failed history store queries.",
	}, []string{"operation", "error_type"})

	// DatabaseConnectionsActive reports open SQL connections.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "muse_database_connections_active",
		Help: "Open SQL connections.",
	})

	// StoreOperations counts history store operations by backend and result.
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muse_store_operations_total",
		Help: "History store loads and saves by backend, operation and result.",
	}, []string{"backend", "operation", "result"})

	// EventsForwarded counts events relayed to the message broker.
	EventsForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muse_events_forwarded_total",
		Help: "Engine events relayed to the message broker by type and result.",
	}, []string{"type", "result"})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
