package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search client and worker lifecycle metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "makan",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Semantic search calls by outcome (ok, not_ready, timeout, error)",
		},
		[]string{"outcome"},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "makan",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Round trip of a semantic search through the embedding worker",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	SearchModeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "makan",
			Subsystem: "search",
			Name:      "mode_total",
			Help:      "Answered searches by mode (semantic, keyword)",
		},
		[]string{"mode"},
	)

	PendingRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "makan",
			Subsystem: "search",
			Name:      "pending_requests",
			Help:      "Requests awaiting a correlated worker response",
		},
	)

	WorkerSpawnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "makan",
			Subsystem: "worker",
			Name:      "spawns_total",
			Help:      "Embedding worker constructions by status",
		},
		[]string{"status"},
	)

	WorkerCrashesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "makan",
			Subsystem: "worker",
			Name:      "crashes_total",
			Help:      "Embedding workers that stopped unexpectedly",
		},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "makan",
			Subsystem: "worker",
			Name:      "generation_duration_seconds",
			Help:      "Embedding generation round trip, including model load",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"status"},
	)

	CachedDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "makan",
			Subsystem: "worker",
			Name:      "cached_documents",
			Help:      "Documents held in the embedding worker cache after the last generation",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search client metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		SearchRequestsTotal,
		SearchDuration,
		SearchModeTotal,
		PendingRequests,
		WorkerSpawnsTotal,
		WorkerCrashesTotal,
		GenerationDuration,
		CachedDocuments,
	)
	searchMetricsRegistered = true
}
