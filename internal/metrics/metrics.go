package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// IndexRequestDuration measures Elasticsearch round trips.
// The 'operation' label is the catalog operation (list, full_text, facets, get, replace, ...).
var IndexRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "index_request_duration_seconds",
		Help:    "Duration of Elasticsearch requests in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
	},
	[]string{"operation"},
)

// DBQueryDuration measures how long our database queries take.
// 'operation' distinguishes 'insert_movement', 'read_stock_report' and 'refresh_mv'.
var DBQueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "db_query_duration_seconds",
		Help: "Duration of database queries in seconds",
		// Buckets tailored for fast reads and potentially slower background refreshes
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	},
	[]string{"operation"},
)

// ItemEvents counts item events by kind and outcome
// ('published', 'publish_failed', 'recorded', 'requeued').
var ItemEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "item_events_total",
		Help: "Item events by kind and outcome",
	},
	[]string{"kind", "outcome"},
)

// RequestErrors counts failed API requests by error kind.
var RequestErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_request_errors_total",
		Help: "Failed catalog requests by operation and error kind",
	},
	[]string{"operation", "kind"},
)
