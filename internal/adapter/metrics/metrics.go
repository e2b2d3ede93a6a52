// Package metrics defines and registers the Prometheus metrics of the user
// query service. Metrics are registered with the default registry on import
// and exposed by the Gin router under /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "user_query"

// ── Query metrics ─────────────────────────────────────────────────────────────

// QueriesTotal counts roster queries.
// Labels:
//   - operation: query name (e.g. "average_age")
//   - result: "ok" or "error"
var QueriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Total number of roster queries served, by operation and result.",
	},
	[]string{"operation", "result"},
)

// QueryDuration measures a roster query from roster load to result.
var QueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Duration of roster queries including roster loading.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// ── Roster metrics ────────────────────────────────────────────────────────────

// RosterSize reports the number of users seen by the last roster load.
var RosterSize = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "roster_size",
		Help:      "Number of users in the roster at the last load.",
	},
)

// RosterCacheTotal counts roster cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var RosterCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roster_cache_total",
		Help:      "Total number of roster cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// RosterChangesTotal counts roster mutations.
// Label:
//   - change: "created" or "deleted"
var RosterChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roster_changes_total",
		Help:      "Total number of users added to or removed from the roster.",
	},
	[]string{"change"},
)

// ── Transport metrics ─────────────────────────────────────────────────────────

// RateLimitedTotal counts requests rejected by the rate limiter.
// Label:
//   - transport: "grpc" or "http"
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
	[]string{"transport"},
)

// ObserveQuery records the outcome and duration of one query.
func ObserveQuery(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	QueriesTotal.WithLabelValues(operation, result).Inc()
	QueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
