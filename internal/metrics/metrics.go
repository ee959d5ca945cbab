// Package metrics holds the Prometheus collectors of the clustering engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BuildsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viewcluster_builds_total",
		Help: "Total number of installed index generations",
	})
	BuildFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viewcluster_build_failures_total",
		Help: "Total number of index builds that failed",
	})
	BuildsSupersededTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viewcluster_builds_superseded_total",
		Help: "Total number of builds discarded because a newer load started",
	})
	BuildDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "viewcluster_build_duration_ms",
		Help:    "Index build duration in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000, 5000},
	})
	IndexedPoints = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "viewcluster_indexed_points",
		Help: "Number of points in the current generation",
	})
	QueriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viewcluster_queries_total",
		Help: "Total number of index queries",
	})
	QueryCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viewcluster_query_cache_hits_total",
		Help: "Total number of region changes answered from the query cache",
	})
	FailOpenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viewcluster_fail_open_total",
		Help: "Total number of queries that failed and returned no clusters",
	})
	ExpansionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewcluster_expansions_total",
		Help: "Cluster expansions by outcome",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(BuildsTotal)
	prometheus.MustRegister(BuildFailuresTotal)
	prometheus.MustRegister(BuildsSupersededTotal)
	prometheus.MustRegister(BuildDurationMs)
	prometheus.MustRegister(IndexedPoints)
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryCacheHitsTotal)
	prometheus.MustRegister(FailOpenTotal)
	prometheus.MustRegister(ExpansionsTotal)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
