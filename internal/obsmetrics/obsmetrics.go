// Package obsmetrics registers the Prometheus metrics exposed by the
// coordinator and query node processes.
package obsmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Coordinator holds the metrics recorded by the global node.
type Coordinator struct {
	QueriesTotal      *prometheus.CounterVec
	QueryDuration     prometheus.Histogram
	QueryBatchSize    prometheus.Histogram
	ClustersProbed    prometheus.Histogram
	LoadBalanceTotal  *prometheus.CounterVec
	ResultsReturned   prometheus.Histogram
	GlobalCacheHits   prometheus.Counter
	GlobalCacheMisses prometheus.Counter
	QueryNodeErrors   *prometheus.CounterVec
}

// NewCoordinator registers the coordinator metrics against reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with the default
// registry.
func NewCoordinator(reg prometheus.Registerer) *Coordinator {
	f := promauto.With(reg)
	return &Coordinator{
		QueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "miniivf_coordinator_queries_total",
				Help: "Total number of query batches served, by balance mode",
			},
			[]string{"balance_mode"},
		),
		QueryDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "miniivf_coordinator_query_duration_seconds",
				Help:    "End-to-end duration of runQueries calls",
				Buckets: prometheus.DefBuckets,
			},
		),
		QueryBatchSize: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "miniivf_coordinator_query_batch_size",
				Help:    "Number of queries per runQueries call",
				Buckets: []float64{1, 8, 32, 128, 512, 2048},
			},
		),
		ClustersProbed: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "miniivf_coordinator_clusters_probed",
				Help:    "Number of clusters (nprobe) probed per query",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
			},
		),
		LoadBalanceTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "miniivf_coordinator_loadbalance_total",
				Help: "Total number of loadBalance invocations, by mode",
			},
			[]string{"mode"},
		),
		ResultsReturned: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "miniivf_coordinator_results_returned",
				Help:    "Number of results returned per query",
				Buckets: []float64{1, 5, 10, 20, 50, 100},
			},
		),
		GlobalCacheHits: f.NewCounter(
			prometheus.CounterOpts{
				Name: "miniivf_coordinator_global_cache_hits_total",
				Help: "Total number of cluster probes served from the global hot-cluster cache",
			},
		),
		GlobalCacheMisses: f.NewCounter(
			prometheus.CounterOpts{
				Name: "miniivf_coordinator_global_cache_misses_total",
				Help: "Total number of cluster probes dispatched to a query node",
			},
		),
		QueryNodeErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "miniivf_coordinator_querynode_errors_total",
				Help: "Total number of query node RPC errors, by node",
			},
			[]string{"node"},
		),
	}
}

// RecordQuery records one runQueries call.
func (c *Coordinator) RecordQuery(mode string, d time.Duration, numQueries, nprobe, numResults int) {
	c.QueriesTotal.WithLabelValues(mode).Inc()
	c.QueryDuration.Observe(d.Seconds())
	c.QueryBatchSize.Observe(float64(numQueries))
	c.ClustersProbed.Observe(float64(nprobe))
	c.ResultsReturned.Observe(float64(numResults))
}

// RecordLoadBalance records one loadBalance invocation under mode.
func (c *Coordinator) RecordLoadBalance(mode string) {
	c.LoadBalanceTotal.WithLabelValues(mode).Inc()
}

// RecordGlobalCacheHit records one cluster probe served from the global
// hot-cluster cache instead of being dispatched to a query node.
func (c *Coordinator) RecordGlobalCacheHit() {
	c.GlobalCacheHits.Inc()
}

// RecordGlobalCacheMiss records one cluster probe dispatched to a query
// node rather than served from the global hot-cluster cache.
func (c *Coordinator) RecordGlobalCacheMiss() {
	c.GlobalCacheMisses.Inc()
}

// RecordQueryNodeError records one failed RPC to the named query node.
func (c *Coordinator) RecordQueryNodeError(node string) {
	c.QueryNodeErrors.WithLabelValues(node).Inc()
}

// QueryNode holds the metrics recorded by a query node.
type QueryNode struct {
	RunQueriesTotal    prometheus.Counter
	RunQueriesDuration prometheus.Histogram
	ClustersResident   prometheus.Gauge
	ResidentVectors    prometheus.Gauge
	MemoryBytes        prometheus.Gauge
	LoadSegmentsTotal  prometheus.Counter
	IndexInitTotal     prometheus.Counter
}

// NewQueryNode registers the query node metrics against reg.
func NewQueryNode(reg prometheus.Registerer) *QueryNode {
	f := promauto.With(reg)
	return &QueryNode{
		RunQueriesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "miniivf_querynode_run_queries_total",
				Help: "Total number of runQueries RPCs served",
			},
		),
		RunQueriesDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "miniivf_querynode_run_queries_duration_seconds",
				Help:    "Duration of runQueries RPCs served locally",
				Buckets: prometheus.DefBuckets,
			},
		),
		ClustersResident: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "miniivf_querynode_clusters_resident",
				Help: "Number of clusters currently resident in this node's index",
			},
		),
		ResidentVectors: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "miniivf_querynode_resident_vectors",
				Help: "Number of PQ-coded vectors currently resident in this node's index",
			},
		),
		MemoryBytes: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "miniivf_querynode_memory_bytes",
				Help: "Estimated memory held by this node's resident posting lists, segments and codebooks",
			},
		),
		LoadSegmentsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "miniivf_querynode_load_segments_total",
				Help: "Total number of loadSegments RPCs served",
			},
		),
		IndexInitTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "miniivf_querynode_index_init_total",
				Help: "Total number of indexInit RPCs served",
			},
		),
	}
}
