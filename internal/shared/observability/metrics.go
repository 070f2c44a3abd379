package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	GitHubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "benchtop_github_requests_total",
		Help: "GitHub REST requests by endpoint and HTTP status class.",
	}, []string{"endpoint", "status"})

	GitHubRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "benchtop_github_request_seconds",
		Help:    "Latency of GitHub REST requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	GitHubCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "benchtop_github_cache_hits_total",
		Help: "GitHub responses served from the in-session cache.",
	})

	CrawlerPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "benchtop_crawler_pages_total",
		Help: "Pages visited by the documentation crawler, by outcome.",
	}, []string{"outcome"})

	CrawlDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "benchtop_crawl_seconds",
		Help:    "Wall time of complete crawls.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})

	FilterEvaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "benchtop_filter_evaluations_total",
		Help: "Filter set evaluations over a record collection.",
	})

	TreeBuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "benchtop_tree_builds_total",
		Help: "Full path-tree rebuilds.",
	})

	TreeBuildRecords = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "benchtop_tree_build_records",
		Help:    "Number of records per path-tree rebuild.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	StoreOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "benchtop_store_operations_total",
		Help: "Item store operations by kind and result.",
	}, []string{"op", "result"})

	ViewerRenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "benchtop_viewer_render_seconds",
		Help:    "Time spent rendering a file view.",
		Buckets: prometheus.DefBuckets,
	}, []string{"module"})
)
