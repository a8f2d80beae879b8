package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "newsmap_geocode_requests_total",
		Help: "Total outbound geocoder requests (including retries)",
	})
	GeocodeSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "newsmap_geocode_success_total",
		Help: "Total geocoder lookups that returned coordinates",
	})
	GeocodeNotFoundTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "newsmap_geocode_not_found_total",
		Help: "Total geocoder lookups answered with no result",
	})
	GeocodeFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "newsmap_geocode_fail_total",
		Help: "Total geocoder failures by class",
	}, []string{"class"})
	GeocodeRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "newsmap_geocode_retries_total",
		Help: "Total geocoder retries after a timeout",
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsmap_geocode_duration_ms",
		Help:    "Geocoder HTTP call duration in milliseconds",
		Buckets: []float64{50, 100, 200, 500, 1000, 2000, 5000, 10000},
	})
	GeocodeCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "newsmap_geocode_cache_hits_total",
		Help: "Geocode cache hits by tier",
	}, []string{"tier"})
	GeocodeCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "newsmap_geocode_cache_misses_total",
		Help: "Geocode cache misses across all tiers",
	})
	BoundaryLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "newsmap_boundary_lookups_total",
		Help: "Constituency lookups by outcome (hit, miss, unnamed, unloaded)",
	}, []string{"outcome"})
	PipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "newsmap_pipeline_runs_total",
		Help: "Pipeline runs by status",
	}, []string{"status"})
	PipelineDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsmap_pipeline_duration_ms",
		Help:    "Pipeline run duration in milliseconds",
		Buckets: []float64{100, 500, 1000, 5000, 15000, 30000, 60000, 120000},
	})
	ArticlesLocatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "newsmap_articles_located_total",
		Help: "Articles resolved to a coordinate",
	})
	ClustersCurrent = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "newsmap_clusters_current",
		Help: "Number of clusters produced by the latest pipeline run",
	})
	APICacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "newsmap_api_cache_total",
		Help: "Cluster endpoint responses by cache outcome (fresh, refreshed, stale, error)",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeSuccessTotal)
	prometheus.MustRegister(GeocodeNotFoundTotal)
	prometheus.MustRegister(GeocodeFailTotal)
	prometheus.MustRegister(GeocodeRetriesTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(GeocodeCacheHitsTotal)
	prometheus.MustRegister(GeocodeCacheMissesTotal)
	prometheus.MustRegister(BoundaryLookupsTotal)
	prometheus.MustRegister(PipelineRunsTotal)
	prometheus.MustRegister(PipelineDurationMs)
	prometheus.MustRegister(ArticlesLocatedTotal)
	prometheus.MustRegister(ClustersCurrent)
	prometheus.MustRegister(APICacheTotal)
}

// 文档注释：返回 Prometheus 指标处理器
// 背景：统一暴露注册指标，供 Prometheus 抓取；在主入口挂载到 {API_BASE}/metrics。
func Handler() http.Handler { return promhttp.Handler() }
