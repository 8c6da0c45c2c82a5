package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "towerapi_queries_total",
		Help: "Total number of tower proximity queries by mode and outcome",
	}, []string{"mode", "outcome"})
	QueryDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "towerapi_query_duration_ms",
		Help:    "Tower query duration in milliseconds (excluding geocoding)",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"mode"})
	CandidatesPerQuery = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "towerapi_prefilter_candidates",
		Help:    "Towers surviving the bounding-box prefilter per query",
		Buckets: []float64{0, 10, 100, 1000, 10000, 100000},
	})
	EmptyResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "towerapi_empty_results_total",
		Help: "Total number of queries with no tower in range",
	})
	DatasetCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "towerapi_dataset_cache_hits_total",
		Help: "Total dataset cache hits",
	})
	DatasetCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "towerapi_dataset_cache_misses_total",
		Help: "Total dataset cache misses",
	})
	DatasetLoadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "towerapi_dataset_loads_total",
		Help: "Total successful region dataset loads",
	})
	DatasetLoadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "towerapi_dataset_load_failures_total",
		Help: "Total failed region dataset loads (not found or parse error)",
	})
	DatasetLoadDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "towerapi_dataset_load_duration_ms",
		Help:    "Region dataset load duration in milliseconds",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000, 20000, 60000},
	})
	GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "towerapi_geocode_requests_total",
		Help: "Total geocoding upstream requests by kind (forward/reverse)",
	}, []string{"kind"})
	GeocodeFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "towerapi_geocode_fail_total",
		Help: "Total geocoding upstream failures by kind",
	}, []string{"kind"})
	GeocodeDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "towerapi_geocode_duration_ms",
		Help:    "Geocoding upstream call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000},
	}, []string{"kind"})
	GeocodeCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "towerapi_geocode_cache_hits_total",
		Help: "Total redis geocoding cache hits",
	})
	GeoIPLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "towerapi_geoip_lookups_total",
		Help: "Total GeoIP fallback lookups by status",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDurationMs)
	prometheus.MustRegister(CandidatesPerQuery)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(DatasetCacheHitsTotal)
	prometheus.MustRegister(DatasetCacheMissesTotal)
	prometheus.MustRegister(DatasetLoadsTotal)
	prometheus.MustRegister(DatasetLoadFailuresTotal)
	prometheus.MustRegister(DatasetLoadDurationMs)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeFailTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(GeocodeCacheHitsTotal)
	prometheus.MustRegister(GeoIPLookupsTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
