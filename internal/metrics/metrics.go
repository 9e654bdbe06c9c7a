package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitereport_requests_total",
		Help: "Total number of API requests by route and status",
	}, []string{"route", "status"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sitereport_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	ImportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitereport_imports_total",
		Help: "Total project/geojson/category imports by kind and result",
	}, []string{"kind", "result"})
	ImportedFeatures = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sitereport_imported_features",
		Help:    "Number of features per successful import",
		Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
	})
	StyleFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitereport_style_fallback_total",
		Help: "Total features rendered with the neutral fallback style",
	}, []string{"kind"})
	StyleDegradedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sitereport_style_degraded_total",
		Help: "Total custom svg markers replaced by a circle",
	})
	SwatchCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sitereport_swatch_cache_total",
		Help: "Swatch lookups by tier (local, redis, miss)",
	}, []string{"tier"})
	ProjectStoreDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sitereport_project_store_duration_ms",
		Help:    "Saved project store call duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(ImportsTotal)
	prometheus.MustRegister(ImportedFeatures)
	prometheus.MustRegister(StyleFallbackTotal)
	prometheus.MustRegister(StyleDegradedTotal)
	prometheus.MustRegister(SwatchCacheTotal)
	prometheus.MustRegister(ProjectStoreDurationMs)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }

// ObserveSince：记录自 start 起的毫秒耗时
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(float64(time.Since(start).Microseconds()) / 1000)
}

// Instrument：按路由统计请求数与耗时
func Instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		RequestsTotal.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		ObserveSince(RequestDurationMs.WithLabelValues(route), start)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
