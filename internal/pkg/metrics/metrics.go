// internal/pkg/metrics/metrics.go
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fooddash"

// Metrics 汇总了订单流水线关心的所有指标。方法对 nil 接收者安全，
// 未注入指标的组件（例如单元测试）可以直接传 nil。
type Metrics struct {
	Requests             *prometheus.CounterVec
	LatencyMS            *prometheus.HistogramVec
	Orders               *prometheus.CounterVec
	SagaDuration         prometheus.Histogram
	LedgerOps            *prometheus.CounterVec
	CacheLookups         *prometheus.CounterVec
	CompensationFailures prometheus.Counter
}

// New 创建指标并注册到 reg。reg 为 nil 时使用默认注册表。
func New(service string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	// 指标名不允许出现 "-"
	service = strings.ReplaceAll(service, "-", "_")
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "orders_total",
			Help:      "Order saga outcomes.",
		}, []string{"operation", "outcome"}),
		SagaDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "saga_duration_seconds",
			Help:      "End-to-end duration of the order creation saga.",
			Buckets:   prometheus.DefBuckets,
		}),
		LedgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "ledger_operations_total",
			Help:      "Inventory ledger mutations by operation and result.",
		}, []string{"operation", "result"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by resource and result.",
		}, []string{"resource", "result"}),
		CompensationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "compensation_failures_total",
			Help:      "Inventory restore calls that failed during compensation.",
		}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.Orders, m.SagaDuration, m.LedgerOps, m.CacheLookups, m.CompensationFailures)
	return m
}

func (m *Metrics) ObserveOrder(operation, outcome string) {
	if m == nil {
		return
	}
	m.Orders.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveSaga(start time.Time) {
	if m == nil {
		return
	}
	m.SagaDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveLedger(operation, result string) {
	if m == nil {
		return
	}
	m.LedgerOps.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ObserveCache(resource string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(resource, result).Inc()
}

func (m *Metrics) ObserveCompensationFailure() {
	if m == nil {
		return
	}
	m.CompensationFailures.Inc()
}

// Middleware 记录每个路由的请求数和耗时。
func (m *Metrics) Middleware(handler string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.Requests.WithLabelValues(handler, http.StatusText(rec.status)).Inc()
		m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
