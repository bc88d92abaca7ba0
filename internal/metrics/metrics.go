package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Общие HTTP-метрики
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Метрики бэкапов и учётных записей
var (
	BackupOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_operations_total",
			Help: "Backup pipeline operations by kind and result.",
		},
		[]string{"op", "result"},
	)

	BackupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backup_operation_duration_seconds",
			Help:    "Duration of capture/restore/verify operations.",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		},
		[]string{"op"},
	)

	LastArtifactBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "backup_last_artifact_bytes",
		Help: "Size of the most recently captured artifact.",
	})

	Reactivations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_reactivations_total",
			Help: "Account reactivation attempts by result.",
		},
		[]string{"result"},
	)
)

var initOnce sync.Once

// Init регистрирует метрики в default-регистре. Повторные вызовы безопасны.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			BackupOps, BackupDuration, LastArtifactBytes, Reactivations,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveOp учитывает результат и длительность операции op.
func ObserveOp(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	BackupOps.WithLabelValues(op, result).Inc()
	BackupDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Instrument — обёртка для измерения RPS/latency/в полёте.
// Метка route берётся из шаблона chi, чтобы имена артефактов и id не раздували кардинальность.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
