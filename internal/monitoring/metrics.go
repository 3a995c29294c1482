package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "motion"

var (
	comparisonsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparisons_total",
			Help:      "Total number of comparisons by outcome (ok, degraded, load_error)",
		},
		[]string{"status"},
	)

	comparisonDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "comparison_duration_seconds",
			Help:      "Wall-clock time spent comparing two landmark sequences",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	overallSimilarity = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "overall_similarity",
			Help:      "Distribution of overall frame-synchronous similarity scores",
			Buckets:   prometheus.LinearBuckets(-1, 0.1, 21),
		},
	)

	loadErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Landmark documents rejected at load time, by error kind",
		},
		[]string{"kind"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	registerOnce sync.Once
)

// RegisterMetrics registers the collectors with the given registerer, or the
// default registry when reg is nil. Only the first call has any effect.
func RegisterMetrics(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(comparisonsTotal, comparisonDuration, overallSimilarity, loadErrorsTotal, httpRequestsTotal)
	})
}

// ObserveComparison records one finished comparison.
func ObserveComparison(status string, elapsed time.Duration, overall float64) {
	comparisonsTotal.WithLabelValues(status).Inc()
	comparisonDuration.Observe(elapsed.Seconds())
	overallSimilarity.Observe(overall)
}

// ObserveLoadError records a rejected landmark document.
func ObserveLoadError(kind string) {
	loadErrorsTotal.WithLabelValues(kind).Inc()
}

// Middleware counts HTTP requests by chi route pattern and status.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			path := "unknown"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				path = rctx.RoutePattern()
			}
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.status)).Inc()
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
