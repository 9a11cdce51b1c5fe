package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/teacher-portal-api/internal/models"
)

const metricsNamespace = "teacher_portal"

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for the health endpoint.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	startedAt       time.Time
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	rosterLoads     *prometheus.HistogramVec
	mutations       *prometheus.CounterVec
	guardRejections *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	sessions        *prometheus.CounterVec

	cacheHitCount   uint64
	cacheMissCount  uint64
	requestCount    uint64
	mutationCount   uint64
	guardCount      uint64
	submissionCount uint64
}

// NewMetricsService registers the portal collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "cache_latency_seconds",
		Help:      "Latency for cache lookups",
		Buckets:   prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "cache_write_seconds",
		Help:      "Latency for cache set operations",
		Buckets:   prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "cache_hits_total",
		Help:      "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "cache_misses_total",
		Help:      "Total cache misses",
	})

	rosterLoads := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "roster_load_seconds",
		Help:      "Duration of roster fetches from the data source",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "attendance_mutations_total",
		Help:      "Attendance mutations by operation and outcome",
	}, []string{"operation", "outcome"})

	guardRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "attendance_future_date_rejections_total",
		Help:      "Mutations refused because the roster date is in the future",
	}, []string{"operation"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "attendance_submissions_total",
		Help:      "Attendance submission results",
	}, []string{"outcome"})

	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_total",
		Help:      "Session lifecycle events",
	}, []string{"event"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "goroutines",
		Help:      "Number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		rosterLoads, mutations, guardRejections, submissions, sessions, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		startedAt:       time.Now(),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		rosterLoads:     rosterLoads,
		mutations:       mutations,
		guardRejections: guardRejections,
		submissions:     submissions,
		sessions:        sessions,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheMisses.Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveRosterLoad times a fetch from the roster data source.
func (m *MetricsService) ObserveRosterLoad(ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "unavailable"
	}
	m.rosterLoads.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveAttendanceMutation counts a mutation attempt; future date refusals are also tracked separately.
func (m *MetricsService) ObserveAttendanceMutation(operation, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(operation, outcome).Inc()
	atomic.AddUint64(&m.mutationCount, 1)
	if outcome == MutationOutcomeGuarded {
		m.guardRejections.WithLabelValues(operation).Inc()
		atomic.AddUint64(&m.guardCount, 1)
	}
}

// ObserveSubmission counts a submission job result.
func (m *MetricsService) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	atomic.AddUint64(&m.submissionCount, 1)
}

// ObserveSession counts a session lifecycle event such as started or expired.
func (m *MetricsService) ObserveSession(event string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(event).Inc()
}

// Snapshot returns aggregated counters for the health endpoint.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	return models.MetricsSnapshot{
		UptimeSeconds:       int64(time.Since(m.startedAt).Seconds()),
		RequestsTotal:       atomic.LoadUint64(&m.requestCount),
		CacheHitRatio:       ratio,
		AttendanceMutations: atomic.LoadUint64(&m.mutationCount),
		FutureDateRefusals:  atomic.LoadUint64(&m.guardCount),
		Submissions:         atomic.LoadUint64(&m.submissionCount),
		Goroutines:          runtime.NumGoroutine(),
		GeneratedAt:         time.Now().UTC(),
	}
}
