package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

// ServerMetrics holds the engine's own registry so the /metrics endpoint only
// exposes what this service emits.
type ServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersTotal     *prometheus.CounterVec
	fallbacksTotal   *prometheus.CounterVec
	answerDuration   *prometheus.HistogramVec
	answerSources    *prometheus.HistogramVec
	snapshotRebuilds prometheus.Counter
	snapshotItems    prometheus.Gauge
}

func NewServerMetrics(service string) *ServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "backlog",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "backlog",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "backlog",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "backlog",
			Subsystem: "engine",
			Name:      "answers_total",
			Help:      "Total answered questions by intent and answer path.",
		},
		[]string{"service", "intent", "path"},
	)
	fallbacksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "backlog",
			Subsystem: "engine",
			Name:      "fallbacks_total",
			Help:      "Total degraded answers by named fallback stage.",
		},
		[]string{"service", "stage"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "backlog",
			Subsystem: "engine",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "intent"},
	)
	answerSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "backlog",
			Subsystem: "engine",
			Name:      "answer_sources",
			Help:      "Distribution of cited sources per answer.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "intent"},
	)
	snapshotRebuilds := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "backlog",
			Subsystem: "engine",
			Name:      "snapshot_rebuilds_total",
			Help:      "Total corpus snapshot rebuilds.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	snapshotItems := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "backlog",
			Subsystem: "engine",
			Name:      "snapshot_items",
			Help:      "Items in the current corpus snapshot.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		fallbacksTotal,
		answerDuration,
		answerSources,
		snapshotRebuilds,
		snapshotItems,
	)

	return &ServerMetrics{
		registry:         registry,
		service:          service,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		answersTotal:     answersTotal,
		fallbacksTotal:   fallbacksTotal,
		answerDuration:   answerDuration,
		answerSources:    answerSources,
		snapshotRebuilds: snapshotRebuilds,
		snapshotItems:    snapshotItems,
	}
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/iterations/"):
		return "/v1/iterations/{iteration}/metrics"
	default:
		return path
	}
}

// ObserveAnswer implements the engine's per-answer observation hook.
func (m *ServerMetrics) ObserveAnswer(intent domain.Intent, path domain.AnswerPath, fallback string, sources int, duration time.Duration) {
	m.answersTotal.WithLabelValues(m.service, string(intent), string(path)).Inc()
	m.answerDuration.WithLabelValues(m.service, string(intent)).Observe(duration.Seconds())
	m.answerSources.WithLabelValues(m.service, string(intent)).Observe(float64(sources))
	if fallback != "" {
		m.fallbacksTotal.WithLabelValues(m.service, fallback).Inc()
	}
}

func (m *ServerMetrics) ObserveSnapshotRebuild(items int) {
	m.snapshotRebuilds.Inc()
	m.snapshotItems.Set(float64(items))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
