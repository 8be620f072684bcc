package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/odyssey-console/internal/cache"
)

// Metrics mengumpulkan metrik Prometheus untuk console.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	mutationsTotal   *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	invalidations    *prometheus.CounterVec
}

// NewMetrics menginisialisasi registry, metrik HTTP, metrik mutasi workflow dan
// metrik invalidasi cache.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_workflow_mutations_total",
		Help: "Jumlah aksi workflow berdasarkan entitas, aksi dan hasil.",
	}, []string{"entity", "action", "outcome"})
	mutationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_workflow_mutation_duration_seconds",
		Help:    "Durasi aksi workflow termasuk panggilan ke API.",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity", "action"})
	invalidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_cache_invalidations_total",
		Help: "Jumlah tag cache yang diinvalidasi per mutasi.",
	}, []string{"mutation", "tag"})
	registry.MustRegister(requests, duration, mutations, mutationDuration, invalidations)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		mutationsTotal:   mutations,
		mutationDuration: mutationDuration,
		invalidations:    invalidations,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveMutation mencatat hasil satu aksi workflow.
func (m *Metrics) ObserveMutation(entity, action, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(entity, action, outcome).Inc()
	m.mutationDuration.WithLabelValues(entity, action).Observe(d.Seconds())
}

// Invalidated menghitung tag yang dibatalkan oleh satu mutasi.
func (m *Metrics) Invalidated(_ context.Context, mutation cache.Mutation, tags []cache.Tag) {
	if m == nil {
		return
	}
	for _, tag := range tags {
		m.invalidations.WithLabelValues(string(mutation), string(tag)).Inc()
	}
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
