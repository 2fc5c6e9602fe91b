// Package observability collects Prometheus metrics for the platform.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the Prometheus collectors. All methods are nil-safe so
// components can run without metrics wired (tests, scripts).
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	authzDecisions  *prometheus.CounterVec
	degradedWrites  *prometheus.CounterVec
	syncFanout      *prometheus.HistogramVec
}

// NewMetrics initialises the registry and base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sige_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sige_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sige_authz_decisions_total",
		Help: "Authorization decisions by outcome.",
	}, []string{"outcome"})
	degraded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sige_identity_degraded_writes_total",
		Help: "Identity cache entries written fail-closed after a dangling scope reference.",
	}, []string{"scope_kind"})
	fanout := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sige_identity_sync_fanout",
		Help:    "Cache entries recomputed per tenant directory change.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	}, []string{"trigger"})
	registry.MustRegister(requests, duration, decisions, degraded, fanout)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		authzDecisions:  decisions,
		degradedWrites:  degraded,
		syncFanout:      fanout,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
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

// IncAuthzDecision counts one authorization outcome ("allow" or "deny").
func (m *Metrics) IncAuthzDecision(outcome string) {
	if m == nil {
		return
	}
	m.authzDecisions.WithLabelValues(outcome).Inc()
}

// IncDegradedIdentityWrite counts a fail-closed cache write.
func (m *Metrics) IncDegradedIdentityWrite(scopeKind string) {
	if m == nil {
		return
	}
	m.degradedWrites.WithLabelValues(scopeKind).Inc()
}

// ObserveSyncFanout records the number of entries recomputed for one change.
func (m *Metrics) ObserveSyncFanout(trigger string, count int) {
	if m == nil {
		return
	}
	m.syncFanout.WithLabelValues(trigger).Observe(float64(count))
}

// Registerer exposes the registry for custom collectors.
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
	routeCtx := chi.RouteContext(r.Context())
	if routeCtx == nil {
		return r.URL.Path
	}
	if pattern := routeCtx.RoutePattern(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}
