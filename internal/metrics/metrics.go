package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alecgard/troupe/internal/ordering"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric collectors for the troupe service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Claim workflow.
	ClaimEventsTotal       *prometheus.CounterVec
	MergeStepFailuresTotal *prometheus.CounterVec

	// Display order.
	OrderSavesTotal      *prometheus.CounterVec
	OrderSaveDuration    prometheus.Histogram
	OrderRowsChanged     *prometheus.CounterVec
	OrderInitializations prometheus.Counter

	// Rate limiting and auth.
	RateLimitRejectionsTotal *prometheus.CounterVec
	AuthFailuresTotal        *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "troupe_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"kind", "method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "troupe_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "method", "path_pattern"}),

		HTTPResponseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "troupe_http_response_size_bytes",
			Help:    "HTTP response size in bytes.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"kind", "method", "path_pattern"}),

		ClaimEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "troupe_claim_events_total",
			Help: "Claim workflow calls by action and outcome.",
		}, []string{"action", "outcome"}),

		MergeStepFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "troupe_claim_merge_step_failures_total",
			Help: "Secondary merge steps that failed and were skipped.",
		}, []string{"step"}),

		OrderSavesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "troupe_display_order_saves_total",
			Help: "Display order saves by outcome.",
		}, []string{"outcome"}),

		OrderSaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "troupe_display_order_save_duration_seconds",
			Help:    "Duration of display order save transactions in seconds.",
			Buckets: prometheus.DefBuckets,
		}),

		OrderRowsChanged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "troupe_display_order_rows_changed_total",
			Help: "Display order rows written by saves.",
		}, []string{"op"}),

		OrderInitializations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "troupe_display_order_initializations_total",
			Help: "Number of times the display order was initialized.",
		}),

		RateLimitRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "troupe_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}, []string{"scope"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "troupe_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"auth_type"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "troupe_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.ClaimEventsTotal,
		m.MergeStepFailuresTotal,
		m.OrderSavesTotal,
		m.OrderSaveDuration,
		m.OrderRowsChanged,
		m.OrderInitializations,
		m.RateLimitRejectionsTotal,
		m.AuthFailuresTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Exposition serves the registry in the Prometheus text format.
func (m *Metrics) Exposition() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(kind, method, pattern string, status, bytes int, took time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(kind, method, pattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(kind, method, pattern).Observe(took.Seconds())
	m.HTTPResponseSize.WithLabelValues(kind, method, pattern).Observe(float64(bytes))
}

// IncAuthFailure increments the auth failure counter for the given auth type.
func (m *Metrics) IncAuthFailure(authType string) {
	m.AuthFailuresTotal.WithLabelValues(authType).Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection(scope string) {
	m.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
}

// ClaimEvent counts a claim workflow call.
func (m *Metrics) ClaimEvent(action, outcome string) {
	m.ClaimEventsTotal.WithLabelValues(action, outcome).Inc()
}

// MergeStepFailed counts a skipped merge step.
func (m *Metrics) MergeStepFailed(step string) {
	m.MergeStepFailuresTotal.WithLabelValues(step).Inc()
}

// OrderSaved records a display order save.
func (m *Metrics) OrderSaved(outcome string, d ordering.Diff, took time.Duration) {
	m.OrderSavesTotal.WithLabelValues(outcome).Inc()
	m.OrderSaveDuration.Observe(took.Seconds())
	m.OrderRowsChanged.WithLabelValues("update").Add(float64(len(d.Updates)))
	m.OrderRowsChanged.WithLabelValues("insert").Add(float64(len(d.Inserts)))
	m.OrderRowsChanged.WithLabelValues("delete").Add(float64(len(d.Deletes)))
}

// OrderInitialized records a display order initialization.
func (m *Metrics) OrderInitialized(_ int) {
	m.OrderInitializations.Inc()
}
