package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by API and worker flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	samplesSubmittedTotal    *prometheus.CounterVec
	configChangesTotal       *prometheus.CounterVec
	resultsAppliedTotal      *prometheus.CounterVec
	webhookDeliveryDuration  prometheus.Histogram
	workerInflight           *prometheus.GaugeVec
	approvalsDispatchedTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sample_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sample_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		samplesSubmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sample_engine",
				Name:      "samples_submitted_total",
				Help:      "Total number of samples accepted for analysis grouped by sample type.",
			},
			[]string{"sample_type"},
		),
		configChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sample_engine",
				Name:      "config_changes_total",
				Help:      "Total number of configuration change requests grouped by outcome.",
			},
			[]string{"outcome"},
		),
		resultsAppliedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sample_engine",
				Name:      "results_applied_total",
				Help:      "Total number of lab result messages applied grouped by resulting status.",
			},
			[]string{"status"},
		),
		webhookDeliveryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "sample_engine",
				Name:      "webhook_delivery_duration_seconds",
				Help:      "Completion callback duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		workerInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sample_engine",
				Name:      "worker_inflight",
				Help:      "Current number of in-flight worker operations grouped by queue.",
			},
			[]string{"queue"},
		),
		approvalsDispatchedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sample_engine",
				Name:      "approvals_dispatched_total",
				Help:      "Total number of change requests forwarded to the lab for approval.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.samplesSubmittedTotal,
		m.configChangesTotal,
		m.resultsAppliedTotal,
		m.webhookDeliveryDuration,
		m.workerInflight,
		m.approvalsDispatchedTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncSampleSubmitted(sampleType string) {
	if m == nil {
		return
	}
	m.samplesSubmittedTotal.WithLabelValues(normalizeLabel(sampleType)).Inc()
}

func (m *Metrics) IncConfigChange(outcome string) {
	if m == nil {
		return
	}
	m.configChangesTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncResultApplied(status string) {
	if m == nil {
		return
	}
	m.resultsAppliedTotal.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *Metrics) ObserveWebhookDeliveryDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.webhookDeliveryDuration.Observe(seconds)
}

func (m *Metrics) IncWorkerInFlight(queue string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeLabel(queue)).Inc()
}

func (m *Metrics) DecWorkerInFlight(queue string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeLabel(queue)).Dec()
}

func (m *Metrics) IncApprovalDispatched() {
	if m == nil {
		return
	}
	m.approvalsDispatchedTotal.Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
