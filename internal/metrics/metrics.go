package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics represents the collection of all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ScansCreated        *prometheus.CounterVec
	EnqueueFailures     prometheus.Counter
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	DeliveriesRunning   prometheus.Gauge
	DeliveriesQueued    prometheus.Gauge
	SweepDuration       *prometheus.HistogramVec
	SweepItemErrors     *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on a private registry so
// several instances can coexist in one process.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulx_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vulx_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.ScansCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulx_scans_created_total",
			Help: "Total number of scans created",
		},
		[]string{"trigger"},
	)

	m.EnqueueFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vulx_scan_enqueue_failures_total",
			Help: "Scans marked FAILED because the job could not be queued",
		},
	)

	m.NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulx_notifications_sent_total",
			Help: "Notifications delivered, by channel",
		},
		[]string{"channel"},
	)

	m.NotificationsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulx_notifications_failed_total",
			Help: "Notification deliveries that failed, by channel",
		},
		[]string{"channel"},
	)

	m.DeliveriesRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vulx_notification_deliveries_running",
			Help: "Notification deliveries currently holding a pool slot",
		},
	)

	m.DeliveriesQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vulx_notification_deliveries_queued",
			Help: "Notification deliveries waiting for a pool slot",
		},
	)

	m.SweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vulx_scheduler_sweep_duration_seconds",
			Help:    "Duration of scheduler sweeps",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sweep"},
	)

	m.SweepItemErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vulx_scheduler_item_errors_total",
			Help: "Per-item failures swallowed by scheduler sweeps",
		},
		[]string{"sweep"},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ScansCreated,
		m.EnqueueFailures,
		m.NotificationsSent,
		m.NotificationsFailed,
		m.DeliveriesRunning,
		m.DeliveriesQueued,
		m.SweepDuration,
		m.SweepItemErrors,
	)

	return m
}

// Middleware tracks HTTP requests by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveSweep records how long a sweep took.
func (m *Metrics) ObserveSweep(name string, started time.Time) {
	m.SweepDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
