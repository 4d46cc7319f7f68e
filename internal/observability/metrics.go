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

// Metrics stores Prometheus collectors used by the HTTP surface, the
// tracking hub, and push dispatch.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	pushDeliveredTotal  prometheus.Counter
	pushFailedTotal     prometheus.Counter
	pushSkippedTotal    prometheus.Counter
	invalidTokensTotal  prometheus.Counter
	samplesPublished    prometheus.Counter
	samplesDropped      prometheus.Counter
	statusBroadcasts    prometheus.Counter
	activeRooms         prometheus.Gauge
	activeObservers     prometheus.Gauge
	reconnectAttempts   prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shoppi_realtime",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "shoppi_realtime",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		pushDeliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shoppi_realtime",
			Name:      "push_delivered_total",
			Help:      "Total number of push notifications accepted by the provider.",
		}),
		pushFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shoppi_realtime",
			Name:      "push_failed_total",
			Help:      "Total number of push deliveries that failed.",
		}),
		pushSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shoppi_realtime",
			Name:      "push_skipped_total",
			Help:      "Total number of push deliveries skipped because push is disabled.",
		}),
		invalidTokensTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shoppi_realtime",
			Name:      "invalid_tokens_total",
			Help:      "Total number of device tokens the provider declared permanently invalid.",
		}),
		samplesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shoppi_realtime",
			Name:      "location_samples_published_total",
			Help:      "Total number of location samples fanned out to tracking rooms.",
		}),
		samplesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shoppi_realtime",
			Name:      "location_samples_dropped_total",
			Help:      "Total number of location samples published to rooms with no observers.",
		}),
		statusBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shoppi_realtime",
			Name:      "status_broadcasts_total",
			Help:      "Total number of shipment status updates broadcast to rooms.",
		}),
		activeRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shoppi_realtime",
			Name:      "active_rooms",
			Help:      "Current number of tracking rooms with at least one observer.",
		}),
		activeObservers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shoppi_realtime",
			Name:      "active_observers",
			Help:      "Current number of observer memberships across all rooms.",
		}),
		reconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shoppi_realtime",
			Name:      "channel_reconnect_attempts_total",
			Help:      "Total number of channel session reconnect attempts.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.pushDeliveredTotal,
		m.pushFailedTotal,
		m.pushSkippedTotal,
		m.invalidTokensTotal,
		m.samplesPublished,
		m.samplesDropped,
		m.statusBroadcasts,
		m.activeRooms,
		m.activeObservers,
		m.reconnectAttempts,
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

func (m *Metrics) AddPushDelivered(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.pushDeliveredTotal.Add(float64(count))
}

func (m *Metrics) AddPushFailed(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.pushFailedTotal.Add(float64(count))
}

func (m *Metrics) AddPushSkipped(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.pushSkippedTotal.Add(float64(count))
}

func (m *Metrics) AddInvalidTokens(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.invalidTokensTotal.Add(float64(count))
}

func (m *Metrics) IncSamplePublished() {
	if m == nil {
		return
	}
	m.samplesPublished.Inc()
}

func (m *Metrics) IncSampleDropped() {
	if m == nil {
		return
	}
	m.samplesDropped.Inc()
}

func (m *Metrics) IncStatusBroadcast() {
	if m == nil {
		return
	}
	m.statusBroadcasts.Inc()
}

func (m *Metrics) SetActiveRooms(count int) {
	if m == nil {
		return
	}
	m.activeRooms.Set(float64(count))
}

func (m *Metrics) SetActiveObservers(count int) {
	if m == nil {
		return
	}
	m.activeObservers.Set(float64(count))
}

func (m *Metrics) IncReconnectAttempt() {
	if m == nil {
		return
	}
	m.reconnectAttempts.Inc()
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
