package observability

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsPushCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.AddPushDelivered(3)
	metrics.AddPushFailed(1)
	metrics.AddPushSkipped(2)
	metrics.AddInvalidTokens(1)
	metrics.AddPushDelivered(0)
	metrics.AddPushFailed(-1)

	if got := testutil.ToFloat64(metrics.pushDeliveredTotal); got != 3 {
		t.Fatalf("push_delivered_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.pushFailedTotal); got != 1 {
		t.Fatalf("push_failed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.pushSkippedTotal); got != 2 {
		t.Fatalf("push_skipped_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.invalidTokensTotal); got != 1 {
		t.Fatalf("invalid_tokens_total = %v, want 1", got)
	}
}

func TestMetricsTrackingCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncSamplePublished()
	metrics.IncSamplePublished()
	metrics.IncSampleDropped()
	metrics.IncStatusBroadcast()
	metrics.SetActiveRooms(4)
	metrics.SetActiveObservers(9)
	metrics.IncReconnectAttempt()

	if got := testutil.ToFloat64(metrics.samplesPublished); got != 2 {
		t.Fatalf("location_samples_published_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.samplesDropped); got != 1 {
		t.Fatalf("location_samples_dropped_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.statusBroadcasts); got != 1 {
		t.Fatalf("status_broadcasts_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.activeRooms); got != 4 {
		t.Fatalf("active_rooms = %v, want 4", got)
	}
	if got := testutil.ToFloat64(metrics.activeObservers); got != 9 {
		t.Fatalf("active_observers = %v, want 9", got)
	}
	if got := testutil.ToFloat64(metrics.reconnectAttempts); got != 1 {
		t.Fatalf("channel_reconnect_attempts_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
