package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_CountsRequests(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/photos/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/photos/:id", "200"))
	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/photos/"+id, nil))
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/photos/:id", "200"))
	if after-before != 2 {
		t.Errorf("expected 2 requests recorded on the route template, got %v", after-before)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if got := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/missing", "404")); got < 1 {
		t.Errorf("expected the HTTP error status to be recorded, got %v", got)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordUpload("stored")
	ObservePipeline(20 * time.Millisecond)
	RecordNotification("refund_request")

	e := echo.New()
	e.GET("/metrics", Handler())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{
		"agerestore_photos_uploads_total",
		"agerestore_photos_pipeline_duration_seconds",
		"agerestore_notifications_created_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
}
