package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-portal-api/internal/service"
)

func newMetricsRouter(checks map[string]ReadinessCheck) *gin.Engine {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.ObserveAttendanceMutation("set_status", service.MutationOutcomeApplied)
	h := NewMetricsHandler(metrics, checks)
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)
	r.GET("/metrics/summary", h.Snapshot)
	return r
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestMetricsHandlerEndpoints(t *testing.T) {
	r := newMetricsRouter(nil)

	w := serve(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = serve(r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "teacher_portal_attendance_mutations_total")

	w = serve(r, "/metrics/summary")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"attendance_mutations":1`)
}

func TestMetricsHandlerReady(t *testing.T) {
	r := newMetricsRouter(map[string]ReadinessCheck{
		"store": func(context.Context) error { return nil },
	})
	w := serve(r, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ready"`)

	r = newMetricsRouter(map[string]ReadinessCheck{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	w = serve(r, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
	assert.Contains(t, w.Body.String(), "connection refused")
}
