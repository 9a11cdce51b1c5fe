package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest("GET", "/api/v1/me", 200, 5*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveAttendanceMutation("set_status", MutationOutcomeApplied)
	m.ObserveAttendanceMutation("cycle_status", MutationOutcomeGuarded)
	m.ObserveSubmission("succeeded")

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(2), snap.AttendanceMutations)
	assert.Equal(t, uint64(1), snap.FutureDateRefusals)
	assert.Equal(t, uint64(1), snap.Submissions)
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveAttendanceMutation("mark_all_present", MutationOutcomeApplied)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `teacher_portal_attendance_mutations_total{operation="mark_all_present",outcome="applied"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveSubmission("failed")
	m.ObserveSession("started")
	assert.Zero(t, m.Snapshot().RequestsTotal)
}
