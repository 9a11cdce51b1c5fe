package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-portal-api/internal/dto"
	"github.com/noah-isme/teacher-portal-api/internal/middleware"
	"github.com/noah-isme/teacher-portal-api/internal/models"
	"github.com/noah-isme/teacher-portal-api/internal/repository"
	"github.com/noah-isme/teacher-portal-api/internal/service"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type dashboardStub struct {
	resp *dto.TeacherDashboardResponse
	hit  bool
	err  error
}

func (s dashboardStub) Teacher(ctx context.Context) (*dto.TeacherDashboardResponse, bool, error) {
	return s.resp, s.hit, s.err
}

func newPortalRouter(dashboard dashboardService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	clock := func() time.Time { return handlerNow }
	announcements := service.NewAnnouncementService(repository.NewMockAnnouncementRepository(clock), nil, nil, 72*time.Hour).WithClock(clock)
	timetable := service.NewTimetableService(nil, time.UTC).WithClock(clock)
	h := NewPortalHandler(service.NewProfileService(), dashboard, announcements, timetable)

	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	r.GET("/me", h.Me)
	r.GET("/dashboard", h.Dashboard)
	r.GET("/announcements", h.Announcements)
	r.GET("/announcements/:id", h.Announcement)
	r.GET("/timetable", h.Timetable)
	r.GET("/timetable/:day", h.TimetableDay)
	return r
}

func getEnvelope(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, responseEnvelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestPortalHandlerMe(t *testing.T) {
	r := newPortalRouter(dashboardStub{})

	w, env := getEnvelope(t, r, "/me")
	require.Equal(t, http.StatusOK, w.Code)
	var profile models.TeacherProfile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.NotEmpty(t, profile.Name)
	assert.NotEmpty(t, profile.Classes)
}

func TestPortalHandlerDashboard(t *testing.T) {
	r := newPortalRouter(dashboardStub{resp: &dto.TeacherDashboardResponse{NewAnnouncements: 2}, hit: true})

	w, env := getEnvelope(t, r, "/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, env.Meta, "processing_time_ms")

	r = newPortalRouter(dashboardStub{err: appErrors.ErrDataUnavailable})
	w, env = getEnvelope(t, r, "/dashboard")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DATA_UNAVAILABLE", env.Error.Code)
}

func TestPortalHandlerAnnouncements(t *testing.T) {
	r := newPortalRouter(dashboardStub{})

	w, env := getEnvelope(t, r, "/announcements")
	require.Equal(t, http.StatusOK, w.Code)
	var items []models.Announcement
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 3)
	assert.Equal(t, "ann_1", items[0].ID)
	assert.True(t, items[0].IsNew)
	assert.False(t, items[1].IsNew)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 3, env.Pagination.TotalCount)

	w, env = getEnvelope(t, r, "/announcements?priority=LOW")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "ann_3", items[0].ID)

	w, _ = getEnvelope(t, r, "/announcements?priority=urgent")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = getEnvelope(t, r, "/announcements?page_size=500")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = getEnvelope(t, r, "/announcements/ann_2")
	require.Equal(t, http.StatusOK, w.Code)
	var item models.Announcement
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, "Math Olympiad Registration", item.Title)

	w, env = getEnvelope(t, r, "/announcements/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestPortalHandlerTimetable(t *testing.T) {
	r := newPortalRouter(dashboardStub{})

	w, env := getEnvelope(t, r, "/timetable")
	require.Equal(t, http.StatusOK, w.Code)
	var week models.Timetable
	require.NoError(t, json.Unmarshal(env.Data, &week))
	assert.Equal(t, "Wednesday", week.DefaultDay)
	assert.Len(t, week.Days, 5)

	w, env = getEnvelope(t, r, "/timetable/monday")
	require.Equal(t, http.StatusOK, w.Code)
	var day dto.TimetableDayResponse
	require.NoError(t, json.Unmarshal(env.Data, &day))
	assert.Equal(t, "Monday", day.Day)
	assert.False(t, day.IsDefault)

	w, _ = getEnvelope(t, r, "/timetable/sunday")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
