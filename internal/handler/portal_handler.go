package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teacher-portal-api/internal/dto"
	"github.com/noah-isme/teacher-portal-api/internal/middleware"
	"github.com/noah-isme/teacher-portal-api/internal/models"
	"github.com/noah-isme/teacher-portal-api/internal/service"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
	"github.com/noah-isme/teacher-portal-api/pkg/response"
)

type profileService interface {
	Profile(ctx context.Context) (*models.TeacherProfile, error)
}

type dashboardService interface {
	Teacher(ctx context.Context) (*dto.TeacherDashboardResponse, bool, error)
}

type announcementService interface {
	List(ctx context.Context, req service.AnnouncementListRequest) ([]models.Announcement, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Announcement, error)
}

type timetableService interface {
	Week() models.Timetable
	Day(name string) (*dto.TimetableDayResponse, error)
}

// PortalHandler serves the read-only teacher pages.
type PortalHandler struct {
	profiles      profileService
	dashboard     dashboardService
	announcements announcementService
	timetable     timetableService
}

// NewPortalHandler constructs the handler.
func NewPortalHandler(profiles profileService, dashboard dashboardService, announcements announcementService, timetable timetableService) *PortalHandler {
	return &PortalHandler{profiles: profiles, dashboard: dashboard, announcements: announcements, timetable: timetable}
}

// Me godoc
// @Summary Teacher profile
// @Tags Portal
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me [get]
func (h *PortalHandler) Me(c *gin.Context) {
	profile, err := h.profiles.Profile(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Dashboard godoc
// @Summary Teacher dashboard for today
// @Tags Portal
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *PortalHandler) Dashboard(c *gin.Context) {
	if h.dashboard == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.dashboard.Teacher(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, "processing_time_ms", time.Since(start).Milliseconds())
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Announcements godoc
// @Summary School announcements
// @Tags Portal
// @Security BearerAuth
// @Produce json
// @Param priority query string false "high, medium or low"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *PortalHandler) Announcements(c *gin.Context) {
	var req service.AnnouncementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement query"))
		return
	}
	items, pagination, err := h.announcements.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Announcement godoc
// @Summary Get announcement
// @Tags Portal
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /announcements/{id} [get]
func (h *PortalHandler) Announcement(c *gin.Context) {
	item, err := h.announcements.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Timetable godoc
// @Summary Weekly timetable
// @Tags Portal
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *PortalHandler) Timetable(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.timetable.Week(), nil)
}

// TimetableDay godoc
// @Summary One day of the timetable
// @Tags Portal
// @Security BearerAuth
// @Produce json
// @Param day path string true "Weekday name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetable/{day} [get]
func (h *PortalHandler) TimetableDay(c *gin.Context) {
	day, err := h.timetable.Day(c.Param("day"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}
