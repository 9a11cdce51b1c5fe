package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teacher-portal-api/internal/dto"
	"github.com/noah-isme/teacher-portal-api/internal/middleware"
	"github.com/noah-isme/teacher-portal-api/internal/models"
	"github.com/noah-isme/teacher-portal-api/internal/service"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
	"github.com/noah-isme/teacher-portal-api/pkg/response"
)

// CSRFHeader carries the optional anti-forgery token on submissions.
const CSRFHeader = "X-CSRF-Token"

type attendanceService interface {
	Location() *time.Location
	Today() time.Time
	View(ctx context.Context, key models.RosterKey) (*models.RosterView, error)
	Reload(ctx context.Context, key models.RosterKey) (*models.RosterView, error)
	Summary(ctx context.Context, key models.RosterKey) (*dto.AttendanceSummaryResponse, error)
	SetStatus(ctx context.Context, key models.RosterKey, studentID string, req service.SetStatusRequest) (*models.RosterView, error)
	CycleStatus(ctx context.Context, key models.RosterKey, studentID string) (*models.RosterView, error)
	MarkAllPresent(ctx context.Context, key models.RosterKey, req service.MarkAllPresentRequest) (*models.RosterView, error)
	BeginSelection(ctx context.Context, key models.RosterKey) (*models.RosterView, error)
	ToggleSelection(ctx context.Context, key models.RosterKey, req service.ToggleSelectionRequest) (*models.RosterView, error)
	ToggleSelectAll(ctx context.Context, key models.RosterKey) (*models.RosterView, error)
	CancelSelection(ctx context.Context, key models.RosterKey) (*models.RosterView, error)
	ApplyBulk(ctx context.Context, key models.RosterKey, req service.ApplyBulkRequest) (*models.RosterView, error)
}

type submissionService interface {
	Submit(ctx context.Context, key models.RosterKey, csrfToken string) (*models.SubmissionReceipt, error)
}

type exportService interface {
	Export(ctx context.Context, key models.RosterKey, req service.ExportRequest) (*dto.ExportFile, error)
}

// AttendanceHandler exposes the roster state machine over HTTP.
type AttendanceHandler struct {
	attendance  attendanceService
	submissions submissionService
	exports     exportService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance attendanceService, submissions submissionService, exports exportService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, submissions: submissions, exports: exports}
}

// View godoc
// @Summary Load class roster
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /attendance/classes/{classId} [get]
func (h *AttendanceHandler) View(c *gin.Context) {
	h.respond(c, func(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
		return h.attendance.View(ctx, key)
	})
}

// Reload godoc
// @Summary Refetch class roster from the data source
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{classId}/reload [post]
func (h *AttendanceHandler) Reload(c *gin.Context) {
	h.respond(c, func(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
		return h.attendance.Reload(ctx, key)
	})
}

// Summary godoc
// @Summary Status counts for a roster
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{classId}/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	key, err := rosterKey(c, h.attendance)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.attendance.Summary(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// SetStatus godoc
// @Summary Set one student's status
// @Tags Attendance
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param payload body service.SetStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/classes/{classId}/students/{studentId} [put]
func (h *AttendanceHandler) SetStatus(c *gin.Context) {
	var req service.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	h.respond(c, func(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
		return h.attendance.SetStatus(ctx, key, c.Param("studentId"), req)
	})
}

// CycleStatus godoc
// @Summary Advance one student to the next status
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{classId}/students/{studentId}/cycle [post]
func (h *AttendanceHandler) CycleStatus(c *gin.Context) {
	h.respond(c, func(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
		return h.attendance.CycleStatus(ctx, key, c.Param("studentId"))
	})
}

// MarkAllPresent godoc
// @Summary Mark every student present
// @Tags Attendance
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param payload body service.MarkAllPresentRequest true "Confirmation"
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /attendance/classes/{classId}/mark-all-present [post]
func (h *AttendanceHandler) MarkAllPresent(c *gin.Context) {
	var req service.MarkAllPresentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid confirmation payload"))
		return
	}
	h.respond(c, func(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
		return h.attendance.MarkAllPresent(ctx, key, req)
	})
}

// BeginSelection godoc
// @Summary Enter bulk selection mode
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{classId}/selection [post]
func (h *AttendanceHandler) BeginSelection(c *gin.Context) {
	h.respond(c, func(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
		return h.attendance.BeginSelection(ctx, key)
	})
}

// ToggleSelection godoc
// @Summary Add or remove one student from the selection
// @Tags Attendance
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param payload body service.ToggleSelectionRequest true "Student"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{classId}/selection/toggle [post]
func (h *AttendanceHandler) ToggleSelection(c *gin.Context) {
	var req service.ToggleSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid selection payload"))
		return
	}
	h.respond(c, func(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
		return h.attendance.ToggleSelection(ctx, key, req)
	})
}

// ToggleSelectAll godoc
// @Summary Select or clear every student
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{classId}/selection/all [post]
func (h *AttendanceHandler) ToggleSelectAll(c *gin.Context) {
	h.respond(c, func(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
		return h.attendance.ToggleSelectAll(ctx, key)
	})
}

// CancelSelection godoc
// @Summary Leave selection mode and clear it
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{classId}/selection [delete]
func (h *AttendanceHandler) CancelSelection(c *gin.Context) {
	h.respond(c, func(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
		return h.attendance.CancelSelection(ctx, key)
	})
}

// ApplyBulk godoc
// @Summary Apply one status to the selected students
// @Tags Attendance
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param payload body service.ApplyBulkRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{classId}/selection/apply [post]
func (h *AttendanceHandler) ApplyBulk(c *gin.Context) {
	var req service.ApplyBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk payload"))
		return
	}
	h.respond(c, func(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
		return h.attendance.ApplyBulk(ctx, key, req)
	})
}

// Submit godoc
// @Summary Queue the roster for persistence
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param X-CSRF-Token header string false "CSRF token"
// @Success 202 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /attendance/classes/{classId}/submit [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	key, err := rosterKey(c, h.attendance)
	if err != nil {
		response.Error(c, err)
		return
	}
	receipt, err := h.submissions.Submit(c.Request.Context(), key, strings.TrimSpace(c.GetHeader(CSRFHeader)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, receipt)
}

// Export godoc
// @Summary Download the roster as CSV or PDF
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param classId path string true "Class ID"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /attendance/classes/{classId}/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	key, err := rosterKey(c, h.attendance)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	file, err := h.exports.Export(c.Request.Context(), key, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func (h *AttendanceHandler) respond(c *gin.Context, op func(context.Context, models.RosterKey) (*models.RosterView, error)) {
	key, err := rosterKey(c, h.attendance)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := op(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "mode", view.Mode)
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

func bindOptionalJSON(c *gin.Context, dest interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dest)
}
