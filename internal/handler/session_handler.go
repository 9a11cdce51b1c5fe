package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
	"github.com/noah-isme/teacher-portal-api/pkg/response"
)

type sessionService interface {
	View(session models.Session) models.SessionView
	IssueCSRF(ctx context.Context, id string) (*models.CSRFToken, error)
}

// SessionHandler exposes the current session to the browser.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(svc sessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// Current godoc
// @Summary Current session and expiry warning
// @Tags Session
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) Current(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, h.service.View(*session), nil)
}

// CSRF godoc
// @Summary Issue a CSRF token bound to the session
// @Tags Session
// @Security BearerAuth
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /session/csrf [post]
func (h *SessionHandler) CSRF(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	token, err := h.service.IssueCSRF(c.Request.Context(), session.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, token, nil)
}
