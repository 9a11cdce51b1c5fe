package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teacher-portal-api/internal/middleware"
	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.SessionClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

func sessionFromContext(c *gin.Context) *models.Session {
	value, exists := c.Get(middleware.ContextSessionKey)
	if !exists {
		return nil
	}
	session, ok := value.(*models.Session)
	if !ok {
		return nil
	}
	return session
}

type clockedLocation interface {
	Location() *time.Location
	Today() time.Time
}

// rosterKey resolves the roster addressed by the request: session from the
// auth context, class from the path and date from ?date= (today by default).
func rosterKey(c *gin.Context, clock clockedLocation) (models.RosterKey, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.RosterKey{}, appErrors.ErrUnauthorized
	}
	classID := strings.TrimSpace(c.Param("classId"))
	if classID == "" {
		return models.RosterKey{}, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}
	date := clock.Today()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := time.ParseInLocation(models.DateLayout, raw, clock.Location())
		if err != nil {
			return models.RosterKey{}, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD format")
		}
		date = parsed
	}
	return models.RosterKey{SessionID: claims.SessionID, ClassID: classID, Date: date}, nil
}
