package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
	"github.com/noah-isme/teacher-portal-api/pkg/logger"
	"github.com/noah-isme/teacher-portal-api/pkg/response"
)

// Context keys set by JWT.
const (
	ContextUserKey    = "currentUser"
	ContextSessionKey = "currentSession"
)

type sessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.SessionClaims, *models.Session, error)
}

// JWT protects routes by requiring a valid access token bound to a live session.
func JWT(auth sessionAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, session, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(ContextSessionKey, session)
		c.Set(logger.SessionIDKey, session.ID)
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", appErrors.ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
