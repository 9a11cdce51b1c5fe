package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
	"github.com/noah-isme/teacher-portal-api/pkg/logger"
)

type authenticatorStub struct {
	token string
	err   error
}

func (a authenticatorStub) Authenticate(ctx context.Context, token string) (*models.SessionClaims, *models.Session, error) {
	if a.err != nil {
		return nil, nil, a.err
	}
	if token != a.token {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.SessionClaims{SessionID: "sess-1", Email: "teacher@school.edu"}, &models.Session{ID: "sess-1"}, nil
}

func newAuthRouter(auth sessionAuthenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/secure", JWT(auth), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.SessionClaims)
		c.JSON(http.StatusOK, gin.H{"sid": claims.SessionID, "log_sid": c.GetString(logger.SessionIDKey)})
	})
	return r
}

func TestJWTMiddleware(t *testing.T) {
	router := newAuthRouter(authenticatorStub{token: "good"})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer  ", http.StatusUnauthorized},
		{"bad token", "Bearer bad", http.StatusUnauthorized},
		{"valid", "bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "sess-1", body["sid"])
	assert.Equal(t, "sess-1", body["log_sid"])
}

func TestJWTMiddlewareExpiredSession(t *testing.T) {
	router := newAuthRouter(authenticatorStub{err: appErrors.ErrSessionExpired})
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_EXPIRED")
}

type observerStub struct {
	mu    sync.Mutex
	paths []string
	codes []int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paths = append(o.paths, method+" "+path)
	o.codes = append(o.codes, status)
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/attendance/classes/:classId", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/attendance/classes/9A", "/nope"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []string{"GET /attendance/classes/:classId", "GET unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, observer.codes)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var captured map[string]interface{}
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		captured = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, true, captured[cacheHitKey])
	assert.Contains(t, captured, processingKey)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))
}
