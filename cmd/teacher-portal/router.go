package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/teacher-portal-api/internal/handler"
	internalmiddleware "github.com/noah-isme/teacher-portal-api/internal/middleware"
	"github.com/noah-isme/teacher-portal-api/internal/service"
	"github.com/noah-isme/teacher-portal-api/pkg/config"
	"github.com/noah-isme/teacher-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/teacher-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/teacher-portal-api/pkg/middleware/requestid"
	securemiddleware "github.com/noah-isme/teacher-portal-api/pkg/middleware/secure"
)

type routeHandlers struct {
	auth       *handler.AuthHandler
	session    *handler.SessionHandler
	portal     *handler.PortalHandler
	attendance *handler.AttendanceHandler
	metrics    *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, auth *service.AuthService, h routeHandlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(securemiddleware.Headers(cfg.Session.ContentSecPolicy))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	r.GET("/metrics/summary", h.metrics.Snapshot)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.auth.Login)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(auth))
	secured.POST("/auth/logout", h.auth.Logout)
	secured.GET("/session", h.session.Current)
	secured.POST("/session/csrf", h.session.CSRF)

	secured.GET("/me", h.portal.Me)
	secured.GET("/dashboard", h.portal.Dashboard)
	secured.GET("/announcements", h.portal.Announcements)
	secured.GET("/announcements/:id", h.portal.Announcement)
	secured.GET("/timetable", h.portal.Timetable)
	secured.GET("/timetable/:day", h.portal.TimetableDay)

	classes := secured.Group("/attendance/classes/:classId")
	classes.GET("", h.attendance.View)
	classes.POST("/reload", h.attendance.Reload)
	classes.GET("/summary", h.attendance.Summary)
	classes.PUT("/students/:studentId", h.attendance.SetStatus)
	classes.POST("/students/:studentId/cycle", h.attendance.CycleStatus)
	classes.POST("/mark-all-present", h.attendance.MarkAllPresent)
	classes.POST("/selection", h.attendance.BeginSelection)
	classes.DELETE("/selection", h.attendance.CancelSelection)
	classes.POST("/selection/toggle", h.attendance.ToggleSelection)
	classes.POST("/selection/all", h.attendance.ToggleSelectAll)
	classes.POST("/selection/apply", h.attendance.ApplyBulk)
	classes.POST("/submit", h.attendance.Submit)
	classes.GET("/export", h.attendance.Export)

	return r
}
