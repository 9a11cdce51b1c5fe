package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/teacher-portal-api/api/swagger"
	"github.com/noah-isme/teacher-portal-api/internal/handler"
	"github.com/noah-isme/teacher-portal-api/internal/models"
	"github.com/noah-isme/teacher-portal-api/internal/repository"
	"github.com/noah-isme/teacher-portal-api/internal/service"
	"github.com/noah-isme/teacher-portal-api/pkg/cache"
	"github.com/noah-isme/teacher-portal-api/pkg/config"
	"github.com/noah-isme/teacher-portal-api/pkg/csrf"
	"github.com/noah-isme/teacher-portal-api/pkg/database"
	"github.com/noah-isme/teacher-portal-api/pkg/logger"
	"github.com/noah-isme/teacher-portal-api/pkg/storage"
)

// @title Teacher Portal API
// @version 1.0.0
// @description Sessions, dashboard, timetable, announcements and daily class attendance for teachers.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

type rosterSource interface {
	FetchRoster(ctx context.Context, classID string) ([]models.Student, error)
}

type submissionSink interface {
	Save(ctx context.Context, submission models.AttendanceSubmission) error
}

type announcementStore interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
}

type sessionStore interface {
	Save(ctx context.Context, session models.Session, ttl time.Duration) error
	Find(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	RecordSuspicious(ctx context.Context, id string) (int, error)
}

type rateLimiter interface {
	Allow(ctx context.Context, key string, interval time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	loc := cfg.Attendance.Location()
	metrics := service.NewMetricsService()
	validate := validator.New()
	checks := map[string]handler.ReadinessCheck{}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	var db *sqlx.DB
	if cfg.Attendance.DataSource == config.SourcePostgres || cfg.Attendance.SubmissionSink == config.SinkPostgres {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck
		checks["postgres"] = db.PingContext
	}

	source, announcementRepo := dataSources(cfg, db)
	sink, err := submissionStore(cfg, db)
	if err != nil {
		return err
	}
	sessionRepo, limiter := sessionBackends(redisClient)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cacheRepo != nil)

	sessions := service.NewSessionService(sessionRepo, csrf.NewSigner(cfg.Session.CSRFSecret, cfg.Session.CSRFTTL), metrics, logr, service.SessionConfig{
		TTL:           cfg.Session.TTL,
		WarningAfter:  cfg.Session.WarningAfter,
		MaxSuspicious: cfg.Session.MaxSuspicious,
	})
	authSvc, err := service.NewAuthService(sessions, validate, logr, service.AuthConfig{
		Mode:              cfg.Auth.Mode,
		DemoEmail:         cfg.Auth.DemoEmail,
		DemoPassword:      cfg.Auth.DemoPassword,
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	if err != nil {
		return err
	}

	attendance := service.NewAttendanceService(service.NewRosterStore(source, logr), metrics, validate, logr, loc)
	sessions.OnTerminate(attendance.Forget)

	submissions := service.NewSubmissionService(attendance, sink, limiter, sessions, metrics, logr, service.SubmissionConfig{
		MinInterval: cfg.Attendance.SubmitInterval,
		Workers:     cfg.Attendance.WorkerConcurrency,
		MaxRetries:  cfg.Attendance.WorkerRetries,
		RetryDelay:  cfg.Attendance.RetryDelay,
		RequireCSRF: cfg.Session.RequireCSRF,
	})
	submissions.Start(context.Background())
	defer submissions.Stop()

	go sweepRosters(ctx, logr, attendance, sessions.Alive, cfg.Attendance.SweepInterval)

	profiles := service.NewProfileService()
	timetable := service.NewTimetableService(logr, loc)
	announcements := service.NewAnnouncementService(announcementRepo, validate, logr, cfg.Announcements.NewWindow)
	dashboard := service.NewDashboardService(service.DashboardServiceParams{
		Profiles:      profiles,
		Timetable:     timetable,
		Announcements: announcements,
		Cache:         cacheSvc,
		Logger:        logr,
		Location:      loc,
		Config: service.DashboardServiceConfig{
			CacheTTL:  cfg.Dashboard.CacheTTL,
			APIPrefix: cfg.APIPrefix,
		},
	})

	if err := dashboard.Purge(ctx); err != nil {
		logr.Warn("dashboard cache purge failed", zap.Error(err))
	}

	router := newRouter(cfg, logr, metrics, authSvc, routeHandlers{
		auth:       handler.NewAuthHandler(authSvc),
		session:    handler.NewSessionHandler(sessions),
		portal:     handler.NewPortalHandler(profiles, dashboard, announcements, timetable),
		attendance: handler.NewAttendanceHandler(attendance, submissions, service.NewExportService(attendance, validate, logr)),
		metrics:    handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting",
			"addr", srv.Addr,
			"env", cfg.Env,
			"data_source", cfg.Attendance.DataSource,
			"submission_sink", cfg.Attendance.SubmissionSink,
			"redis", redisClient != nil,
			"timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	submissions.Stop()
	return err
}

// sweepRosters periodically releases rosters of sessions the store no longer holds.
func sweepRosters(ctx context.Context, logr *zap.Logger, attendance *service.AttendanceService, alive func(context.Context, string) bool, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if released := attendance.Sweep(ctx, alive); released > 0 {
				logr.Debug("roster sweep finished", zap.Int("released", released))
			}
		}
	}
}

func dataSources(cfg *config.Config, db *sqlx.DB) (rosterSource, announcementStore) {
	if cfg.Attendance.DataSource == config.SourcePostgres {
		return repository.NewRosterRepository(db), repository.NewAnnouncementRepository(db)
	}
	return repository.NewMockRosterRepository(cfg.Attendance.MockRosterSize, time.Now().UnixNano()),
		repository.NewMockAnnouncementRepository(nil)
}

func submissionStore(cfg *config.Config, db *sqlx.DB) (submissionSink, error) {
	if cfg.Attendance.SubmissionSink == config.SinkPostgres {
		return repository.NewSubmissionRepository(db), nil
	}
	store, err := storage.NewLocalStorage(cfg.Attendance.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("submission storage: %w", err)
	}
	return repository.NewLocalSubmissionRepository(store), nil
}

func sessionBackends(client *redis.Client) (sessionStore, rateLimiter) {
	if client != nil {
		return repository.NewRedisSessionRepository(client), repository.NewRedisRateLimiter(client)
	}
	return repository.NewMemorySessionRepository(), repository.NewMemoryRateLimiter()
}
