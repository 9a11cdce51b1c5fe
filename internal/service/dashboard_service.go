package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-portal-api/internal/dto"
	"github.com/noah-isme/teacher-portal-api/internal/models"
	"github.com/noah-isme/teacher-portal-api/pkg/cache"
)

const dashboardDateFormat = "Monday, January 2, 2006"

type profileProvider interface {
	Profile(ctx context.Context) (*models.TeacherProfile, error)
}

type todaySchedule interface {
	Today() models.TimetableDay
}

type newAnnouncementCounter interface {
	CountNew(ctx context.Context) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL  time.Duration
	APIPrefix string
}

// DashboardService composes the landing page payload.
type DashboardService struct {
	profiles      profileProvider
	timetable     todaySchedule
	announcements newAnnouncementCounter
	cache         *CacheService
	logger        *zap.Logger
	loc           *time.Location
	now           func() time.Time
	cfg           DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Profiles      profileProvider
	Timetable     todaySchedule
	Announcements newAnnouncementCounter
	Cache         *CacheService
	Logger        *zap.Logger
	Location      *time.Location
	Config        DashboardServiceConfig
}

// NewDashboardService constructs the service.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := params.Location
	if loc == nil {
		loc = time.Local
	}
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		profiles:      params.Profiles,
		timetable:     params.Timetable,
		announcements: params.Announcements,
		cache:         params.Cache,
		logger:        logger,
		loc:           loc,
		now:           time.Now,
		cfg:           cfg,
	}
}

// WithClock overrides the time source.
func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	if now != nil {
		s.now = now
	}
	return s
}

// Teacher returns today's dashboard and whether it came from cache.
func (s *DashboardService) Teacher(ctx context.Context) (*dto.TeacherDashboardResponse, bool, error) {
	now := s.now().In(s.loc)
	date := now.Format(models.DateLayout)
	key := cache.Key("dashboard", date)

	var cached dto.TeacherDashboardResponse
	if s.tryCache(ctx, key, &cached) {
		s.refreshActive(&cached, now)
		return &cached, true, nil
	}

	profile, err := s.profiles.Profile(ctx)
	if err != nil {
		return nil, false, err
	}

	today := s.timetable.Today()
	resp := &dto.TeacherDashboardResponse{
		Teacher:       *profile,
		Date:          date,
		FormattedDate: now.Format(dashboardDateFormat),
		Day:           today.Day,
		TodaySchedule: make([]dto.DashboardPeriod, 0, len(today.Periods)),
		Classes:       make([]dto.DashboardClass, 0, len(profile.Classes)),
	}
	for _, period := range today.Periods {
		if !period.Teaching() {
			continue
		}
		resp.TodaySchedule = append(resp.TodaySchedule, dto.DashboardPeriod{
			Time:    period.Time,
			Subject: period.Subject,
			Class:   period.Class,
			Room:    period.Room,
			Active:  period.Active,
		})
	}
	for _, classID := range profile.Classes {
		resp.Classes = append(resp.Classes, dto.DashboardClass{
			ClassID:        classID,
			AttendancePath: s.attendancePath(classID, date),
		})
	}

	count, err := s.announcements.CountNew(ctx)
	if err != nil {
		s.logger.Warn("dashboard announcement count unavailable", zap.Error(err))
	} else {
		resp.NewAnnouncements = count
	}

	s.persistCache(ctx, key, resp)
	return resp, false, nil
}

// Purge drops every cached dashboard. It runs at startup.
func (s *DashboardService) Purge(ctx context.Context) error {
	if s.cache == nil || !s.cache.Enabled() {
		return nil
	}
	return s.cache.Invalidate(ctx, cache.Key("dashboard", "*"))
}

func (s *DashboardService) attendancePath(classID, date string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	return fmt.Sprintf("%s/attendance/classes/%s?date=%s", prefix, url.PathEscape(classID), date)
}

// refreshActive recomputes active flags since cached entries outlive a period.
func (s *DashboardService) refreshActive(resp *dto.TeacherDashboardResponse, now time.Time) {
	if resp.Day != now.Weekday().String() {
		return
	}
	for i := range resp.TodaySchedule {
		active, err := IsPeriodActive(resp.TodaySchedule[i].Time, now)
		if err == nil {
			resp.TodaySchedule[i].Active = active
		}
	}
}

func (s *DashboardService) tryCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil || !s.cache.Enabled() {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		return false
	}
	return hit
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
