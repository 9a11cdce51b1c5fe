package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	validator *validator.Validate
	logger    *zap.Logger
	newWindow time.Duration
	now       func() time.Time
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, validate *validator.Validate, logger *zap.Logger, newWindow time.Duration) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if newWindow <= 0 {
		newWindow = 72 * time.Hour
	}
	svc := &AnnouncementService{repo: repo, validator: validate, logger: logger, newWindow: newWindow, now: time.Now}
	svc.validator.RegisterValidation("announcement_priority", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementPriority(strings.ToLower(fl.Field().String())) {
		case models.AnnouncementPriorityLow, models.AnnouncementPriorityMedium, models.AnnouncementPriorityHigh:
			return true
		default:
			return false
		}
	})
	return svc
}

// WithClock overrides the time source.
func (s *AnnouncementService) WithClock(now func() time.Time) *AnnouncementService {
	if now != nil {
		s.now = now
	}
	return s
}

// AnnouncementListRequest describes filters for listing announcements.
type AnnouncementListRequest struct {
	Priority string `form:"priority" validate:"omitempty,announcement_priority"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// List returns announcements ordered by priority then recency, flagging new ones.
func (s *AnnouncementService) List(ctx context.Context, req AnnouncementListRequest) ([]models.Announcement, *models.Pagination, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement filter")
	}
	filter := models.AnnouncementFilter{Page: req.Page, PageSize: req.PageSize}
	if req.Priority != "" {
		priority := models.AnnouncementPriority(strings.ToLower(req.Priority))
		filter.Priority = &priority
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrDataUnavailable.Code, appErrors.ErrDataUnavailable.Status, "failed to list announcements")
	}
	now := s.now()
	for i := range rows {
		rows[i].IsNew = s.isNew(rows[i], now)
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// Get returns an announcement by id.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	ann, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get announcement")
	}
	ann.IsNew = s.isNew(*ann, s.now())
	return ann, nil
}

// CountNew reports how many announcements fall inside the "new" window.
func (s *AnnouncementService) CountNew(ctx context.Context) (int, error) {
	rows, _, err := s.List(ctx, AnnouncementListRequest{PageSize: 100})
	if err != nil {
		return 0, err
	}
	count := 0
	for _, row := range rows {
		if row.IsNew {
			count++
		}
	}
	return count, nil
}

func (s *AnnouncementService) isNew(ann models.Announcement, now time.Time) bool {
	age := now.Sub(ann.PublishedAt)
	return age >= 0 && age <= s.newWindow
}
