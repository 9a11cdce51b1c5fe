package repository

import (
	"context"
	"sort"
	"time"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

type mockAnnouncement struct {
	announcement models.Announcement
	age          time.Duration
}

var mockAnnouncements = []mockAnnouncement{
	{
		announcement: models.Announcement{
			ID:       "ann_1",
			Title:    "Parent-Teacher Conference",
			Content:  "Parent-teacher conferences are scheduled for next week. Please check your individual schedules for specific timings.",
			Priority: models.AnnouncementPriorityHigh,
			Author:   "Principal Office",
		},
		age: 2 * 24 * time.Hour,
	},
	{
		announcement: models.Announcement{
			ID:       "ann_2",
			Title:    "Math Olympiad Registration",
			Content:  "Registration for the annual Math Olympiad is now open. Interested students should contact their math teachers.",
			Priority: models.AnnouncementPriorityMedium,
			Author:   "Math Department",
		},
		age: 5 * 24 * time.Hour,
	},
	{
		announcement: models.Announcement{
			ID:       "ann_3",
			Title:    "Holiday Schedule",
			Content:  "Please note the updated holiday schedule for this semester. Classes will resume on Monday after the winter break.",
			Priority: models.AnnouncementPriorityLow,
			Author:   "Administration",
		},
		age: 7 * 24 * time.Hour,
	},
}

// MockAnnouncementRepository serves the demo announcements, dated relative to now.
type MockAnnouncementRepository struct {
	now func() time.Time
}

// NewMockAnnouncementRepository creates the repository.
func NewMockAnnouncementRepository(now func() time.Time) *MockAnnouncementRepository {
	if now == nil {
		now = time.Now
	}
	return &MockAnnouncementRepository{now: now}
}

// List filters, orders and pages the demo announcements.
func (r *MockAnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	all := r.snapshot()
	filtered := make([]models.Announcement, 0, len(all))
	for _, ann := range all {
		if filter.Priority != nil && ann.Priority != *filter.Priority {
			continue
		}
		filtered = append(filtered, ann)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Priority.Rank() != filtered[j].Priority.Rank() {
			return filtered[i].Priority.Rank() < filtered[j].Priority.Rank()
		}
		return filtered[i].PublishedAt.After(filtered[j].PublishedAt)
	})

	total := len(filtered)
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	start := (page - 1) * size
	if start >= total {
		return []models.Announcement{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return filtered[start:end], total, nil
}

// GetByID returns one demo announcement.
func (r *MockAnnouncementRepository) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	for _, ann := range r.snapshot() {
		if ann.ID == id {
			found := ann
			return &found, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (r *MockAnnouncementRepository) snapshot() []models.Announcement {
	now := r.now().UTC()
	out := make([]models.Announcement, len(mockAnnouncements))
	for i, item := range mockAnnouncements {
		out[i] = item.announcement
		out[i].PublishedAt = now.Add(-item.age)
	}
	return out
}
