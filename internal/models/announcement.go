package models

import "time"

// AnnouncementPriority defines ordering for announcements.
type AnnouncementPriority string

const (
	AnnouncementPriorityHigh   AnnouncementPriority = "high"
	AnnouncementPriorityMedium AnnouncementPriority = "medium"
	AnnouncementPriorityLow    AnnouncementPriority = "low"
)

// Rank orders priorities, high first.
func (p AnnouncementPriority) Rank() int {
	switch p {
	case AnnouncementPriorityHigh:
		return 0
	case AnnouncementPriorityMedium:
		return 1
	default:
		return 2
	}
}

// Announcement represents a school notice shown to teachers.
type Announcement struct {
	ID          string               `db:"id" json:"id"`
	Title       string               `db:"title" json:"title"`
	Content     string               `db:"content" json:"content"`
	Priority    AnnouncementPriority `db:"priority" json:"priority"`
	Author      string               `db:"author" json:"author"`
	PublishedAt time.Time            `db:"published_at" json:"published_at"`
	IsNew       bool                 `db:"-" json:"is_new"`
}

// AnnouncementFilter allows listing announcements.
type AnnouncementFilter struct {
	Priority *AnnouncementPriority
	Page     int
	PageSize int
}
