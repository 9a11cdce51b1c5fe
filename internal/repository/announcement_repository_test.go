package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

func TestAnnouncementRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "content", "priority", "author", "published_at"}).
		AddRow("a1", "Conference", "Next week", "high", "Principal Office", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, content, priority, author, published_at\nFROM announcements WHERE published_at <= NOW() AND priority = $1")).
		WithArgs("high").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM announcements WHERE published_at <= NOW() AND priority = $1")).
		WithArgs("high").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	priority := models.AnnouncementPriorityHigh
	items, total, err := repo.List(context.Background(), models.AnnouncementFilter{Priority: &priority})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Principal Office", items[0].Author)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryListPaginates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 5 OFFSET 5")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content", "priority", "author", "published_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM announcements WHERE published_at <= NOW()")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))

	_, total, err := repo.List(context.Background(), models.AnnouncementFilter{Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMockAnnouncementRepository(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := NewMockAnnouncementRepository(func() time.Time { return now })

	items, total, err := repo.List(context.Background(), models.AnnouncementFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"ann_1", "ann_2", "ann_3"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, now.Add(-48*time.Hour), items[0].PublishedAt)

	low := models.AnnouncementPriorityLow
	items, total, err = repo.List(context.Background(), models.AnnouncementFilter{Priority: &low})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Holiday Schedule", items[0].Title)

	items, total, err = repo.List(context.Background(), models.AnnouncementFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, "ann_3", items[0].ID)

	items, _, err = repo.List(context.Background(), models.AnnouncementFilter{Page: 5, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, items)

	ann, err := repo.GetByID(context.Background(), "ann_2")
	require.NoError(t, err)
	assert.Equal(t, "Math Department", ann.Author)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
