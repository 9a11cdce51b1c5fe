package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-portal-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestRosterRepositoryFetchRoster(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "roll_number", "display_group", "status"}).
		AddRow("s1", "Alice Anderson", "G101", "primary", "present").
		AddRow("s2", "Bob Brown", "B101", "secondary", "present")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, roll_number, display_group, 'present' AS status\nFROM students WHERE class_id = $1 AND active = TRUE")).
		WithArgs("9A").
		WillReturnRows(rows)

	students, err := repo.FetchRoster(context.Background(), "9A")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, models.DisplayGroupSecondary, students[1].Group)
	assert.Equal(t, models.AttendanceStatusPresent, students[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryFetchRosterEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	mock.ExpectQuery("FROM students").WithArgs("11A").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "roll_number", "display_group", "status"}))

	students, err := repo.FetchRoster(context.Background(), "11A")
	require.NoError(t, err)
	assert.NotNil(t, students)
	assert.Empty(t, students)
}

func TestRosterRepositoryFetchRosterError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	mock.ExpectQuery("FROM students").WithArgs("9A").WillReturnError(errors.New("connection reset"))

	_, err := repo.FetchRoster(context.Background(), "9A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch roster for class 9A")
}
