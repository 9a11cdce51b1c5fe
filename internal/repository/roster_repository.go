package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teacher-portal-api/internal/models"
)

// RosterRepository reads class rosters from PostgreSQL.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository creates the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// FetchRoster returns the active students of a class. Every student starts the
// day as present.
func (r *RosterRepository) FetchRoster(ctx context.Context, classID string) ([]models.Student, error) {
	const query = `SELECT id, name, roll_number, display_group, 'present' AS status
FROM students WHERE class_id = $1 AND active = TRUE
ORDER BY display_group, roll_number`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("fetch roster for class %s: %w", classID, err)
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}
