package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/teacher-portal-api/internal/models"
)

// SubmissionRepository persists attendance submissions to PostgreSQL.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Save replaces the stored attendance of the class and date with the submission,
// one row per student, in a single transaction.
func (r *SubmissionRepository) Save(ctx context.Context, submission models.AttendanceSubmission) (err error) {
	ids := make([]string, len(submission.Students))
	statuses := make([]string, len(submission.Students))
	for i, student := range submission.Students {
		ids[i] = student.ID
		statuses[i] = string(student.Status)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submission tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM attendance_submissions WHERE class_id = $1 AND attendance_date = $2`,
		submission.ClassID, submission.Date); err != nil {
		return fmt.Errorf("clear previous submission: %w", err)
	}

	const insert = `INSERT INTO attendance_submissions (submission_id, session_id, class_id, attendance_date, submitted_at, student_id, status)
SELECT $1, $2, $3, $4, $5, s.student_id, s.status
FROM unnest($6::text[], $7::text[]) AS s(student_id, status)`
	if _, err = tx.ExecContext(ctx, insert,
		submission.ID, submission.SessionID, submission.ClassID, submission.Date, submission.SubmittedAt,
		pq.Array(ids), pq.Array(statuses)); err != nil {
		return fmt.Errorf("insert submission rows: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit submission: %w", err)
	}
	return nil
}
