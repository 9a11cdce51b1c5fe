package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	"github.com/noah-isme/teacher-portal-api/pkg/storage"
)

// LocalSubmissionRepository keeps submissions as JSON documents on disk.
type LocalSubmissionRepository struct {
	storage *storage.LocalStorage
}

// NewLocalSubmissionRepository creates the repository.
func NewLocalSubmissionRepository(store *storage.LocalStorage) *LocalSubmissionRepository {
	return &LocalSubmissionRepository{storage: store}
}

// Save writes the submission to <class>/<date>/<id>.json.
func (r *LocalSubmissionRepository) Save(ctx context.Context, submission models.AttendanceSubmission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(submission, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal submission %s: %w", submission.ID, err)
	}
	if _, err := r.storage.Save(submissionDocument(submission.ClassID, submission.Date, submission.ID), payload); err != nil {
		return fmt.Errorf("store submission %s: %w", submission.ID, err)
	}
	return nil
}

// List returns every stored submission for a class and date.
func (r *LocalSubmissionRepository) List(ctx context.Context, classID, date string) ([]models.AttendanceSubmission, error) {
	names, err := r.storage.List(path.Join(pathSegment(classID), pathSegment(date)))
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	result := make([]models.AttendanceSubmission, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := r.storage.Read(name)
		if err != nil {
			return nil, err
		}
		var submission models.AttendanceSubmission
		if err := json.Unmarshal(raw, &submission); err != nil {
			return nil, fmt.Errorf("decode submission %s: %w", name, err)
		}
		result = append(result, submission)
	}
	return result, nil
}

func submissionDocument(classID, date, id string) string {
	return path.Join(pathSegment(classID), pathSegment(date), pathSegment(id)+".json")
}

func pathSegment(raw string) string {
	segment := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(raw))
	if segment == "" || segment == "." || segment == ".." {
		return "_"
	}
	return segment
}
