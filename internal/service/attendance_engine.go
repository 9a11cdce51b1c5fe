package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

// SortRoster orders students primary group first, then by roll number.
// The input is left untouched.
func SortRoster(students []models.Student) []models.Student {
	out := make([]models.Student, len(students))
	copy(out, students)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Group.Rank(), out[j].Group.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].RollNumber < out[j].RollNumber
	})
	return out
}

// SetStatus returns a copy of roster with only studentID moved to status.
func SetStatus(roster []models.Student, studentID string, status models.AttendanceStatus) ([]models.Student, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported attendance status %q", status))
	}
	idx := indexOfStudent(roster, studentID)
	if idx < 0 {
		return nil, unknownStudent(studentID)
	}
	out := models.CloneStudents(roster)
	out[idx].Status = status
	return out, nil
}

// CycleStatus advances studentID to the next status in the quick toggle order.
func CycleStatus(roster []models.Student, studentID string) ([]models.Student, error) {
	idx := indexOfStudent(roster, studentID)
	if idx < 0 {
		return nil, unknownStudent(studentID)
	}
	out := models.CloneStudents(roster)
	out[idx].Status = out[idx].Status.Next()
	return out, nil
}

// MarkAllPresent returns a copy of roster with every student present.
// Callers are expected to have obtained explicit confirmation.
func MarkAllPresent(roster []models.Student) []models.Student {
	out := models.CloneStudents(roster)
	for i := range out {
		out[i].Status = models.AttendanceStatusPresent
	}
	return out
}

// DateOnly truncates t to midnight of its calendar day in loc.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ResolveDateMode classifies selected against today by calendar day in loc.
func ResolveDateMode(selected, today time.Time, loc *time.Location) models.DateMode {
	s, t := DateOnly(selected, loc), DateOnly(today, loc)
	switch {
	case s.Equal(t):
		return models.DateModeToday
	case s.Before(t):
		return models.DateModePast
	default:
		return models.DateModeFuture
	}
}

// ToggleSelection adds id when absent and removes it when present.
func ToggleSelection(selection models.SelectionSet, id string) models.SelectionSet {
	out := selection.Clone()
	if out.Has(id) {
		delete(out, id)
	} else {
		out[id] = struct{}{}
	}
	return out
}

// ToggleSelectAll clears a full selection, otherwise selects every id.
func ToggleSelectAll(selection models.SelectionSet, allIDs []string) models.SelectionSet {
	if len(selection) == len(allIDs) {
		return models.NewSelectionSet()
	}
	return models.NewSelectionSet(allIDs...)
}

// ApplyBulk sets status on every selected student. An empty selection is a no-op.
// Either every selected student is updated or the roster is returned unchanged with an error.
func ApplyBulk(roster []models.Student, selection models.SelectionSet, status models.AttendanceStatus) ([]models.Student, error) {
	if len(selection) == 0 {
		return models.CloneStudents(roster), nil
	}
	out := roster
	for _, id := range selection.IDs() {
		next, err := SetStatus(out, id, status)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// Summarize counts students per status in a single pass.
func Summarize(roster []models.Student) models.StatusSummary {
	summary := models.NewStatusSummary()
	for _, student := range roster {
		summary[student.Status]++
	}
	return summary
}

func studentIDs(roster []models.Student) []string {
	ids := make([]string, len(roster))
	for i, student := range roster {
		ids[i] = student.ID
	}
	return ids
}

func indexOfStudent(roster []models.Student, studentID string) int {
	for i, student := range roster {
		if student.ID == studentID {
			return i
		}
	}
	return -1
}

func unknownStudent(studentID string) error {
	return appErrors.Clone(appErrors.ErrUnknownStudent, fmt.Sprintf("student %s is not on this roster", studentID))
}
