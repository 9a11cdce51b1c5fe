package service

import (
	"context"

	"github.com/noah-isme/teacher-portal-api/internal/models"
)

var demoTeacher = models.TeacherProfile{
	ID:         "teacher_001",
	Name:       "Ms. Smith",
	Email:      "sarah.smith@school.edu",
	Department: "Mathematics",
	Subjects:   []string{"Mathematics", "Statistics", "Algebra"},
	Classes:    []string{"9A", "10B", "8C", "11A"},
}

// ProfileService serves the signed in teacher's profile.
type ProfileService struct {
	profile models.TeacherProfile
}

// NewProfileService returns a service backed by the demo profile.
func NewProfileService() *ProfileService {
	return &ProfileService{profile: demoTeacher}
}

// Profile returns a copy of the teacher profile.
func (s *ProfileService) Profile(ctx context.Context) (*models.TeacherProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	profile := s.profile
	profile.Subjects = append([]string(nil), s.profile.Subjects...)
	profile.Classes = append([]string(nil), s.profile.Classes...)
	return &profile, nil
}
