package repository

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/noah-isme/teacher-portal-api/internal/models"
)

var (
	mockFirstNames = []string{"Alice", "Bob", "Charlie", "Diana", "Edward", "Fiona", "George", "Hannah", "Ian", "Julia", "Kevin", "Lisa", "Mike", "Nina", "Oscar", "Penny", "Quinn", "Rachel", "Steve", "Tina"}
	mockLastNames  = []string{"Anderson", "Brown", "Clark", "Davis", "Evans", "Fisher", "Garcia", "Harris", "Johnson", "King", "Lee", "Miller", "Nelson", "O'Brien", "Parker", "Quinn", "Roberts", "Smith", "Taylor", "Wilson"}
)

const (
	defaultMockRosterSize = 25
	mockPresentRate       = 0.9
)

// MockRosterRepository generates demo rosters in memory.
type MockRosterRepository struct {
	size int
	mu   sync.Mutex
	rng  *rand.Rand
}

// NewMockRosterRepository builds a generator producing size students per class.
func NewMockRosterRepository(size int, seed int64) *MockRosterRepository {
	if size <= 0 {
		size = defaultMockRosterSize
	}
	return &MockRosterRepository{size: size, rng: rand.New(rand.NewSource(seed))}
}

// FetchRoster returns a freshly generated roster for classID. Students alternate
// between display groups and roll numbers are numbered per group.
func (r *MockRosterRepository) FetchRoster(ctx context.Context, classID string) ([]models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return nil, fmt.Errorf("class id required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	students := make([]models.Student, 0, r.size)
	counters := map[models.DisplayGroup]int{}
	for i := 0; i < r.size; i++ {
		group := models.DisplayGroupPrimary
		prefix := "G"
		if i%2 == 1 {
			group = models.DisplayGroupSecondary
			prefix = "B"
		}
		counters[group]++

		status := models.AttendanceStatusPresent
		if r.rng.Float64() >= mockPresentRate {
			status = models.AttendanceStatusAbsent
		}

		students = append(students, models.Student{
			ID:         fmt.Sprintf("student_%s_%d", classID, i+1),
			Name:       mockFirstNames[r.rng.Intn(len(mockFirstNames))] + " " + mockLastNames[r.rng.Intn(len(mockLastNames))],
			RollNumber: fmt.Sprintf("%s%d", prefix, 100+counters[group]),
			Group:      group,
			Status:     status,
		})
	}
	return students, nil
}
