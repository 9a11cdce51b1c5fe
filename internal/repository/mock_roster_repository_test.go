package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-portal-api/internal/models"
)

func TestMockRosterRepositoryShape(t *testing.T) {
	repo := NewMockRosterRepository(0, 42)

	students, err := repo.FetchRoster(context.Background(), "9A")
	require.NoError(t, err)
	require.Len(t, students, 25)

	assert.Equal(t, "student_9A_1", students[0].ID)
	assert.Equal(t, "G101", students[0].RollNumber)
	assert.Equal(t, models.DisplayGroupPrimary, students[0].Group)
	assert.Equal(t, "B101", students[1].RollNumber)
	assert.Equal(t, models.DisplayGroupSecondary, students[1].Group)
	assert.Equal(t, "G113", students[24].RollNumber)

	present := 0
	for _, s := range students {
		assert.Len(t, strings.Fields(s.Name), 2, s.Name)
		assert.Contains(t, []models.AttendanceStatus{models.AttendanceStatusPresent, models.AttendanceStatusAbsent}, s.Status)
		if s.Status == models.AttendanceStatusPresent {
			present++
		}
	}
	assert.Greater(t, present, 15)
}

func TestMockRosterRepositoryDeterministicSeed(t *testing.T) {
	a, err := NewMockRosterRepository(10, 7).FetchRoster(context.Background(), "10B")
	require.NoError(t, err)
	b, err := NewMockRosterRepository(10, 7).FetchRoster(context.Background(), "10B")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMockRosterRepositoryErrors(t *testing.T) {
	repo := NewMockRosterRepository(5, 1)
	_, err := repo.FetchRoster(context.Background(), " ")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.FetchRoster(ctx, "9A")
	assert.ErrorIs(t, err, context.Canceled)
}
