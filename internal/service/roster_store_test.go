package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

type rosterSourceStub struct {
	mu       sync.Mutex
	students []models.Student
	err      error
	calls    int
}

func (s *rosterSourceStub) FetchRoster(ctx context.Context, classID string) ([]models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return models.CloneStudents(s.students), nil
}

func (s *rosterSourceStub) set(students []models.Student, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = students
	s.err = err
}

// gatedSource returns a different roster per call and blocks the first call until released.
type gatedSource struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (s *gatedSource) FetchRoster(ctx context.Context, classID string) ([]models.Student, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	if call == 1 {
		<-s.release
		return []models.Student{{ID: "stale", Status: models.AttendanceStatusAbsent}}, nil
	}
	return []models.Student{{ID: "fresh", Status: models.AttendanceStatusPresent}}, nil
}

func testKey() models.RosterKey {
	return models.RosterKey{SessionID: "sess", ClassID: "9A", Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
}

func TestRosterStoreLoadKeepsPreviousOnFailure(t *testing.T) {
	source := &rosterSourceStub{students: []models.Student{{ID: "1", Status: models.AttendanceStatusPresent}}}
	store := NewRosterStore(source, nil)
	key := testKey()

	state, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Len(t, state.Students, 1)

	source.set(nil, errors.New("network down"))
	_, err = store.Load(context.Background(), key)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDataUnavailable))

	kept, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, "1", kept.Students[0].ID)
}

func TestRosterStoreRejectsInvalidRoster(t *testing.T) {
	source := &rosterSourceStub{students: []models.Student{{ID: "1", Status: "unmarked"}}}
	store := NewRosterStore(source, nil)

	_, err := store.Load(context.Background(), testKey())
	assert.True(t, errors.Is(err, appErrors.ErrDataUnavailable))
	_, ok := store.Get(testKey())
	assert.False(t, ok)
}

func TestRosterStoreLatestLoadWins(t *testing.T) {
	source := &gatedSource{release: make(chan struct{})}
	store := NewRosterStore(source, nil)
	key := testKey()

	done := make(chan RosterState)
	go func() {
		state, _ := store.Load(context.Background(), key)
		done <- state
	}()

	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return source.calls == 1
	}, time.Second, time.Millisecond)

	fresh, err := store.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "fresh", fresh.Students[0].ID)

	close(source.release)
	superseded := <-done
	assert.Equal(t, "fresh", superseded.Students[0].ID)

	stored, _ := store.Get(key)
	assert.Equal(t, "fresh", stored.Students[0].ID)
}

func TestRosterStoreUpdate(t *testing.T) {
	store := NewRosterStore(&rosterSourceStub{}, nil)
	key := testKey()

	_, err := store.Update(key, func(s RosterState) (RosterState, error) { return s, nil })
	assert.ErrorIs(t, err, errRosterNotLoaded)

	store.Replace(key, []models.Student{{ID: "1", Status: models.AttendanceStatusAbsent}})

	_, err = store.Update(key, func(s RosterState) (RosterState, error) {
		s.Students[0].Status = models.AttendanceStatusLate
		return s, errors.New("rejected")
	})
	require.Error(t, err)
	current, _ := store.Get(key)
	assert.Equal(t, models.AttendanceStatusAbsent, current.Students[0].Status)

	next, err := store.Update(key, func(s RosterState) (RosterState, error) {
		s.Students = MarkAllPresent(s.Students)
		return s, nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, next.Students[0].Status)
}

func TestRosterStoreReturnsCopies(t *testing.T) {
	store := NewRosterStore(&rosterSourceStub{}, nil)
	key := testKey()
	state := store.Replace(key, []models.Student{{ID: "1", Status: models.AttendanceStatusAbsent}})
	state.Students[0].Status = models.AttendanceStatusPresent

	stored, _ := store.Get(key)
	assert.Equal(t, models.AttendanceStatusAbsent, stored.Students[0].Status)
}

func TestRosterStoreForget(t *testing.T) {
	store := NewRosterStore(&rosterSourceStub{}, nil)
	key := testKey()
	other := key
	other.SessionID = "other"
	store.Replace(key, nil)
	store.Replace(other, nil)

	assert.Equal(t, 1, store.Forget("sess"))
	_, ok := store.Get(key)
	assert.False(t, ok)
	_, ok = store.Get(other)
	assert.True(t, ok)
}
