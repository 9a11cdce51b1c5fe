package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

var errRosterNotLoaded = errors.New("roster not loaded")

type rosterSource interface {
	FetchRoster(ctx context.Context, classID string) ([]models.Student, error)
}

// RosterState is the mutable part of one roster: its students and the bulk selection.
type RosterState struct {
	Students  []models.Student
	Selection models.SelectionState
}

func (s RosterState) clone() RosterState {
	return RosterState{
		Students: models.CloneStudents(s.Students),
		Selection: models.SelectionState{
			Active: s.Selection.Active,
			IDs:    s.Selection.IDs.Clone(),
		},
	}
}

// RosterReducer derives the next state; returning an error keeps the current one.
type RosterReducer func(RosterState) (RosterState, error)

// RosterStore holds the canonical roster per session, class and date.
type RosterStore struct {
	source rosterSource
	logger *zap.Logger

	mu          sync.Mutex
	entries     map[string]RosterState
	generations map[string]uint64
}

// NewRosterStore constructs an empty store backed by source.
func NewRosterStore(source rosterSource, logger *zap.Logger) *RosterStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterStore{
		source:      source,
		logger:      logger,
		entries:     make(map[string]RosterState),
		generations: make(map[string]uint64),
	}
}

// Get returns a copy of the stored roster.
func (s *RosterStore) Get(key models.RosterKey) (RosterState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.entries[key.String()]
	if !ok {
		return RosterState{}, false
	}
	return state.clone(), true
}

// Load fetches a fresh roster and replaces the stored one. On failure the previous
// roster is kept. When loads for the same key overlap only the latest one is stored.
func (s *RosterStore) Load(ctx context.Context, key models.RosterKey) (RosterState, error) {
	k := key.String()
	s.mu.Lock()
	s.generations[k]++
	generation := s.generations[k]
	s.mu.Unlock()

	students, err := s.source.FetchRoster(ctx, key.ClassID)
	if err == nil {
		err = validateRoster(students)
	}
	if err != nil {
		s.logger.Warn("roster load failed", zap.String("class_id", key.ClassID), zap.Error(err))
		return RosterState{}, appErrors.Wrap(err, appErrors.ErrDataUnavailable.Code, appErrors.ErrDataUnavailable.Status, appErrors.ErrDataUnavailable.Message)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[k] != generation {
		s.logger.Debug("discarding superseded roster load", zap.String("class_id", key.ClassID), zap.Uint64("generation", generation))
		if current, ok := s.entries[k]; ok {
			return current.clone(), nil
		}
		return RosterState{Students: models.CloneStudents(students), Selection: idleSelection()}, nil
	}
	state := RosterState{Students: models.CloneStudents(students), Selection: idleSelection()}
	s.entries[k] = state
	return state.clone(), nil
}

// Replace swaps the whole roster atomically and resets selection.
func (s *RosterStore) Replace(key models.RosterKey, students []models.Student) RosterState {
	state := RosterState{Students: models.CloneStudents(students), Selection: idleSelection()}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key.String()] = state
	return state.clone()
}

// Update applies fn to the stored roster under the store lock.
func (s *RosterStore) Update(key models.RosterKey, fn RosterReducer) (RosterState, error) {
	k := key.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.entries[k]
	if !ok {
		return RosterState{}, errRosterNotLoaded
	}
	next, err := fn(current.clone())
	if err != nil {
		return current.clone(), err
	}
	if next.Selection.IDs == nil {
		next.Selection.IDs = models.NewSelectionSet()
	}
	s.entries[k] = next.clone()
	return next, nil
}

// Forget drops every roster belonging to sessionID.
func (s *RosterStore) Forget(sessionID string) int {
	prefix := sessionID + "|"
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
			delete(s.generations, k)
			removed++
		}
	}
	return removed
}

// Sessions lists the distinct sessions holding at least one roster.
func (s *RosterStore) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for k := range s.entries {
		sessionID, _, _ := strings.Cut(k, "|")
		if _, ok := seen[sessionID]; ok {
			continue
		}
		seen[sessionID] = struct{}{}
		out = append(out, sessionID)
	}
	sort.Strings(out)
	return out
}

func idleSelection() models.SelectionState {
	return models.SelectionState{IDs: models.NewSelectionSet()}
}

func validateRoster(students []models.Student) error {
	seen := make(map[string]struct{}, len(students))
	for _, student := range students {
		if student.ID == "" {
			return fmt.Errorf("roster contains a student without id")
		}
		if _, dup := seen[student.ID]; dup {
			return fmt.Errorf("roster contains duplicate student id %s", student.ID)
		}
		seen[student.ID] = struct{}{}
		if !student.Status.Valid() {
			return fmt.Errorf("student %s has invalid status %q", student.ID, student.Status)
		}
	}
	return nil
}
