package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/teacher-portal-api/internal/dto"
	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

// Mutation outcomes reported to metrics.
const (
	MutationOutcomeApplied        = "applied"
	MutationOutcomeNoop           = "noop"
	MutationOutcomeGuarded        = "guarded"
	MutationOutcomeUnconfirmed    = "unconfirmed"
	MutationOutcomeUnknownStudent = "unknown_student"
	MutationOutcomeFailed         = "failed"
)

// Operation names used in logs and metrics.
const (
	opSetStatus       = "set_status"
	opCycleStatus     = "cycle_status"
	opMarkAllPresent  = "mark_all_present"
	opBeginSelection  = "begin_selection"
	opToggleSelection = "toggle_selection"
	opToggleSelectAll = "toggle_select_all"
	opApplyBulk       = "apply_bulk"
	opSubmit          = "submit"
)

type attendanceMetrics interface {
	ObserveAttendanceMutation(operation, outcome string)
	ObserveRosterLoad(ok bool, duration time.Duration)
}

type noopAttendanceMetrics struct{}

func (noopAttendanceMetrics) ObserveAttendanceMutation(string, string) {}
func (noopAttendanceMetrics) ObserveRosterLoad(bool, time.Duration)    {}

// SetStatusRequest sets a single student's status.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,attendance_status"`
}

// MarkAllPresentRequest must carry an explicit confirmation.
type MarkAllPresentRequest struct {
	Confirm bool `json:"confirm"`
}

// ToggleSelectionRequest adds or removes one student from the bulk selection.
type ToggleSelectionRequest struct {
	StudentID string `json:"student_id" validate:"required,max=128"`
}

// ApplyBulkRequest applies one status to every selected student.
type ApplyBulkRequest struct {
	Status string `json:"status" validate:"required,attendance_status"`
}

// AttendanceService gates roster mutations by date and exposes roster views.
type AttendanceService struct {
	store     *RosterStore
	metrics   attendanceMetrics
	validator *validator.Validate
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(store *RosterStore, metrics attendanceMetrics, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopAttendanceMetrics{}
	}
	if loc == nil {
		loc = time.Local
	}
	svc := &AttendanceService{store: store, metrics: metrics, validator: validate, logger: logger, loc: loc, now: time.Now}
	_ = svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseAttendanceStatus(fl.Field().String())
		return ok
	})
	return svc
}

// WithClock overrides the time source.
func (s *AttendanceService) WithClock(now func() time.Time) *AttendanceService {
	if now != nil {
		s.now = now
	}
	return s
}

// Location returns the zone calendar dates are resolved in.
func (s *AttendanceService) Location() *time.Location {
	return s.loc
}

// Today returns the current calendar date.
func (s *AttendanceService) Today() time.Time {
	return DateOnly(s.now(), s.loc)
}

// Mode classifies date against the current clock. It is never cached.
func (s *AttendanceService) Mode(date time.Time) models.DateMode {
	return ResolveDateMode(date, s.now(), s.loc)
}

// View returns the roster, loading it on first access.
func (s *AttendanceService) View(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
	state, err := s.ensureLoaded(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.view(key, state), nil
}

// Reload refetches the roster from the data source, keeping the old one on failure.
func (s *AttendanceService) Reload(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
	state, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.view(key, state), nil
}

// Summary returns status counts for the roster.
func (s *AttendanceService) Summary(ctx context.Context, key models.RosterKey) (*dto.AttendanceSummaryResponse, error) {
	state, err := s.ensureLoaded(ctx, key)
	if err != nil {
		return nil, err
	}
	summary := Summarize(state.Students)
	return &dto.AttendanceSummaryResponse{
		ClassID: key.ClassID,
		Date:    key.Date.Format(models.DateLayout),
		Mode:    s.Mode(key.Date),
		Total:   summary.Total(),
		Counts:  summary,
	}, nil
}

// Snapshot returns the sorted roster for read-only consumers such as export.
func (s *AttendanceService) Snapshot(ctx context.Context, key models.RosterKey) ([]models.Student, error) {
	state, err := s.ensureLoaded(ctx, key)
	if err != nil {
		return nil, err
	}
	return SortRoster(state.Students), nil
}

// SetStatus moves one student to the requested status.
func (s *AttendanceService) SetStatus(ctx context.Context, key models.RosterKey, studentID string, req SetStatusRequest) (*models.RosterView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance status")
	}
	status, _ := models.ParseAttendanceStatus(req.Status)
	return s.mutate(ctx, key, opSetStatus, func(state RosterState) (RosterState, error) {
		students, err := SetStatus(state.Students, studentID, status)
		if err != nil {
			return state, err
		}
		state.Students = students
		return state, nil
	})
}

// CycleStatus advances one student along the quick toggle order.
func (s *AttendanceService) CycleStatus(ctx context.Context, key models.RosterKey, studentID string) (*models.RosterView, error) {
	return s.mutate(ctx, key, opCycleStatus, func(state RosterState) (RosterState, error) {
		students, err := CycleStatus(state.Students, studentID)
		if err != nil {
			return state, err
		}
		state.Students = students
		return state, nil
	})
}

// MarkAllPresent marks the whole roster present once confirmed.
func (s *AttendanceService) MarkAllPresent(ctx context.Context, key models.RosterKey, req MarkAllPresentRequest) (*models.RosterView, error) {
	if err := s.guard(key, opMarkAllPresent); err != nil {
		return nil, err
	}
	if !req.Confirm {
		s.metrics.ObserveAttendanceMutation(opMarkAllPresent, MutationOutcomeUnconfirmed)
		return nil, appErrors.Clone(appErrors.ErrConfirmationRequired, "confirm marking every student present")
	}
	return s.mutate(ctx, key, opMarkAllPresent, func(state RosterState) (RosterState, error) {
		state.Students = MarkAllPresent(state.Students)
		return state, nil
	})
}

// BeginSelection enters select mode with an empty selection.
func (s *AttendanceService) BeginSelection(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
	return s.mutate(ctx, key, opBeginSelection, func(state RosterState) (RosterState, error) {
		if !state.Selection.Active {
			state.Selection = models.SelectionState{Active: true, IDs: models.NewSelectionSet()}
		}
		return state, nil
	})
}

// ToggleSelection flips one student in the selection, entering select mode if needed.
func (s *AttendanceService) ToggleSelection(ctx context.Context, key models.RosterKey, req ToggleSelectionRequest) (*models.RosterView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student_id is required")
	}
	return s.mutate(ctx, key, opToggleSelection, func(state RosterState) (RosterState, error) {
		if indexOfStudent(state.Students, req.StudentID) < 0 {
			return state, unknownStudent(req.StudentID)
		}
		state.Selection = models.SelectionState{Active: true, IDs: ToggleSelection(state.Selection.IDs, req.StudentID)}
		return state, nil
	})
}

// ToggleSelectAll selects the whole roster, or clears it when everything is selected.
func (s *AttendanceService) ToggleSelectAll(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
	return s.mutate(ctx, key, opToggleSelectAll, func(state RosterState) (RosterState, error) {
		state.Selection = models.SelectionState{Active: true, IDs: ToggleSelectAll(state.Selection.IDs, studentIDs(state.Students))}
		return state, nil
	})
}

// CancelSelection clears the selection and leaves select mode. It is allowed on any date.
func (s *AttendanceService) CancelSelection(ctx context.Context, key models.RosterKey) (*models.RosterView, error) {
	if _, err := s.ensureLoaded(ctx, key); err != nil {
		return nil, err
	}
	state, err := s.store.Update(key, func(state RosterState) (RosterState, error) {
		state.Selection = idleSelection()
		return state, nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(key, state), nil
}

// ApplyBulk sets status on every selected student, then leaves select mode.
// An empty selection changes nothing.
func (s *AttendanceService) ApplyBulk(ctx context.Context, key models.RosterKey, req ApplyBulkRequest) (*models.RosterView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance status")
	}
	status, _ := models.ParseAttendanceStatus(req.Status)
	return s.mutate(ctx, key, opApplyBulk, func(state RosterState) (RosterState, error) {
		if len(state.Selection.IDs) == 0 {
			return state, errNoop
		}
		students, err := ApplyBulk(state.Students, state.Selection.IDs, status)
		if err != nil {
			return state, err
		}
		state.Students = students
		state.Selection = idleSelection()
		return state, nil
	})
}

// Guard reports whether mutations are allowed for key's date. Submission uses it too.
func (s *AttendanceService) Guard(key models.RosterKey) error {
	return s.guard(key, opSubmit)
}

// Forget drops every cached roster for a session.
func (s *AttendanceService) Forget(sessionID string) {
	if removed := s.store.Forget(sessionID); removed > 0 {
		s.logger.Debug("rosters released", zap.String("session_id", sessionID), zap.Int("count", removed))
	}
}

// Sweep releases rosters whose session alive no longer reports as live.
func (s *AttendanceService) Sweep(ctx context.Context, alive func(ctx context.Context, sessionID string) bool) int {
	released := 0
	for _, sessionID := range s.store.Sessions() {
		if ctx.Err() != nil {
			break
		}
		if alive(ctx, sessionID) {
			continue
		}
		released += s.store.Forget(sessionID)
	}
	if released > 0 {
		s.logger.Info("abandoned rosters released", zap.Int("count", released))
	}
	return released
}

var errNoop = errors.New("nothing to change")

func (s *AttendanceService) guard(key models.RosterKey, op string) error {
	mode := s.Mode(key.Date)
	if mode.Editable() {
		return nil
	}
	s.metrics.ObserveAttendanceMutation(op, MutationOutcomeGuarded)
	return appErrors.Clone(appErrors.ErrInvalidDateGuard, fmt.Sprintf("%s (%s)", models.FutureDateMessage, key.Date.Format(models.DateLayout)))
}

func (s *AttendanceService) mutate(ctx context.Context, key models.RosterKey, op string, fn RosterReducer) (*models.RosterView, error) {
	if err := s.guard(key, op); err != nil {
		return nil, err
	}
	if _, err := s.ensureLoaded(ctx, key); err != nil {
		s.metrics.ObserveAttendanceMutation(op, MutationOutcomeFailed)
		return nil, err
	}

	state, err := s.store.Update(key, fn)
	switch {
	case err == nil:
		s.metrics.ObserveAttendanceMutation(op, MutationOutcomeApplied)
	case errors.Is(err, errNoop):
		s.metrics.ObserveAttendanceMutation(op, MutationOutcomeNoop)
	case errors.Is(err, errRosterNotLoaded):
		s.metrics.ObserveAttendanceMutation(op, MutationOutcomeFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrSessionExpired.Code, appErrors.ErrSessionExpired.Status, "roster was released, please reload")
	case errors.Is(err, appErrors.ErrUnknownStudent):
		s.logger.Warn("attendance mutation referenced unknown student",
			zap.String("operation", op),
			zap.String("class_id", key.ClassID),
			zap.String("date", key.Date.Format(models.DateLayout)),
			zap.Error(err))
		s.metrics.ObserveAttendanceMutation(op, MutationOutcomeUnknownStudent)
	default:
		s.metrics.ObserveAttendanceMutation(op, MutationOutcomeFailed)
		return nil, err
	}
	return s.view(key, state), nil
}

func (s *AttendanceService) ensureLoaded(ctx context.Context, key models.RosterKey) (RosterState, error) {
	if state, ok := s.store.Get(key); ok {
		return state, nil
	}
	return s.load(ctx, key)
}

func (s *AttendanceService) load(ctx context.Context, key models.RosterKey) (RosterState, error) {
	start := time.Now()
	state, err := s.store.Load(ctx, key)
	s.metrics.ObserveRosterLoad(err == nil, time.Since(start))
	return state, err
}

func (s *AttendanceService) view(key models.RosterKey, state RosterState) *models.RosterView {
	mode := s.Mode(key.Date)
	view := &models.RosterView{
		ClassID:   key.ClassID,
		Date:      key.Date.Format(models.DateLayout),
		Mode:      mode,
		Editable:  mode.Editable(),
		Students:  SortRoster(state.Students),
		Summary:   Summarize(state.Students),
		Selection: state.Selection,
	}
	if view.Selection.IDs == nil {
		view.Selection.IDs = models.NewSelectionSet()
	}
	if !mode.Editable() {
		view.BlockedMessage = models.FutureDateMessage
		view.Selection = idleSelection()
	}
	return view
}
