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

type sinkStub struct {
	mu       sync.Mutex
	saved    []models.AttendanceSubmission
	failures int
	done     chan struct{}
}

func newSinkStub(failures int) *sinkStub {
	return &sinkStub{failures: failures, done: make(chan struct{}, 8)}
}

func (s *sinkStub) Save(ctx context.Context, submission models.AttendanceSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("disk full")
	}
	s.saved = append(s.saved, submission)
	s.done <- struct{}{}
	return nil
}

type limiterStub struct {
	allowed  map[string]bool
	err      error
	calls    []string
	released []string
}

func (l *limiterStub) Release(ctx context.Context, key string) error {
	l.released = append(l.released, key)
	delete(l.allowed, key)
	return nil
}

func (l *limiterStub) Allow(ctx context.Context, key string, interval time.Duration) (bool, error) {
	l.calls = append(l.calls, key)
	if l.err != nil {
		return false, l.err
	}
	if l.allowed[key] {
		return false, nil
	}
	if l.allowed == nil {
		l.allowed = map[string]bool{}
	}
	l.allowed[key] = true
	return true, nil
}

type csrfStub struct {
	err    error
	tokens []string
}

func (c *csrfStub) VerifyCSRF(ctx context.Context, sessionID, token string) error {
	c.tokens = append(c.tokens, token)
	return c.err
}

type submissionRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *submissionRecorder) ObserveSubmission(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *submissionRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes...)
}

func waitSaved(t *testing.T, sink *sinkStub) {
	t.Helper()
	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("submission was not stored")
	}
}

func TestSubmissionServiceSubmitStoresSnapshot(t *testing.T) {
	attendance, _, _ := newTestAttendanceService(t)
	sink := newSinkStub(0)
	recorder := &submissionRecorder{}
	svc := NewSubmissionService(attendance, sink, &limiterStub{}, nil, recorder, nil, SubmissionConfig{Workers: 1}).
		WithClock(func() time.Time { return fixedNow })
	svc.Start(context.Background())
	defer svc.Stop()

	key := keyFor(fixedNow)
	receipt, err := svc.Submit(context.Background(), key, "")
	require.NoError(t, err)
	assert.Equal(t, SubmissionStateQueued, receipt.State)
	assert.Equal(t, "2024-05-01", receipt.Date)
	assert.Equal(t, 3, receipt.Summary.Total())

	waitSaved(t, sink)
	sink.mu.Lock()
	require.Len(t, sink.saved, 1)
	stored := sink.saved[0]
	sink.mu.Unlock()
	assert.Equal(t, receipt.ID, stored.ID)
	assert.Equal(t, []string{"G101", "G102", "B101"}, []string{stored.Students[0].RollNumber, stored.Students[1].RollNumber, stored.Students[2].RollNumber})
}

func TestSubmissionServiceRetriesWithoutTouchingRoster(t *testing.T) {
	attendance, _, _ := newTestAttendanceService(t)
	sink := newSinkStub(1)
	recorder := &submissionRecorder{}
	svc := NewSubmissionService(attendance, sink, nil, nil, recorder, nil, SubmissionConfig{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})
	svc.Start(context.Background())
	defer svc.Stop()

	key := keyFor(fixedNow)
	before, err := attendance.View(context.Background(), key)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), key, "")
	require.NoError(t, err)
	waitSaved(t, sink)

	after, err := attendance.View(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, before.Students, after.Students)
	assert.Eventually(t, func() bool {
		outcomes := recorder.snapshot()
		return len(outcomes) == 2 && outcomes[0] == "retrying" && outcomes[1] == "succeeded"
	}, time.Second, 10*time.Millisecond)
}

func TestSubmissionServiceRateLimited(t *testing.T) {
	attendance, _, _ := newTestAttendanceService(t)
	limiter := &limiterStub{}
	svc := NewSubmissionService(attendance, newSinkStub(0), limiter, nil, nil, nil, SubmissionConfig{})
	svc.Start(context.Background())
	defer svc.Stop()

	key := keyFor(fixedNow)
	_, err := svc.Submit(context.Background(), key, "")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), key, "")
	assert.True(t, errors.Is(err, appErrors.ErrRateLimited))
	assert.Equal(t, []string{"submit:sess", "submit:sess"}, limiter.calls)
}

func TestSubmissionServiceLimiterErrorFailsOpen(t *testing.T) {
	attendance, _, _ := newTestAttendanceService(t)
	svc := NewSubmissionService(attendance, newSinkStub(0), &limiterStub{err: errors.New("redis down")}, nil, nil, nil, SubmissionConfig{})
	svc.Start(context.Background())
	defer svc.Stop()

	_, err := svc.Submit(context.Background(), keyFor(fixedNow), "")
	assert.NoError(t, err)
}

func TestSubmissionServiceRejectsFutureDate(t *testing.T) {
	attendance, source, _ := newTestAttendanceService(t)
	limiter := &limiterStub{}
	svc := NewSubmissionService(attendance, newSinkStub(0), limiter, nil, nil, nil, SubmissionConfig{})
	svc.Start(context.Background())
	defer svc.Stop()

	_, err := svc.Submit(context.Background(), keyFor(fixedNow.AddDate(0, 0, 1)), "")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidDateGuard))
	assert.Empty(t, limiter.calls)
	assert.Zero(t, source.calls)
}

func TestSubmissionServiceCSRF(t *testing.T) {
	attendance, _, _ := newTestAttendanceService(t)
	verifier := &csrfStub{err: appErrors.ErrForbidden}
	svc := NewSubmissionService(attendance, newSinkStub(0), nil, verifier, nil, nil, SubmissionConfig{RequireCSRF: true})
	svc.Start(context.Background())
	defer svc.Stop()

	_, err := svc.Submit(context.Background(), keyFor(fixedNow), "")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Equal(t, []string{""}, verifier.tokens)

	optional := NewSubmissionService(attendance, newSinkStub(0), nil, &csrfStub{}, nil, nil, SubmissionConfig{})
	optional.Start(context.Background())
	defer optional.Stop()
	_, err = optional.Submit(context.Background(), keyFor(fixedNow), "")
	assert.NoError(t, err)
}

func TestSubmissionServiceQueueNotStarted(t *testing.T) {
	attendance, _, _ := newTestAttendanceService(t)
	recorder := &submissionRecorder{}
	svc := NewSubmissionService(attendance, newSinkStub(0), nil, nil, recorder, nil, SubmissionConfig{})

	_, err := svc.Submit(context.Background(), keyFor(fixedNow), "")
	assert.True(t, errors.Is(err, appErrors.ErrDataUnavailable))
	assert.Equal(t, []string{"failed"}, recorder.snapshot())
}

func TestSubmissionServiceRetryAfterRosterFailure(t *testing.T) {
	attendance, source, _ := newTestAttendanceService(t)
	limiter := &limiterStub{}
	sink := newSinkStub(0)
	svc := NewSubmissionService(attendance, sink, limiter, nil, nil, nil, SubmissionConfig{MinInterval: time.Minute})
	svc.Start(context.Background())
	defer svc.Stop()

	key := keyFor(fixedNow)
	source.set(nil, errors.New("timeout"))
	_, err := svc.Submit(context.Background(), key, "")
	require.True(t, errors.Is(err, appErrors.ErrDataUnavailable))
	assert.Empty(t, limiter.calls)

	source.set(sampleRoster(), nil)
	receipt, err := svc.Submit(context.Background(), key, "")
	require.NoError(t, err)
	assert.Equal(t, 3, receipt.Summary.Total())
	waitSaved(t, sink)
}

func TestSubmissionServiceQueueFailureReleasesSlot(t *testing.T) {
	attendance, _, _ := newTestAttendanceService(t)
	limiter := &limiterStub{}
	svc := NewSubmissionService(attendance, newSinkStub(0), limiter, nil, nil, nil, SubmissionConfig{MinInterval: time.Minute})

	key := keyFor(fixedNow)
	_, err := svc.Submit(context.Background(), key, "")
	require.True(t, errors.Is(err, appErrors.ErrDataUnavailable))
	assert.Equal(t, []string{"submit:sess"}, limiter.released)

	svc.Start(context.Background())
	defer svc.Stop()
	_, err = svc.Submit(context.Background(), key, "")
	assert.NoError(t, err)
}
