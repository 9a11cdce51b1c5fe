package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
	"github.com/noah-isme/teacher-portal-api/pkg/jobs"
)

const submissionJobType = "attendance_submission"

// Submission states reported on receipts and to metrics.
const (
	SubmissionStateQueued = "queued"
)

type submissionRoster interface {
	Guard(key models.RosterKey) error
	Snapshot(ctx context.Context, key models.RosterKey) ([]models.Student, error)
}

type submissionSink interface {
	Save(ctx context.Context, submission models.AttendanceSubmission) error
}

type rateLimiter interface {
	Allow(ctx context.Context, key string, interval time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type csrfVerifier interface {
	VerifyCSRF(ctx context.Context, sessionID, token string) error
}

type submissionMetrics interface {
	ObserveSubmission(outcome string)
}

// SubmissionConfig tunes the submission worker pool and throttle.
type SubmissionConfig struct {
	MinInterval time.Duration
	Workers     int
	MaxRetries  int
	RetryDelay  time.Duration
	RequireCSRF bool
}

// SubmissionService snapshots rosters and hands them to the sink asynchronously.
type SubmissionService struct {
	rosters submissionRoster
	sink    submissionSink
	limiter rateLimiter
	csrf    csrfVerifier
	metrics submissionMetrics
	logger  *zap.Logger
	cfg     SubmissionConfig
	queue   *jobs.Queue
	now     func() time.Time
}

// NewSubmissionService constructs the service together with its worker queue.
func NewSubmissionService(rosters submissionRoster, sink submissionSink, limiter rateLimiter, csrf csrfVerifier, metrics submissionMetrics, logger *zap.Logger, cfg SubmissionConfig) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Second
	}
	svc := &SubmissionService{
		rosters: rosters,
		sink:    sink,
		limiter: limiter,
		csrf:    csrf,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
	svc.queue = jobs.NewQueue("attendance-submissions", svc.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnOutcome:  svc.observe,
	})
	return svc
}

// WithClock overrides the time source.
func (s *SubmissionService) WithClock(now func() time.Time) *SubmissionService {
	if now != nil {
		s.now = now
	}
	return s
}

// Start launches the submission workers. Cancelling ctx aborts them without
// draining; use Stop for a graceful shutdown.
func (s *SubmissionService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop refuses new submissions and waits until the queued ones are handled.
func (s *SubmissionService) Stop() {
	s.queue.Stop()
}

// Submit queues a snapshot of the roster for persistence. The roster itself is
// never modified, whatever happens to the job.
func (s *SubmissionService) Submit(ctx context.Context, key models.RosterKey, csrfToken string) (*models.SubmissionReceipt, error) {
	if err := s.rosters.Guard(key); err != nil {
		return nil, err
	}
	if s.csrf != nil && (s.cfg.RequireCSRF || csrfToken != "") {
		if err := s.csrf.VerifyCSRF(ctx, key.SessionID, csrfToken); err != nil {
			return nil, err
		}
	}
	students, err := s.rosters.Snapshot(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.throttle(ctx, key); err != nil {
		return nil, err
	}

	submission := models.AttendanceSubmission{
		ID:          uuid.NewString(),
		SessionID:   key.SessionID,
		ClassID:     key.ClassID,
		Date:        key.Date.Format(models.DateLayout),
		SubmittedAt: s.now().UTC(),
		Students:    students,
		Summary:     Summarize(students),
	}

	job := jobs.Job{ID: submission.ID, Type: submissionJobType, Payload: submission}
	if err := s.queue.Enqueue(job); err != nil {
		s.observeOutcome(jobs.OutcomeFailed)
		s.release(ctx, key)
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrDataUnavailable.Code, appErrors.ErrDataUnavailable.Status, "submission backlog is full, please retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDataUnavailable.Code, appErrors.ErrDataUnavailable.Status, "submission queue unavailable")
	}

	s.logger.Info("attendance submission queued",
		zap.String("submission_id", submission.ID),
		zap.String("class_id", submission.ClassID),
		zap.String("date", submission.Date),
		zap.Int("students", len(students)))

	return &models.SubmissionReceipt{
		ID:          submission.ID,
		ClassID:     submission.ClassID,
		Date:        submission.Date,
		SubmittedAt: submission.SubmittedAt,
		Summary:     submission.Summary,
		State:       SubmissionStateQueued,
	}, nil
}

func (s *SubmissionService) throttle(ctx context.Context, key models.RosterKey) error {
	if s.limiter == nil {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, throttleKey(key), s.cfg.MinInterval)
	if err != nil {
		s.logger.Warn("rate limiter unavailable", zap.Error(err))
		return nil
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrRateLimited, fmt.Sprintf("please wait %s before submitting again", s.cfg.MinInterval))
	}
	return nil
}

// release hands the slot back after a submission that was never queued.
func (s *SubmissionService) release(ctx context.Context, key models.RosterKey) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Release(ctx, throttleKey(key)); err != nil {
		s.logger.Warn("rate limiter release failed", zap.Error(err))
	}
}

func throttleKey(key models.RosterKey) string {
	return "submit:" + key.SessionID
}

func (s *SubmissionService) process(ctx context.Context, job jobs.Job) error {
	submission, ok := job.Payload.(models.AttendanceSubmission)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	return s.sink.Save(ctx, submission)
}

func (s *SubmissionService) observe(job jobs.Job, outcome jobs.Outcome, err error) {
	if outcome == jobs.OutcomeSucceeded {
		s.logger.Info("attendance submission stored", zap.String("submission_id", job.ID), zap.Int("attempt", job.Attempt))
	}
	s.observeOutcome(outcome)
}

func (s *SubmissionService) observeOutcome(outcome jobs.Outcome) {
	if s.metrics != nil {
		s.metrics.ObserveSubmission(string(outcome))
	}
}
