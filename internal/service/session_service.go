package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	"github.com/noah-isme/teacher-portal-api/pkg/csrf"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

// SessionWarningMessage is shown once a session nears its inactivity warning point.
const SessionWarningMessage = "Session will expire in 5 minutes. Please save your work."

// Session lifecycle events reported to metrics.
const (
	SessionEventStarted    = "started"
	SessionEventLogout     = "logout"
	SessionEventExpired    = "expired"
	SessionEventSuspicious = "suspicious"
)

// sessionExpiryGrace keeps a session in the store a little past its expiry so
// Get observes the expiry itself instead of a plain miss.
const sessionExpiryGrace = time.Minute

type sessionRepository interface {
	Save(ctx context.Context, session models.Session, ttl time.Duration) error
	Find(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	RecordSuspicious(ctx context.Context, id string) (int, error)
}

type sessionMetrics interface {
	ObserveSession(event string)
}

// SessionConfig tunes session lifetime and abuse handling.
type SessionConfig struct {
	TTL           time.Duration
	WarningAfter  time.Duration
	MaxSuspicious int
}

// SessionService owns the portal session lifecycle.
type SessionService struct {
	repo    sessionRepository
	signer  *csrf.Signer
	metrics sessionMetrics
	logger  *zap.Logger
	cfg     SessionConfig
	now     func() time.Time

	mu          sync.Mutex
	onTerminate []func(sessionID string)
}

// NewSessionService constructs the session service.
func NewSessionService(repo sessionRepository, signer *csrf.Signer, metrics sessionMetrics, logger *zap.Logger, cfg SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.WarningAfter <= 0 {
		cfg.WarningAfter = 19 * time.Minute
	}
	if cfg.MaxSuspicious <= 0 {
		cfg.MaxSuspicious = 5
	}
	return &SessionService{repo: repo, signer: signer, metrics: metrics, logger: logger, cfg: cfg, now: time.Now}
}

// WithClock overrides the time source.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	if now != nil {
		s.now = now
	}
	return s
}

// OnTerminate registers a callback run after a session ends for any reason.
func (s *SessionService) OnTerminate(fn func(sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTerminate = append(s.onTerminate, fn)
}

// Start opens a new session for email.
func (s *SessionService) Start(ctx context.Context, email string) (*models.Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	now := s.now().UTC()
	session := models.Session{ID: id, Email: email, StartedAt: now, ExpiresAt: now.Add(s.cfg.TTL)}
	if err := s.repo.Save(ctx, session, s.cfg.TTL+sessionExpiryGrace); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store session")
	}
	s.observe(SessionEventStarted)
	s.logger.Info("session started", zap.String("session_id", id))
	return &session, nil
}

// Get returns a live session; expired ones are removed and reported as SessionExpired.
// Sessions the store already evicted still release their per-session state.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, appErrors.ErrSessionExpired
	}
	session, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			s.runHooks(id)
			return nil, appErrors.ErrSessionExpired
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if !s.now().Before(session.ExpiresAt) {
		s.end(ctx, id, SessionEventExpired)
		return nil, appErrors.ErrSessionExpired
	}
	return session, nil
}

// Alive reports whether the store still holds id. Store errors count as alive.
func (s *SessionService) Alive(ctx context.Context, id string) bool {
	_, err := s.repo.Find(ctx, id)
	return !errors.Is(err, appErrors.ErrNotFound)
}

// View projects a session for clients, including the read-only expiry warning.
func (s *SessionService) View(session models.Session) models.SessionView {
	view := models.SessionView{
		ID:        session.ID,
		Email:     session.Email,
		StartedAt: session.StartedAt,
		ExpiresAt: session.ExpiresAt,
	}
	if s.now().Sub(session.StartedAt) >= s.cfg.WarningAfter {
		view.Warning = true
		view.WarningMessage = SessionWarningMessage
	}
	return view
}

// Terminate ends a session on logout.
func (s *SessionService) Terminate(ctx context.Context, id string) error {
	if _, err := s.repo.Find(ctx, id); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	s.end(ctx, id, SessionEventLogout)
	return nil
}

// IssueCSRF returns a token bound to the session.
func (s *SessionService) IssueCSRF(ctx context.Context, id string) (*models.CSRFToken, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue csrf token")
	}
	return &models.CSRFToken{Token: token, ExpiresAt: expiresAt}, nil
}

// VerifyCSRF checks token against the session. Each failure counts as suspicious
// activity and the session is terminated once the limit is reached.
func (s *SessionService) VerifyCSRF(ctx context.Context, id, token string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	verifyErr := s.signer.Verify(token, id)
	if verifyErr == nil {
		return nil
	}
	forbidden := appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("invalid csrf token: %v", verifyErr))

	count, err := s.repo.RecordSuspicious(ctx, id)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			s.runHooks(id)
			return appErrors.ErrSessionExpired
		}
		s.logger.Warn("failed to record suspicious activity", zap.String("session_id", id), zap.Error(err))
		return forbidden
	}
	s.logger.Warn("csrf verification failed",
		zap.String("session_id", id),
		zap.Int("suspicious_count", count),
		zap.Error(verifyErr))
	if count >= s.cfg.MaxSuspicious {
		s.end(ctx, id, SessionEventSuspicious)
		return appErrors.Clone(appErrors.ErrSessionExpired, "session terminated after repeated suspicious activity")
	}
	return forbidden
}

func (s *SessionService) end(ctx context.Context, id, event string) {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to delete session", zap.String("session_id", id), zap.Error(err))
	}
	s.observe(event)
	s.logger.Info("session ended", zap.String("session_id", id), zap.String("reason", event))
	s.runHooks(id)
}

func (s *SessionService) runHooks(id string) {
	s.mu.Lock()
	hooks := append([]func(string){}, s.onTerminate...)
	s.mu.Unlock()
	for _, hook := range hooks {
		hook(id)
	}
}

func (s *SessionService) observe(event string) {
	if s.metrics != nil {
		s.metrics.ObserveSession(event)
	}
}

func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
