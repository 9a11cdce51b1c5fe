package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	"github.com/noah-isme/teacher-portal-api/pkg/config"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

type sessionLifecycle interface {
	Start(ctx context.Context, email string) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Terminate(ctx context.Context, id string) error
	View(session models.Session) models.SessionView
}

// AuthConfig defines configuration for the simulated login.
type AuthConfig struct {
	Mode              string
	DemoEmail         string
	DemoPassword      string
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService issues session tokens for the portal login form.
type AuthService struct {
	sessions  sessionLifecycle
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	demoHash  []byte
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance. In demo mode the demo
// password is hashed once so it is never compared in plain text.
func NewAuthService(sessions sessionLifecycle, validate *validator.Validate, logger *zap.Logger, cfg AuthConfig) (*AuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Mode == "" {
		cfg.Mode = config.AuthModePermissive
	}
	if cfg.AccessTokenExpiry <= 0 {
		cfg.AccessTokenExpiry = 24 * time.Hour
	}
	svc := &AuthService{sessions: sessions, validator: validate, logger: logger, config: cfg, now: time.Now}
	if cfg.Mode == config.AuthModeDemo {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash demo password: %w", err)
		}
		svc.demoHash = hash
	}
	return svc, nil
}

// WithClock overrides the time source.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login checks the submitted credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = SanitizeInput(req.Email)
	req.Password = SanitizeInput(req.Password)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "email and password are required")
	}

	if !s.accepts(req) {
		s.logger.Info("login rejected", zap.String("ip", req.IP))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	session, err := s.sessions.Start(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.generateAccessToken(*session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	issuedAt := s.now().UTC()
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(expiresAt.Sub(issuedAt).Seconds()),
		Session:     s.sessions.View(*session),
		IssuedAt:    issuedAt,
	}, nil
}

// Logout terminates the session behind the token.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing session")
	}
	return s.sessions.Terminate(ctx, sessionID)
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrSessionExpired.Code, appErrors.ErrSessionExpired.Status, appErrors.ErrSessionExpired.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Authenticate validates the token and resolves the live session it names.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.SessionClaims, *models.Session, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, nil, err
	}
	return claims, session, nil
}

func (s *AuthService) accepts(req models.LoginRequest) bool {
	if s.config.Mode != config.AuthModeDemo {
		return true
	}
	if !strings.EqualFold(strings.TrimSpace(s.config.DemoEmail), req.Email) {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.demoHash, []byte(req.Password)) == nil
}

func (s *AuthService) generateAccessToken(session models.Session) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	if session.ExpiresAt.Before(expiresAt) {
		expiresAt = session.ExpiresAt
	}
	claims := &models.SessionClaims{
		SessionID: session.ID,
		Email:     session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   session.Email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
