package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-portal-api/internal/models"
	"github.com/noah-isme/teacher-portal-api/pkg/config"
	"github.com/noah-isme/teacher-portal-api/pkg/csrf"
	appErrors "github.com/noah-isme/teacher-portal-api/pkg/errors"
)

func newTestAuthService(t *testing.T, mode string) (*AuthService, *SessionService, *testClock) {
	t.Helper()
	clock := &testClock{now: fixedNow}
	sessions := NewSessionService(newSessionRepoStub(), csrf.NewSigner("csrf", time.Hour), nil, nil, SessionConfig{}).WithClock(clock.Now)
	svc, err := NewAuthService(sessions, nil, nil, AuthConfig{
		Mode:              mode,
		DemoEmail:         "sarah.smith@school.edu",
		DemoPassword:      "teacher123",
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "teacher-portal",
	})
	require.NoError(t, err)
	return svc.WithClock(clock.Now), sessions, clock
}

func TestAuthServiceLoginPermissive(t *testing.T) {
	svc, sessions, _ := newTestAuthService(t, config.AuthModePermissive)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "anyone@example.com", Password: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "anyone@example.com", resp.Session.Email)
	assert.False(t, resp.Session.Warning)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Session.ID, claims.SessionID)
	assert.Equal(t, "teacher-portal", claims.Issuer)

	_, err = sessions.Get(context.Background(), claims.SessionID)
	assert.NoError(t, err)
}

func TestAuthServiceLoginRejectsEmptyAfterSanitizing(t *testing.T) {
	svc, _, _ := newTestAuthService(t, config.AuthModePermissive)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "<script>alert(1)</script>", Password: "pw"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "teacher@school.edu", Password: "   "})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAuthServiceLoginDemoMode(t *testing.T) {
	svc, _, _ := newTestAuthService(t, config.AuthModeDemo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "sarah.smith@school.edu", Password: "wrong"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "other@school.edu", Password: "teacher123"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "Sarah.Smith@school.edu", Password: "teacher123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestAuthServiceAuthenticateAndLogout(t *testing.T) {
	svc, _, _ := newTestAuthService(t, config.AuthModePermissive)
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@school.edu", Password: "pw"})
	require.NoError(t, err)

	claims, session, err := svc.Authenticate(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, claims.SessionID, session.ID)

	require.NoError(t, svc.Logout(context.Background(), session.ID))

	_, _, err = svc.Authenticate(context.Background(), resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrSessionExpired))

	assert.True(t, errors.Is(svc.Logout(context.Background(), ""), appErrors.ErrUnauthorized))
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc, _, clock := newTestAuthService(t, config.AuthModePermissive)
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@school.edu", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.ValidateToken("not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.SessionClaims{SessionID: "x"})
	signed, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	clock.Advance(2 * time.Hour)
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrSessionExpired))
}
