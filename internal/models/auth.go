package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds the credentials typed into the portal login form.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,max=254"`
	Password  string `json:"password" validate:"required,max=128"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and session details.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	Session     SessionView `json:"session"`
	IssuedAt    time.Time   `json:"issued_at"`
}

// Session is the server side record behind a portal login.
type Session struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	StartedAt       time.Time `json:"started_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	SuspiciousCount int       `json:"suspicious_count"`
}

// SessionView is the client facing projection of a Session.
type SessionView struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	StartedAt      time.Time `json:"started_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Warning        bool      `json:"warning"`
	WarningMessage string    `json:"warning_message,omitempty"`
}

// CSRFToken is a session bound anti-forgery token.
type CSRFToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionClaims represents the JWT payload for a portal session.
type SessionClaims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}
