package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformed = errors.New("malformed csrf token")
	ErrSignature = errors.New("invalid csrf token signature")
	ErrExpired   = errors.New("csrf token expired")
)

// Signer issues HMAC tokens bound to a session id.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the time source.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	if now != nil {
		s.now = now
	}
	return s
}

// Generate returns a token of the form nonce.expiry.signature for sessionID.
func (s *Signer) Generate(sessionID string) (string, time.Time, error) {
	if sessionID == "" {
		return "", time.Time{}, fmt.Errorf("session id required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("csrf secret missing")
	}
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", time.Time{}, fmt.Errorf("generate nonce: %w", err)
	}
	expiresAt := s.now().Add(s.ttl)
	nonceHex := hex.EncodeToString(nonce)
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{nonceHex, exp, s.sign(sessionID, nonceHex, exp)}, ".")
	return token, expiresAt, nil
}

// Verify checks the signature, expiry and session binding of token.
func (s *Signer) Verify(token, sessionID string) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" {
		return ErrMalformed
	}
	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return ErrMalformed
	}
	expected := s.sign(sessionID, parts[0], parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return ErrSignature
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return ErrExpired
	}
	return nil
}

func (s *Signer) sign(sessionID, nonce, exp string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(sessionID + "|" + nonce + "|" + exp))
	return hex.EncodeToString(mac.Sum(nil))
}
