package auth

import (
	"errors"
	"strings"
	"time"
)

// StaleSkew is how close to expiry an access token is treated as already expired.
const StaleSkew = 30 * time.Second

var (
	ErrTokenRequired   = errors.New("auth: token is required")
	ErrSessionNotFound = errors.New("auth: session not found")
	ErrRefreshFailed   = errors.New("auth: session refresh failed")
)

type Token string

// Session is the renter's authenticated session as held by the client.
type Session struct {
	AccessToken  Token
	RefreshToken Token
	UserID       string
	ExpiresAt    time.Time
}

func NewSession(access, refresh, userID string, expiresAt time.Time) (*Session, error) {
	access = strings.TrimSpace(access)
	if access == "" {
		return nil, ErrTokenRequired
	}
	return &Session{
		AccessToken:  Token(access),
		RefreshToken: Token(strings.TrimSpace(refresh)),
		UserID:       userID,
		ExpiresAt:    expiresAt.UTC(),
	}, nil
}

// Usable reports whether the access token can be presented at at. A session without a
// known expiry is trusted until the server rejects it.
func (s *Session) Usable(at time.Time) bool {
	if s == nil || strings.TrimSpace(string(s.AccessToken)) == "" {
		return false
	}
	if s.ExpiresAt.IsZero() {
		return true
	}
	return at.Add(StaleSkew).Before(s.ExpiresAt)
}

func (s *Session) Bearer() string {
	if s == nil {
		return ""
	}
	return string(s.AccessToken)
}
