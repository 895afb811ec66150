package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	domainauth "rentflow/internal/domain/auth"
)

var ErrUnknownRefreshToken = errors.New("memory: unknown refresh token")

// Minter signs access tokens.
type Minter interface {
	Mint(userID string, ttl time.Duration) (string, time.Time, error)
}

// Refresher issues new access tokens for refresh tokens of the form "refresh:<user id>".
type Refresher struct {
	Minter Minter
	TTL    time.Duration
}

func (r Refresher) RefreshSession(_ context.Context, refreshToken string) (*domainauth.Session, error) {
	userID, ok := strings.CutPrefix(strings.TrimSpace(refreshToken), "refresh:")
	if !ok || userID == "" || r.Minter == nil {
		return nil, ErrUnknownRefreshToken
	}
	ttl := r.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	access, exp, err := r.Minter.Mint(userID, ttl)
	if err != nil {
		return nil, err
	}
	return domainauth.NewSession(access, refreshToken, userID, exp)
}
