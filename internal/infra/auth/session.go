package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"rentflow/internal/app/checkout"
	domainauth "rentflow/internal/domain/auth"
)

// Refresher exchanges a refresh token for a new session.
type Refresher interface {
	RefreshSession(ctx context.Context, refreshToken string) (*domainauth.Session, error)
}

// TokenSession holds the renter's latest token pair for one checkout session.
type TokenSession struct {
	mu        sync.Mutex
	access    string
	refresh   string
	refresher Refresher
}

func NewTokenSession(access, refresh string, r Refresher) *TokenSession {
	return &TokenSession{access: strings.TrimSpace(access), refresh: strings.TrimSpace(refresh), refresher: r}
}

func (s *TokenSession) Session(context.Context) (*domainauth.Session, error) {
	s.mu.Lock()
	access, refresh := s.access, s.refresh
	s.mu.Unlock()
	if access == "" {
		return nil, domainauth.ErrSessionNotFound
	}
	return SessionFromTokens(access, refresh)
}

func (s *TokenSession) Refresh(ctx context.Context) (*domainauth.Session, error) {
	s.mu.Lock()
	refresh := s.refresh
	s.mu.Unlock()
	if refresh == "" || s.refresher == nil {
		return nil, domainauth.ErrRefreshFailed
	}
	next, err := s.refresher.RefreshSession(ctx, refresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainauth.ErrRefreshFailed, err)
	}
	s.Update(string(next.AccessToken), string(next.RefreshToken))
	return next, nil
}

// Update replaces the tokens with those presented by the client. An empty refresh token
// keeps the previous one.
func (s *TokenSession) Update(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if access = strings.TrimSpace(access); access != "" {
		s.access = access
	}
	if refresh = strings.TrimSpace(refresh); refresh != "" {
		s.refresh = refresh
	}
}

// Factory returns a constructor for the checkout registry.
func Factory(r Refresher) func(p checkout.Principal) checkout.TokenSession {
	return func(p checkout.Principal) checkout.TokenSession {
		return NewTokenSession(p.AccessToken, p.RefreshToken, r)
	}
}

var _ checkout.TokenSession = (*TokenSession)(nil)
