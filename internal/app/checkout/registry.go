package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentflow/internal/app/policies"
	"rentflow/internal/domain/listings"
)

// DefaultIdleTTL is how long an untouched checkout session is kept.
const DefaultIdleTTL = 2 * time.Hour

// Principal is the authenticated renter behind a request.
type Principal struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

// TokenSession is a SessionProvider whose tokens are replaced on every request.
type TokenSession interface {
	policies.SessionProvider
	Update(access, refresh string)
}

// Session is one checkout screen hosted by the backend.
type Session struct {
	ID         string
	UserID     string
	Controller *Controller
	CreatedAt  time.Time

	auth     TokenSession
	lastSeen time.Time
}

// Registry owns the open checkout sessions.
type Registry struct {
	Deps     Deps
	Config   Config
	Listings policies.ListingReader
	NewAuth  func(p Principal) TokenSession
	IdleTTL  time.Duration
	Now      func() time.Time
	NewID    func() string
	Logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// Open starts a checkout session for listingID on behalf of p.
func (r *Registry) Open(ctx context.Context, listingID string, p Principal) (*Session, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return nil, ErrUnauthenticated
	}
	listingID = strings.TrimSpace(listingID)
	if listingID == "" || r.Listings == nil {
		return nil, listings.ErrListingNotFound
	}
	listing, err := r.Listings.Listing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, listings.ErrListingNotFound
	}
	if err := listing.Validate(); err != nil {
		return nil, err
	}

	var auth TokenSession
	if r.NewAuth != nil {
		auth = r.NewAuth(p)
	}
	now := r.now()
	s := &Session{
		ID:         r.newID(),
		UserID:     p.UserID,
		Controller: NewController(r.Deps, r.Config, *listing, p.UserID, auth),
		CreatedAt:  now,
		auth:       auth,
		lastSeen:   now,
	}

	r.mu.Lock()
	if r.sessions == nil {
		r.sessions = make(map[string]*Session)
	}
	r.sessions[s.ID] = s
	r.mu.Unlock()
	r.logger().Info("checkout session opened", "session_id", s.ID, "listing_id", listing.ID, "user_id", p.UserID)
	return s, nil
}

// Lookup returns the session id owned by p, refreshing its idle timer and tokens.
func (r *Registry) Lookup(id string, p Principal) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok && s.UserID == p.UserID {
		s.lastSeen = r.now()
	}
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.UserID != p.UserID {
		return nil, ErrForbidden
	}
	if s.auth != nil && p.AccessToken != "" {
		s.auth.Update(p.AccessToken, p.RefreshToken)
	}
	return s, nil
}

// Close removes the session id owned by p.
func (r *Registry) Close(id string, p Principal) error {
	if _, err := r.Lookup(id, p); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

// Sweep drops sessions idle for longer than IdleTTL. Sessions with a submission in flight
// are kept. Returns the number removed.
func (r *Registry) Sweep(now time.Time) int {
	ttl := r.IdleTTL
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) < ttl || s.Controller.Busy() {
			continue
		}
		stale = append(stale, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range stale {
		st := s.Controller.State()
		if st.Active != nil {
			r.logger().Warn("evicting checkout session with unpaid booking",
				"session_id", s.ID, "booking_id", st.Active.ID, "expires_at", st.Active.ExpiresAt)
			continue
		}
		r.logger().Debug("checkout session evicted", "session_id", s.ID)
	}
	return len(stale)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// SweepJob adapts Sweep to the scheduler.
func (r *Registry) SweepJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if n := r.Sweep(r.now()); n > 0 {
		r.logger().Info("checkout sessions swept", "count", n)
	}
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Registry) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

func (r *Registry) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// IsAlert reports whether err carries a user-facing alert and returns it.
func IsAlert(err error) (*Alert, bool) {
	var a *Alert
	if errors.As(err, &a) {
		return a, true
	}
	return nil, false
}
