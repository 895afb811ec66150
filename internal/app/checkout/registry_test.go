package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentflow/internal/domain/listings"
)

type listingFixtures map[string]*listings.Listing

func (f listingFixtures) Listing(_ context.Context, id string) (*listings.Listing, error) {
	l, ok := f[id]
	if !ok {
		return nil, listings.ErrListingNotFound
	}
	return l, nil
}

type updatingAuth struct {
	*fakeAuth
	access, refresh string
}

func (a *updatingAuth) Update(access, refresh string) {
	a.access, a.refresh = access, refresh
}

func newRegistry(h *harness) (*Registry, *updatingAuth) {
	auth := &updatingAuth{fakeAuth: h.auth}
	r := &Registry{
		Deps:     Deps{Availability: h.avail, Conflicts: h.conf, Bookings: h.store, Payments: h.payments, Now: h.clock.Now},
		Config:   h.cfg,
		Listings: listingFixtures{"L1": {ID: "L1", OwnerID: "owner", PricePerDay: 40}},
		NewAuth:  func(Principal) TokenSession { return auth },
		IdleTTL:  time.Hour,
		Now:      h.clock.Now,
		NewID:    func() string { return "cs-1" },
	}
	return r, auth
}

func TestRegistryOpenAndLookup(t *testing.T) {
	h := newHarness()
	r, auth := newRegistry(h)
	renter := Principal{UserID: "renter", AccessToken: "a1"}

	s, err := r.Open(context.Background(), "L1", renter)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.ID != "cs-1" || s.Controller.Listing().PricePerDay != 40 || s.Controller.RenterID() != "renter" {
		t.Fatalf("unexpected session %+v", s)
	}

	if _, err := r.Lookup("cs-1", Principal{UserID: "someone"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := r.Lookup("missing", renter); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := r.Lookup("cs-1", Principal{UserID: "renter", AccessToken: "a2", RefreshToken: "r2"}); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if auth.access != "a2" || auth.refresh != "r2" {
		t.Fatalf("tokens not updated: %+v", auth)
	}
}

func TestRegistryOpenErrors(t *testing.T) {
	h := newHarness()
	r, _ := newRegistry(h)
	if _, err := r.Open(context.Background(), "L1", Principal{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := r.Open(context.Background(), "nope", Principal{UserID: "renter"}); !errors.Is(err, listings.ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound, got %v", err)
	}
}

func TestRegistrySweepEvictsIdleSessions(t *testing.T) {
	h := newHarness()
	r, _ := newRegistry(h)
	renter := Principal{UserID: "renter"}
	if _, err := r.Open(context.Background(), "L1", renter); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if n := r.Sweep(h.clock.Now().Add(30 * time.Minute)); n != 0 {
		t.Fatalf("fresh session swept")
	}
	if n := r.Sweep(h.clock.Now().Add(2 * time.Hour)); n != 1 || r.Len() != 0 {
		t.Fatalf("idle session not swept: n=%d len=%d", n, r.Len())
	}
	if _, err := r.Lookup("cs-1", renter); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after sweep, got %v", err)
	}
}
