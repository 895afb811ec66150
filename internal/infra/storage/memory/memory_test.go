package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentflow/internal/app/middleware"
	appoutbox "rentflow/internal/app/outbox"
	"rentflow/internal/app/policies"
	domainavailability "rentflow/internal/domain/availability"
	domainbooking "rentflow/internal/domain/booking"
	"rentflow/internal/domain/shared/daterange"
	"rentflow/internal/domain/shared/money"
)

func rng(start, end string) daterange.Range {
	return daterange.Range{Start: daterange.MustParseDay(start), End: daterange.MustParseDay(end)}
}

func pending(t *testing.T, now time.Time, r daterange.Range) *domainbooking.PendingBooking {
	t.Helper()
	b, err := domainbooking.NewPending(domainbooking.CreateParams{
		ID: "client-id", ListingID: "L1", RenterID: "renter", OwnerID: "owner",
		Range: r, PricePerDay: 10, Now: now,
	})
	if err != nil {
		t.Fatalf("NewPending: %v", err)
	}
	return b
}

func TestBookingStoreConflictsAndAvailability(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewBookingStore()
	s.now = func() time.Time { return now }

	row, err := s.Insert(ctx, pending(t, now, rng("2025-03-10", "2025-03-12")))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if row.ID == "client-id" || row.ID == "" {
		t.Fatalf("store should assign its own id, got %q", row.ID)
	}
	s.Block("L1", rng("2025-03-12", "2025-03-14"))

	conflict, _ := s.HasConflict(ctx, "L1", rng("2025-03-08", "2025-03-10"), "")
	if !conflict {
		t.Fatalf("overlap with hold not detected")
	}
	conflict, _ = s.HasConflict(ctx, "L1", rng("2025-03-10", "2025-03-11"), row.ID)
	if conflict {
		t.Fatalf("excluded booking counted as conflict")
	}
	conflict, _ = s.HasConflict(ctx, "L1", rng("2025-03-20", "2025-03-21"), "")
	if conflict {
		t.Fatalf("free range reported as conflict")
	}

	entries, err := s.Availability(ctx, "L1", rng("2025-03-01", "2025-03-31"))
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	snap := domainavailability.NewSnapshot("L1", rng("2025-03-01", "2025-03-31"), entries, now)
	if snap.StatusOn(daterange.MustParseDay("2025-03-12")) != domainavailability.StatusBooked {
		t.Fatalf("booked should win over blocked")
	}
	if snap.StatusOn(daterange.MustParseDay("2025-03-14")) != domainavailability.StatusBlocked {
		t.Fatalf("block missing")
	}

	now = now.Add(31 * time.Minute)
	conflict, _ = s.HasConflict(ctx, "L1", rng("2025-03-10", "2025-03-10"), "")
	if conflict {
		t.Fatalf("expired hold should not conflict")
	}
}

func TestBookingStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewBookingStore()
	row, _ := s.Insert(ctx, pending(t, time.Now(), rng("2025-03-10", "2025-03-12")))
	if err := s.Delete(ctx, row.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, row.ID); !errors.Is(err, policies.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
	if _, err := s.ByID(ctx, row.ID); !errors.Is(err, policies.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestPaymentPage(t *testing.T) {
	p := &PaymentPage{BaseURL: "http://pay.local/"}
	ps, err := p.Create(context.Background(), policies.PaymentSessionRequest{BookingID: "b1", Amount: money.Must(1000, "USD")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := p.Request(ps.ID); !ok || ps.URL == "" {
		t.Fatalf("session not recorded: %+v", ps)
	}
	p.Disabled = true
	if _, err := p.Create(context.Background(), policies.PaymentSessionRequest{BookingID: "b1"}); !errors.Is(err, policies.ErrPaymentNotConfigured) {
		t.Fatalf("expected ErrPaymentNotConfigured, got %v", err)
	}
}

type fixedMinter struct{}

func (fixedMinter) Mint(userID string, ttl time.Duration) (string, time.Time, error) {
	return "token-" + userID, time.Now().Add(ttl), nil
}

func TestRefresher(t *testing.T) {
	r := Refresher{Minter: fixedMinter{}}
	s, err := r.RefreshSession(context.Background(), "refresh:u1")
	if err != nil || s.UserID != "u1" || s.Bearer() != "token-u1" {
		t.Fatalf("RefreshSession = %+v, %v", s, err)
	}
	if _, err := r.RefreshSession(context.Background(), "garbage"); !errors.Is(err, ErrUnknownRefreshToken) {
		t.Fatalf("expected ErrUnknownRefreshToken, got %v", err)
	}
}

func TestIdempotencyStoreExpires(t *testing.T) {
	now := time.Now()
	s := NewIdempotencyStore(time.Hour)
	s.now = func() time.Time { return now }
	_ = s.Save(context.Background(), middleware.IdempotencyRecord{Key: "k", OccurredAt: now})
	if _, ok, _ := s.Get(context.Background(), "k"); !ok {
		t.Fatalf("record missing")
	}
	now = now.Add(2 * time.Hour)
	if _, ok, _ := s.Get(context.Background(), "k"); ok {
		t.Fatalf("expired record returned")
	}
	s.Purge(context.Background())
	if len(s.items) != 0 {
		t.Fatalf("purge left %d records", len(s.items))
	}
}

func TestOutboxFlushDrainsPending(t *testing.T) {
	o := NewOutbox(nil)
	ctx := context.Background()
	if err := o.Add(ctx, appoutbox.EventRecord{ID: "e1", Name: "booking.pending_created", Aggregate: "b1"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := o.Pending(); len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("unexpected pending %+v", got)
	}
	if err := o.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := o.Pending(); len(got) != 0 {
		t.Fatalf("pending after flush: %+v", got)
	}
}
