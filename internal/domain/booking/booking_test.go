package booking

import (
	"errors"
	"math"
	"testing"
	"time"

	"rentflow/internal/domain/pricing"
	"rentflow/internal/domain/shared/daterange"
)

func baseParams() CreateParams {
	return CreateParams{
		ID:             "B1",
		ListingID:      "L1",
		RenterID:       "renter",
		OwnerID:        "owner",
		Range:          daterange.Range{Start: daterange.MustParseDay("2025-01-10"), End: daterange.MustParseDay("2025-01-12")},
		PricePerDay:    50,
		DepositAmount:  100,
		DeliveryMethod: pricing.DeliveryPickup,
		Now:            time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewPendingSnapshotsPricing(t *testing.T) {
	p := baseParams()
	p.DeliveryMethod = pricing.DeliveryDelivery
	p.DeliveryAddress = " 1 Main St "
	p.IncludeInsurance = true
	b, err := NewPending(p)
	if err != nil {
		t.Fatalf("NewPending: %v", err)
	}
	if b.Status != StatusPaymentRequired {
		t.Fatalf("status = %s", b.Status)
	}
	if want := p.Now.Add(30 * time.Minute); !b.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %s, want %s", b.ExpiresAt, want)
	}
	if b.Subtotal != 150 || b.DeliveryFee != 20 || math.Abs(b.InsuranceFee-15) > 1e-9 || b.DepositAmount != 100 {
		t.Fatalf("unexpected amounts %+v", b)
	}
	if b.TotalAmount != b.Subtotal+b.ServiceFee+b.InsuranceFee+b.DeliveryFee {
		t.Fatalf("total mismatch %+v", b)
	}
	if b.DeliveryAddress == nil || *b.DeliveryAddress != "1 Main St" {
		t.Fatalf("address not trimmed: %v", b.DeliveryAddress)
	}
	if b.RenterMessage != nil {
		t.Fatalf("empty message should be nil")
	}
	if len(b.PendingEvents()) != 0 {
		t.Fatalf("no events before the row is persisted")
	}
	b.Persisted("row-1", p.Now)
	evs := b.PendingEvents()
	if len(evs) != 1 || evs[0].EventName() != "booking.pending_created" || evs[0].AggregateID() != "row-1" {
		t.Fatalf("unexpected events %v", evs)
	}
	if b.ID != "row-1" {
		t.Fatalf("store id not adopted: %s", b.ID)
	}
}

func TestNewPendingValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateParams)
		want   error
	}{
		{"own listing", func(p *CreateParams) { p.RenterID = p.OwnerID }, ErrOwnListing},
		{"no renter", func(p *CreateParams) { p.RenterID = "" }, ErrRenterRequired},
		{"no owner", func(p *CreateParams) { p.OwnerID = "" }, ErrOwnerRequired},
		{"no listing", func(p *CreateParams) { p.ListingID = " " }, ErrListingRequired},
		{"delivery without address", func(p *CreateParams) { p.DeliveryMethod = pricing.DeliveryDelivery }, ErrAddressRequired},
		{"reversed range", func(p *CreateParams) { p.Range.Start, p.Range.End = p.Range.End, p.Range.Start }, daterange.ErrInvalidRange},
		{"free listing", func(p *CreateParams) { p.PricePerDay = 0 }, ErrInvalidPrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := baseParams()
			tc.mutate(&p)
			if _, err := NewPending(p); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestOpenPaymentSessionAfterExpiry(t *testing.T) {
	b, err := NewPending(baseParams())
	if err != nil {
		t.Fatalf("NewPending: %v", err)
	}
	if err := b.OpenPaymentSession("https://pay", b.ExpiresAt); !errors.Is(err, ErrHoldExpired) {
		t.Fatalf("expected ErrHoldExpired, got %v", err)
	}
	if err := b.OpenPaymentSession("https://pay", b.ExpiresAt.Add(-time.Second)); err != nil {
		t.Fatalf("open before expiry: %v", err)
	}
}

func TestCompensate(t *testing.T) {
	b, _ := NewPending(baseParams())
	b.ClearEvents()
	b.Compensate(ReasonCancelled, time.Now())
	if b.Status != StatusCancelled {
		t.Fatalf("status = %s", b.Status)
	}
	if err := b.PaymentSucceeded(time.Now()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after compensation, got %v", err)
	}
	evs := b.Drain()
	if len(evs) != 1 || evs[0].EventName() != "booking.compensated" {
		t.Fatalf("unexpected events %v", evs)
	}
}
