package booking

import (
	"errors"
	"strings"
	"time"

	"rentflow/internal/domain/pricing"
	"rentflow/internal/domain/shared/daterange"
	"rentflow/internal/domain/shared/events"
)

// HoldTTL is how long a payment_required booking holds its dates.
const HoldTTL = 30 * time.Minute

var (
	ErrListingRequired   = errors.New("booking: listing id required")
	ErrRenterRequired    = errors.New("booking: renter id required")
	ErrOwnerRequired     = errors.New("booking: owner id required")
	ErrOwnListing        = errors.New("booking: renter owns the listing")
	ErrAddressRequired   = errors.New("booking: delivery address required for delivery")
	ErrInvalidPrice      = errors.New("booking: price per day must be positive")
	ErrInvalidState      = errors.New("booking: invalid state transition")
	ErrHoldExpired       = errors.New("booking: payment hold expired")
	ErrIdentityGenerator = errors.New("booking: id required")
)

type BookingID string

type Status string

const (
	StatusPaymentRequired Status = "payment_required"
	StatusConfirmed       Status = "confirmed"
	StatusCancelled       Status = "cancelled"
)

type CompensationReason string

const (
	ReasonCancelled     CompensationReason = "payment_cancelled"
	ReasonPaymentFailed CompensationReason = "payment_failed"
	ReasonHoldExpired   CompensationReason = "hold_expired"
	ReasonNoPayment     CompensationReason = "payment_not_configured"
)

// PendingBooking is a booking row awaiting payment. Its pricing fields are a snapshot
// taken when the row is created.
type PendingBooking struct {
	ID              BookingID
	ListingID       string
	RenterID        string
	OwnerID         string
	StartDate       daterange.Day
	EndDate         daterange.Day
	PricePerDay     float64
	Subtotal        float64
	ServiceFee      float64
	InsuranceFee    float64
	DeliveryFee     float64
	DepositAmount   float64
	TotalAmount     float64
	DeliveryMethod  pricing.DeliveryMethod
	DeliveryAddress *string
	RenterMessage   *string
	Status          Status
	ExpiresAt       time.Time
	CreatedAt       time.Time
	events.EventRecorder
}

type CreateParams struct {
	ID               BookingID
	ListingID        string
	RenterID         string
	OwnerID          string
	Range            daterange.Range
	PricePerDay      float64
	DepositAmount    float64
	DeliveryMethod   pricing.DeliveryMethod
	IncludeInsurance bool
	DeliveryAddress  string
	RenterMessage    string
	Now              time.Time
	HoldTTL          time.Duration
}

func NewPending(p CreateParams) (*PendingBooking, error) {
	if p.ID == "" {
		return nil, ErrIdentityGenerator
	}
	if strings.TrimSpace(p.ListingID) == "" {
		return nil, ErrListingRequired
	}
	if strings.TrimSpace(p.RenterID) == "" {
		return nil, ErrRenterRequired
	}
	if strings.TrimSpace(p.OwnerID) == "" {
		return nil, ErrOwnerRequired
	}
	if p.RenterID == p.OwnerID {
		return nil, ErrOwnListing
	}
	if err := p.Range.Validate(); err != nil {
		return nil, err
	}
	if p.PricePerDay <= 0 {
		return nil, ErrInvalidPrice
	}
	method := p.DeliveryMethod
	if method == "" {
		method = pricing.DeliveryPickup
	}
	address := strings.TrimSpace(p.DeliveryAddress)
	if method == pricing.DeliveryDelivery && address == "" {
		return nil, ErrAddressRequired
	}
	ttl := p.HoldTTL
	if ttl <= 0 {
		ttl = HoldTTL
	}
	quote := pricing.Calculate(pricing.Input{
		PricePerDay:      p.PricePerDay,
		Range:            &p.Range,
		DeliveryMethod:   method,
		IncludeInsurance: p.IncludeInsurance,
	})
	now := p.Now.UTC()
	b := &PendingBooking{
		ID:             p.ID,
		ListingID:      p.ListingID,
		RenterID:       p.RenterID,
		OwnerID:        p.OwnerID,
		StartDate:      p.Range.Start,
		EndDate:        p.Range.End,
		PricePerDay:    quote.PricePerDay,
		Subtotal:       quote.Subtotal,
		ServiceFee:     quote.ServiceFee,
		InsuranceFee:   quote.InsuranceFee,
		DeliveryFee:    quote.DeliveryFee,
		DepositAmount:  p.DepositAmount,
		TotalAmount:    quote.Total,
		DeliveryMethod: method,
		Status:         StatusPaymentRequired,
		ExpiresAt:      now.Add(ttl),
		CreatedAt:      now,
	}
	if method == pricing.DeliveryDelivery {
		b.DeliveryAddress = &address
	}
	if msg := strings.TrimSpace(p.RenterMessage); msg != "" {
		b.RenterMessage = &msg
	}
	return b, nil
}

// Persisted records that the row was written. A non-empty id assigned by the store replaces
// the client-generated one.
func (b *PendingBooking) Persisted(id BookingID, now time.Time) {
	if id != "" {
		b.ID = id
	}
	b.Record(PendingBookingCreated{
		BookingID: b.ID,
		ListingID: b.ListingID,
		RenterID:  b.RenterID,
		StartDate: b.StartDate,
		EndDate:   b.EndDate,
		Total:     b.TotalAmount,
		ExpiresAt: b.ExpiresAt,
		At:        now.UTC(),
	})
}

func (b *PendingBooking) Range() daterange.Range {
	return daterange.Range{Start: b.StartDate, End: b.EndDate}
}

// Expired reports whether the hold lapsed at now.
func (b *PendingBooking) Expired(now time.Time) bool {
	return !b.ExpiresAt.IsZero() && !now.Before(b.ExpiresAt)
}

func (b *PendingBooking) OpenPaymentSession(sessionURL string, now time.Time) error {
	if b.Status != StatusPaymentRequired {
		return ErrInvalidState
	}
	if b.Expired(now) {
		return ErrHoldExpired
	}
	b.Record(PaymentSessionOpened{BookingID: b.ID, ListingID: b.ListingID, URL: sessionURL, At: now.UTC()})
	return nil
}

// PaymentSucceeded records that the payment page reported success. The row is confirmed
// by the payment provider's webhook, not by the renter's device.
func (b *PendingBooking) PaymentSucceeded(now time.Time) error {
	if b.Status != StatusPaymentRequired {
		return ErrInvalidState
	}
	b.Record(PaymentSucceeded{BookingID: b.ID, ListingID: b.ListingID, At: now.UTC()})
	return nil
}

// Compensate marks the booking as rolled back after its row was deleted.
func (b *PendingBooking) Compensate(reason CompensationReason, now time.Time) {
	b.Status = StatusCancelled
	b.Record(BookingCompensated{BookingID: b.ID, ListingID: b.ListingID, Reason: reason, At: now.UTC()})
}

// CompensationFailed records that the row could not be deleted and will linger until it expires.
func (b *PendingBooking) CompensationFailed(reason CompensationReason, cause error, now time.Time) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	b.Record(CompensationFailed{BookingID: b.ID, ListingID: b.ListingID, Reason: reason, Error: msg, ExpiresAt: b.ExpiresAt, At: now.UTC()})
}
