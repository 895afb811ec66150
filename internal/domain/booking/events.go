package booking

import (
	"time"

	"rentflow/internal/domain/shared/daterange"
)

// Booking events are keyed by listing: every one of them changes what the listing's
// calendar shows, and consumers invalidate availability per listing.

type PendingBookingCreated struct {
	BookingID BookingID     `json:"booking_id"`
	ListingID string        `json:"listing_id"`
	RenterID  string        `json:"renter_id"`
	StartDate daterange.Day `json:"start_date"`
	EndDate   daterange.Day `json:"end_date"`
	Total     float64       `json:"total_amount"`
	ExpiresAt time.Time     `json:"expires_at"`
	At        time.Time     `json:"occurred_at"`
}

func (e PendingBookingCreated) EventName() string     { return "booking.pending_created" }
func (e PendingBookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e PendingBookingCreated) OccurredAt() time.Time { return e.At }
func (e PendingBookingCreated) PartitionKey() string  { return e.ListingID }

type PaymentSessionOpened struct {
	BookingID BookingID `json:"booking_id"`
	ListingID string    `json:"listing_id"`
	URL       string    `json:"url"`
	At        time.Time `json:"occurred_at"`
}

func (e PaymentSessionOpened) EventName() string     { return "booking.payment_session_opened" }
func (e PaymentSessionOpened) AggregateID() string   { return string(e.BookingID) }
func (e PaymentSessionOpened) OccurredAt() time.Time { return e.At }
func (e PaymentSessionOpened) PartitionKey() string  { return e.ListingID }

type PaymentSucceeded struct {
	BookingID BookingID `json:"booking_id"`
	ListingID string    `json:"listing_id"`
	At        time.Time `json:"occurred_at"`
}

func (e PaymentSucceeded) EventName() string     { return "booking.payment_succeeded" }
func (e PaymentSucceeded) AggregateID() string   { return string(e.BookingID) }
func (e PaymentSucceeded) OccurredAt() time.Time { return e.At }
func (e PaymentSucceeded) PartitionKey() string  { return e.ListingID }

type BookingCompensated struct {
	BookingID BookingID          `json:"booking_id"`
	ListingID string             `json:"listing_id"`
	Reason    CompensationReason `json:"reason"`
	At        time.Time          `json:"occurred_at"`
}

func (e BookingCompensated) EventName() string     { return "booking.compensated" }
func (e BookingCompensated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompensated) OccurredAt() time.Time { return e.At }
func (e BookingCompensated) PartitionKey() string  { return e.ListingID }

type CompensationFailed struct {
	BookingID BookingID          `json:"booking_id"`
	ListingID string             `json:"listing_id"`
	Reason    CompensationReason `json:"reason"`
	Error     string             `json:"error"`
	ExpiresAt time.Time          `json:"expires_at"`
	At        time.Time          `json:"occurred_at"`
}

func (e CompensationFailed) EventName() string     { return "booking.compensation_failed" }
func (e CompensationFailed) AggregateID() string   { return string(e.BookingID) }
func (e CompensationFailed) OccurredAt() time.Time { return e.At }
func (e CompensationFailed) PartitionKey() string  { return e.ListingID }
