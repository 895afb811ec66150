package policies

import (
	"context"
	"errors"
	"time"

	"rentflow/internal/domain/booking"
	"rentflow/internal/domain/shared/money"
)

var (
	// ErrPaymentNotConfigured is returned when the payment backend has no provider set up.
	ErrPaymentNotConfigured = errors.New("payments: payment provider not configured")
	ErrPaymentSession       = errors.New("payments: payment session could not be created")
)

type PaymentSessionRequest struct {
	BookingID   booking.BookingID
	ListingID   string
	Amount      money.Money
	Description string
	BearerToken string
	ExpiresAt   time.Time
}

// PaymentSession is a hosted payment page for one booking.
type PaymentSession struct {
	ID  string
	URL string
}

type PaymentSessions interface {
	Create(ctx context.Context, req PaymentSessionRequest) (PaymentSession, error)
}
