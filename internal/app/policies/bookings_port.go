package policies

import (
	"context"
	"errors"

	"rentflow/internal/domain/booking"
	"rentflow/internal/domain/shared/daterange"
)

var ErrBookingNotFound = errors.New("bookings: booking not found")

// BookingStore writes pending booking rows. Delete of a missing row returns ErrBookingNotFound.
type BookingStore interface {
	Insert(ctx context.Context, b *booking.PendingBooking) (*booking.PendingBooking, error)
	Delete(ctx context.Context, id booking.BookingID) error
}

// BookingReader is implemented by stores that can read back a row they wrote.
type BookingReader interface {
	ByID(ctx context.Context, id booking.BookingID) (*booking.PendingBooking, error)
}

// ConflictChecker asks the backend whether a range collides with existing bookings.
type ConflictChecker interface {
	HasConflict(ctx context.Context, listingID string, r daterange.Range, exclude booking.BookingID) (bool, error)
}
