package checkout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rentflow/internal/app/policies"
	"rentflow/internal/app/saga"
	"rentflow/internal/domain/booking"
)

// DefaultPropagationDelay is the fixed wait between inserting a booking and asking the
// payment backend about it.
const DefaultPropagationDelay = 1200 * time.Millisecond

// WriteBarrier waits until a freshly inserted booking is visible to the payment backend.
type WriteBarrier interface {
	Wait(ctx context.Context, id booking.BookingID) error
}

type FixedDelay struct {
	Delay time.Duration
	Sleep func(ctx context.Context, d time.Duration) error
}

func (b FixedDelay) Wait(ctx context.Context, _ booking.BookingID) error {
	sleep := b.Sleep
	if sleep == nil {
		sleep = saga.SleepContext
	}
	return sleep(ctx, b.Delay)
}

// ConfirmPoll reads the booking back until it is visible, then falls back to a fixed delay
// when it never shows up within Attempts reads.
type ConfirmPoll struct {
	Reader   policies.BookingReader
	Interval time.Duration
	Attempts int
	Fallback FixedDelay
	Sleep    func(ctx context.Context, d time.Duration) error
	Logger   *slog.Logger
}

func (b ConfirmPoll) Wait(ctx context.Context, id booking.BookingID) error {
	if b.Reader == nil {
		return b.Fallback.Wait(ctx, id)
	}
	sleep := b.Sleep
	if sleep == nil {
		sleep = saga.SleepContext
	}
	attempts := b.Attempts
	if attempts <= 0 {
		attempts = 5
	}
	interval := b.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := sleep(ctx, interval); err != nil {
				return err
			}
		}
		found, err := b.Reader.ByID(ctx, id)
		switch {
		case err == nil && found != nil:
			return nil
		case err != nil && !errors.Is(err, policies.ErrBookingNotFound):
			if b.Logger != nil {
				b.Logger.Warn("booking read-back failed", "booking_id", id, "error", err)
			}
		}
	}
	return b.Fallback.Wait(ctx, id)
}
