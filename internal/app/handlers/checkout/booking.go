package checkout

import (
	"context"
	"fmt"

	"rentflow/internal/app/checkout"
	"rentflow/internal/app/commands"
	"rentflow/internal/app/dto"
)

const (
	startBookingKey    = "checkout.start_booking"
	paymentCallbackKey = "checkout.payment_callback"
)

type StartBookingCommand struct {
	SessionID       string `validate:"required"`
	Options         QuoteOptions
	Actor           checkout.Principal
	IdempotencyKeyV string `validate:"max=255"`
}

func (c StartBookingCommand) Key() string                   { return startBookingKey }
func (c StartBookingCommand) Principal() checkout.Principal { return c.Actor }

// IdempotencyKey scopes the client key to the session so keys cannot collide across renters.
func (c StartBookingCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return c.SessionID + ":" + c.IdempotencyKeyV
}

func (c StartBookingCommand) ResultPrototype() any { return &dto.BookingHandoff{} }

type StartBookingHandler struct {
	Sessions Sessions
}

func (h *StartBookingHandler) Handle(ctx context.Context, cmd StartBookingCommand) (*dto.BookingHandoff, error) {
	s, err := h.Sessions.Lookup(cmd.SessionID, cmd.Actor)
	if err != nil {
		return nil, err
	}
	opts, err := cmd.Options.options()
	if err != nil {
		return nil, err
	}
	handoff, err := s.Controller.StartBooking(ctx, opts)
	if err != nil {
		return nil, err
	}
	return dto.MapHandoff(handoff), nil
}

type PaymentResult string

const (
	PaymentSuccess PaymentResult = "success"
	PaymentCancel  PaymentResult = "cancel"
	PaymentError   PaymentResult = "error"
)

// PaymentCallbackCommand carries the result the payment page redirected back with.
type PaymentCallbackCommand struct {
	SessionID string        `validate:"required"`
	Result    PaymentResult `validate:"required,oneof=success cancel error"`
	Message   string        `validate:"max=500"`
	Actor     checkout.Principal
}

func (c PaymentCallbackCommand) Key() string                   { return paymentCallbackKey }
func (c PaymentCallbackCommand) Principal() checkout.Principal { return c.Actor }

type PaymentCallbackHandler struct {
	Sessions Sessions
}

func (h *PaymentCallbackHandler) Handle(ctx context.Context, cmd PaymentCallbackCommand) (dto.PaymentOutcome, error) {
	s, err := h.Sessions.Lookup(cmd.SessionID, cmd.Actor)
	if err != nil {
		return dto.PaymentOutcome{}, err
	}
	var out checkout.Outcome
	switch cmd.Result {
	case PaymentSuccess:
		out, err = s.Controller.PaymentSucceeded(ctx)
	case PaymentCancel:
		out, err = s.Controller.PaymentCancelled(ctx)
	case PaymentError:
		out, err = s.Controller.PaymentFailed(ctx, cmd.Message)
	default:
		return dto.PaymentOutcome{}, fmt.Errorf("%w: payment result %q", commands.ErrInvalidCommand, cmd.Result)
	}
	if err != nil {
		return dto.PaymentOutcome{}, err
	}
	return dto.MapOutcome(out), nil
}

var (
	_ commands.Handler[StartBookingCommand, *dto.BookingHandoff]   = (*StartBookingHandler)(nil)
	_ commands.Handler[PaymentCallbackCommand, dto.PaymentOutcome] = (*PaymentCallbackHandler)(nil)
)
