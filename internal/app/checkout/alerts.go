package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrBookingInProgress = errors.New("checkout: a booking attempt is already in progress")
	ErrSessionNotFound   = errors.New("checkout: session not found")
	ErrForbidden         = errors.New("checkout: session belongs to another user")
	ErrUnauthenticated   = errors.New("checkout: renter is not signed in")
	ErrSessionStale      = errors.New("checkout: auth session unusable after refresh")
)

type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseDatesSelected    Phase = "dates_selected"
	PhaseConflictChecking Phase = "conflict_checking"
	PhaseBookingCreated   Phase = "booking_created"
	PhaseAwaitingPayment  Phase = "awaiting_payment"
	PhaseConfirmed        Phase = "confirmed"
	PhaseCancelledByUser  Phase = "cancelled_by_user"
	PhaseFailedPayment    Phase = "failed_payment"
)

type AlertKind string

const (
	AlertValidation    AlertKind = "validation"
	AlertConflict      AlertKind = "conflict"
	AlertRetryable     AlertKind = "retryable"
	AlertAuth          AlertKind = "auth"
	AlertPayment       AlertKind = "payment"
	AlertPaymentConfig AlertKind = "payment_config"
)

// Navigation tells the client where to go after an alert or outcome.
type Navigation string

const (
	NavStay     Navigation = ""
	NavBookings Navigation = "bookings"
	NavSignIn   Navigation = "sign_in"
	NavBack     Navigation = "back"
)

// Alert is a user-facing failure of a booking step.
type Alert struct {
	Kind     AlertKind
	Title    string
	Message  string
	Navigate Navigation
	Err      error
}

func (a *Alert) Error() string {
	if a.Err != nil {
		return fmt.Sprintf("%s: %s: %v", a.Kind, a.Title, a.Err)
	}
	return fmt.Sprintf("%s: %s", a.Kind, a.Title)
}

func (a *Alert) Unwrap() error { return a.Err }

func alert(kind AlertKind, title, message string, err error) *Alert {
	return &Alert{Kind: kind, Title: title, Message: message, Err: err}
}

// Outcome is the result of a payment callback.
type Outcome struct {
	Handled   bool       `json:"handled"`
	Phase     Phase      `json:"phase"`
	BookingID string     `json:"booking_id,omitempty"`
	Title     string     `json:"title,omitempty"`
	Message   string     `json:"message,omitempty"`
	Navigate  Navigation `json:"navigate,omitempty"`
	CanRetry  bool       `json:"can_retry"`
}
