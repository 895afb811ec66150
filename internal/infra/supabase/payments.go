package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"rentflow/internal/app/policies"
)

type paymentSessionRequest struct {
	BookingID string `json:"bookingId"`
}

type paymentSessionResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
	Error     string `json:"error"`
}

// PaymentSessions calls the create-payment-session edge function.
type PaymentSessions struct {
	Client *Client
}

func (p PaymentSessions) Create(ctx context.Context, req policies.PaymentSessionRequest) (policies.PaymentSession, error) {
	var out paymentSessionResponse
	err := p.Client.do(ctx, request{
		op:     "create payment session",
		method: http.MethodPost,
		path:   "/functions/v1/create-payment-session",
		body:   paymentSessionRequest{BookingID: string(req.BookingID)},
		bearer: req.BearerToken,
	}, &out)
	if err != nil {
		if notConfigured(err) {
			return policies.PaymentSession{}, fmt.Errorf("%w: %v", policies.ErrPaymentNotConfigured, err)
		}
		return policies.PaymentSession{}, fmt.Errorf("%w: %v", policies.ErrPaymentSession, err)
	}
	if out.Error != "" {
		if mentionsNotConfigured(out.Error) {
			return policies.PaymentSession{}, fmt.Errorf("%w: %s", policies.ErrPaymentNotConfigured, out.Error)
		}
		return policies.PaymentSession{}, fmt.Errorf("%w: %s", policies.ErrPaymentSession, out.Error)
	}
	if strings.TrimSpace(out.URL) == "" {
		return policies.PaymentSession{}, fmt.Errorf("%w: response has no url", policies.ErrPaymentSession)
	}
	return policies.PaymentSession{ID: out.SessionID, URL: out.URL}, nil
}

func notConfigured(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return mentionsNotConfigured(se.Code) || mentionsNotConfigured(se.Message) || mentionsNotConfigured(se.Body)
}

func mentionsNotConfigured(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "not configured") || strings.Contains(s, "not_configured")
}

var _ policies.PaymentSessions = PaymentSessions{}
