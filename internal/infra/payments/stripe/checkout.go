package stripe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"rentflow/internal/app/policies"
)

// Checkout creates Stripe Checkout Sessions directly, bypassing the edge function.
type Checkout struct {
	successURL string
	cancelURL  string
	logger     *slog.Logger
	newSession func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type Options struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
	Logger     *slog.Logger
}

// NewCheckout returns an adapter. Without a secret key every Create reports
// ErrPaymentNotConfigured.
func NewCheckout(opts Options) *Checkout {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Checkout{successURL: opts.SuccessURL, cancelURL: opts.CancelURL, logger: logger.With("component", "stripe")}
	if key := strings.TrimSpace(opts.SecretKey); key != "" {
		client := session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: key}
		c.newSession = client.New
	}
	return c
}

func (c *Checkout) Create(ctx context.Context, req policies.PaymentSessionRequest) (policies.PaymentSession, error) {
	if c.newSession == nil || c.successURL == "" || c.cancelURL == "" {
		return policies.PaymentSession{}, policies.ErrPaymentNotConfigured
	}
	if req.BookingID == "" || req.Amount.Amount <= 0 {
		return policies.PaymentSession{}, fmt.Errorf("%w: booking id and amount required", policies.ErrPaymentSession)
	}
	sess, err := c.newSession(c.params(ctx, req))
	if err != nil {
		c.logger.Warn("stripe checkout session failed", "booking_id", req.BookingID, "err", err)
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusUnauthorized {
			return policies.PaymentSession{}, fmt.Errorf("%w: %v", policies.ErrPaymentNotConfigured, err)
		}
		return policies.PaymentSession{}, fmt.Errorf("%w: %v", policies.ErrPaymentSession, err)
	}
	if sess == nil || sess.URL == "" {
		return policies.PaymentSession{}, fmt.Errorf("%w: checkout session has no url", policies.ErrPaymentSession)
	}
	return policies.PaymentSession{ID: sess.ID, URL: sess.URL}, nil
}

func (c *Checkout) params(ctx context.Context, req policies.PaymentSessionRequest) *stripe.CheckoutSessionParams {
	name := req.Description
	if name == "" {
		name = "Rental booking " + string(req.BookingID)
	}
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Amount.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
					UnitAmount: stripe.Int64(req.Amount.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(withBooking(c.successURL, string(req.BookingID))),
		CancelURL:         stripe.String(withBooking(c.cancelURL, string(req.BookingID))),
		ClientReferenceID: stripe.String(string(req.BookingID)),
	}
	params.Context = ctx
	params.AddMetadata("booking_id", string(req.BookingID))
	params.AddMetadata("listing_id", req.ListingID)
	return params
}

func withBooking(raw, id string) string {
	return strings.ReplaceAll(raw, "{BOOKING_ID}", id)
}

var _ policies.PaymentSessions = (*Checkout)(nil)
