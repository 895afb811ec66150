package dto

import (
	"rentflow/internal/app/checkout"
	"rentflow/internal/domain/calendar"
	domainlistings "rentflow/internal/domain/listings"
)

type ListingSummary struct {
	ID            string  `json:"id"`
	OwnerID       string  `json:"owner_id"`
	Title         string  `json:"title"`
	PricePerDay   float64 `json:"price_per_day"`
	DepositAmount float64 `json:"deposit_amount"`
	Currency      string  `json:"currency"`
}

// CheckoutSession is the state of one booking screen.
type CheckoutSession struct {
	ID        string             `json:"id"`
	Listing   ListingSummary     `json:"listing"`
	Phase     string             `json:"phase"`
	Selection calendar.Selection `json:"selection"`
	Window    AvailabilityWindow `json:"window"`
	Quote     *Quote             `json:"quote,omitempty"`
	Booking   *PendingBooking    `json:"booking,omitempty"`
}

func MapListingSummary(l domainlistings.Listing) ListingSummary {
	return ListingSummary{
		ID:            l.ID,
		OwnerID:       l.OwnerID,
		Title:         l.Title,
		PricePerDay:   l.PricePerDay,
		DepositAmount: l.DepositAmount,
		Currency:      l.CurrencyCode(),
	}
}

func MapCheckoutSession(id string, st checkout.State, window AvailabilityWindow, quote *Quote) CheckoutSession {
	return CheckoutSession{
		ID:        id,
		Listing:   MapListingSummary(st.Listing),
		Phase:     string(st.Phase),
		Selection: st.Selection,
		Window:    window,
		Quote:     quote,
		Booking:   MapPendingBooking(st.Active),
	}
}
