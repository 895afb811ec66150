package dto

import (
	"time"

	"rentflow/internal/app/checkout"
	domainbooking "rentflow/internal/domain/booking"
	"rentflow/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

// PendingBooking is the active booking of a checkout session.
type PendingBooking struct {
	ID              string    `json:"id"`
	ListingID       string    `json:"listing_id"`
	StartDate       string    `json:"start_date"`
	EndDate         string    `json:"end_date"`
	Status          string    `json:"status"`
	DeliveryMethod  string    `json:"delivery_method"`
	DeliveryAddress *string   `json:"delivery_address,omitempty"`
	Subtotal        float64   `json:"subtotal"`
	ServiceFee      float64   `json:"service_fee"`
	InsuranceFee    float64   `json:"insurance_fee"`
	DeliveryFee     float64   `json:"delivery_fee"`
	DepositAmount   float64   `json:"deposit_amount"`
	TotalAmount     float64   `json:"total_amount"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// BookingHandoff tells the client which payment page to open.
type BookingHandoff struct {
	BookingID        string    `json:"booking_id"`
	PaymentSessionID string    `json:"payment_session_id,omitempty"`
	URL              string    `json:"url"`
	ExpiresAt        time.Time `json:"expires_at"`
}

type PaymentOutcome struct {
	Handled   bool   `json:"handled"`
	Phase     string `json:"phase"`
	BookingID string `json:"booking_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Message   string `json:"message,omitempty"`
	Navigate  string `json:"navigate,omitempty"`
	CanRetry  bool   `json:"can_retry"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:    value.Amount,
		Currency:  value.Currency,
		Formatted: value.Format(),
	}
}

func MapPendingBooking(b *domainbooking.PendingBooking) *PendingBooking {
	if b == nil {
		return nil
	}
	return &PendingBooking{
		ID:              string(b.ID),
		ListingID:       b.ListingID,
		StartDate:       b.StartDate.String(),
		EndDate:         b.EndDate.String(),
		Status:          string(b.Status),
		DeliveryMethod:  string(b.DeliveryMethod),
		DeliveryAddress: b.DeliveryAddress,
		Subtotal:        b.Subtotal,
		ServiceFee:      b.ServiceFee,
		InsuranceFee:    b.InsuranceFee,
		DeliveryFee:     b.DeliveryFee,
		DepositAmount:   b.DepositAmount,
		TotalAmount:     b.TotalAmount,
		ExpiresAt:       b.ExpiresAt,
	}
}

func MapHandoff(h checkout.Handoff) *BookingHandoff {
	return &BookingHandoff{
		BookingID:        h.BookingID,
		PaymentSessionID: h.SessionID,
		URL:              h.URL,
		ExpiresAt:        h.ExpiresAt,
	}
}

func MapOutcome(o checkout.Outcome) PaymentOutcome {
	return PaymentOutcome{
		Handled:   o.Handled,
		Phase:     string(o.Phase),
		BookingID: o.BookingID,
		Title:     o.Title,
		Message:   o.Message,
		Navigate:  string(o.Navigate),
		CanRetry:  o.CanRetry,
	}
}
