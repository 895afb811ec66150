package dto

import (
	"rentflow/internal/domain/pricing"
	"rentflow/internal/domain/shared/money"
)

// Quote is a price breakdown with display strings.
type Quote struct {
	pricing.Breakdown
	Currency  string            `json:"currency"`
	Formatted map[string]string `json:"formatted"`
}

func MapQuote(b pricing.Breakdown, currency string) Quote {
	return Quote{
		Breakdown: b,
		Currency:  currency,
		Formatted: map[string]string{
			"price_per_day": money.FormatMajor(b.PricePerDay),
			"subtotal":      money.FormatMajor(b.Subtotal),
			"service_fee":   money.FormatMajor(b.ServiceFee),
			"insurance_fee": money.FormatMajor(b.InsuranceFee),
			"delivery_fee":  money.FormatMajor(b.DeliveryFee),
			"total":         money.FormatMajor(b.Total),
		},
	}
}
