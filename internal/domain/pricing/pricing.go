package pricing

import (
	"errors"
	"math"
	"strings"

	"rentflow/internal/domain/shared/daterange"
	"rentflow/internal/domain/shared/money"
)

const (
	ServiceFeeRate  = 0.15
	InsuranceRate   = 0.10
	DeliveryFlatFee = 20.0
)

var ErrInvalidDeliveryMethod = errors.New("pricing: unknown delivery method")

type DeliveryMethod string

const (
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryDelivery DeliveryMethod = "delivery"
)

// ParseDeliveryMethod accepts the wire value; empty means pickup.
func ParseDeliveryMethod(raw string) (DeliveryMethod, error) {
	switch DeliveryMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case "", DeliveryPickup:
		return DeliveryPickup, nil
	case DeliveryDelivery:
		return DeliveryDelivery, nil
	default:
		return "", ErrInvalidDeliveryMethod
	}
}

type Input struct {
	PricePerDay      float64
	Range            *daterange.Range
	DeliveryMethod   DeliveryMethod
	IncludeInsurance bool
}

// Breakdown is the price of a rental. Amounts are in major units and are not rounded;
// rounding happens only when displayed or charged.
type Breakdown struct {
	DurationDays int     `json:"duration_days"`
	PricePerDay  float64 `json:"price_per_day"`
	Subtotal     float64 `json:"subtotal"`
	ServiceFee   float64 `json:"service_fee"`
	InsuranceFee float64 `json:"insurance_fee"`
	DeliveryFee  float64 `json:"delivery_fee"`
	Total        float64 `json:"total"`
}

// Calculate prices a selection. Without a complete range every amount is zero except the
// delivery fee, which depends only on the delivery method.
func Calculate(in Input) Breakdown {
	b := Breakdown{PricePerDay: in.PricePerDay}
	if in.DeliveryMethod == DeliveryDelivery {
		b.DeliveryFee = DeliveryFlatFee
	}
	if in.Range == nil || in.Range.Validate() != nil || !isFinite(in.PricePerDay) {
		b.Total = b.DeliveryFee
		return b
	}
	b.DurationDays = in.Range.Days()
	b.Subtotal = in.PricePerDay * float64(b.DurationDays)
	b.ServiceFee = b.Subtotal * ServiceFeeRate
	if in.IncludeInsurance {
		b.InsuranceFee = b.Subtotal * InsuranceRate
	}
	b.Total = b.Subtotal + b.ServiceFee + b.InsuranceFee + b.DeliveryFee
	return b
}

// Charge converts the total to minor units of currency.
func (b Breakdown) Charge(currency string) (money.Money, error) {
	return money.FromMajor(b.Total, currency)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
