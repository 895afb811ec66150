package money

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidCurrency = errors.New("money: invalid currency code")
	ErrInvalidAmount   = errors.New("money: amount is not a finite number")
)

// Money keeps amounts in integer minor units (cents) to avoid floating point issues
// once a price leaves the pricing function.
type Money struct {
	Amount   int64
	Currency string
}

// New constructs a Money value validating minimal invariants.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// FromMajor converts a major-unit amount (e.g. 172.5) to minor units, rounding half away from zero.
func FromMajor(amount float64, currency string) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, ErrInvalidAmount
	}
	return New(int64(math.Round(amount*100)), currency)
}

// Major returns the amount in major units.
func (m Money) Major() float64 {
	return float64(m.Amount) / 100
}

// Format renders the amount with exactly two decimals and no currency.
func (m Money) Format() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

func (m Money) String() string {
	return m.Format() + " " + m.Currency
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// FormatMajor is the display form of a major-unit amount: two decimals, half away from zero.
func FormatMajor(amount float64) string {
	m, err := FromMajor(amount, "XXX")
	if err != nil {
		return "0.00"
	}
	return m.Format()
}
