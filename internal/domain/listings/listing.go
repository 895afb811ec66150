package listings

import (
	"errors"
	"strings"
)

var (
	ErrListingNotFound = errors.New("listings: listing not found")
	ErrOwnerRequired   = errors.New("listings: owner is required")
	ErrPriceRequired   = errors.New("listings: price per day must be positive")
	ErrDepositNegative = errors.New("listings: deposit must be non-negative")
)

// DefaultCurrency is used when the listing row does not name one.
const DefaultCurrency = "USD"

// Listing is the read-only part of a rental listing that booking needs.
type Listing struct {
	ID            string
	OwnerID       string
	Title         string
	PricePerDay   float64
	DepositAmount float64
	Currency      string
}

func (l *Listing) Validate() error {
	if strings.TrimSpace(l.OwnerID) == "" {
		return ErrOwnerRequired
	}
	if l.PricePerDay <= 0 {
		return ErrPriceRequired
	}
	if l.DepositAmount < 0 {
		return ErrDepositNegative
	}
	return nil
}

// CurrencyCode returns the upper-case ISO code, defaulting to DefaultCurrency.
func (l *Listing) CurrencyCode() string {
	c := strings.ToUpper(strings.TrimSpace(l.Currency))
	if len(c) != 3 {
		return DefaultCurrency
	}
	return c
}

// OwnedBy reports whether userID is the listing owner.
func (l *Listing) OwnedBy(userID string) bool {
	return userID != "" && l.OwnerID == userID
}
