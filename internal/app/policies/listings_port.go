package policies

import (
	"context"

	"rentflow/internal/domain/listings"
)

type ListingReader interface {
	Listing(ctx context.Context, id string) (*listings.Listing, error)
}
