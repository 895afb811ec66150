package memory

import (
	"context"
	"sync"

	"rentflow/internal/app/policies"
	domainlistings "rentflow/internal/domain/listings"
)

// ListingRepository is an in-memory listing catalogue for local runs.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[string]domainlistings.Listing
}

func NewListingRepository(seed ...domainlistings.Listing) *ListingRepository {
	r := &ListingRepository{items: make(map[string]domainlistings.Listing)}
	for _, l := range seed {
		r.items[l.ID] = l
	}
	return r
}

func (r *ListingRepository) Listing(_ context.Context, id string) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	return &l, nil
}

func (r *ListingRepository) Save(l domainlistings.Listing) error {
	if err := l.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[l.ID] = l
	return nil
}

// DemoListings are the fixtures served when no backend is configured.
func DemoListings() []domainlistings.Listing {
	return []domainlistings.Listing{
		{ID: "demo-camera", OwnerID: "owner-1", Title: "Mirrorless camera kit", PricePerDay: 45, DepositAmount: 200, Currency: "USD"},
		{ID: "demo-tent", OwnerID: "owner-2", Title: "Four person tent", PricePerDay: 25, DepositAmount: 50, Currency: "USD"},
		{ID: "demo-drill", OwnerID: "owner-1", Title: "Cordless drill", PricePerDay: 12.5, DepositAmount: 0, Currency: "USD"},
	}
}

var _ policies.ListingReader = (*ListingRepository)(nil)
