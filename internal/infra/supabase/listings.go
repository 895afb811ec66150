package supabase

import (
	"context"
	"net/http"
	"net/url"

	"rentflow/internal/app/policies"
	"rentflow/internal/domain/listings"
)

type listingRow struct {
	ID            string  `json:"id"`
	OwnerID       string  `json:"owner_id"`
	Title         string  `json:"title"`
	PricePerDay   float64 `json:"price_per_day"`
	DepositAmount float64 `json:"deposit_amount"`
	Currency      string  `json:"currency"`
}

type ListingReader struct {
	Client *Client
}

func (r ListingReader) Listing(ctx context.Context, id string) (*listings.Listing, error) {
	var rows []listingRow
	err := r.Client.do(ctx, request{
		op:      "get listing",
		circuit: circuitRead,
		method:  http.MethodGet,
		path:    "/rest/v1/listings",
		query: url.Values{
			"id":     {"eq." + id},
			"select": {"id,owner_id,title,price_per_day,deposit_amount,currency"},
			"limit":  {"1"},
		},
	}, &rows)
	if err != nil {
		if IsNotFound(err) {
			return nil, listings.ErrListingNotFound
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, listings.ErrListingNotFound
	}
	row := rows[0]
	return &listings.Listing{
		ID:            row.ID,
		OwnerID:       row.OwnerID,
		Title:         row.Title,
		PricePerDay:   row.PricePerDay,
		DepositAmount: row.DepositAmount,
		Currency:      row.Currency,
	}, nil
}

var _ policies.ListingReader = ListingReader{}
