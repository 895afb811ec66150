package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"rentflow/internal/app/policies"
	"rentflow/internal/domain/listings"
)

type listingRow struct {
	ID            string  `db:"id"`
	OwnerID       string  `db:"owner_id"`
	Title         string  `db:"title"`
	PricePerDay   float64 `db:"price_per_day"`
	DepositAmount float64 `db:"deposit_amount"`
	Currency      string  `db:"currency"`
}

type ListingRepository struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) Listing(ctx context.Context, id string) (*listings.Listing, error) {
	var row listingRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, owner_id, title, price_per_day, deposit_amount, currency FROM listings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, listings.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return &listings.Listing{
		ID:            row.ID,
		OwnerID:       row.OwnerID,
		Title:         row.Title,
		PricePerDay:   row.PricePerDay,
		DepositAmount: row.DepositAmount,
		Currency:      row.Currency,
	}, nil
}

// Save upserts a listing row.
func (r *ListingRepository) Save(ctx context.Context, l listings.Listing) error {
	_, err := r.db.NamedExecContext(ctx, `
INSERT INTO listings (id, owner_id, title, price_per_day, deposit_amount, currency)
VALUES (:id, :owner_id, :title, :price_per_day, :deposit_amount, :currency)
ON CONFLICT (id) DO UPDATE SET owner_id = EXCLUDED.owner_id, title = EXCLUDED.title,
    price_per_day = EXCLUDED.price_per_day, deposit_amount = EXCLUDED.deposit_amount, currency = EXCLUDED.currency`,
		listingRow{ID: l.ID, OwnerID: l.OwnerID, Title: l.Title, PricePerDay: l.PricePerDay, DepositAmount: l.DepositAmount, Currency: l.CurrencyCode()})
	if err != nil {
		return fmt.Errorf("save listing: %w", err)
	}
	return nil
}

var _ policies.ListingReader = (*ListingRepository)(nil)
