package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rentflow/internal/domain/listings"
	"rentflow/internal/domain/shared/daterange"
	"rentflow/internal/infra/auth"
	"rentflow/internal/infra/config"
	"rentflow/internal/infra/storage/memory"
)

type listingFixture struct {
	ID            string  `json:"id"`
	OwnerID       string  `json:"owner_id"`
	Title         string  `json:"title"`
	PricePerDay   float64 `json:"price_per_day"`
	DepositAmount float64 `json:"deposit_amount"`
	Currency      string  `json:"currency"`
	// Blocked are owner-blocked ranges, inclusive.
	Blocked []blockFixture `json:"blocked"`
}

type blockFixture struct {
	Start daterange.Day `json:"start"`
	End   daterange.Day `json:"end"`
}

// seed is the catalogue of a local backend.
type seed struct {
	listings []listings.Listing
	blocks   map[string][]daterange.Range
}

// blockFunc marks a range unavailable on the owner's behalf.
type blockFunc func(ctx context.Context, listingID string, r daterange.Range) error

// loadSeed returns the listings served by local backends: the fixtures file when one
// exists, otherwise the built-in demo listings.
func loadSeed(cfg config.Config, logger *slog.Logger) seed {
	path := os.Getenv("LISTINGS_FIXTURES")
	if path == "" {
		path = defaultListingFixturesPath()
	}
	fixtures, err := readListingFixtures(path)
	if err != nil {
		logger.Warn("listing fixtures load failed, using demo listings", "error", err, "path", path)
	}
	if len(fixtures) == 0 {
		for _, l := range memory.DemoListings() {
			fixtures = append(fixtures, listingFixture{
				ID: l.ID, OwnerID: l.OwnerID, Title: l.Title,
				PricePerDay: l.PricePerDay, DepositAmount: l.DepositAmount, Currency: l.Currency,
			})
		}
	}
	out := seed{blocks: map[string][]daterange.Range{}}
	for _, fx := range fixtures {
		l := fx.listing()
		if strings.TrimSpace(l.Currency) == "" {
			l.Currency = cfg.Currency
		}
		if err := l.Validate(); err != nil {
			logger.Error("fixture invalid", "listing_id", l.ID, "error", err)
			continue
		}
		out.listings = append(out.listings, l)
		for _, b := range fx.Blocked {
			r, err := daterange.New(b.Start, b.End)
			if err != nil {
				logger.Error("fixture block invalid", "listing_id", l.ID, "error", err)
				continue
			}
			out.blocks[l.ID] = append(out.blocks[l.ID], r)
		}
	}
	return out
}

// applyBlocks writes the seeded owner blocks through block.
func (s seed) applyBlocks(ctx context.Context, block blockFunc) error {
	for listingID, ranges := range s.blocks {
		for _, r := range ranges {
			if err := block(ctx, listingID, r); err != nil {
				return fmt.Errorf("seed block %s %s: %w", listingID, r, err)
			}
		}
	}
	return nil
}

func (fx listingFixture) listing() listings.Listing {
	return listings.Listing{
		ID:            fx.ID,
		OwnerID:       fx.OwnerID,
		Title:         fx.Title,
		PricePerDay:   fx.PricePerDay,
		DepositAmount: fx.DepositAmount,
		Currency:      fx.Currency,
	}
}

func readListingFixtures(path string) ([]listingFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return fixtures, nil
}

func defaultListingFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "listings.json"),
		filepath.Join("..", "data", "listings.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}

// logDevTokens prints tokens for a local renter so the API can be tried without Supabase.
func logDevTokens(verifier *auth.Verifier, logger *slog.Logger) {
	const renter = "dev-renter"
	token, exp, err := verifier.Mint(renter, 12*time.Hour)
	if err != nil {
		logger.Warn("dev token mint failed", "error", err)
		return
	}
	logger.Info("dev renter token issued",
		"user_id", renter,
		"access_token", token,
		"refresh_token", "refresh:"+renter,
		"expires_at", exp)
}
