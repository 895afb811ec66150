package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"rentflow/internal/domain/availability"
	"rentflow/internal/domain/shared/daterange"
	"rentflow/internal/infra/config"
	"rentflow/internal/infra/storage/memory"
)

func TestLoadSeedAppliesOwnerBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.json")
	fixtures := `[
		{"id":"tent","owner_id":"o1","title":"Tent","price_per_day":30,"blocked":[{"start":"2031-06-10","end":"2031-06-12"},{"start":"2031-06-20","end":"2031-06-18"}]},
		{"id":"broken","owner_id":"","title":"No owner","price_per_day":10}
	]`
	if err := os.WriteFile(path, []byte(fixtures), 0o600); err != nil {
		t.Fatalf("write fixtures: %v", err)
	}
	t.Setenv("LISTINGS_FIXTURES", path)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	catalogue := loadSeed(config.Config{Currency: "USD"}, logger)
	if len(catalogue.listings) != 1 || catalogue.listings[0].Currency != "USD" {
		t.Fatalf("unexpected listings %+v", catalogue.listings)
	}
	if len(catalogue.blocks["tent"]) != 1 {
		t.Fatalf("expected the reversed block to be dropped, got %v", catalogue.blocks)
	}

	store := memory.NewBookingStore()
	err := catalogue.applyBlocks(context.Background(), func(_ context.Context, listingID string, r daterange.Range) error {
		store.Block(listingID, r)
		return nil
	})
	if err != nil {
		t.Fatalf("applyBlocks: %v", err)
	}
	window := daterange.Range{Start: daterange.MustParseDay("2031-06-09"), End: daterange.MustParseDay("2031-06-13")}
	entries, err := store.Availability(context.Background(), "tent", window)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	snap := availability.NewSnapshot("tent", window, entries, window.Start.Time())
	if snap.StatusOn(daterange.MustParseDay("2031-06-11")) != availability.StatusBlocked {
		t.Fatalf("seeded block not applied: %+v", entries)
	}
	if snap.StatusOn(daterange.MustParseDay("2031-06-09")) != availability.StatusAvailable {
		t.Fatalf("day outside the block marked unavailable")
	}
}
