package memory

import (
	"context"
	"testing"
	"time"

	domain "rentflow/internal/domain/availability"
	"rentflow/internal/domain/shared/daterange"
)

func TestAvailabilityCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	c := NewAvailabilityCache()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	window := domain.Window(daterange.DayOf(now), 30)
	snap := domain.NewSnapshot("L1", window, nil, now)
	_ = c.Set(ctx, snap, 5*time.Minute)

	if _, ok, _ := c.Get(ctx, "L1"); !ok {
		t.Fatalf("fresh snapshot missing")
	}
	now = now.Add(5 * time.Minute)
	if _, ok, _ := c.Get(ctx, "L1"); ok {
		t.Fatalf("expired snapshot served")
	}
	if n := c.Purge(now); n != 1 || c.Len() != 0 {
		t.Fatalf("purge removed %d, len %d", n, c.Len())
	}
}

func TestAvailabilityCacheDelete(t *testing.T) {
	c := NewAvailabilityCache()
	ctx := context.Background()
	now := time.Now()
	_ = c.Set(ctx, domain.NewSnapshot("L1", domain.Window(daterange.DayOf(now), 1), nil, now), time.Minute)
	_ = c.Delete(ctx, "L1")
	if _, ok, _ := c.Get(ctx, "L1"); ok {
		t.Fatalf("deleted snapshot served")
	}
}
