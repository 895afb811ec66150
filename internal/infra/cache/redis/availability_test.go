package redis

import (
	"context"
	"os"
	"testing"
	"time"

	domain "rentflow/internal/domain/availability"
	"rentflow/internal/domain/shared/daterange"
)

func testSnapshot(now time.Time) domain.Snapshot {
	today := daterange.DayOf(now)
	return domain.NewSnapshot("L1", domain.Window(today, 10), []domain.DateAvailability{
		{Date: today.AddDays(2), Status: domain.StatusBooked},
		{Date: today.AddDays(3), Status: domain.StatusBlocked},
	}, now)
}

func TestSnapshotCodecKeepsStatuses(t *testing.T) {
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	raw, err := encode(testSnapshot(now))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	today := daterange.DayOf(now)
	if got.StatusOn(today.AddDays(2)) != domain.StatusBooked || got.StatusOn(today.AddDays(3)) != domain.StatusBlocked {
		t.Fatalf("statuses lost: %+v", got.Entries())
	}
	if !got.IsAvailable(today) || !got.Covers(domain.Window(today, 10)) || !got.FetchedAt.Equal(now) {
		t.Fatalf("window or timestamp lost: %+v", got)
	}
}

func TestAvailabilityCacheAgainstRedis(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	ctx := context.Background()
	client, err := Connect(ctx, url)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	c := NewAvailabilityCache(client)
	now := time.Now().UTC()
	if err := c.Set(ctx, testSnapshot(now), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	snap, ok, err := c.Get(ctx, "L1")
	if err != nil || !ok || snap.Len() != 2 {
		t.Fatalf("Get: ok=%v err=%v len=%d", ok, err, snap.Len())
	}
	if err := c.Delete(ctx, "L1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "L1"); ok {
		t.Fatalf("deleted snapshot still cached")
	}
}
