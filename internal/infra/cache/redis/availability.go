package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domain "rentflow/internal/domain/availability"
	"rentflow/internal/domain/shared/daterange"
)

const keyPrefix = "rentflow:availability:"

// Connect parses url, sizes the pool and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	opt.PoolSize = 50
	opt.MinIdleConns = 10
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

type snapshotDoc struct {
	ListingID string                    `json:"listing_id"`
	Start     daterange.Day             `json:"start"`
	End       daterange.Day             `json:"end"`
	FetchedAt time.Time                 `json:"fetched_at"`
	Entries   []domain.DateAvailability `json:"entries"`
}

func encode(s domain.Snapshot) ([]byte, error) {
	return json.Marshal(snapshotDoc{
		ListingID: s.ListingID,
		Start:     s.Window.Start,
		End:       s.Window.End,
		FetchedAt: s.FetchedAt,
		Entries:   s.Entries(),
	})
}

func decode(raw []byte) (domain.Snapshot, error) {
	var doc snapshotDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Snapshot{}, err
	}
	window := daterange.Range{Start: doc.Start, End: doc.End}
	return domain.NewSnapshot(doc.ListingID, window, doc.Entries, doc.FetchedAt), nil
}

// AvailabilityCache shares snapshots between instances through Redis. Expiry is left to
// the server.
type AvailabilityCache struct {
	client *redis.Client
}

func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

func (c *AvailabilityCache) Get(ctx context.Context, listingID string) (domain.Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+listingID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("redis get availability: %w", err)
	}
	snap, err := decode(raw)
	if err != nil {
		// unreadable entries are dropped and refetched
		_ = c.client.Del(ctx, keyPrefix+listingID).Err()
		return domain.Snapshot{}, false, nil
	}
	return snap, true, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, snap domain.Snapshot, ttl time.Duration) error {
	raw, err := encode(snap)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+snap.ListingID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set availability: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) Delete(ctx context.Context, listingID string) error {
	if err := c.client.Del(ctx, keyPrefix+listingID).Err(); err != nil {
		return fmt.Errorf("redis del availability: %w", err)
	}
	return nil
}

// Ping is used by the readiness probe.
func (c *AvailabilityCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
