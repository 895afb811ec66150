package memory

import (
	"context"
	"sync"
	"time"

	domain "rentflow/internal/domain/availability"
)

type entry struct {
	snap      domain.Snapshot
	expiresAt time.Time
}

// AvailabilityCache keeps snapshots in process memory until their TTL lapses.
type AvailabilityCache struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time
}

func NewAvailabilityCache() *AvailabilityCache {
	return &AvailabilityCache{items: make(map[string]entry), now: time.Now}
}

func (c *AvailabilityCache) Get(_ context.Context, listingID string) (domain.Snapshot, bool, error) {
	c.mu.RLock()
	e, ok := c.items[listingID]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return domain.Snapshot{}, false, nil
	}
	return e.snap, true, nil
}

func (c *AvailabilityCache) Set(_ context.Context, snap domain.Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	c.items[snap.ListingID] = entry{snap: snap, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *AvailabilityCache) Delete(_ context.Context, listingID string) error {
	c.mu.Lock()
	delete(c.items, listingID)
	c.mu.Unlock()
	return nil
}

// Purge drops expired snapshots and returns how many were removed.
func (c *AvailabilityCache) Purge(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, id)
			n++
		}
	}
	return n
}

// PurgeJob adapts Purge to the scheduler.
func (c *AvailabilityCache) PurgeJob(context.Context) {
	c.Purge(c.now())
}

func (c *AvailabilityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
