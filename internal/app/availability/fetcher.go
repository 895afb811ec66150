package availability

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"rentflow/internal/app/policies"
	domain "rentflow/internal/domain/availability"
	"rentflow/internal/domain/shared/daterange"
)

// DefaultTTL is how long a fetched snapshot is served from cache.
const DefaultTTL = 5 * time.Minute

// DefaultFetchTimeout bounds one shared source read.
const DefaultFetchTimeout = 10 * time.Second

var ErrSourceMissing = errors.New("availability: source not configured")

// Cache stores one snapshot per listing.
type Cache interface {
	Get(ctx context.Context, listingID string) (domain.Snapshot, bool, error)
	Set(ctx context.Context, snap domain.Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, listingID string) error
}

// Fetcher reads listing availability through a cache. Reads never fail: when the source
// is unreachable the caller gets an empty, degraded snapshot and the failure is logged.
//
// Concurrent misses for the same listing and window share one source read. Invalidate
// moves the listing to a new generation: reads started before it neither join later
// callers nor write their snapshot to the cache.
type Fetcher struct {
	Source       policies.AvailabilitySource
	Cache        Cache
	TTL          time.Duration
	FetchTimeout time.Duration
	HorizonDays  int
	Now          func() time.Time
	Logger       *slog.Logger

	group       singleflight.Group
	mu          sync.Mutex
	generations map[string]uint64
}

// Get returns the availability of listingID over [from, to], clamped to the selectable window.
// Zero bounds select the whole window.
func (f *Fetcher) Get(ctx context.Context, listingID string, from, to daterange.Day) domain.Snapshot {
	now := f.now()
	listingID = strings.TrimSpace(listingID)
	window, err := domain.ClampWindow(from, to, daterange.DayOf(now), f.HorizonDays)
	if listingID == "" || err != nil {
		if err == nil {
			err = domain.ErrListingRequired
		}
		f.logWarn("availability request rejected", listingID, err)
		return domain.Degraded(listingID, window, now)
	}

	if snap, ok := f.cached(ctx, listingID, window, now); ok {
		return snap
	}

	gen := f.generation(listingID)
	key := listingID + "#" + strconv.FormatUint(gen, 10) + "|" + window.String()
	ch := f.group.DoChan(key, func() (any, error) {
		// Joined callers must not lose the read when the first one goes away.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.fetchTimeout())
		defer cancel()
		return f.fetch(fetchCtx, listingID, window, now, gen)
	})
	select {
	case <-ctx.Done():
		f.logWarn("availability fetch abandoned", listingID, ctx.Err())
		return domain.Degraded(listingID, window, now)
	case res := <-ch:
		if res.Err != nil {
			f.logWarn("availability fetch failed", listingID, res.Err)
			return domain.Degraded(listingID, window, now)
		}
		return res.Val.(domain.Snapshot)
	}
}

// Invalidate drops the cached snapshot of listingID so the next Get reads the source.
func (f *Fetcher) Invalidate(ctx context.Context, listingID string) error {
	if listingID == "" {
		return nil
	}
	f.bump(listingID)
	if f.Cache == nil {
		return nil
	}
	if err := f.Cache.Delete(ctx, listingID); err != nil {
		f.logWarn("availability invalidation failed", listingID, err)
		return err
	}
	if f.Logger != nil {
		f.Logger.Debug("availability invalidated", "listing_id", listingID)
	}
	return nil
}

func (f *Fetcher) cached(ctx context.Context, listingID string, window daterange.Range, now time.Time) (domain.Snapshot, bool) {
	if f.Cache == nil {
		return domain.Snapshot{}, false
	}
	snap, ok, err := f.Cache.Get(ctx, listingID)
	if err != nil {
		f.logWarn("availability cache read failed", listingID, err)
		return domain.Snapshot{}, false
	}
	if !ok || !snap.Covers(window) {
		return domain.Snapshot{}, false
	}
	if !now.Before(snap.FetchedAt.Add(f.ttl())) {
		return domain.Snapshot{}, false
	}
	return snap, true
}

func (f *Fetcher) fetch(ctx context.Context, listingID string, window daterange.Range, now time.Time, gen uint64) (domain.Snapshot, error) {
	if f.Source == nil {
		return domain.Snapshot{}, ErrSourceMissing
	}
	entries, err := f.Source.Availability(ctx, listingID, window)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap := domain.NewSnapshot(listingID, window, entries, now)
	f.store(ctx, snap, gen)
	return snap, nil
}

// store caches snap unless the listing was invalidated since gen. The second check undoes
// a write that raced with Invalidate's delete.
func (f *Fetcher) store(ctx context.Context, snap domain.Snapshot, gen uint64) {
	if f.Cache == nil || f.generation(snap.ListingID) != gen {
		return
	}
	if err := f.Cache.Set(ctx, snap, f.ttl()); err != nil {
		f.logWarn("availability cache write failed", snap.ListingID, err)
		return
	}
	if f.generation(snap.ListingID) != gen {
		if err := f.Cache.Delete(ctx, snap.ListingID); err != nil {
			f.logWarn("availability cache rollback failed", snap.ListingID, err)
		}
	}
}

func (f *Fetcher) generation(listingID string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generations[listingID]
}

func (f *Fetcher) bump(listingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generations == nil {
		f.generations = make(map[string]uint64)
	}
	f.generations[listingID]++
}

func (f *Fetcher) fetchTimeout() time.Duration {
	if f.FetchTimeout <= 0 {
		return DefaultFetchTimeout
	}
	return f.FetchTimeout
}

func (f *Fetcher) ttl() time.Duration {
	if f.TTL <= 0 {
		return DefaultTTL
	}
	return f.TTL
}

func (f *Fetcher) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *Fetcher) logWarn(msg, listingID string, err error) {
	if f.Logger == nil {
		return
	}
	f.Logger.Warn(msg, "listing_id", listingID, "error", err)
}
