package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"
)

// Invalidator drops a listing's cached availability.
type Invalidator interface {
	Invalidate(ctx context.Context, listingID string) error
}

// Deduper reports whether an event id was handled before.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

type cloudEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ListingID string `json:"listing_id"`
	} `json:"data"`
}

// InvalidationHandler clears cached availability when another instance reports a booking
// change, so every instance sees new holds and released dates.
type InvalidationHandler struct {
	Cache  Invalidator
	Inbox  Deduper
	Logger *slog.Logger
}

func (h InvalidationHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return fmt.Errorf("decode cloud event: %w", err)
	}
	if !strings.HasPrefix(evt.Type, "booking.") || evt.Data.ListingID == "" {
		return nil
	}
	if h.Inbox != nil && evt.ID != "" {
		seen, err := h.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return fmt.Errorf("inbox: %w", err)
		}
		if seen {
			return nil
		}
	}
	if err := h.Cache.Invalidate(ctx, evt.Data.ListingID); err != nil {
		return err
	}
	if h.Logger != nil {
		h.Logger.Debug("availability invalidated from event", "event", evt.Type, "event_id", evt.ID, "listing_id", evt.Data.ListingID)
	}
	return nil
}
