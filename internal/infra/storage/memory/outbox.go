package memory

import (
	"context"
	"log/slog"
	"sync"

	appoutbox "rentflow/internal/app/outbox"
)

// Outbox keeps events in memory and logs them on flush. Used when no Mongo outbox is configured.
type Outbox struct {
	mu      sync.Mutex
	records []appoutbox.EventRecord
	logger  *slog.Logger
}

func NewOutbox(logger *slog.Logger) *Outbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{logger: logger}
}

func (o *Outbox) Add(_ context.Context, record appoutbox.EventRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	pending := o.records
	o.records = nil
	o.mu.Unlock()
	for _, rec := range pending {
		o.logger.InfoContext(ctx, "domain event", "event", rec.Name, "aggregate_id", rec.Aggregate, "key", rec.Key(), "event_id", rec.ID)
	}
	return nil
}

// Pending returns the events not yet flushed.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.records...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
