package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"

	"rentflow/internal/domain/shared/events"
)

var ErrInvalidRecord = errors.New("outbox: record needs an id and a name")

// EventRecord is a domain event ready for the outbox. ID is also the published CloudEvent id
// and the consumers' dedupe key, so it has to be unique across instances.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	// PartitionKey orders delivery. Booking events use the listing id so that the cache
	// invalidations of one listing are consumed in order.
	PartitionKey string
	Headers      map[string]string
}

// Key is the broker partition key, falling back to the aggregate id.
func (r EventRecord) Key() string {
	if r.PartitionKey != "" {
		return r.PartitionKey
	}
	return r.Aggregate
}

func (r EventRecord) Validate() error {
	if r.ID == "" || r.Name == "" {
		return ErrInvalidRecord
	}
	return nil
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

// JSONEventEncoder marshals the event as the payload. NewID defaults to random UUIDs.
type JSONEventEncoder struct {
	NewID func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("outbox: encode %s: %w", ev.EventName(), err)
	}
	newID := e.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	rec := EventRecord{
		ID:         newID(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}
	if keyed, ok := ev.(events.Keyed); ok {
		rec.PartitionKey = keyed.PartitionKey()
	}
	return rec, nil
}

// RecordDomainEvents encodes evs into box. The trace context on ctx travels in the record
// headers so consumers can join the trace.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	propagator := propagation.TraceContext{}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("%w: %s", err, ev.EventName())
		}
		if rec.Headers == nil {
			rec.Headers = map[string]string{}
		}
		propagator.Inject(ctx, propagation.MapCarrier(rec.Headers))
		if err := box.Add(ctx, rec); err != nil {
			return fmt.Errorf("outbox: add %s: %w", rec.Name, err)
		}
	}
	return nil
}
