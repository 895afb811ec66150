package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"rentflow/internal/domain/booking"
	"rentflow/internal/domain/shared/events"
)

type collectingOutbox struct {
	records []EventRecord
}

func (o *collectingOutbox) Add(_ context.Context, rec EventRecord) error {
	o.records = append(o.records, rec)
	return nil
}

func (o *collectingOutbox) Flush(context.Context) error { return nil }

func compensated(id booking.BookingID) booking.BookingCompensated {
	return booking.BookingCompensated{
		BookingID: id,
		ListingID: "L1",
		Reason:    booking.ReasonCancelled,
		At:        time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestEncoderAssignsUniqueIDsAndListingKey(t *testing.T) {
	enc := JSONEventEncoder{}
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		rec, err := enc.Encode(compensated("B1"))
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if _, err := uuid.Parse(rec.ID); err != nil {
			t.Fatalf("event id %q is not a uuid", rec.ID)
		}
		if seen[rec.ID] {
			t.Fatalf("duplicate event id %q after %d events", rec.ID, i)
		}
		seen[rec.ID] = true
		if rec.Key() != "L1" || rec.Aggregate != "B1" || rec.Name != "booking.compensated" {
			t.Fatalf("unexpected record %+v", rec)
		}
	}
}

func TestRecordDomainEventsCarriesTraceContext(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	box := &collectingOutbox{}

	if err := RecordDomainEvents(ctx, box, nil, []events.DomainEvent{compensated("B1"), compensated("B2")}); err != nil {
		t.Fatalf("RecordDomainEvents: %v", err)
	}
	if len(box.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(box.records))
	}
	want := "00-0102030405060708090a0b0c0d0e0f10-0102030405060708-01"
	if got := box.records[0].Headers["traceparent"]; got != want {
		t.Fatalf("traceparent = %q", got)
	}
}

func TestRecordDomainEventsRejectsRecordWithoutID(t *testing.T) {
	enc := JSONEventEncoder{NewID: func() string { return "" }}
	err := RecordDomainEvents(context.Background(), &collectingOutbox{}, enc, []events.DomainEvent{compensated("B1")})
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}
