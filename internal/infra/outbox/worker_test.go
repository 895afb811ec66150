package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakeQueue struct {
	docs   []*EventDocument
	sent   []string
	failed map[string]time.Time
}

func (q *fakeQueue) Claim(context.Context, string) (*EventDocument, error) {
	if len(q.docs) == 0 {
		return nil, nil
	}
	d := q.docs[0]
	q.docs = q.docs[1:]
	return d, nil
}

func (q *fakeQueue) MarkSent(_ context.Context, id string) error {
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id string, next time.Time, _ string) error {
	if q.failed == nil {
		q.failed = map[string]time.Time{}
	}
	q.failed[id] = next
	return nil
}

type published struct {
	topic, key string
	payload    []byte
	headers    map[string]string
}

type fakeProducer struct {
	out  []published
	fail bool
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.out = append(p.out, published{topic, key, payload, headers})
	return nil
}

func TestWorkerPublishesCloudEvents(t *testing.T) {
	q := &fakeQueue{docs: []*EventDocument{{
		ID:        "evt-1",
		Name:      "booking.compensated",
		Payload:   []byte(`{"booking_id":"B1","listing_id":"L1","reason":"payment_cancelled"}`),
		Aggregate: "B1",
		Key:       "L1",
	}}}
	p := &fakeProducer{}
	w := &Worker{Store: q, Producer: p, TopicPrefix: "dev."}

	n, err := w.Drain(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Drain: n=%d err=%v", n, err)
	}
	if len(p.out) != 1 || p.out[0].topic != "dev.booking.events.v1" || p.out[0].key != "L1" {
		t.Fatalf("unexpected publish %+v", p.out)
	}
	var ce struct {
		ID     string         `json:"id"`
		Type   string         `json:"type"`
		Source string         `json:"source"`
		Data   map[string]any `json:"data"`
	}
	if err := json.Unmarshal(p.out[0].payload, &ce); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if ce.ID != "evt-1" || ce.Type != "booking.compensated.v1" || ce.Source != "app://rentflow" || ce.Data["listing_id"] != "L1" {
		t.Fatalf("unexpected cloud event %+v", ce)
	}
	if len(q.sent) != 1 || q.sent[0] != "evt-1" {
		t.Fatalf("event not marked sent: %v", q.sent)
	}
}

func TestWorkerSchedulesRetryOnPublishFailure(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	q := &fakeQueue{docs: []*EventDocument{{ID: "evt-1", Name: "booking.pending_created", Payload: []byte(`{}`), Attempts: 1}}}
	w := &Worker{Store: q, Producer: &fakeProducer{fail: true}, Backoff: []time.Duration{time.Second, 5 * time.Second}, Now: func() time.Time { return now }}

	if n, err := w.Drain(context.Background()); err != nil || n != 0 {
		t.Fatalf("Drain: n=%d err=%v", n, err)
	}
	if next := q.failed["evt-1"]; !next.Equal(now.Add(5 * time.Second)) {
		t.Fatalf("next attempt = %s", next)
	}
}

func TestTopicFor(t *testing.T) {
	if got := TopicFor("", "booking.payment_succeeded"); got != "booking.events.v1" {
		t.Fatalf("got %s", got)
	}
	if got := TopicFor("p.", "plain"); got != "p.plain.events.v1" {
		t.Fatalf("got %s", got)
	}
}
