package availability

import (
	"errors"
	"testing"
	"time"

	"rentflow/internal/domain/shared/daterange"
)

func day(s string) daterange.Day { return daterange.MustParseDay(s) }

func TestSnapshotDefaultsToAvailable(t *testing.T) {
	window := daterange.Range{Start: day("2025-01-01"), End: day("2025-01-31")}
	s := NewSnapshot("L1", window, []DateAvailability{
		{Date: day("2025-01-11"), Status: StatusBooked},
		{Date: day("2025-01-12"), Status: StatusBlocked},
	}, time.Now())

	if !s.IsAvailable(day("2025-01-10")) {
		t.Fatalf("unlisted date should be available")
	}
	if s.StatusOn(day("2025-01-11")) != StatusBooked {
		t.Fatalf("expected booked")
	}
	got, ok := s.FirstUnavailable([]daterange.Day{day("2025-01-10"), day("2025-01-12"), day("2025-01-11")})
	if !ok || !got.Equal(day("2025-01-12")) {
		t.Fatalf("first unavailable = %s, %v", got, ok)
	}
	entries := s.Entries()
	if len(entries) != 2 || !entries[0].Date.Equal(day("2025-01-11")) {
		t.Fatalf("entries not sorted: %+v", entries)
	}
	if s.Degraded() {
		t.Fatalf("fresh snapshot must not be degraded")
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"available": StatusAvailable,
		" BOOKED ":  StatusBooked,
		"blocked":   StatusBlocked,
		"pending":   StatusBlocked,
		"":          StatusBlocked,
	}
	for in, want := range cases {
		if got := ParseStatus(in); got != want {
			t.Fatalf("ParseStatus(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestClampWindow(t *testing.T) {
	today := day("2025-01-01")
	r, err := ClampWindow(daterange.Day{}, daterange.Day{}, today, 0)
	if err != nil {
		t.Fatalf("clamp: %v", err)
	}
	if !r.Start.Equal(today) || !r.End.Equal(day("2026-01-01")) {
		t.Fatalf("unexpected default window %s", r)
	}
	r, err = ClampWindow(day("2024-12-01"), day("2025-02-01"), today, 0)
	if err != nil || !r.Start.Equal(today) || !r.End.Equal(day("2025-02-01")) {
		t.Fatalf("past start not clamped: %s %v", r, err)
	}
	if _, err := ClampWindow(day("2025-03-01"), day("2025-02-01"), today, 0); !errors.Is(err, ErrWindowInvalid) {
		t.Fatalf("expected ErrWindowInvalid, got %v", err)
	}
}

func TestCovers(t *testing.T) {
	s := NewSnapshot("L1", daterange.Range{Start: day("2025-01-01"), End: day("2025-12-31")}, nil, time.Now())
	if !s.Covers(daterange.Range{Start: day("2025-02-01"), End: day("2025-03-01")}) {
		t.Fatalf("inner window should be covered")
	}
	if s.Covers(daterange.Range{Start: day("2025-12-01"), End: day("2026-01-10")}) {
		t.Fatalf("window past the end must not be covered")
	}
	if (Snapshot{}).Covers(daterange.Single(day("2025-01-01"))) {
		t.Fatalf("zero snapshot covers nothing")
	}
}
