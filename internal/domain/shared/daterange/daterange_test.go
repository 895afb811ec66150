package daterange

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestRangeDaysIsInclusive(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
	}{
		{"2025-01-10", "2025-01-10", 1},
		{"2025-01-10", "2025-01-12", 3},
		{"2025-02-27", "2025-03-02", 4},
		{"2024-12-31", "2025-01-01", 2},
	}
	for _, tc := range cases {
		r, err := New(MustParseDay(tc.start), MustParseDay(tc.end))
		if err != nil {
			t.Fatalf("New(%s, %s): %v", tc.start, tc.end, err)
		}
		if got := r.Days(); got != tc.want {
			t.Fatalf("%s..%s days = %d, want %d", tc.start, tc.end, got, tc.want)
		}
	}
}

func TestNewRejectsReversedRange(t *testing.T) {
	_, err := New(MustParseDay("2025-01-12"), MustParseDay("2025-01-10"))
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestInterior(t *testing.T) {
	r := Range{Start: MustParseDay("2025-01-10"), End: MustParseDay("2025-01-13")}
	got := r.Interior()
	if len(got) != 2 || got[0].String() != "2025-01-11" || got[1].String() != "2025-01-12" {
		t.Fatalf("unexpected interior %v", got)
	}
	if inner := Single(MustParseDay("2025-01-10")).Interior(); len(inner) != 0 {
		t.Fatalf("single day has no interior, got %v", inner)
	}
}

func TestOverlapsCountsSharedEndpoint(t *testing.T) {
	a := Range{Start: MustParseDay("2025-01-10"), End: MustParseDay("2025-01-12")}
	b := Range{Start: MustParseDay("2025-01-12"), End: MustParseDay("2025-01-14")}
	c := Range{Start: MustParseDay("2025-01-13"), End: MustParseDay("2025-01-14")}
	if !a.Overlaps(b) {
		t.Fatalf("inclusive ranges sharing a day must overlap")
	}
	if a.Overlaps(c) {
		t.Fatalf("disjoint ranges must not overlap")
	}
}

func TestDayOfDropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	d := DayOf(time.Date(2025, 3, 4, 23, 30, 0, 0, loc))
	if d.String() != "2025-03-04" {
		t.Fatalf("got %s", d)
	}
}

func TestDayJSON(t *testing.T) {
	type payload struct {
		Date Day `json:"date"`
	}
	var p payload
	if err := json.Unmarshal([]byte(`{"date":"2025-05-01"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.Date.Equal(Date(2025, time.May, 1)) {
		t.Fatalf("got %s", p.Date)
	}
	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"date":"2025-05-01"}` {
		t.Fatalf("got %s", out)
	}
	if err := json.Unmarshal([]byte(`{"date":"05/01/2025"}`), &p); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}
