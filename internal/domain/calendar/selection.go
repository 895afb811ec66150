package calendar

import (
	"encoding/json"

	"rentflow/internal/domain/shared/daterange"
)

type SelectionKind string

const (
	SelectionEmpty     SelectionKind = "empty"
	SelectionSingleDay SelectionKind = "single_day"
	SelectionRange     SelectionKind = "range"
)

// Selection is the renter's date choice: nothing, one day, or an inclusive range.
// Values are only built through Empty, SingleDay and RangeOf so that start <= end always holds.
type Selection struct {
	kind  SelectionKind
	start daterange.Day
	end   daterange.Day
}

func Empty() Selection { return Selection{kind: SelectionEmpty} }

func SingleDay(d daterange.Day) Selection {
	return Selection{kind: SelectionSingleDay, start: d, end: d}
}

// RangeOf returns a range selection, collapsing equal endpoints to a single day and
// ordering reversed endpoints.
func RangeOf(start, end daterange.Day) Selection {
	if end.Before(start) {
		start, end = end, start
	}
	if start.Equal(end) {
		return SingleDay(start)
	}
	return Selection{kind: SelectionRange, start: start, end: end}
}

func (s Selection) Kind() SelectionKind {
	if s.kind == "" {
		return SelectionEmpty
	}
	return s.kind
}

func (s Selection) IsEmpty() bool { return s.Kind() == SelectionEmpty }

func (s Selection) Start() daterange.Day { return s.start }

func (s Selection) End() daterange.Day { return s.end }

// Bounds returns the selected dates as an inclusive range. A single day is [d, d].
func (s Selection) Bounds() (daterange.Range, bool) {
	if s.IsEmpty() {
		return daterange.Range{}, false
	}
	return daterange.Range{Start: s.start, End: s.end}, true
}

type selectionJSON struct {
	Kind  SelectionKind  `json:"kind"`
	Start *daterange.Day `json:"start_date,omitempty"`
	End   *daterange.Day `json:"end_date,omitempty"`
}

func (s Selection) MarshalJSON() ([]byte, error) {
	out := selectionJSON{Kind: s.Kind()}
	if !s.IsEmpty() {
		start, end := s.start, s.end
		out.Start, out.End = &start, &end
	}
	return json.Marshal(out)
}
