package availability

import (
	"errors"
	"sort"
	"strings"
	"time"

	"rentflow/internal/domain/shared/daterange"
)

// HorizonDays bounds how far ahead availability is requested and selectable.
const HorizonDays = 365

var (
	ErrListingRequired = errors.New("availability: listing id is required")
	ErrWindowInvalid   = errors.New("availability: window end is before window start")
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
	StatusBlocked   Status = "blocked"
)

// ParseStatus maps a wire value to a Status. Unknown values are treated as blocked
// so that a date the server does not explicitly release is never selectable.
func ParseStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusAvailable:
		return StatusAvailable
	case StatusBooked:
		return StatusBooked
	default:
		return StatusBlocked
	}
}

func (s Status) Available() bool { return s == StatusAvailable }

// DateAvailability is one entry of a listing calendar.
type DateAvailability struct {
	Date   daterange.Day `json:"date"`
	Status Status        `json:"status"`
}

// Snapshot is an immutable view of a listing's availability over a window.
// Dates inside the window without an entry are available.
type Snapshot struct {
	ListingID string
	Window    daterange.Range
	FetchedAt time.Time
	degraded  bool
	statuses  map[daterange.Day]Status
}

func NewSnapshot(listingID string, window daterange.Range, entries []DateAvailability, fetchedAt time.Time) Snapshot {
	statuses := make(map[daterange.Day]Status, len(entries))
	for _, e := range entries {
		if e.Date.IsZero() {
			continue
		}
		statuses[e.Date] = e.Status
	}
	return Snapshot{ListingID: listingID, Window: window, FetchedAt: fetchedAt.UTC(), statuses: statuses}
}

// Degraded builds the empty snapshot returned when availability could not be read.
func Degraded(listingID string, window daterange.Range, at time.Time) Snapshot {
	s := NewSnapshot(listingID, window, nil, at)
	s.degraded = true
	return s
}

// Degraded reports whether the snapshot stands in for a failed read.
func (s Snapshot) Degraded() bool { return s.degraded }

func (s Snapshot) StatusOn(d daterange.Day) Status {
	if st, ok := s.statuses[d]; ok {
		return st
	}
	return StatusAvailable
}

func (s Snapshot) IsAvailable(d daterange.Day) bool {
	return s.StatusOn(d).Available()
}

// Covers reports whether the snapshot was fetched for a window that includes r.
func (s Snapshot) Covers(r daterange.Range) bool {
	if s.Window.Validate() != nil {
		return false
	}
	return s.Window.Contains(r.Start) && s.Window.Contains(r.End)
}

// FirstUnavailable returns the first date of ds that is not available.
func (s Snapshot) FirstUnavailable(ds []daterange.Day) (daterange.Day, bool) {
	for _, d := range ds {
		if !s.IsAvailable(d) {
			return d, true
		}
	}
	return daterange.Day{}, false
}

// Entries returns the explicit entries sorted by date.
func (s Snapshot) Entries() []DateAvailability {
	out := make([]DateAvailability, 0, len(s.statuses))
	for d, st := range s.statuses {
		out = append(out, DateAvailability{Date: d, Status: st})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Len is the number of explicit entries.
func (s Snapshot) Len() int { return len(s.statuses) }

// Window returns [today, today+horizon].
func Window(today daterange.Day, horizonDays int) daterange.Range {
	if horizonDays <= 0 {
		horizonDays = HorizonDays
	}
	return daterange.Range{Start: today, End: today.AddDays(horizonDays)}
}

// ClampWindow narrows a requested [from, to] to the selectable window. Zero bounds default to it.
func ClampWindow(from, to, today daterange.Day, horizonDays int) (daterange.Range, error) {
	limit := Window(today, horizonDays)
	if from.IsZero() || from.Before(limit.Start) {
		from = limit.Start
	}
	if to.IsZero() || to.After(limit.End) {
		to = limit.End
	}
	if to.Before(from) {
		return daterange.Range{}, ErrWindowInvalid
	}
	return daterange.Range{Start: from, End: to}, nil
}
