package calendar

import (
	"errors"
	"fmt"

	"rentflow/internal/domain/availability"
	"rentflow/internal/domain/shared/daterange"
)

var (
	ErrDateInPast       = errors.New("calendar: date is in the past")
	ErrDateUnavailable  = errors.New("calendar: date is not available")
	ErrRangeUnavailable = errors.New("calendar: range contains unavailable dates")
)

// Rejection is returned by Tap when a tap cannot change the selection.
// Title and Message are shown to the renter as-is.
type Rejection struct {
	Title   string
	Message string
	Date    daterange.Day
	Err     error
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Title, r.Message)
}

func (r *Rejection) Unwrap() error { return r.Err }

// Tap applies a day tap to the current selection. On rejection the returned selection
// is the unchanged input.
//
// Every date of an accepted range, endpoints included, is available in snap and not
// before today.
func Tap(sel Selection, d daterange.Day, snap availability.Snapshot, today daterange.Day) (Selection, error) {
	if d.Before(today) {
		return sel, &Rejection{
			Title:   "Invalid Date",
			Message: "Please select a date from today onwards.",
			Date:    d,
			Err:     ErrDateInPast,
		}
	}
	if !snap.IsAvailable(d) {
		return sel, &Rejection{
			Title:   "Date Unavailable",
			Message: "This date is already booked or blocked. Please choose another date.",
			Date:    d,
			Err:     ErrDateUnavailable,
		}
	}
	if sel.IsEmpty() {
		return SingleDay(d), nil
	}

	start := sel.Start()
	var candidate daterange.Range
	switch {
	case d.Equal(start):
		return SingleDay(d), nil
	case d.Before(start):
		candidate = daterange.Range{Start: d, End: start}
	default:
		candidate = daterange.Range{Start: start, End: d}
	}
	if blocked, found := snap.FirstUnavailable(candidate.Interior()); found {
		return sel, &Rejection{
			Title:   "Date Range Unavailable",
			Message: "Some dates in this range are not available. Please select a different range.",
			Date:    blocked,
			Err:     ErrRangeUnavailable,
		}
	}
	return RangeOf(candidate.Start, candidate.End), nil
}

// Clear resets any selection.
func Clear() Selection { return Empty() }
