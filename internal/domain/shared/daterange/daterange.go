package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the wire and display format of a calendar date.
const Layout = "2006-01-02"

var (
	ErrInvalidRange = errors.New("daterange: end date must not be before start date")
	ErrInvalidDay   = errors.New("daterange: invalid calendar date")
)

// Day is a calendar date without time of day. The zero value means "no date".
type Day struct {
	t time.Time
}

// DayOf returns the calendar date of t as observed in t's own location.
func DayOf(t time.Time) Day {
	if t.IsZero() {
		return Day{}
	}
	return Day{t: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// Date builds a Day from its components.
func Date(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses an ISO yyyy-MM-dd date.
func ParseDay(raw string) (Day, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Day{}, ErrInvalidDay
	}
	t, err := time.Parse(Layout, raw)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, raw)
	}
	return Day{t: t}, nil
}

// MustParseDay is ParseDay for fixtures and tests.
func MustParseDay(raw string) Day {
	d, err := ParseDay(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Day) IsZero() bool { return d.t.IsZero() }

// Time returns midnight UTC of the date.
func (d Day) Time() time.Time { return d.t }

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

func (d Day) AddDays(n int) Day {
	if d.IsZero() {
		return d
	}
	return Day{t: d.t.AddDate(0, 0, n)}
}

func (d Day) Before(other Day) bool { return d.t.Before(other.t) }
func (d Day) After(other Day) bool  { return d.t.After(other.t) }
func (d Day) Equal(other Day) bool  { return d.t.Equal(other.t) }

// Compare returns -1, 0 or +1.
func (d Day) Compare(other Day) int { return d.t.Compare(other.t) }

// DaysUntil returns the number of calendar days from d to other.
func (d Day) DaysUntil(other Day) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Range is an inclusive interval of calendar dates [Start, End].
type Range struct {
	Start Day
	End   Day
}

func New(start, end Day) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Single returns the one-day range [d, d].
func Single(d Day) Range {
	return Range{Start: d, End: d}
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrInvalidRange
	}
	if r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Days is the inclusive duration: end - start + 1.
func (r Range) Days() int {
	return r.Start.DaysUntil(r.End) + 1
}

func (r Range) Contains(d Day) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r Range) Overlaps(other Range) bool {
	return !r.End.Before(other.Start) && !other.End.Before(r.Start)
}

// Each calls fn for every date from Start to End, stopping early when fn returns false.
func (r Range) Each(fn func(Day) bool) {
	if r.Validate() != nil {
		return
	}
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		if !fn(d) {
			return
		}
	}
}

// Interior lists the dates strictly between Start and End.
func (r Range) Interior() []Day {
	if r.Validate() != nil || r.Days() <= 2 {
		return nil
	}
	out := make([]Day, 0, r.Days()-2)
	for d := r.Start.AddDays(1); d.Before(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}
