package calendar

import (
	"rentflow/internal/domain/availability"
	"rentflow/internal/domain/shared/daterange"
)

// Palette holds the colors used by the date picker.
type Palette struct {
	Selected     string `json:"selected"`
	SelectedText string `json:"selected_text"`
	InRange      string `json:"in_range"`
	InRangeText  string `json:"in_range_text"`
	Booked       string `json:"booked"`
	Blocked      string `json:"blocked"`
	DisabledText string `json:"disabled_text"`
}

func DefaultPalette() Palette {
	return Palette{
		Selected:     "#2563EB",
		SelectedText: "#FFFFFF",
		InRange:      "#DBEAFE",
		InRangeText:  "#1E40AF",
		Booked:       "#EF4444",
		Blocked:      "#9CA3AF",
		DisabledText: "#D1D5DB",
	}
}

// Marking is the visual state of one date.
type Marking struct {
	Status       availability.Status `json:"status,omitempty"`
	Disabled     bool                `json:"disabled"`
	DisableTouch bool                `json:"disable_touch"`
	Marked       bool                `json:"marked"`
	DotColor     string              `json:"dot_color,omitempty"`
	Selected     bool                `json:"selected"`
	InRange      bool                `json:"in_range"`
	StartingDay  bool                `json:"starting_day"`
	EndingDay    bool                `json:"ending_day"`
	Color        string              `json:"color,omitempty"`
	TextColor    string              `json:"text_color,omitempty"`
}

// Marks maps dates to their marking. Dates without an entry are unmarked and selectable.
type Marks map[daterange.Day]Marking

func (m Marks) At(d daterange.Day) Marking {
	if mk, ok := m[d]; ok {
		return mk
	}
	return Marking{Status: availability.StatusAvailable}
}

// Mark computes the marking of every date of window. Later rules override earlier ones:
// past dates are disabled, unavailable dates are disabled with a dot, selection endpoints
// get a solid fill and interior dates a light fill.
func Mark(snap availability.Snapshot, sel Selection, today daterange.Day, window daterange.Range, palette Palette) Marks {
	marks := Marks{}
	window.Each(func(d daterange.Day) bool {
		status := snap.StatusOn(d)
		var mk Marking
		touched := false
		if d.Before(today) {
			mk.Disabled = true
			mk.DisableTouch = true
			mk.TextColor = palette.DisabledText
			touched = true
		}
		switch status {
		case availability.StatusBooked:
			mk.Disabled, mk.DisableTouch, mk.Marked = true, true, true
			mk.DotColor = palette.Booked
			touched = true
		case availability.StatusBlocked:
			mk.Disabled, mk.DisableTouch, mk.Marked = true, true, true
			mk.DotColor = palette.Blocked
			touched = true
		}
		if touched {
			mk.Status = status
			marks[d] = mk
		}
		return true
	})

	bounds, ok := sel.Bounds()
	if !ok {
		return marks
	}
	bounds.Each(func(d daterange.Day) bool {
		mk := marks.At(d)
		mk.Status = snap.StatusOn(d)
		if d.Equal(bounds.Start) || d.Equal(bounds.End) {
			mk.Selected = true
			mk.StartingDay = d.Equal(bounds.Start)
			mk.EndingDay = d.Equal(bounds.End)
			mk.Color = palette.Selected
			mk.TextColor = palette.SelectedText
			mk.Marked = false
			mk.DotColor = ""
		} else {
			mk.InRange = true
			mk.Color = palette.InRange
			mk.TextColor = palette.InRangeText
			mk.Disabled = !mk.Status.Available() || d.Before(today)
		}
		marks[d] = mk
		return true
	})
	return marks
}
