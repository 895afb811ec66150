package dto

import (
	"sort"

	"rentflow/internal/app/checkout"
	"rentflow/internal/domain/availability"
	"rentflow/internal/domain/calendar"
)

// AvailabilityWindow describes the dates a response covers.
type AvailabilityWindow struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type DateStatus struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

// Availability is the fetcher result for one listing.
type Availability struct {
	ListingID string             `json:"listing_id"`
	Window    AvailabilityWindow `json:"window"`
	Dates     []DateStatus       `json:"dates"`
	Degraded  bool               `json:"degraded"`
}

type DayMarking struct {
	Date string `json:"date"`
	calendar.Marking
}

// Calendar carries only the dates whose marking differs from the default.
type Calendar struct {
	Window    AvailabilityWindow `json:"window"`
	Today     string             `json:"today"`
	Selection calendar.Selection `json:"selection"`
	Marks     []DayMarking       `json:"marks"`
	Degraded  bool               `json:"degraded"`
}

func MapAvailability(snap availability.Snapshot) Availability {
	entries := snap.Entries()
	dates := make([]DateStatus, 0, len(entries))
	for _, e := range entries {
		dates = append(dates, DateStatus{Date: e.Date.String(), Status: string(e.Status)})
	}
	return Availability{
		ListingID: snap.ListingID,
		Window:    AvailabilityWindow{From: snap.Window.Start.String(), To: snap.Window.End.String()},
		Dates:     dates,
		Degraded:  snap.Degraded(),
	}
}

func MapCalendar(view checkout.CalendarView) Calendar {
	marks := make([]DayMarking, 0, len(view.Marks))
	for d, mk := range view.Marks {
		marks = append(marks, DayMarking{Date: d.String(), Marking: mk})
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].Date < marks[j].Date })
	return Calendar{
		Window:    AvailabilityWindow{From: view.Window.Start.String(), To: view.Window.End.String()},
		Today:     view.Today.String(),
		Selection: view.Selection,
		Marks:     marks,
		Degraded:  view.Degraded,
	}
}
