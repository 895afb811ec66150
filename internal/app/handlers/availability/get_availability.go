package availability

import (
	"context"

	"rentflow/internal/app/dto"
	"rentflow/internal/app/queries"
	domainavailability "rentflow/internal/domain/availability"
	"rentflow/internal/domain/shared/daterange"
)

const getAvailabilityKey = "availability.get"

// GetAvailabilityQuery reads a listing's availability. Empty bounds select the whole window.
type GetAvailabilityQuery struct {
	ListingID string `validate:"required"`
	From      string `validate:"omitempty,datetime=2006-01-02"`
	To        string `validate:"omitempty,datetime=2006-01-02"`
}

func (q GetAvailabilityQuery) Key() string { return getAvailabilityKey }

type Reader interface {
	Get(ctx context.Context, listingID string, from, to daterange.Day) domainavailability.Snapshot
}

type GetAvailabilityHandler struct {
	Fetcher Reader
}

func (h *GetAvailabilityHandler) Handle(ctx context.Context, q GetAvailabilityQuery) (dto.Availability, error) {
	from, err := parseOptionalDay(q.From)
	if err != nil {
		return dto.Availability{}, err
	}
	to, err := parseOptionalDay(q.To)
	if err != nil {
		return dto.Availability{}, err
	}
	return dto.MapAvailability(h.Fetcher.Get(ctx, q.ListingID, from, to)), nil
}

func parseOptionalDay(raw string) (daterange.Day, error) {
	if raw == "" {
		return daterange.Day{}, nil
	}
	return daterange.ParseDay(raw)
}

var _ queries.Handler[GetAvailabilityQuery, dto.Availability] = (*GetAvailabilityHandler)(nil)
