package policies

import (
	"context"

	"rentflow/internal/domain/availability"
	"rentflow/internal/domain/shared/daterange"
)

type AvailabilitySource interface {
	Availability(ctx context.Context, listingID string, window daterange.Range) ([]availability.DateAvailability, error)
}
