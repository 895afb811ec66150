package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"rentflow/internal/app/policies"
	domainavailability "rentflow/internal/domain/availability"
	domainbooking "rentflow/internal/domain/booking"
	"rentflow/internal/domain/pricing"
	"rentflow/internal/domain/shared/daterange"
)

// bookingRow mirrors the bookings table.
type bookingRow struct {
	ID              string        `json:"id,omitempty"`
	ListingID       string        `json:"listing_id"`
	RenterID        string        `json:"renter_id"`
	OwnerID         string        `json:"owner_id"`
	StartDate       daterange.Day `json:"start_date"`
	EndDate         daterange.Day `json:"end_date"`
	PricePerDay     float64       `json:"price_per_day"`
	Subtotal        float64       `json:"subtotal"`
	ServiceFee      float64       `json:"service_fee"`
	InsuranceFee    float64       `json:"insurance_fee"`
	DeliveryFee     float64       `json:"delivery_fee"`
	DepositAmount   float64       `json:"deposit_amount"`
	TotalAmount     float64       `json:"total_amount"`
	DeliveryMethod  string        `json:"delivery_method"`
	DeliveryAddress *string       `json:"delivery_address"`
	RenterMessage   *string       `json:"renter_message"`
	Status          string        `json:"status"`
	ExpiresAt       time.Time     `json:"expires_at"`
	CreatedAt       *time.Time    `json:"created_at,omitempty"`
}

func rowFrom(b *domainbooking.PendingBooking) bookingRow {
	return bookingRow{
		ListingID:       b.ListingID,
		RenterID:        b.RenterID,
		OwnerID:         b.OwnerID,
		StartDate:       b.StartDate,
		EndDate:         b.EndDate,
		PricePerDay:     b.PricePerDay,
		Subtotal:        b.Subtotal,
		ServiceFee:      b.ServiceFee,
		InsuranceFee:    b.InsuranceFee,
		DeliveryFee:     b.DeliveryFee,
		DepositAmount:   b.DepositAmount,
		TotalAmount:     b.TotalAmount,
		DeliveryMethod:  string(b.DeliveryMethod),
		DeliveryAddress: b.DeliveryAddress,
		RenterMessage:   b.RenterMessage,
		Status:          string(b.Status),
		ExpiresAt:       b.ExpiresAt.UTC(),
	}
}

func (r bookingRow) toDomain() *domainbooking.PendingBooking {
	b := &domainbooking.PendingBooking{
		ID:              domainbooking.BookingID(r.ID),
		ListingID:       r.ListingID,
		RenterID:        r.RenterID,
		OwnerID:         r.OwnerID,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		PricePerDay:     r.PricePerDay,
		Subtotal:        r.Subtotal,
		ServiceFee:      r.ServiceFee,
		InsuranceFee:    r.InsuranceFee,
		DeliveryFee:     r.DeliveryFee,
		DepositAmount:   r.DepositAmount,
		TotalAmount:     r.TotalAmount,
		DeliveryMethod:  pricing.DeliveryMethod(r.DeliveryMethod),
		DeliveryAddress: r.DeliveryAddress,
		RenterMessage:   r.RenterMessage,
		Status:          domainbooking.Status(r.Status),
		ExpiresAt:       r.ExpiresAt,
	}
	if r.CreatedAt != nil {
		b.CreatedAt = *r.CreatedAt
	}
	return b
}

// BookingStore writes the bookings table through PostgREST.
type BookingStore struct {
	Client *Client
}

// Insert creates the row and returns it as stored, including the database id.
func (s BookingStore) Insert(ctx context.Context, b *domainbooking.PendingBooking) (*domainbooking.PendingBooking, error) {
	var rows []bookingRow
	err := s.Client.do(ctx, request{
		op:      "insert booking",
		method:  http.MethodPost,
		path:    "/rest/v1/bookings",
		body:    rowFrom(b),
		headers: map[string]string{"Prefer": "return=representation"},
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0].ID == "" {
		return nil, fmt.Errorf("%w: insert booking returned no row", ErrMalformed)
	}
	return rows[0].toDomain(), nil
}

// Delete removes the row. A delete that matched nothing reports ErrBookingNotFound.
func (s BookingStore) Delete(ctx context.Context, id domainbooking.BookingID) error {
	var rows []struct {
		ID string `json:"id"`
	}
	err := s.Client.do(ctx, request{
		op:      "delete booking",
		circuit: circuitRelease,
		method:  http.MethodDelete,
		path:    "/rest/v1/bookings",
		query:   url.Values{"id": {"eq." + string(id)}},
		headers: map[string]string{"Prefer": "return=representation"},
	}, &rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return policies.ErrBookingNotFound
	}
	return nil
}

func (s BookingStore) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.PendingBooking, error) {
	var rows []bookingRow
	err := s.Client.do(ctx, request{
		op:      "get booking",
		circuit: circuitRead,
		method:  http.MethodGet,
		path:    "/rest/v1/bookings",
		query:   url.Values{"id": {"eq." + string(id)}, "select": {"*"}, "limit": {"1"}},
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, policies.ErrBookingNotFound
	}
	return rows[0].toDomain(), nil
}

type conflictArgs struct {
	ListingID        string        `json:"p_listing_id"`
	StartDate        daterange.Day `json:"p_start_date"`
	EndDate          daterange.Day `json:"p_end_date"`
	ExcludeBookingID *string       `json:"p_exclude_booking_id"`
}

// HasConflict calls check_booking_conflicts.
func (s BookingStore) HasConflict(ctx context.Context, listingID string, r daterange.Range, exclude domainbooking.BookingID) (bool, error) {
	args := conflictArgs{ListingID: listingID, StartDate: r.Start, EndDate: r.End}
	if exclude != "" {
		ex := string(exclude)
		args.ExcludeBookingID = &ex
	}
	var conflict bool
	err := s.Client.do(ctx, request{
		op:     "check conflicts",
		method: http.MethodPost,
		path:   "/rest/v1/rpc/check_booking_conflicts",
		body:   args,
	}, &conflict)
	return conflict, err
}

type availabilityArgs struct {
	ListingID string        `json:"p_listing_id"`
	StartDate daterange.Day `json:"p_start_date"`
	EndDate   daterange.Day `json:"p_end_date"`
}

type availabilityRow struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

// Availability calls get_listing_availability. Rows with an unparseable date are skipped.
func (s BookingStore) Availability(ctx context.Context, listingID string, window daterange.Range) ([]domainavailability.DateAvailability, error) {
	var rows []availabilityRow
	err := s.Client.do(ctx, request{
		op:      "get availability",
		circuit: circuitRead,
		method:  http.MethodPost,
		path:    "/rest/v1/rpc/get_listing_availability",
		body:    availabilityArgs{ListingID: listingID, StartDate: window.Start, EndDate: window.End},
	}, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]domainavailability.DateAvailability, 0, len(rows))
	for _, row := range rows {
		d, err := daterange.ParseDay(firstTen(row.Date))
		if err != nil {
			continue
		}
		out = append(out, domainavailability.DateAvailability{Date: d, Status: domainavailability.ParseStatus(row.Status)})
	}
	return out, nil
}

func firstTen(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// IsNotFound reports whether err is a PostgREST "no rows" response.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.Status == http.StatusNotFound || se.Code == "PGRST116")
}

var (
	_ policies.BookingStore       = BookingStore{}
	_ policies.BookingReader      = BookingStore{}
	_ policies.ConflictChecker    = BookingStore{}
	_ policies.AvailabilitySource = BookingStore{}
)
