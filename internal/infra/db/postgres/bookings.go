package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"rentflow/internal/app/policies"
	domainavailability "rentflow/internal/domain/availability"
	domainbooking "rentflow/internal/domain/booking"
	"rentflow/internal/domain/pricing"
	"rentflow/internal/domain/shared/daterange"
)

type bookingRow struct {
	ID              string         `db:"id"`
	ListingID       string         `db:"listing_id"`
	RenterID        string         `db:"renter_id"`
	OwnerID         string         `db:"owner_id"`
	StartDate       time.Time      `db:"start_date"`
	EndDate         time.Time      `db:"end_date"`
	PricePerDay     float64        `db:"price_per_day"`
	Subtotal        float64        `db:"subtotal"`
	ServiceFee      float64        `db:"service_fee"`
	InsuranceFee    float64        `db:"insurance_fee"`
	DeliveryFee     float64        `db:"delivery_fee"`
	DepositAmount   float64        `db:"deposit_amount"`
	TotalAmount     float64        `db:"total_amount"`
	DeliveryMethod  string         `db:"delivery_method"`
	DeliveryAddress sql.NullString `db:"delivery_address"`
	RenterMessage   sql.NullString `db:"renter_message"`
	Status          string         `db:"status"`
	ExpiresAt       sql.NullTime   `db:"expires_at"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (r bookingRow) toDomain() *domainbooking.PendingBooking {
	b := &domainbooking.PendingBooking{
		ID:             domainbooking.BookingID(r.ID),
		ListingID:      r.ListingID,
		RenterID:       r.RenterID,
		OwnerID:        r.OwnerID,
		StartDate:      daterange.DayOf(r.StartDate),
		EndDate:        daterange.DayOf(r.EndDate),
		PricePerDay:    r.PricePerDay,
		Subtotal:       r.Subtotal,
		ServiceFee:     r.ServiceFee,
		InsuranceFee:   r.InsuranceFee,
		DeliveryFee:    r.DeliveryFee,
		DepositAmount:  r.DepositAmount,
		TotalAmount:    r.TotalAmount,
		DeliveryMethod: pricing.DeliveryMethod(r.DeliveryMethod),
		Status:         domainbooking.Status(r.Status),
		CreatedAt:      r.CreatedAt,
	}
	if r.DeliveryAddress.Valid {
		v := r.DeliveryAddress.String
		b.DeliveryAddress = &v
	}
	if r.RenterMessage.Valid {
		v := r.RenterMessage.String
		b.RenterMessage = &v
	}
	if r.ExpiresAt.Valid {
		b.ExpiresAt = r.ExpiresAt.Time
	}
	return b
}

// BookingStore reads and writes the bookings table and calls the booking SQL functions.
type BookingStore struct {
	db *sqlx.DB
}

func NewBookingStore(db *sqlx.DB) *BookingStore {
	return &BookingStore{db: db}
}

const insertBookingQuery = `
INSERT INTO bookings (
    listing_id, renter_id, owner_id, start_date, end_date, price_per_day, subtotal,
    service_fee, insurance_fee, delivery_fee, deposit_amount, total_amount,
    delivery_method, delivery_address, renter_message, status, expires_at
) VALUES ($1, $2, $3, $4::date, $5::date, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id::text, created_at`

func (s *BookingStore) Insert(ctx context.Context, b *domainbooking.PendingBooking) (*domainbooking.PendingBooking, error) {
	var (
		id        string
		createdAt time.Time
	)
	err := s.db.QueryRowxContext(ctx, insertBookingQuery,
		b.ListingID, b.RenterID, b.OwnerID, b.StartDate.String(), b.EndDate.String(),
		b.PricePerDay, b.Subtotal, b.ServiceFee, b.InsuranceFee, b.DeliveryFee, b.DepositAmount, b.TotalAmount,
		string(b.DeliveryMethod), nullable(b.DeliveryAddress), nullable(b.RenterMessage), string(b.Status), b.ExpiresAt.UTC(),
	).Scan(&id, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	stored := *b
	stored.ClearEvents()
	stored.ID = domainbooking.BookingID(id)
	stored.CreatedAt = createdAt
	return &stored, nil
}

func (s *BookingStore) Delete(ctx context.Context, id domainbooking.BookingID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookings WHERE id::text = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if n == 0 {
		return policies.ErrBookingNotFound
	}
	return nil
}

func (s *BookingStore) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.PendingBooking, error) {
	var row bookingRow
	err := s.db.GetContext(ctx, &row, `SELECT id::text, listing_id, renter_id, owner_id, start_date, end_date,
        price_per_day, subtotal, service_fee, insurance_fee, delivery_fee, deposit_amount, total_amount,
        delivery_method, delivery_address, renter_message, status, expires_at, created_at
        FROM bookings WHERE id::text = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, policies.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return row.toDomain(), nil
}

func (s *BookingStore) HasConflict(ctx context.Context, listingID string, r daterange.Range, exclude domainbooking.BookingID) (bool, error) {
	var excludeArg any
	if exclude != "" {
		excludeArg = string(exclude)
	}
	var conflict bool
	err := s.db.GetContext(ctx, &conflict,
		`SELECT check_booking_conflicts($1, $2::date, $3::date, $4::uuid)`,
		listingID, r.Start.String(), r.End.String(), excludeArg)
	if err != nil {
		return false, fmt.Errorf("check booking conflicts: %w", err)
	}
	return conflict, nil
}

type availabilityRow struct {
	Date   time.Time `db:"date"`
	Status string    `db:"status"`
}

func (s *BookingStore) Availability(ctx context.Context, listingID string, window daterange.Range) ([]domainavailability.DateAvailability, error) {
	var rows []availabilityRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT date, status FROM get_listing_availability($1, $2::date, $3::date)`,
		listingID, window.Start.String(), window.End.String())
	if err != nil {
		return nil, fmt.Errorf("get listing availability: %w", err)
	}
	out := make([]domainavailability.DateAvailability, 0, len(rows))
	for _, row := range rows {
		out = append(out, domainavailability.DateAvailability{
			Date:   daterange.DayOf(row.Date),
			Status: domainavailability.ParseStatus(row.Status),
		})
	}
	return out, nil
}

// Block reserves a range on behalf of the owner. Blocking an already blocked range is a no-op,
// so seeding can run on every start.
func (s *BookingStore) Block(ctx context.Context, listingID string, r daterange.Range) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO listing_blocks (listing_id, start_date, end_date)
		SELECT $1, $2::date, $3::date
		WHERE NOT EXISTS (
			SELECT 1 FROM listing_blocks
			WHERE listing_id = $1 AND start_date = $2::date AND end_date = $3::date
		)`,
		listingID, r.Start.String(), r.End.String())
	if err != nil {
		return fmt.Errorf("block listing dates: %w", err)
	}
	return nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var (
	_ policies.BookingStore       = (*BookingStore)(nil)
	_ policies.BookingReader      = (*BookingStore)(nil)
	_ policies.ConflictChecker    = (*BookingStore)(nil)
	_ policies.AvailabilitySource = (*BookingStore)(nil)
)
