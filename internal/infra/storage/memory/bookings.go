package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentflow/internal/app/policies"
	domainavailability "rentflow/internal/domain/availability"
	domainbooking "rentflow/internal/domain/booking"
	"rentflow/internal/domain/shared/daterange"
)

// BookingStore keeps booking rows and owner blocks in memory. It stands in for the
// bookings table, the conflict procedure and the availability procedure.
type BookingStore struct {
	mu     sync.RWMutex
	items  map[domainbooking.BookingID]*domainbooking.PendingBooking
	blocks map[string][]daterange.Range
	now    func() time.Time
}

func NewBookingStore() *BookingStore {
	return &BookingStore{
		items:  make(map[domainbooking.BookingID]*domainbooking.PendingBooking),
		blocks: make(map[string][]daterange.Range),
		now:    time.Now,
	}
}

// Insert stores a copy of b under a server-assigned id.
func (s *BookingStore) Insert(_ context.Context, b *domainbooking.PendingBooking) (*domainbooking.PendingBooking, error) {
	row := copyRow(b)
	row.ID = domainbooking.BookingID(uuid.NewString())
	s.mu.Lock()
	s.items[row.ID] = row
	s.mu.Unlock()
	return copyRow(row), nil
}

func (s *BookingStore) Delete(_ context.Context, id domainbooking.BookingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return policies.ErrBookingNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *BookingStore) ByID(_ context.Context, id domainbooking.BookingID) (*domainbooking.PendingBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.items[id]
	if !ok {
		return nil, policies.ErrBookingNotFound
	}
	return copyRow(row), nil
}

// Confirm marks a row paid, as the payment webhook would.
func (s *BookingStore) Confirm(id domainbooking.BookingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.items[id]
	if !ok {
		return policies.ErrBookingNotFound
	}
	row.Status = domainbooking.StatusConfirmed
	return nil
}

// Block marks r unavailable on the owner's behalf.
func (s *BookingStore) Block(listingID string, r daterange.Range) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[listingID] = append(s.blocks[listingID], r)
}

// HasConflict reports whether r overlaps a confirmed booking or an unexpired hold.
func (s *BookingStore) HasConflict(_ context.Context, listingID string, r daterange.Range, exclude domainbooking.BookingID) (bool, error) {
	if err := r.Validate(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	for _, row := range s.items {
		if row.ListingID != listingID || row.ID == exclude || !holds(row, now) {
			continue
		}
		if row.Range().Overlaps(r) {
			return true, nil
		}
	}
	for _, b := range s.blocks[listingID] {
		if b.Overlaps(r) {
			return true, nil
		}
	}
	return false, nil
}

// Availability lists the unavailable dates of listingID inside window.
func (s *BookingStore) Availability(_ context.Context, listingID string, window daterange.Range) ([]domainavailability.DateAvailability, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	statuses := map[daterange.Day]domainavailability.Status{}
	now := s.now()
	for _, row := range s.items {
		if row.ListingID != listingID || !holds(row, now) {
			continue
		}
		row.Range().Each(func(d daterange.Day) bool {
			if window.Contains(d) {
				statuses[d] = domainavailability.StatusBooked
			}
			return true
		})
	}
	for _, b := range s.blocks[listingID] {
		b.Each(func(d daterange.Day) bool {
			if _, booked := statuses[d]; !booked && window.Contains(d) {
				statuses[d] = domainavailability.StatusBlocked
			}
			return true
		})
	}
	out := make([]domainavailability.DateAvailability, 0, len(statuses))
	for d, st := range statuses {
		out = append(out, domainavailability.DateAvailability{Date: d, Status: st})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func holds(row *domainbooking.PendingBooking, now time.Time) bool {
	switch row.Status {
	case domainbooking.StatusConfirmed:
		return true
	case domainbooking.StatusPaymentRequired:
		return !row.Expired(now)
	default:
		return false
	}
}

func copyRow(b *domainbooking.PendingBooking) *domainbooking.PendingBooking {
	return &domainbooking.PendingBooking{
		ID:              b.ID,
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
		DeliveryMethod:  b.DeliveryMethod,
		DeliveryAddress: b.DeliveryAddress,
		RenterMessage:   b.RenterMessage,
		Status:          b.Status,
		ExpiresAt:       b.ExpiresAt,
		CreatedAt:       b.CreatedAt,
	}
}

var (
	_ policies.BookingStore       = (*BookingStore)(nil)
	_ policies.BookingReader      = (*BookingStore)(nil)
	_ policies.ConflictChecker    = (*BookingStore)(nil)
	_ policies.AvailabilitySource = (*BookingStore)(nil)
)
