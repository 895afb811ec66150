package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rentflow/internal/app/outbox"
	"rentflow/internal/app/policies"
	"rentflow/internal/app/saga"
	domainauth "rentflow/internal/domain/auth"
	"rentflow/internal/domain/availability"
	"rentflow/internal/domain/booking"
	"rentflow/internal/domain/calendar"
	"rentflow/internal/domain/listings"
	"rentflow/internal/domain/pricing"
	"rentflow/internal/domain/shared/daterange"
	"rentflow/internal/domain/shared/money"
)

// AvailabilityReader is the part of the availability fetcher the controller uses.
type AvailabilityReader interface {
	Get(ctx context.Context, listingID string, from, to daterange.Day) availability.Snapshot
	Invalidate(ctx context.Context, listingID string) error
}

// NotConfiguredPolicy decides what happens to a created booking when the payment backend
// reports that payments are not set up.
type NotConfiguredPolicy string

const (
	// PolicyKeep leaves the payment_required row in place and sends the renter to their bookings.
	PolicyKeep NotConfiguredPolicy = "keep"
	// PolicyCompensate deletes the row like a cancelled payment.
	PolicyCompensate NotConfiguredPolicy = "compensate"
)

// Deps are the collaborators shared by every controller.
type Deps struct {
	Availability AvailabilityReader
	Conflicts    policies.ConflictChecker
	Bookings     policies.BookingStore
	Payments     policies.PaymentSessions
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Logger       *slog.Logger
	Now          func() time.Time
	NewID        func() booking.BookingID
}

type Config struct {
	HoldTTL             time.Duration
	Barrier             WriteBarrier
	CompensationBackoff []time.Duration
	CompensationSleep   func(ctx context.Context, d time.Duration) error
	NotConfigured       NotConfiguredPolicy
	Palette             calendar.Palette
	HorizonDays         int
}

// Options are the renter's booking choices besides the dates.
type Options struct {
	DeliveryMethod   pricing.DeliveryMethod
	IncludeInsurance bool
	DeliveryAddress  string
	Message          string
}

// Handoff is what the client needs to open the hosted payment page.
type Handoff struct {
	BookingID string    `json:"booking_id"`
	SessionID string    `json:"payment_session_id,omitempty"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CalendarView is the marked calendar for the current selection.
type CalendarView struct {
	Window    daterange.Range
	Today     daterange.Day
	Marks     calendar.Marks
	Selection calendar.Selection
	Degraded  bool
}

// State is a snapshot of the controller for display.
type State struct {
	Phase     Phase
	Selection calendar.Selection
	Listing   listings.Listing
	Active    *booking.PendingBooking
}

// Controller drives one renter through booking one listing: date selection, pending booking,
// hosted payment and the compensating rollback when payment does not complete.
// It is safe for concurrent use; no lock is held across a remote call.
type Controller struct {
	deps        Deps
	cfg         Config
	auth        policies.SessionProvider
	listing     listings.Listing
	renterID    string
	tracer      trace.Tracer
	compensator saga.Compensator

	mu        sync.Mutex
	phase     Phase
	selection calendar.Selection
	active    *booking.PendingBooking
	busy      bool
}

func NewController(deps Deps, cfg Config, listing listings.Listing, renterID string, auth policies.SessionProvider) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func() booking.BookingID { return booking.BookingID(uuid.NewString()) }
	}
	if deps.Encoder == nil {
		deps.Encoder = outbox.JSONEventEncoder{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = booking.HoldTTL
	}
	if cfg.Barrier == nil {
		cfg.Barrier = FixedDelay{Delay: DefaultPropagationDelay}
	}
	if cfg.NotConfigured == "" {
		cfg.NotConfigured = PolicyKeep
	}
	if cfg.Palette == (calendar.Palette{}) {
		cfg.Palette = calendar.DefaultPalette()
	}
	logger := deps.Logger.With("listing_id", listing.ID, "renter_id", renterID)
	return &Controller{
		deps:     deps,
		cfg:      cfg,
		auth:     auth,
		listing:  listing,
		renterID: strings.TrimSpace(renterID),
		tracer:   otel.Tracer("rentflow/checkout"),
		compensator: saga.Compensator{
			Backoff: cfg.CompensationBackoff,
			Done:    func(err error) bool { return errors.Is(err, policies.ErrBookingNotFound) },
			Sleep:   cfg.CompensationSleep,
			Logger:  logger,
		},
		phase:     PhaseIdle,
		selection: calendar.Empty(),
	}
}

func (c *Controller) Listing() listings.Listing { return c.listing }

func (c *Controller) RenterID() string { return c.renterID }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Phase: c.phase, Selection: c.selection, Listing: c.listing, Active: c.active}
}

// Today is the renter's current calendar date.
func (c *Controller) Today() daterange.Day { return c.today() }

func (c *Controller) today() daterange.Day {
	return daterange.DayOf(c.deps.Now())
}

// Availability returns the listing's availability over the selectable window.
func (c *Controller) Availability(ctx context.Context) availability.Snapshot {
	return c.deps.Availability.Get(ctx, c.listing.ID, daterange.Day{}, daterange.Day{})
}

// Refresh drops cached availability and reads it again.
func (c *Controller) Refresh(ctx context.Context) availability.Snapshot {
	_ = c.deps.Availability.Invalidate(ctx, c.listing.ID)
	return c.Availability(ctx)
}

func (c *Controller) Calendar(ctx context.Context) CalendarView {
	snap := c.Availability(ctx)
	today := c.today()
	window := availability.Window(today, c.cfg.HorizonDays)
	c.mu.Lock()
	sel := c.selection
	c.mu.Unlock()
	return CalendarView{
		Window:    window,
		Today:     today,
		Marks:     calendar.Mark(snap, sel, today, window, c.cfg.Palette),
		Selection: sel,
		Degraded:  snap.Degraded(),
	}
}

// Tap applies a day tap. Rejections are *calendar.Rejection errors and leave the selection unchanged.
func (c *Controller) Tap(ctx context.Context, d daterange.Day) (calendar.Selection, error) {
	snap := c.Availability(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy || c.phase == PhaseAwaitingPayment || c.phase == PhaseBookingCreated {
		return c.selection, ErrBookingInProgress
	}
	next, err := calendar.Tap(c.selection, d, snap, c.today())
	if err != nil {
		return c.selection, err
	}
	c.selection = next
	c.phase = PhaseDatesSelected
	return next, nil
}

// Clear empties the selection.
func (c *Controller) Clear() calendar.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = calendar.Clear()
	if !c.busy && c.active == nil {
		c.phase = PhaseIdle
	}
	return c.selection
}

// Quote prices the current selection.
func (c *Controller) Quote(opts Options) pricing.Breakdown {
	c.mu.Lock()
	sel := c.selection
	c.mu.Unlock()
	in := pricing.Input{
		PricePerDay:      c.listing.PricePerDay,
		DeliveryMethod:   opts.DeliveryMethod,
		IncludeInsurance: opts.IncludeInsurance,
	}
	if bounds, ok := sel.Bounds(); ok {
		in.Range = &bounds
	}
	return pricing.Calculate(in)
}

// StartBooking checks the dates, creates a payment_required booking and opens a payment
// session for it. After a payment-session failure the booking is kept and a new call
// resumes with the same booking.
func (c *Controller) StartBooking(ctx context.Context, opts Options) (Handoff, error) {
	ctx, span := c.tracer.Start(ctx, "checkout.start_booking", trace.WithAttributes(attribute.String("listing.id", c.listing.ID)))
	defer span.End()

	c.mu.Lock()
	if c.busy || c.phase == PhaseAwaitingPayment {
		c.mu.Unlock()
		return Handoff{}, ErrBookingInProgress
	}
	resume := c.active
	sel := c.selection
	c.busy = true
	c.mu.Unlock()
	defer c.release()

	if resume != nil {
		return c.openPayment(ctx, resume)
	}

	bounds, err := c.validate(sel, opts)
	if err != nil {
		return Handoff{}, err
	}

	c.setPhase(PhaseConflictChecking)
	conflict, err := c.checkConflict(ctx, bounds)
	if err != nil {
		c.setPhase(PhaseDatesSelected)
		return Handoff{}, alert(AlertRetryable, "Error", "We couldn't verify availability. Please try again.", err)
	}
	if conflict {
		c.setPhase(PhaseDatesSelected)
		_ = c.deps.Availability.Invalidate(ctx, c.listing.ID)
		return Handoff{}, alert(AlertConflict, "Dates Unavailable", "These dates are no longer available. Please select different dates.", nil)
	}

	now := c.deps.Now()
	pending, err := booking.NewPending(booking.CreateParams{
		ID:               c.deps.NewID(),
		ListingID:        c.listing.ID,
		RenterID:         c.renterID,
		OwnerID:          c.listing.OwnerID,
		Range:            bounds,
		PricePerDay:      c.listing.PricePerDay,
		DepositAmount:    c.listing.DepositAmount,
		DeliveryMethod:   opts.DeliveryMethod,
		IncludeInsurance: opts.IncludeInsurance,
		DeliveryAddress:  opts.DeliveryAddress,
		RenterMessage:    opts.Message,
		Now:              now,
		HoldTTL:          c.cfg.HoldTTL,
	})
	if err != nil {
		c.setPhase(PhaseDatesSelected)
		return Handoff{}, alert(AlertValidation, "Invalid Booking", validationMessage(err), err)
	}

	stored, err := c.insert(ctx, pending)
	if err != nil {
		c.setPhase(PhaseDatesSelected)
		return Handoff{}, alert(AlertRetryable, "Booking Failed", "We couldn't create your booking. Please try again.", err)
	}
	var storedID booking.BookingID
	if stored != nil {
		storedID = stored.ID
	}
	pending.Persisted(storedID, now)

	c.mu.Lock()
	c.active = pending
	c.phase = PhaseBookingCreated
	c.mu.Unlock()
	c.record(ctx, pending)
	c.deps.Logger.Info("pending booking created", "booking_id", pending.ID, "listing_id", pending.ListingID, "expires_at", pending.ExpiresAt)

	if err := c.waitForWrite(ctx, pending.ID); err != nil {
		return Handoff{}, alert(AlertRetryable, "Payment Error", "We couldn't start payment. Please try again.", err)
	}
	return c.openPayment(ctx, pending)
}

func (c *Controller) validate(sel calendar.Selection, opts Options) (daterange.Range, error) {
	if c.renterID == "" {
		a := alert(AlertValidation, "Sign In Required", "Please sign in to book this listing.", ErrUnauthenticated)
		a.Navigate = NavSignIn
		return daterange.Range{}, a
	}
	if c.listing.OwnedBy(c.renterID) {
		return daterange.Range{}, alert(AlertValidation, "Cannot Book", "You cannot book your own listing.", booking.ErrOwnListing)
	}
	bounds, ok := sel.Bounds()
	if !ok {
		return daterange.Range{}, alert(AlertValidation, "Select Dates", "Please select your rental dates.", nil)
	}
	if opts.DeliveryMethod == pricing.DeliveryDelivery && strings.TrimSpace(opts.DeliveryAddress) == "" {
		return daterange.Range{}, alert(AlertValidation, "Delivery Address Required", "Please enter a delivery address.", booking.ErrAddressRequired)
	}
	return bounds, nil
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, booking.ErrOwnListing):
		return "You cannot book your own listing."
	case errors.Is(err, booking.ErrAddressRequired):
		return "Please enter a delivery address."
	case errors.Is(err, daterange.ErrInvalidRange):
		return "Please select your rental dates."
	default:
		return "This booking cannot be created."
	}
}

func (c *Controller) checkConflict(ctx context.Context, r daterange.Range) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "checkout.check_conflicts")
	defer span.End()
	conflict, err := c.deps.Conflicts.HasConflict(ctx, c.listing.ID, r, "")
	if err != nil {
		failSpan(span, err)
		c.deps.Logger.Warn("conflict check failed", "listing_id", c.listing.ID, "range", r.String(), "error", err)
		return false, err
	}
	span.SetAttributes(attribute.Bool("booking.conflict", conflict))
	return conflict, nil
}

func (c *Controller) insert(ctx context.Context, b *booking.PendingBooking) (*booking.PendingBooking, error) {
	ctx, span := c.tracer.Start(ctx, "checkout.insert_booking")
	defer span.End()
	stored, err := c.deps.Bookings.Insert(ctx, b)
	if err != nil {
		failSpan(span, err)
		c.deps.Logger.Error("booking insert failed", "listing_id", b.ListingID, "error", err)
		return nil, err
	}
	return stored, nil
}

func (c *Controller) waitForWrite(ctx context.Context, id booking.BookingID) error {
	ctx, span := c.tracer.Start(ctx, "checkout.write_barrier")
	defer span.End()
	if err := c.cfg.Barrier.Wait(ctx, id); err != nil {
		failSpan(span, err)
		return err
	}
	return nil
}

// openPayment authenticates and requests the payment page for b.
func (c *Controller) openPayment(ctx context.Context, b *booking.PendingBooking) (Handoff, error) {
	session, err := c.session(ctx)
	if err != nil {
		c.deps.Logger.Warn("auth session unavailable for payment", "booking_id", b.ID, "error", err)
		a := alert(AlertAuth, "Authentication Required", "Please sign in again to continue with payment.", err)
		a.Navigate = NavSignIn
		return Handoff{}, a
	}

	if b.Expired(c.deps.Now()) {
		c.compensate(ctx, b, booking.ReasonHoldExpired)
		c.finish(PhaseFailedPayment, false)
		return Handoff{}, alert(AlertPayment, "Booking Expired", "Your booking hold expired. Please select your dates again.", booking.ErrHoldExpired)
	}

	ps, err := c.createPaymentSession(ctx, b, session)
	if errors.Is(err, policies.ErrPaymentNotConfigured) {
		return Handoff{}, c.paymentNotConfigured(ctx, b, err)
	}
	if err == nil && strings.TrimSpace(ps.URL) == "" {
		err = policies.ErrPaymentSession
	}
	if err != nil {
		c.deps.Logger.Error("payment session failed", "booking_id", b.ID, "error", err)
		return Handoff{}, alert(AlertPayment, "Payment Error", "We couldn't start payment. Your booking is saved; please try again.", err)
	}

	if err := b.OpenPaymentSession(ps.URL, c.deps.Now()); err != nil {
		return Handoff{}, alert(AlertPayment, "Payment Error", "We couldn't start payment. Please try again.", err)
	}
	c.setPhase(PhaseAwaitingPayment)
	c.record(ctx, b)
	return Handoff{BookingID: string(b.ID), SessionID: ps.ID, URL: ps.URL, ExpiresAt: b.ExpiresAt}, nil
}

// session returns a usable auth session, refreshing at most once.
func (c *Controller) session(ctx context.Context) (*domainauth.Session, error) {
	ctx, span := c.tracer.Start(ctx, "checkout.auth_session")
	defer span.End()
	if c.auth == nil {
		return nil, domainauth.ErrSessionNotFound
	}
	s, err := c.auth.Session(ctx)
	if err == nil && s.Usable(c.deps.Now()) {
		return s, nil
	}
	span.AddEvent("refresh")
	s, err = c.auth.Refresh(ctx)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	if !s.Usable(c.deps.Now()) {
		failSpan(span, ErrSessionStale)
		return nil, ErrSessionStale
	}
	return s, nil
}

func (c *Controller) createPaymentSession(ctx context.Context, b *booking.PendingBooking, s *domainauth.Session) (policies.PaymentSession, error) {
	ctx, span := c.tracer.Start(ctx, "checkout.payment_session", trace.WithAttributes(attribute.String("booking.id", string(b.ID))))
	defer span.End()
	amount, err := money.FromMajor(b.TotalAmount, c.listing.CurrencyCode())
	if err != nil {
		failSpan(span, err)
		return policies.PaymentSession{}, err
	}
	ps, err := c.deps.Payments.Create(ctx, policies.PaymentSessionRequest{
		BookingID:   b.ID,
		ListingID:   b.ListingID,
		Amount:      amount,
		Description: c.listing.Title,
		BearerToken: s.Bearer(),
		ExpiresAt:   b.ExpiresAt,
	})
	if err != nil {
		failSpan(span, err)
	}
	return ps, err
}

func (c *Controller) paymentNotConfigured(ctx context.Context, b *booking.PendingBooking, cause error) error {
	if c.cfg.NotConfigured == PolicyCompensate {
		c.compensate(ctx, b, booking.ReasonNoPayment)
		c.finish(PhaseFailedPayment, false)
		return &Alert{
			Kind:    AlertPaymentConfig,
			Title:   "Payment Unavailable",
			Message: "Online payment is not available right now, so your booking was not created.",
			Err:     cause,
		}
	}
	c.deps.Logger.Warn("payment not configured, keeping unpaid booking", "booking_id", b.ID, "expires_at", b.ExpiresAt)
	c.finish(PhaseIdle, true)
	return &Alert{
		Kind:     AlertPaymentConfig,
		Title:    "Booking Created",
		Message:  "Online payment isn't set up yet. Your booking request is saved in My Bookings.",
		Navigate: NavBookings,
		Err:      cause,
	}
}

// PaymentSucceeded handles the success return from the payment page. The row is confirmed
// server-side; the controller only releases its handle.
func (c *Controller) PaymentSucceeded(ctx context.Context) (Outcome, error) {
	b, err := c.takeActive()
	if err != nil || b == nil {
		return Outcome{Phase: c.State().Phase}, err
	}
	if err := b.PaymentSucceeded(c.deps.Now()); err != nil {
		c.deps.Logger.Warn("payment success on inactive booking", "booking_id", b.ID, "error", err)
	}
	c.record(ctx, b)
	c.finish(PhaseConfirmed, true)
	c.deps.Logger.Info("payment succeeded", "booking_id", b.ID)
	return Outcome{
		Handled:   true,
		Phase:     PhaseConfirmed,
		BookingID: string(b.ID),
		Title:     "Booking Confirmed",
		Message:   "Your payment was successful. You can find the booking in My Bookings.",
		Navigate:  NavBookings,
	}, nil
}

// PaymentCancelled rolls the booking back after the renter left the payment page.
func (c *Controller) PaymentCancelled(ctx context.Context) (Outcome, error) {
	return c.rollback(ctx, booking.ReasonCancelled, PhaseCancelledByUser, true, Outcome{
		Title:    "Payment Cancelled",
		Message:  "Your booking was cancelled. You can try again whenever you're ready.",
		CanRetry: true,
	})
}

// PaymentFailed rolls the booking back after the payment page reported an error.
func (c *Controller) PaymentFailed(ctx context.Context, message string) (Outcome, error) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = "Something went wrong with your payment. Please try again."
	}
	return c.rollback(ctx, booking.ReasonPaymentFailed, PhaseFailedPayment, false, Outcome{
		Title:    "Payment Failed",
		Message:  msg,
		CanRetry: true,
	})
}

func (c *Controller) rollback(ctx context.Context, reason booking.CompensationReason, phase Phase, clearSelection bool, out Outcome) (Outcome, error) {
	ctx, span := c.tracer.Start(ctx, "checkout.rollback", trace.WithAttributes(attribute.String("booking.reason", string(reason))))
	defer span.End()
	b, err := c.takeActive()
	if err != nil || b == nil {
		return Outcome{Phase: c.State().Phase}, err
	}
	c.compensate(ctx, b, reason)
	c.finish(phase, clearSelection)
	out.Handled = true
	out.Phase = phase
	out.BookingID = string(b.ID)
	return out, nil
}

// takeActive detaches the active booking so that a repeated callback finds nothing to do.
// The controller stays busy until finish.
func (c *Controller) takeActive() (*booking.PendingBooking, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return nil, ErrBookingInProgress
	}
	b := c.active
	if b == nil {
		return nil, nil
	}
	c.active = nil
	c.busy = true
	return b, nil
}

// compensate deletes the booking row, retrying with backoff, then invalidates availability once.
// It runs to completion even if the caller's context is cancelled.
func (c *Controller) compensate(ctx context.Context, b *booking.PendingBooking, reason booking.CompensationReason) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := c.tracer.Start(ctx, "checkout.compensate", trace.WithAttributes(attribute.String("booking.id", string(b.ID))))
	defer span.End()

	attempts, err := c.compensator.Run(ctx, saga.StepFunc{
		StepName: "delete_booking",
		Fn:       func(ctx context.Context) error { return c.deps.Bookings.Delete(ctx, b.ID) },
	})
	now := c.deps.Now()
	if err != nil {
		failSpan(span, err)
		c.deps.Logger.Error("booking compensation failed", "booking_id", b.ID, "reason", reason, "attempts", attempts, "expires_at", b.ExpiresAt, "error", err)
		b.CompensationFailed(reason, err, now)
	} else {
		c.deps.Logger.Info("booking compensated", "booking_id", b.ID, "reason", reason, "attempts", attempts)
		b.Compensate(reason, now)
	}
	_ = c.deps.Availability.Invalidate(ctx, c.listing.ID)
	c.record(ctx, b)
}

// finish ends a booking cycle.
func (c *Controller) finish(phase Phase, clearSelection bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
	c.phase = phase
	c.busy = false
	if clearSelection {
		c.selection = calendar.Empty()
	}
}

func (c *Controller) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

func (c *Controller) record(ctx context.Context, b *booking.PendingBooking) {
	evs := b.Drain()
	if c.deps.Outbox == nil || len(evs) == 0 {
		return
	}
	if err := outbox.RecordDomainEvents(ctx, c.deps.Outbox, c.deps.Encoder, evs); err != nil {
		c.deps.Logger.Warn("booking events not recorded", "booking_id", b.ID, "error", err)
	}
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Busy reports whether a submission or callback is being processed.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}
