package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	appavailability "rentflow/internal/app/availability"
	"rentflow/internal/app/checkout"
	"rentflow/internal/app/commands"
	"rentflow/internal/app/dto"
	availabilityhandlers "rentflow/internal/app/handlers/availability"
	checkouthandlers "rentflow/internal/app/handlers/checkout"
	"rentflow/internal/app/middleware"
	"rentflow/internal/app/policies"
	"rentflow/internal/app/queries"
	"rentflow/internal/domain/booking"
	"rentflow/internal/domain/shared/daterange"
	"rentflow/internal/infra/auth"
	memorycache "rentflow/internal/infra/cache/memory"
	"rentflow/internal/infra/config"
	"rentflow/internal/infra/obs"
	"rentflow/internal/infra/storage/memory"
	"rentflow/internal/infra/validation"
)

type testStack struct {
	router   *gin.Engine
	verifier *auth.Verifier
	bookings *memory.BookingStore
}

func newTestStack(t *testing.T, payments *memory.PaymentPage) *testStack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	verifier := auth.NewVerifier("test-secret")
	store := memory.NewBookingStore()
	listingRepo := memory.NewListingRepository(memory.DemoListings()...)

	fetcher := &appavailability.Fetcher{
		Source:      store,
		Cache:       memorycache.NewAvailabilityCache(),
		HorizonDays: 365,
		Logger:      logger,
	}
	registry := &checkout.Registry{
		Deps: checkout.Deps{
			Availability: fetcher,
			Conflicts:    store,
			Bookings:     store,
			Payments:     payments,
			Logger:       logger,
		},
		Config: checkout.Config{
			Barrier:           checkout.FixedDelay{},
			HorizonDays:       365,
			CompensationSleep: func(context.Context, time.Duration) error { return nil },
		},
		Listings: listingRepo,
		NewAuth:  auth.Factory(memory.Refresher{Minter: verifier}),
		Logger:   logger,
	}

	cmdBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	checkouthandlers.Register(cmdBus, queryBus, registry, 365)
	queries.RegisterHandler(queryBus, availabilityhandlers.GetAvailabilityQuery{}.Key(), &availabilityhandlers.GetAvailabilityHandler{Fetcher: fetcher})

	validator := validation.New()
	commandBus := middleware.ChainCommands(cmdBus,
		middleware.Authorization(checkouthandlers.ActorAuthorizer{}),
		middleware.Validation(validator),
		middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), middleware.JSONResultCodec{}),
	)
	queryBusChain := middleware.ChainQueries(queryBus,
		middleware.QueryAuthorization(checkouthandlers.ActorAuthorizer{}),
		middleware.QueryValidation(validator),
	)

	router := NewRouter(config.Config{Env: "test"}, obs.Middleware{Logger: logger}, obs.HealthHandlers{}, Handlers{
		Checkout:       CheckoutHandler{Commands: commandBus, Queries: queryBusChain},
		Availability:   AvailabilityHandler{Queries: queryBusChain},
		PaymentPage:    PaymentPageHandler{Sessions: payments, Bookings: store},
		AuthMiddleware: AuthMiddleware{Verifier: verifier, Logger: logger}.Handle,
	})
	return &testStack{router: router, verifier: verifier, bookings: store}
}

func (s *testStack) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := s.verifier.Mint(userID, time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return token
}

func (s *testStack) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(refreshTokenHeader, "refresh:renter")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (s *testStack) openSession(t *testing.T, token string) dto.CheckoutSession {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/checkout/sessions", token, map[string]string{"listing_id": "demo-camera"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open session: status %d body %s", rec.Code, rec.Body.String())
	}
	return decode[dto.CheckoutSession](t, rec)
}

func (s *testStack) selectDates(t *testing.T, token, sessionID string, from, to daterange.Day) {
	t.Helper()
	for _, d := range []daterange.Day{from, to} {
		rec := s.do(t, http.MethodPost, "/api/v1/checkout/sessions/"+sessionID+"/taps", token, map[string]string{"date": d.String()})
		if rec.Code != http.StatusOK {
			t.Fatalf("tap %s: status %d body %s", d, rec.Code, rec.Body.String())
		}
	}
}

func TestCheckoutRequiresToken(t *testing.T) {
	s := newTestStack(t, &memory.PaymentPage{})
	rec := s.do(t, http.MethodPost, "/api/v1/checkout/sessions", "", map[string]string{"listing_id": "demo-camera"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	body := decode[errorBody](t, rec)
	if body.Error.Navigate != string(checkout.NavSignIn) {
		t.Fatalf("expected sign_in navigation, got %+v", body.Error)
	}
}

func TestCheckoutBookingAndCancel(t *testing.T) {
	s := newTestStack(t, &memory.PaymentPage{BaseURL: "http://pay.test"})
	token := s.token(t, "renter")
	session := s.openSession(t, token)
	if session.Phase != string(checkout.PhaseIdle) || session.Listing.ID != "demo-camera" {
		t.Fatalf("unexpected session %+v", session)
	}

	today := daterange.DayOf(time.Now())
	from, to := today.AddDays(10), today.AddDays(12)
	s.selectDates(t, token, session.ID, from, to)

	rec := s.do(t, http.MethodGet, "/api/v1/checkout/sessions/"+session.ID+"/quote", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("quote: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/checkout/sessions/"+session.ID+"/booking", token, map[string]any{"delivery_method": "pickup"})
	if rec.Code != http.StatusOK {
		t.Fatalf("start booking: status %d body %s", rec.Code, rec.Body.String())
	}
	handoff := decode[dto.BookingHandoff](t, rec)
	if handoff.URL == "" || handoff.BookingID == "" {
		t.Fatalf("unexpected handoff %+v", handoff)
	}
	if _, err := s.bookings.ByID(t.Context(), booking.BookingID(handoff.BookingID)); err != nil {
		t.Fatalf("booking not stored: %v", err)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/checkout/sessions/"+session.ID+"/payment/cancel", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: status %d body %s", rec.Code, rec.Body.String())
	}
	outcome := decode[dto.PaymentOutcome](t, rec)
	if !outcome.Handled || outcome.Phase != string(checkout.PhaseCancelledByUser) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if _, err := s.bookings.ByID(t.Context(), booking.BookingID(handoff.BookingID)); !errors.Is(err, policies.ErrBookingNotFound) {
		t.Fatalf("expected booking deleted, got %v", err)
	}
}

func TestLocalPaymentPageConfirmsBooking(t *testing.T) {
	pages := &memory.PaymentPage{BaseURL: "http://pay.test"}
	s := newTestStack(t, pages)
	token := s.token(t, "renter")
	session := s.openSession(t, token)
	today := daterange.DayOf(time.Now())
	s.selectDates(t, token, session.ID, today.AddDays(5), today.AddDays(6))

	rec := s.do(t, http.MethodPost, "/api/v1/checkout/sessions/"+session.ID+"/booking", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start booking: status %d body %s", rec.Code, rec.Body.String())
	}
	handoff := decode[dto.BookingHandoff](t, rec)

	rec = s.do(t, http.MethodGet, "/pay/"+handoff.PaymentSessionID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("show: status %d body %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/pay/"+handoff.PaymentSessionID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pay: status %d body %s", rec.Code, rec.Body.String())
	}
	row, err := s.bookings.ByID(t.Context(), booking.BookingID(handoff.BookingID))
	if err != nil || row.Status != booking.StatusConfirmed {
		t.Fatalf("booking not confirmed: %+v %v", row, err)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/checkout/sessions/"+session.ID+"/payment/success", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("success: status %d body %s", rec.Code, rec.Body.String())
	}
	if out := decode[dto.PaymentOutcome](t, rec); out.Phase != string(checkout.PhaseConfirmed) {
		t.Fatalf("unexpected outcome %+v", out)
	}

	rec = s.do(t, http.MethodDelete, "/api/v1/checkout/sessions/"+session.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("close: status %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, "/api/v1/checkout/sessions/"+session.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after close, got %d", rec.Code)
	}
}

func TestCheckoutRejectsPastDate(t *testing.T) {
	s := newTestStack(t, &memory.PaymentPage{})
	token := s.token(t, "renter")
	session := s.openSession(t, token)

	yesterday := daterange.DayOf(time.Now()).AddDays(-1)
	rec := s.do(t, http.MethodPost, "/api/v1/checkout/sessions/"+session.ID+"/taps", token, map[string]string{"date": yesterday.String()})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutSessionOwnership(t *testing.T) {
	s := newTestStack(t, &memory.PaymentPage{})
	session := s.openSession(t, s.token(t, "renter"))

	rec := s.do(t, http.MethodGet, "/api/v1/checkout/sessions/"+session.ID, s.token(t, "someone-else"), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, "/api/v1/checkout/sessions/unknown", s.token(t, "renter"), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCheckoutPaymentsNotConfigured(t *testing.T) {
	s := newTestStack(t, &memory.PaymentPage{Disabled: true})
	token := s.token(t, "renter")
	session := s.openSession(t, token)
	today := daterange.DayOf(time.Now())
	s.selectDates(t, token, session.ID, today.AddDays(3), today.AddDays(4))

	rec := s.do(t, http.MethodPost, "/api/v1/checkout/sessions/"+session.ID+"/booking", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
	}
	body := decode[errorBody](t, rec)
	if body.Error.Code != string(checkout.AlertPaymentConfig) || body.Error.Navigate != string(checkout.NavBookings) {
		t.Fatalf("unexpected payload %+v", body.Error)
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	s := newTestStack(t, &memory.PaymentPage{})
	today := daterange.DayOf(time.Now())
	s.bookings.Block("demo-tent", daterange.Range{Start: today.AddDays(2), End: today.AddDays(3)})

	rec := s.do(t, http.MethodGet, "/api/v1/listings/demo-tent/availability?from="+today.String()+"&to="+today.AddDays(5).String(), s.token(t, "renter"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	got := decode[dto.Availability](t, rec)
	if got.Degraded || len(got.Dates) == 0 {
		t.Fatalf("unexpected availability %+v", got)
	}
}

func TestSwaggerDocsUseETag(t *testing.T) {
	stack := newTestStack(t, &memory.PaymentPage{})

	rec := stack.do(t, http.MethodGet, "/swagger/openapi.json", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("doc status %d", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/swagger/openapi.json", nil)
	req.Header.Set("If-None-Match", etag)
	cached := httptest.NewRecorder()
	stack.router.ServeHTTP(cached, req)
	if cached.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", cached.Code)
	}

	page := stack.do(t, http.MethodGet, "/swagger", "", nil)
	if page.Code != http.StatusOK || !bytes.Contains(page.Body.Bytes(), []byte("/swagger/openapi.json")) {
		t.Fatalf("swagger page did not reference the document: %d", page.Code)
	}
}
