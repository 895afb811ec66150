package checkout

import (
	"context"

	"rentflow/internal/app/checkout"
	"rentflow/internal/app/commands"
	"rentflow/internal/app/dto"
	"rentflow/internal/app/queries"
	"rentflow/internal/domain/availability"
	"rentflow/internal/domain/pricing"
)

const (
	openSessionKey  = "checkout.open_session"
	getSessionKey   = "checkout.get_session"
	closeSessionKey = "checkout.close_session"
)

// Sessions is the part of the registry the handlers use.
type Sessions interface {
	Open(ctx context.Context, listingID string, p checkout.Principal) (*checkout.Session, error)
	Lookup(id string, p checkout.Principal) (*checkout.Session, error)
	Close(id string, p checkout.Principal) error
}

// Actor is implemented by messages issued on behalf of a signed-in user.
type Actor interface {
	Principal() checkout.Principal
}

type OpenSessionCommand struct {
	ListingID string `validate:"required,max=128"`
	Actor     checkout.Principal
}

func (c OpenSessionCommand) Key() string                   { return openSessionKey }
func (c OpenSessionCommand) Principal() checkout.Principal { return c.Actor }

type OpenSessionHandler struct {
	Sessions    Sessions
	HorizonDays int
}

func (h *OpenSessionHandler) Handle(ctx context.Context, cmd OpenSessionCommand) (dto.CheckoutSession, error) {
	s, err := h.Sessions.Open(ctx, cmd.ListingID, cmd.Actor)
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	return sessionView(s, h.HorizonDays, nil), nil
}

type CloseSessionCommand struct {
	SessionID string `validate:"required"`
	Actor     checkout.Principal
}

func (c CloseSessionCommand) Key() string                   { return closeSessionKey }
func (c CloseSessionCommand) Principal() checkout.Principal { return c.Actor }

type CloseSessionHandler struct {
	Sessions Sessions
}

func (h *CloseSessionHandler) Handle(_ context.Context, cmd CloseSessionCommand) (struct{}, error) {
	return struct{}{}, h.Sessions.Close(cmd.SessionID, cmd.Actor)
}

type GetSessionQuery struct {
	SessionID string `validate:"required"`
	Actor     checkout.Principal
	Options   QuoteOptions
}

func (q GetSessionQuery) Key() string                   { return getSessionKey }
func (q GetSessionQuery) Principal() checkout.Principal { return q.Actor }

type GetSessionHandler struct {
	Sessions    Sessions
	HorizonDays int
}

func (h *GetSessionHandler) Handle(_ context.Context, q GetSessionQuery) (dto.CheckoutSession, error) {
	s, err := h.Sessions.Lookup(q.SessionID, q.Actor)
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	opts, err := q.Options.options()
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	return sessionView(s, h.HorizonDays, &opts), nil
}

func sessionView(s *checkout.Session, horizon int, opts *checkout.Options) dto.CheckoutSession {
	st := s.Controller.State()
	window := availability.Window(s.Controller.Today(), horizon)
	var quote *dto.Quote
	if opts != nil && !st.Selection.IsEmpty() {
		q := dto.MapQuote(s.Controller.Quote(*opts), st.Listing.CurrencyCode())
		quote = &q
	}
	return dto.MapCheckoutSession(s.ID, st, dto.AvailabilityWindow{From: window.Start.String(), To: window.End.String()}, quote)
}

// QuoteOptions are the raw booking options of a request.
type QuoteOptions struct {
	DeliveryMethod   string `validate:"omitempty,oneof=pickup delivery"`
	IncludeInsurance bool
	DeliveryAddress  string `validate:"max=500"`
	Message          string `validate:"max=1000"`
}

func (o QuoteOptions) options() (checkout.Options, error) {
	method, err := pricing.ParseDeliveryMethod(o.DeliveryMethod)
	if err != nil {
		return checkout.Options{}, err
	}
	return checkout.Options{
		DeliveryMethod:   method,
		IncludeInsurance: o.IncludeInsurance,
		DeliveryAddress:  o.DeliveryAddress,
		Message:          o.Message,
	}, nil
}

var (
	_ commands.Handler[OpenSessionCommand, dto.CheckoutSession] = (*OpenSessionHandler)(nil)
	_ commands.Handler[CloseSessionCommand, struct{}]           = (*CloseSessionHandler)(nil)
	_ queries.Handler[GetSessionQuery, dto.CheckoutSession]     = (*GetSessionHandler)(nil)
)
