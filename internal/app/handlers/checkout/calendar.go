package checkout

import (
	"context"

	"rentflow/internal/app/checkout"
	"rentflow/internal/app/commands"
	"rentflow/internal/app/dto"
	"rentflow/internal/app/queries"
	"rentflow/internal/domain/shared/daterange"
)

const (
	getCalendarKey     = "checkout.get_calendar"
	refreshCalendarKey = "checkout.refresh_calendar"
	tapDateKey         = "checkout.tap_date"
	clearSelectionKey  = "checkout.clear_selection"
	quoteKey           = "checkout.quote"
)

type GetCalendarQuery struct {
	SessionID string `validate:"required"`
	Actor     checkout.Principal
}

func (q GetCalendarQuery) Key() string                   { return getCalendarKey }
func (q GetCalendarQuery) Principal() checkout.Principal { return q.Actor }

type GetCalendarHandler struct {
	Sessions Sessions
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	s, err := h.Sessions.Lookup(q.SessionID, q.Actor)
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(s.Controller.Calendar(ctx)), nil
}

// RefreshCalendarCommand drops cached availability before rendering the calendar.
type RefreshCalendarCommand struct {
	SessionID string `validate:"required"`
	Actor     checkout.Principal
}

func (c RefreshCalendarCommand) Key() string                   { return refreshCalendarKey }
func (c RefreshCalendarCommand) Principal() checkout.Principal { return c.Actor }

type RefreshCalendarHandler struct {
	Sessions Sessions
}

func (h *RefreshCalendarHandler) Handle(ctx context.Context, cmd RefreshCalendarCommand) (dto.Calendar, error) {
	s, err := h.Sessions.Lookup(cmd.SessionID, cmd.Actor)
	if err != nil {
		return dto.Calendar{}, err
	}
	s.Controller.Refresh(ctx)
	return dto.MapCalendar(s.Controller.Calendar(ctx)), nil
}

type TapDateCommand struct {
	SessionID string `validate:"required"`
	Date      string `validate:"required,datetime=2006-01-02"`
	Actor     checkout.Principal
}

func (c TapDateCommand) Key() string                   { return tapDateKey }
func (c TapDateCommand) Principal() checkout.Principal { return c.Actor }

type TapDateHandler struct {
	Sessions Sessions
}

func (h *TapDateHandler) Handle(ctx context.Context, cmd TapDateCommand) (dto.Calendar, error) {
	s, err := h.Sessions.Lookup(cmd.SessionID, cmd.Actor)
	if err != nil {
		return dto.Calendar{}, err
	}
	d, err := daterange.ParseDay(cmd.Date)
	if err != nil {
		return dto.Calendar{}, err
	}
	if _, err := s.Controller.Tap(ctx, d); err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(s.Controller.Calendar(ctx)), nil
}

type ClearSelectionCommand struct {
	SessionID string `validate:"required"`
	Actor     checkout.Principal
}

func (c ClearSelectionCommand) Key() string                   { return clearSelectionKey }
func (c ClearSelectionCommand) Principal() checkout.Principal { return c.Actor }

type ClearSelectionHandler struct {
	Sessions    Sessions
	HorizonDays int
}

func (h *ClearSelectionHandler) Handle(_ context.Context, cmd ClearSelectionCommand) (dto.CheckoutSession, error) {
	s, err := h.Sessions.Lookup(cmd.SessionID, cmd.Actor)
	if err != nil {
		return dto.CheckoutSession{}, err
	}
	s.Controller.Clear()
	return sessionView(s, h.HorizonDays, nil), nil
}

type QuoteQuery struct {
	SessionID string `validate:"required"`
	Actor     checkout.Principal
	Options   QuoteOptions
}

func (q QuoteQuery) Key() string                   { return quoteKey }
func (q QuoteQuery) Principal() checkout.Principal { return q.Actor }

type QuoteHandler struct {
	Sessions Sessions
}

func (h *QuoteHandler) Handle(_ context.Context, q QuoteQuery) (dto.Quote, error) {
	s, err := h.Sessions.Lookup(q.SessionID, q.Actor)
	if err != nil {
		return dto.Quote{}, err
	}
	opts, err := q.Options.options()
	if err != nil {
		return dto.Quote{}, err
	}
	return dto.MapQuote(s.Controller.Quote(opts), s.Controller.Listing().CurrencyCode()), nil
}

var (
	_ queries.Handler[GetCalendarQuery, dto.Calendar]              = (*GetCalendarHandler)(nil)
	_ commands.Handler[RefreshCalendarCommand, dto.Calendar]       = (*RefreshCalendarHandler)(nil)
	_ commands.Handler[TapDateCommand, dto.Calendar]               = (*TapDateHandler)(nil)
	_ commands.Handler[ClearSelectionCommand, dto.CheckoutSession] = (*ClearSelectionHandler)(nil)
	_ queries.Handler[QuoteQuery, dto.Quote]                       = (*QuoteHandler)(nil)
)
