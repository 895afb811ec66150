package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentflow/internal/app/commands"
	"rentflow/internal/app/dto"
	checkoutapp "rentflow/internal/app/handlers/checkout"
	"rentflow/internal/app/queries"
)

type CheckoutHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type openSessionRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
}

type tapRequest struct {
	Date string `json:"date" binding:"required"`
}

type bookingRequest struct {
	DeliveryMethod   string `json:"delivery_method"`
	IncludeInsurance bool   `json:"include_insurance"`
	DeliveryAddress  string `json:"delivery_address"`
	Message          string `json:"message"`
}

func (r bookingRequest) options() checkoutapp.QuoteOptions {
	return checkoutapp.QuoteOptions{
		DeliveryMethod:   r.DeliveryMethod,
		IncludeInsurance: r.IncludeInsurance,
		DeliveryAddress:  r.DeliveryAddress,
		Message:          r.Message,
	}
}

type quoteParams struct {
	DeliveryMethod   string `form:"delivery_method"`
	IncludeInsurance bool   `form:"include_insurance"`
}

func (p quoteParams) options() checkoutapp.QuoteOptions {
	return checkoutapp.QuoteOptions{DeliveryMethod: p.DeliveryMethod, IncludeInsurance: p.IncludeInsurance}
}

type paymentErrorRequest struct {
	Message string `json:"message"`
}

func (h CheckoutHandler) Open(c *gin.Context) {
	user, ok := requireRenter(c)
	if !ok {
		return
	}
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorPayload{Code: "invalid_request", Message: err.Error()}})
		return
	}
	cmd := checkoutapp.OpenSessionCommand{ListingID: req.ListingID, Actor: user}
	result, err := commands.Dispatch[checkoutapp.OpenSessionCommand, dto.CheckoutSession](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h CheckoutHandler) Get(c *gin.Context) {
	user, ok := requireRenter(c)
	if !ok {
		return
	}
	var params quoteParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorPayload{Code: "invalid_request", Message: err.Error()}})
		return
	}
	q := checkoutapp.GetSessionQuery{SessionID: c.Param("id"), Actor: user, Options: params.options()}
	result, err := queries.Ask[checkoutapp.GetSessionQuery, dto.CheckoutSession](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Close discards the session. An unpaid booking it created stays until its hold expires.
func (h CheckoutHandler) Close(c *gin.Context) {
	user, ok := requireRenter(c)
	if !ok {
		return
	}
	cmd := checkoutapp.CloseSessionCommand{SessionID: c.Param("id"), Actor: user}
	if _, err := commands.Dispatch[checkoutapp.CloseSessionCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h CheckoutHandler) Calendar(c *gin.Context) {
	user, ok := requireRenter(c)
	if !ok {
		return
	}
	q := checkoutapp.GetCalendarQuery{SessionID: c.Param("id"), Actor: user}
	result, err := queries.Ask[checkoutapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CheckoutHandler) RefreshCalendar(c *gin.Context) {
	user, ok := requireRenter(c)
	if !ok {
		return
	}
	cmd := checkoutapp.RefreshCalendarCommand{SessionID: c.Param("id"), Actor: user}
	result, err := commands.Dispatch[checkoutapp.RefreshCalendarCommand, dto.Calendar](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CheckoutHandler) Tap(c *gin.Context) {
	user, ok := requireRenter(c)
	if !ok {
		return
	}
	var req tapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorPayload{Code: "invalid_request", Message: err.Error()}})
		return
	}
	cmd := checkoutapp.TapDateCommand{SessionID: c.Param("id"), Date: req.Date, Actor: user}
	result, err := commands.Dispatch[checkoutapp.TapDateCommand, dto.Calendar](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CheckoutHandler) ClearSelection(c *gin.Context) {
	user, ok := requireRenter(c)
	if !ok {
		return
	}
	cmd := checkoutapp.ClearSelectionCommand{SessionID: c.Param("id"), Actor: user}
	result, err := commands.Dispatch[checkoutapp.ClearSelectionCommand, dto.CheckoutSession](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CheckoutHandler) Quote(c *gin.Context) {
	user, ok := requireRenter(c)
	if !ok {
		return
	}
	var params quoteParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorPayload{Code: "invalid_request", Message: err.Error()}})
		return
	}
	q := checkoutapp.QuoteQuery{SessionID: c.Param("id"), Actor: user, Options: params.options()}
	result, err := queries.Ask[checkoutapp.QuoteQuery, dto.Quote](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// StartBooking runs the whole booking flow up to the payment handoff. A payment_config
// alert is returned with 200 because the booking itself was created.
func (h CheckoutHandler) StartBooking(c *gin.Context) {
	user, ok := requireRenter(c)
	if !ok {
		return
	}
	var req bookingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Error: errorPayload{Code: "invalid_request", Message: err.Error()}})
			return
		}
	}
	cmd := checkoutapp.StartBookingCommand{
		SessionID:       c.Param("id"),
		Options:         req.options(),
		Actor:           user,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[checkoutapp.StartBookingCommand, *dto.BookingHandoff](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CheckoutHandler) PaymentCallback(c *gin.Context) {
	user, ok := requireRenter(c)
	if !ok {
		return
	}
	result := checkoutapp.PaymentResult(c.Param("result"))
	var req paymentErrorRequest
	if result == checkoutapp.PaymentError && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Error: errorPayload{Code: "invalid_request", Message: err.Error()}})
			return
		}
	}
	cmd := checkoutapp.PaymentCallbackCommand{SessionID: c.Param("id"), Result: result, Message: req.Message, Actor: user}
	out, err := commands.Dispatch[checkoutapp.PaymentCallbackCommand, dto.PaymentOutcome](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

var _ CheckoutHTTP = CheckoutHandler{}
