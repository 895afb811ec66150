package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentflow/internal/app/dto"
	"rentflow/internal/app/policies"
	"rentflow/internal/domain/booking"
)

// PaymentRequests looks up a locally issued payment session.
type PaymentRequests interface {
	Request(sessionID string) (policies.PaymentSessionRequest, bool)
}

// BookingConfirmer marks a booking paid, standing in for the provider webhook.
type BookingConfirmer interface {
	Confirm(id booking.BookingID) error
}

// PaymentPageHandler describes a local payment session so a developer can drive the
// success, cancel and error callbacks by hand.
type PaymentPageHandler struct {
	Sessions PaymentRequests
	Bookings BookingConfirmer
}

func (h PaymentPageHandler) Show(c *gin.Context) {
	req, ok := h.Sessions.Request(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorBody{Error: errorPayload{Code: "payment_session_not_found", Message: "payment session not found"}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payment_session_id": c.Param("id"),
		"booking_id":         req.BookingID,
		"listing_id":         req.ListingID,
		"amount":             dto.MapMoney(req.Amount),
		"expires_at":         req.ExpiresAt,
		"callbacks":          []string{"success", "cancel", "error"},
	})
}

// Pay confirms the booking behind a local payment session. The client still reports the
// success callback on its checkout session afterwards.
func (h PaymentPageHandler) Pay(c *gin.Context) {
	req, ok := h.Sessions.Request(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorBody{Error: errorPayload{Code: "payment_session_not_found", Message: "payment session not found"}})
		return
	}
	if h.Bookings == nil {
		c.JSON(http.StatusNotImplemented, errorBody{Error: errorPayload{Code: "not_supported", Message: "bookings cannot be confirmed locally"}})
		return
	}
	if err := h.Bookings.Confirm(booking.BookingID(req.BookingID)); err != nil {
		if errors.Is(err, policies.ErrBookingNotFound) {
			c.JSON(http.StatusGone, errorBody{Error: errorPayload{Code: "booking_gone", Message: "the booking was cancelled or has expired"}})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": req.BookingID, "status": string(booking.StatusConfirmed)})
}

var _ PaymentPageHTTP = PaymentPageHandler{}
