package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentflow/internal/app/checkout"
	"rentflow/internal/app/commands"
	"rentflow/internal/app/middleware"
	"rentflow/internal/app/queries"
	"rentflow/internal/domain/calendar"
	"rentflow/internal/domain/listings"
	"rentflow/internal/domain/pricing"
	"rentflow/internal/domain/shared/daterange"
	"rentflow/internal/infra/validation"
)

type errorPayload struct {
	Code     string            `json:"code"`
	Title    string            `json:"title,omitempty"`
	Message  string            `json:"message"`
	Navigate string            `json:"navigate,omitempty"`
	Date     string            `json:"date,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

type errorBody struct {
	Error errorPayload `json:"error"`
}

var alertStatus = map[checkout.AlertKind]int{
	checkout.AlertValidation:    http.StatusBadRequest,
	checkout.AlertConflict:      http.StatusConflict,
	checkout.AlertRetryable:     http.StatusServiceUnavailable,
	checkout.AlertAuth:          http.StatusUnauthorized,
	checkout.AlertPayment:       http.StatusBadGateway,
	checkout.AlertPaymentConfig: http.StatusOK,
}

// writeError maps application errors to a status and the JSON error envelope.
func writeError(c *gin.Context, err error) {
	status, payload := describeError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, errorBody{Error: payload})
}

func describeError(err error) (int, errorPayload) {
	if a, ok := checkout.IsAlert(err); ok {
		status, known := alertStatus[a.Kind]
		if !known {
			status = http.StatusInternalServerError
		}
		return status, errorPayload{Code: string(a.Kind), Title: a.Title, Message: a.Message, Navigate: string(a.Navigate)}
	}

	var verr *validation.Error
	if errors.As(err, &verr) {
		return http.StatusBadRequest, errorPayload{Code: "invalid_request", Message: "request validation failed", Fields: verr.Fields}
	}
	var rej *calendar.Rejection
	if errors.As(err, &rej) {
		p := errorPayload{Code: "date_rejected", Title: rej.Title, Message: rej.Message}
		if !rej.Date.IsZero() {
			p.Date = rej.Date.String()
		}
		return http.StatusUnprocessableEntity, p
	}

	switch {
	case errors.Is(err, checkout.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{Code: "unauthenticated", Message: "sign in required", Navigate: string(checkout.NavSignIn)}
	case errors.Is(err, checkout.ErrForbidden):
		return http.StatusForbidden, errorPayload{Code: "forbidden", Message: "checkout session belongs to another user"}
	case errors.Is(err, checkout.ErrSessionNotFound):
		return http.StatusNotFound, errorPayload{Code: "session_not_found", Message: "checkout session not found"}
	case errors.Is(err, listings.ErrListingNotFound):
		return http.StatusNotFound, errorPayload{Code: "listing_not_found", Message: "listing not found"}
	case errors.Is(err, middleware.ErrRequestInFlight):
		return http.StatusConflict, errorPayload{Code: "request_in_flight", Message: "this request is still being processed"}
	case errors.Is(err, checkout.ErrBookingInProgress):
		return http.StatusConflict, errorPayload{Code: "booking_in_progress", Message: "a booking attempt is already in progress"}
	case errors.Is(err, listings.ErrOwnerRequired), errors.Is(err, listings.ErrPriceRequired), errors.Is(err, listings.ErrDepositNegative):
		return http.StatusUnprocessableEntity, errorPayload{Code: "listing_not_bookable", Message: err.Error()}
	case errors.Is(err, pricing.ErrInvalidDeliveryMethod), errors.Is(err, daterange.ErrInvalidDay), errors.Is(err, daterange.ErrInvalidRange):
		return http.StatusBadRequest, errorPayload{Code: "invalid_request", Message: err.Error()}
	case errors.Is(err, commands.ErrHandlerNotFound), errors.Is(err, queries.ErrHandlerNotFound):
		return http.StatusNotImplemented, errorPayload{Code: "not_implemented", Message: "operation not available"}
	default:
		return http.StatusInternalServerError, errorPayload{Code: "internal", Message: "internal error"}
	}
}
