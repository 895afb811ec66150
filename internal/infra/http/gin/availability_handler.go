package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentflow/internal/app/dto"
	availabilityapp "rentflow/internal/app/handlers/availability"
	"rentflow/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
}

// Availability never fails on backend errors: the body carries degraded=true instead.
func (h AvailabilityHandler) Availability(c *gin.Context) {
	if _, ok := requireRenter(c); !ok {
		return
	}
	query := availabilityapp.GetAvailabilityQuery{ListingID: c.Param("id"), From: c.Query("from"), To: c.Query("to")}
	result, err := queries.Ask[availabilityapp.GetAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
