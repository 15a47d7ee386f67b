package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crimson-sun/flightwatch/internal/model"
)

// FlightLister returns the flights currently touching the watch-list.
type FlightLister interface {
	ListCurrent(ctx context.Context) ([]model.FlightRecord, bool, error)
}

type FlightsHandler struct {
	lister FlightLister
}

func NewFlightsHandler(l FlightLister) *FlightsHandler {
	return &FlightsHandler{lister: l}
}

// List serves GET /flights.
func (h *FlightsHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	records, ok, err := h.lister.ListCurrent(ctx)
	if !ok {
		slog.WarnContext(ctx, "listing fetch failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Error fetching flight data"})
		return
	}
	if records == nil {
		records = []model.FlightRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "flights": records})
}
