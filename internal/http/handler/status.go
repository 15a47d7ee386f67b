package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crimson-sun/flightwatch/internal/engine/dedup"
	"github.com/crimson-sun/flightwatch/internal/model"
)

// StatusSource exposes the monitor state. *engine.Session satisfies it.
type StatusSource interface {
	LastChecked() time.Time
	WatchList() model.WatchList
	Store() dedup.Store
}

type StatusHandler struct {
	source   StatusSource
	schedule string
}

func NewStatusHandler(src StatusSource, schedule string) *StatusHandler {
	return &StatusHandler{source: src, schedule: schedule}
}

// Get serves GET /status.
func (h *StatusHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	reported, err := h.source.Store().Len(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "count reported keys failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reported store unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"last_checked": h.source.LastChecked().UTC().Format(time.RFC3339),
		"watch_list":   h.source.WatchList().Codes(),
		"reported":     reported,
		"schedule":     h.schedule,
	})
}

// Health serves GET /healthz.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
