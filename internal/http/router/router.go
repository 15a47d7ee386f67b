package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/crimson-sun/flightwatch/internal/http/handler"
	"github.com/crimson-sun/flightwatch/internal/http/middleware"
)

type Config struct {
	ServiceName string
	Tracing     bool // install otelgin
	Schedule    string
}

// New builds the gin engine serving the listing and status endpoints.
func New(cfg Config, lister handler.FlightLister, status handler.StatusSource) *gin.Engine {
	router := gin.New()

	// OTel creates the span, Recovery catches panics, Logger logs with trace context.
	if cfg.Tracing {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	SetupRoutes(router, handler.NewFlightsHandler(lister), handler.NewStatusHandler(status, cfg.Schedule))
	return router
}

func SetupRoutes(router *gin.Engine, flights *handler.FlightsHandler, status *handler.StatusHandler) {
	router.GET("/healthz", handler.Health)
	router.GET("/flights", flights.List)
	router.GET("/status", status.Get)
}
