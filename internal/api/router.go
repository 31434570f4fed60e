package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/storefront/realtime/internal/api/handler"
	"github.com/storefront/realtime/internal/api/middleware"
	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/core/ports"
	"github.com/storefront/realtime/internal/hub"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	JWTSecret  string
	Log        zerolog.Logger
	Hub        *hub.Hub
	Events     ports.EventService
	Alerts     ports.AlertService
	Dispatcher handler.StockDispatcher
	// Health maps dependency names to readiness checks.
	Health map[string]handler.Pinger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	// --- Handlers ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Health, d.Hub)
	wsHandler := handler.NewWSHandler(d.Hub, d.Log)
	eventHandler := handler.NewEventHandler(d.Events)
	alertHandler := handler.NewAlertHandler(d.Alerts, d.Dispatcher)

	// --- Health probes and metrics (no auth required) ---
	e.GET("/health", healthHandler.Liveness)            // liveness
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")

	// --- Real-time stream (anonymous allowed) ---
	v1.GET("/ws", wsHandler.Connect, middleware.OptionalAuth(d.JWTSecret))

	// --- Collaborator and admin routes ---
	admin := v1.Group("", middleware.Auth(d.JWTSecret), middleware.RBAC(domain.RoleAdmin))
	admin.POST("/events", eventHandler.Publish)
	admin.POST("/events/batch", eventHandler.PublishBatch)
	admin.POST("/inventory/stock-changes", alertHandler.SubmitStockChanges)
	admin.GET("/inventory/transactions", alertHandler.ListTransactions)
	admin.GET("/alerts", alertHandler.ListAlerts)
	admin.POST("/alerts/:id/acknowledge", alertHandler.Acknowledge)

	return e
}
