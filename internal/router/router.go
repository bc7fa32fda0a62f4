package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/event-ticket-vault/internal/handler"    // handlers translating HTTP to ticket operations
	"github.com/iliyamo/event-ticket-vault/internal/middleware" // JWT owner authentication and rate limiting
)

// RegisterRoutes registers routes that do not require authentication:
// liveness at /healthz and store readiness at /readyz.
func RegisterRoutes(e *echo.Echo, ping handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(ping))
}

// RegisterEvents registers the owner-scoped event and ticket routes under
// /v1/events.  JWTAuth runs first so the rate limiter can key on the
// owner; extra middleware (the limiter) is applied after it.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, jwtSecret string, extra ...echo.MiddlewareFunc) {
	g := e.Group("/v1/events")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(extra...)

	g.POST("", h.CreateEvent)
	g.GET("", h.ListEvents)
	g.GET("/:name", h.GetEvent)
	g.DELETE("/:name", h.DeleteEvent)
	g.POST("/:name/extend", h.ExtendEvent)

	g.POST("/:name/tickets", h.IssueTicket)
	g.POST("/:name/verify", h.VerifyTicket)
	g.POST("/:name/refund", h.RefundTicket)
}
