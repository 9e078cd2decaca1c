// Package router wires handlers, middleware and route groups onto an
// Echo instance.  Organizer and customer endpoints live behind JWTAuth
// plus RequireRole; the public discovery routes stay open and optionally
// cache through Redis.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/avetikov/event-ticketing/internal/handler"
	"github.com/avetikov/event-ticketing/internal/middleware"
	"github.com/avetikov/event-ticketing/internal/model"
)

// RegisterHealth exposes the liveness endpoint.
func RegisterHealth(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth mounts the session endpoints under /v1/auth.  The rate
// limiter guards the unauthenticated entry points against credential
// stuffing; logout and /v1/me need a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, p *handler.ProfileHandler,
	jwtSecret string, rl echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if rl != nil {
		g.Use(rl)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.POST("/auth/logout", a.Logout)
	auth.GET("/me", p.Me)
	auth.PUT("/me", p.Update)
	auth.DELETE("/me", p.Delete)
}

// RegisterPublic mounts the unauthenticated discovery routes.  The
// cache middleware is optional and a nil value disables caching.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/events")
	if cache != nil {
		g.Use(cache)
	}
	g.GET("", p.Search)
	g.GET("/:id", p.Get)
}

// RegisterOrganizer mounts the event-management routes.  Everything in
// the group requires the organizer role.
func RegisterOrganizer(e *echo.Echo, h *handler.OrganizerHandler, jwtSecret string) {
	g := e.Group("/v1/organizer",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOrganizer))
	g.POST("/events", h.Create)
	g.GET("/events", h.ListMine)
	g.PUT("/events/:id", h.Update)
	g.DELETE("/events/:id", h.Delete)
	g.GET("/events/:id/bookings", h.EventBookings)
	g.GET("/tickets/:id/waitlist", h.TicketWaitlist)
}

// RegisterCustomer mounts the booking and waitlist routes.  Everything
// in the group requires the customer role.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, w *handler.WaitlistHandler, jwtSecret string) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer))
	g.POST("/bookings", b.Create)
	g.GET("/bookings", b.ListMine)
	g.DELETE("/bookings/:id", b.Cancel)
	g.POST("/waitlist", w.Join)
	g.GET("/waitlist", w.ListMine)
}
