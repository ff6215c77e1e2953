package router // route registration for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/handler"
	"github.com/iliyamo/event-ticket-booking/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication at all.
func RegisterRoutes(e *echo.Echo) {
	// Health probe for load balancers and monitoring.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers authentication routes and the authenticated
// /v1/me endpoint.  Unauthenticated session operations live under
// /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout takes the refresh token in the body, so no JWT required.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ORGANIZER", "CUSTOMER"))
	auth.GET("/me", a.Me)
}

// RegisterCatalog registers the event catalog: public browse endpoints
// plus organizer-only writes for events and categories.  The response
// cache wraps only the public reads; cache keys carry no user identity,
// so authenticated responses must never pass through it.
func RegisterCatalog(e *echo.Echo, ev *handler.EventHandler, cat *handler.CategoryHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	// Public browsing, no token needed.
	e.GET("/v1/events", ev.List, cache)
	e.GET("/v1/events/:id", ev.Get, cache)
	e.GET("/v1/categories", cat.List, cache)
	e.GET("/v1/categories/:id", cat.Get, cache)

	org := e.Group("/v1")
	org.Use(middleware.JWTAuth(jwtSecret))
	org.Use(middleware.RequireRole("ORGANIZER"))
	org.POST("/events", ev.Create)
	org.PUT("/events/:id", ev.Update)
	org.DELETE("/events/:id", ev.Delete)
	org.POST("/categories", cat.Create)
	org.PUT("/categories/:id", cat.Update)
	org.DELETE("/categories/:id", cat.Delete)
}

// RegisterSeats registers the seat map and reservation endpoints.  The
// seat map is public; claiming and releasing require a session.
func RegisterSeats(e *echo.Echo, s *handler.SeatHandler, jwtSecret string) {
	e.GET("/v1/events/:id/seats", s.ListByEvent)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ORGANIZER", "CUSTOMER"))
	auth.POST("/events/:id/seats/reserve", s.Reserve)
	auth.POST("/events/:id/seats/release", s.Release)
	auth.GET("/my-seats", s.MySeats)
}

// RegisterBookings registers the per-user booking endpoints.  All of
// them require a session.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
	auth := e.Group("/v1/bookings")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ORGANIZER", "CUSTOMER"))
	auth.GET("", b.GetSummary)
	auth.POST("/:event_id", b.AddItem)
	auth.DELETE("/:event_id", b.RemoveItem)
	auth.DELETE("", b.Clear)
}
