// Package router wires handlers to routes and applies the middleware
// each route group needs.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/mxkwnz/Mangekyo-Films/internal/handler"
)

// RegisterPublic registers routes that require no authentication: the
// health check and the guest browse endpoints (sessions, hall layouts
// and live seat maps).
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler) {
	e.GET("/healthz", handler.Health)

	e.GET("/v1/sessions", p.ListSessions)
	e.GET("/v1/sessions/:id", p.GetSession)
	e.GET("/v1/sessions/:id/seats", p.SessionSeats)
	e.GET("/v1/halls/:id/layout", p.HallLayout)
}

// RegisterAuth registers the token endpoints.  Register, login,
// refresh and logout work without an access token; /v1/me requires
// one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	registerProtected(e, jwtSecret, func(auth *echo.Group) {
		auth.GET("/me", a.Me)
		auth.POST("/logout", a.Logout)
	})
}
