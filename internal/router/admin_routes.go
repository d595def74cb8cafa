package router

import (
	"github.com/labstack/echo/v4"

	"github.com/mxkwnz/Mangekyo-Films/internal/handler"
	"github.com/mxkwnz/Mangekyo-Films/internal/middleware"
	"github.com/mxkwnz/Mangekyo-Films/internal/model"
)

// RegisterAdmin registers the catalog management endpoints behind the
// ADMIN role.
func RegisterAdmin(e *echo.Echo, cat *handler.AdminCatalogHandler, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))

	g.POST("/halls", cat.CreateHall)
	g.GET("/halls", cat.ListHalls)
	g.POST("/sessions", cat.CreateSession)
	g.GET("/sessions", cat.ListSessions)
	g.GET("/sessions/:id/bookings", b.SessionBookings)
}
