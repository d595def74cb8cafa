package router

import (
	"github.com/labstack/echo/v4"

	"github.com/mxkwnz/Mangekyo-Films/internal/handler"
	"github.com/mxkwnz/Mangekyo-Films/internal/middleware"
	"github.com/mxkwnz/Mangekyo-Films/internal/model"
)

// registerProtected groups routes behind JWT authentication.  Both
// roles pass; finer checks are per-group.
func registerProtected(e *echo.Echo, jwtSecret string, register func(g *echo.Group)) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))
	register(g)
}

// RegisterCustomer registers the booking and wallet endpoints.  Any
// authenticated user may book and cancel; the engine enforces that
// only the holder or an admin can cancel a given booking.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, w *handler.WalletHandler, jwtSecret string) {
	registerProtected(e, jwtSecret, func(g *echo.Group) {
		g.POST("/sessions/:id/book", b.Book)
		g.DELETE("/bookings/:id", b.Cancel)
		g.GET("/my-bookings", b.MyBookings)

		g.GET("/wallet", w.Balance)
		g.POST("/wallet/topup", w.TopUp)
		g.GET("/wallet/payments", w.History)
	})
}
