// Package handler contains the HTTP layer: request decoding, calls
// into the reservation engine and services, and error-to-status
// mapping.
package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mxkwnz/Mangekyo-Films/internal/model"
	"github.com/mxkwnz/Mangekyo-Films/internal/reservation"
)

// currentUserID returns the authenticated user's id as stored by the
// JWT middleware.  Zero means unauthenticated.
func currentUserID(c echo.Context) uint64 {
	if v, ok := c.Get("user_id").(uint64); ok {
		return v
	}
	return 0
}

// currentActor builds the reservation actor for the request.
func currentActor(c echo.Context) reservation.Actor {
	role, _ := c.Get("role").(string)
	return reservation.Actor{
		ID:    currentUserID(c),
		Admin: role == model.RoleAdmin,
	}
}

// pathID parses the named path parameter as a positive uint64.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
