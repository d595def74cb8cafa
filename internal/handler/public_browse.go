package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mxkwnz/Mangekyo-Films/internal/repository"
)

// PublicHandler exposes unauthenticated browse endpoints: upcoming
// sessions, hall layouts and live seat availability.  Guests use these
// to pick a seat before registering.
type PublicHandler struct {
	Sessions *repository.SessionRepo
	Halls    *repository.HallRepo
	Engine   ReservationService
}

func NewPublicHandler(sessions *repository.SessionRepo, halls *repository.HallRepo, engine ReservationService) *PublicHandler {
	return &PublicHandler{Sessions: sessions, Halls: halls, Engine: engine}
}

// ListSessions returns upcoming sessions, soonest first.
func (h *PublicHandler) ListSessions(c echo.Context) error {
	sessions, err := h.Sessions.ListUpcoming(c.Request().Context(), time.Now())
	if err != nil {
		c.Logger().Errorf("list sessions: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": sessions})
}

// GetSession returns one session together with its hall.
func (h *PublicHandler) GetSession(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	sess, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	hall, err := h.Halls.GetByID(ctx, sess.HallID)
	if err != nil {
		c.Logger().Errorf("load hall %d: %v", sess.HallID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"session": sess, "hall": hall})
}

// HallLayout returns the seat grid dimensions of a hall.  Rows and
// seats are numbered from 1.
func (h *PublicHandler) HallLayout(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hall id"})
	}
	hall, err := h.Halls.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrHallNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hall not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hall_id":       hall.ID,
		"name":          hall.Name,
		"rows":          hall.TotalRows,
		"seats_per_row": hall.SeatsPerRow,
	})
}

// SessionSeats returns the seat map for a session: the hall grid plus
// the currently occupied coordinates.  Availability may be served from
// a short-lived cache; the booking endpoint re-checks under its own
// lock, so a stale view can never produce a double booking.
func (h *PublicHandler) SessionSeats(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	sess, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	hall, err := h.Halls.GetByID(ctx, sess.HallID)
	if err != nil {
		c.Logger().Errorf("load hall %d: %v", sess.HallID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	occupied, err := h.Engine.OccupiedSeats(ctx, id)
	if err != nil {
		c.Logger().Errorf("occupied seats for session %d: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id":    sess.ID,
		"rows":          hall.TotalRows,
		"seats_per_row": hall.SeatsPerRow,
		"occupied":      occupied,
	})
}
