package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mxkwnz/Mangekyo-Films/internal/model"
	"github.com/mxkwnz/Mangekyo-Films/internal/repository"
)

// AdminCatalogHandler manages the hall and session catalog.  All
// routes are behind the ADMIN role.
type AdminCatalogHandler struct {
	Halls    *repository.HallRepo
	Sessions *repository.SessionRepo
}

func NewAdminCatalogHandler(halls *repository.HallRepo, sessions *repository.SessionRepo) *AdminCatalogHandler {
	return &AdminCatalogHandler{Halls: halls, Sessions: sessions}
}

type createHallReq struct {
	Name        string `json:"name"`
	TotalRows   uint32 `json:"total_rows"`
	SeatsPerRow uint32 `json:"seats_per_row"`
}

type createSessionReq struct {
	HallID     uint64    `json:"hall_id"`
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"starts_at"`
	PriceCents uint32    `json:"price_cents"`
}

// CreateHall registers a hall with a fixed seat grid.  The grid is
// immutable once created; resizing a live hall would orphan bookings
// outside the new bounds.
func (h *AdminCatalogHandler) CreateHall(c echo.Context) error {
	var req createHallReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.TotalRows == 0 || req.SeatsPerRow == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_rows and seats_per_row must be positive"})
	}

	hall := &model.Hall{Name: req.Name, TotalRows: req.TotalRows, SeatsPerRow: req.SeatsPerRow}
	if err := h.Halls.Create(c.Request().Context(), hall); err != nil {
		c.Logger().Errorf("create hall: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create hall failed"})
	}
	return c.JSON(http.StatusCreated, hall)
}

// ListHalls returns every hall.
func (h *AdminCatalogHandler) ListHalls(c echo.Context) error {
	halls, err := h.Halls.ListAll(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("list halls: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"halls": halls})
}

// CreateSession schedules a screening in an existing hall.
func (h *AdminCatalogHandler) CreateSession(c echo.Context) error {
	var req createSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if req.StartsAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at required"})
	}

	ctx := c.Request().Context()
	if _, err := h.Halls.GetByID(ctx, req.HallID); err != nil {
		if errors.Is(err, repository.ErrHallNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hall not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	sess := &model.Session{
		HallID:     req.HallID,
		Title:      req.Title,
		StartsAt:   req.StartsAt,
		PriceCents: req.PriceCents,
	}
	if err := h.Sessions.Create(ctx, sess); err != nil {
		c.Logger().Errorf("create session: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	return c.JSON(http.StatusCreated, sess)
}

// ListSessions returns every session including past ones, newest
// first.
func (h *AdminCatalogHandler) ListSessions(c echo.Context) error {
	sessions, err := h.Sessions.ListAll(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("list sessions: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": sessions})
}
