package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mxkwnz/Mangekyo-Films/internal/model"
	"github.com/mxkwnz/Mangekyo-Films/internal/queue"
	"github.com/mxkwnz/Mangekyo-Films/internal/repository"
	"github.com/mxkwnz/Mangekyo-Films/internal/reservation"
)

// ReservationService is the slice of the reservation engine the
// booking endpoints use.
type ReservationService interface {
	Reserve(ctx context.Context, sessionID uint64, row, seat uint32, holderID uint64) (*model.Booking, error)
	Cancel(ctx context.Context, bookingID uint64, by reservation.Actor) (*model.Booking, error)
	OccupiedSeats(ctx context.Context, sessionID uint64) ([]model.SeatRef, error)
}

// WalletService moves money for committed bookings.
type WalletService interface {
	ChargeBooking(ctx context.Context, userID, bookingID uint64, amount int64) (*model.Payment, error)
	RefundBooking(ctx context.Context, userID, bookingID uint64, amount int64) (*model.Payment, error)
}

// EventPublisher emits booking lifecycle events.  Publishing is best
// effort; failures never undo a committed booking.
type EventPublisher interface {
	BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	BookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error
}

// QueueEvents publishes to RabbitMQ.
type QueueEvents struct{}

func (QueueEvents) BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	return queue.PublishBookingConfirmed(ctx, ev)
}

func (QueueEvents) BookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error {
	return queue.PublishBookingCancelled(ctx, ev)
}

// BookingHandler serves the customer booking flow: book a seat, cancel
// a booking, list own bookings.
type BookingHandler struct {
	Engine   ReservationService
	Wallet   WalletService
	Bookings *repository.BookingRepo
	Sessions reservation.SessionCatalog
	Halls    reservation.HallCatalog
	Events   EventPublisher
}

func NewBookingHandler(engine ReservationService, wallet WalletService, bookings *repository.BookingRepo,
	sessions reservation.SessionCatalog, halls reservation.HallCatalog) *BookingHandler {
	return &BookingHandler{
		Engine:   engine,
		Wallet:   wallet,
		Bookings: bookings,
		Sessions: sessions,
		Halls:    halls,
		Events:   QueueEvents{},
	}
}

type bookReq struct {
	Row  uint32 `json:"row"`
	Seat uint32 `json:"seat"`
}

// Book reserves one seat for the authenticated customer and charges
// the wallet.  When the balance cannot cover the price the freshly
// committed booking is compensated by an immediate cancel, so the seat
// is released before the 402 goes out.
func (h *BookingHandler) Book(c echo.Context) error {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	b, err := h.Engine.Reserve(ctx, sessionID, req.Row, req.Seat, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case errors.Is(err, reservation.ErrSeatOutOfBounds):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat out of bounds"})
		case errors.Is(err, reservation.ErrSeatTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat already taken"})
		}
		c.Logger().Errorf("reserve seat: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
	}

	if _, err := h.Wallet.ChargeBooking(ctx, uid, b.ID, int64(b.PriceCents)); err != nil {
		h.compensate(b.ID)
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "insufficient balance"})
		}
		c.Logger().Errorf("charge booking %d: %v", b.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment failed"})
	}

	go h.publishConfirmed(*b)
	return c.JSON(http.StatusCreated, b)
}

// Cancel transitions a booking to CANCELLED on behalf of its holder or
// an admin and refunds the holder.  Cancelling twice is a conflict.
func (h *BookingHandler) Cancel(c echo.Context) error {
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	actor := currentActor(c)
	if actor.ID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	b, err := h.Engine.Cancel(ctx, bookingID, actor)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, reservation.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, reservation.ErrAlreadyCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
		}
		c.Logger().Errorf("cancel booking %d: %v", bookingID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}

	// Refund goes to the holder, not to the admin who cancelled.
	if _, err := h.Wallet.RefundBooking(ctx, b.UserID, b.ID, int64(b.PriceCents)); err != nil {
		c.Logger().Errorf("refund booking %d: %v", b.ID, err)
	}

	go h.publishCancelled(*b, actor.Admin && actor.ID != b.UserID)
	return c.JSON(http.StatusOK, b)
}

// MyBookings lists the caller's bookings with session and hall details.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Bookings.ListByUser(c.Request().Context(), uid)
	if err != nil {
		c.Logger().Errorf("list bookings for user %d: %v", uid, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": details})
}

// SessionBookings lists every booking of a session for admins,
// cancelled ones included.
func (h *BookingHandler) SessionBookings(c echo.Context) error {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Sessions.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	bookings, err := h.Bookings.ListBySession(ctx, sessionID)
	if err != nil {
		c.Logger().Errorf("list bookings for session %d: %v", sessionID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

// compensate releases a booking whose payment failed.  Runs as the
// system, not the user, so the holder check cannot reject it, and on a
// detached context so a client that hung up mid-request (cancelling
// the request context and with it the charge) cannot also kill the
// cleanup and strand an unpaid CONFIRMED booking.
func (h *BookingHandler) compensate(bookingID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := h.Engine.Cancel(ctx, bookingID, reservation.Actor{Admin: true}); err != nil {
		log.Printf("compensating cancel of booking %d failed: %v", bookingID, err)
	}
}

func (h *BookingHandler) publishConfirmed(b model.Booking) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := queue.BookingConfirmedEvent{
		BookingID:  b.ID,
		UserID:     b.UserID,
		SessionID:  b.SessionID,
		Row:        b.RowNo,
		Seat:       b.SeatNo,
		PriceCents: b.PriceCents,
		BookedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if sess, err := h.Sessions.GetByID(ctx, b.SessionID); err == nil {
		ev.MovieTitle = sess.Title
		ev.StartsAt = sess.StartsAt.UTC().Format(time.RFC3339)
		if hall, err := h.Halls.GetByID(ctx, sess.HallID); err == nil {
			ev.HallName = hall.Name
		}
	}
	_ = h.Events.BookingConfirmed(ctx, ev)
}

func (h *BookingHandler) publishCancelled(b model.Booking, byAdmin bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = h.Events.BookingCancelled(ctx, queue.BookingCancelledEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		SessionID:   b.SessionID,
		Row:         b.RowNo,
		Seat:        b.SeatNo,
		RefundCents: b.PriceCents,
		CancelledAt: time.Now().UTC().Format(time.RFC3339),
		ByAdmin:     byAdmin,
	})
}
