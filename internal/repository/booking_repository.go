// Package repository contains data access logic for domain entities.
// This file implements the booking lifecycle store: the durable record
// of bookings and their status transitions.  Bookings are never
// deleted; cancellation flips the status so history survives for
// reporting.
//
// The bookings table carries a generated column that is NULL for
// cancelled rows and part of a unique index over
// (session_id, row_no, seat_no, active), which lets MySQL enforce the
// one-CONFIRMED-booking-per-seat invariant as a backstop behind the
// engine's per-seat lock:
//
//	active TINYINT AS (IF(status = 'CONFIRMED', 1, NULL)) STORED,
//	UNIQUE KEY uq_active_seat (session_id, row_no, seat_no, active)
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mxkwnz/Mangekyo-Films/internal/model"
)

// BookingRepo provides persistence for bookings keyed by booking id,
// with secondary lookups by session.  Every write is a single-record
// atomic operation; cross-record seat uniqueness is the reservation
// engine's job.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Create inserts a new booking row and populates the generated ID and
// timestamps on the given booking.  When the active-seat unique index
// rejects the insert (MySQL error 1062) it returns ErrDuplicateSeat.
// Once the INSERT has committed Create never reports failure: a lost
// read-back must not turn a committed booking into an error the caller
// would retry against its own row, so timestamps are approximated
// instead.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (session_id, row_no, seat_no, user_id, status, price_cents)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.SessionID, b.RowNo, b.SeatNo, b.UserID, b.Status, b.PriceCents)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrDuplicateSeat
		}
		return err
	}
	id, err := res.LastInsertId()
	if err == nil {
		b.ID = uint64(id)
	}
	const sel = `SELECT id, session_id, row_no, seat_no, user_id, status, price_cents, created_at, updated_at
	             FROM bookings WHERE id = ?`
	if err := r.db.QueryRowContext(ctx, sel, b.ID).Scan(
		&b.ID, &b.SessionID, &b.RowNo, &b.SeatNo, &b.UserID, &b.Status, &b.PriceCents,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		now := time.Now().UTC()
		b.CreatedAt = now
		b.UpdatedAt = now
	}
	return nil
}

// GetByID returns the booking with the given id or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT id, session_id, row_no, seat_no, user_id, status, price_cents, created_at, updated_at
	           FROM bookings WHERE id = ?`
	var b model.Booking
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.SessionID, &b.RowNo, &b.SeatNo, &b.UserID, &b.Status, &b.PriceCents,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ActiveBySeat returns the CONFIRMED booking occupying the given seat
// of a session, or ErrBookingNotFound when the seat is free.  The
// engine calls this inside the per-seat critical section.
func (r *BookingRepo) ActiveBySeat(ctx context.Context, sessionID uint64, row, seat uint32) (*model.Booking, error) {
	const q = `SELECT id, session_id, row_no, seat_no, user_id, status, price_cents, created_at, updated_at
	           FROM bookings
	           WHERE session_id = ? AND row_no = ? AND seat_no = ? AND status = 'CONFIRMED'
	           LIMIT 1`
	var b model.Booking
	err := r.db.QueryRowContext(ctx, q, sessionID, row, seat).Scan(
		&b.ID, &b.SessionID, &b.RowNo, &b.SeatNo, &b.UserID, &b.Status, &b.PriceCents,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// OccupiedSeats returns the (row, seat) pairs with a CONFIRMED booking
// for the session, ordered by row then seat for deterministic output.
func (r *BookingRepo) OccupiedSeats(ctx context.Context, sessionID uint64) ([]model.SeatRef, error) {
	const q = `SELECT row_no, seat_no FROM bookings
	           WHERE session_id = ? AND status = 'CONFIRMED'
	           ORDER BY row_no, seat_no`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.SeatRef, 0)
	for rows.Next() {
		var s model.SeatRef
		if err := rows.Scan(&s.Row, &s.Seat); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus updates a booking's status.  It returns ErrBookingNotFound
// when the id does not exist.  Status validity (one-way CONFIRMED to
// CANCELLED) is enforced by the engine under the seat lock.
func (r *BookingRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	const q = `UPDATE bookings SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListBySession returns all bookings for a session regardless of
// status, newest first.  Used by the admin listing.
func (r *BookingRepo) ListBySession(ctx context.Context, sessionID uint64) ([]*model.Booking, error) {
	const q = `SELECT id, session_id, row_no, seat_no, user_id, status, price_cents, created_at, updated_at
	           FROM bookings WHERE session_id = ? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, sessionID)
}

// BookingDetail is a booking joined with its session and hall for the
// "my bookings" listing.
type BookingDetail struct {
	ID         uint64    `json:"id"`
	SessionID  uint64    `json:"session_id"`
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"starts_at"`
	HallName   string    `json:"hall_name"`
	RowNo      uint32    `json:"row"`
	SeatNo     uint32    `json:"seat"`
	Status     string    `json:"status"`
	PriceCents uint32    `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListByUser returns the user's bookings with session and hall details,
// newest first.  An empty slice is returned when none exist.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.session_id, s.title, s.starts_at, h.name,
	                  b.row_no, b.seat_no, b.status, b.price_cents, b.created_at
	           FROM bookings b
	           JOIN sessions s ON s.id = b.session_id
	           JOIN halls h ON h.id = s.hall_id
	           WHERE b.user_id = ?
	           ORDER BY b.created_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Title, &d.StartsAt, &d.HallName,
			&d.RowNo, &d.SeatNo, &d.Status, &d.PriceCents, &d.CreatedAt); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

func (r *BookingRepo) list(ctx context.Context, query string, args ...interface{}) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Booking
	for rows.Next() {
		b := new(model.Booking)
		if err := rows.Scan(&b.ID, &b.SessionID, &b.RowNo, &b.SeatNo, &b.UserID, &b.Status,
			&b.PriceCents, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
