// Package repository contains data access logic for domain entities.
// This file manages sessions (scheduled screenings).  Timestamps are
// stored in UTC with parseTime enabled on the driver, so StartsAt scans
// directly into time.Time.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mxkwnz/Mangekyo-Films/internal/model"
)

// SessionRepo manages persistence for sessions.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo constructs a SessionRepo given a DB handle.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// Create inserts a new session.  The referenced hall must exist; a
// foreign key violation surfaces as a plain driver error because the
// handler validates the hall beforehand.  Generated fields are read
// back onto the given session.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `INSERT INTO sessions (hall_id, title, starts_at, price_cents) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.HallID, s.Title, s.StartsAt.UTC(), s.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT id, hall_id, title, starts_at, price_cents, created_at FROM sessions WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, s.ID).
		Scan(&s.ID, &s.HallID, &s.Title, &s.StartsAt, &s.PriceCents, &s.CreatedAt)
}

// GetByID retrieves a session by ID.  Returns ErrSessionNotFound when
// no row exists.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT id, hall_id, title, starts_at, price_cents, created_at FROM sessions WHERE id = ?`
	var s model.Session
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&s.ID, &s.HallID, &s.Title, &s.StartsAt, &s.PriceCents, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListUpcoming returns sessions starting after the given instant,
// soonest first.  Used by the public browse endpoints.
func (r *SessionRepo) ListUpcoming(ctx context.Context, after time.Time) ([]*model.Session, error) {
	const q = `SELECT id, hall_id, title, starts_at, price_cents, created_at
	           FROM sessions
	           WHERE starts_at > ?
	           ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q, after.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Session
	for rows.Next() {
		s := new(model.Session)
		if err := rows.Scan(&s.ID, &s.HallID, &s.Title, &s.StartsAt, &s.PriceCents, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll returns every session ordered by start time descending.  Used
// by the admin catalog listing.
func (r *SessionRepo) ListAll(ctx context.Context) ([]*model.Session, error) {
	const q = `SELECT id, hall_id, title, starts_at, price_cents, created_at
	           FROM sessions ORDER BY starts_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Session
	for rows.Next() {
		s := new(model.Session)
		if err := rows.Scan(&s.ID, &s.HallID, &s.Title, &s.StartsAt, &s.PriceCents, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
