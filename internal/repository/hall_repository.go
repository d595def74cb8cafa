package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mxkwnz/Mangekyo-Films/internal/model"
)

// HallRepo provides persistence for halls.  A hall's grid is written
// once at creation and treated as immutable afterwards; there is no
// update method on purpose.
type HallRepo struct {
	db *sql.DB
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB) *HallRepo { return &HallRepo{db: db} }

// Create inserts a new hall.  Name, TotalRows and SeatsPerRow must be
// set by the caller.  On success the generated ID and CreatedAt are
// populated on the given hall.
func (r *HallRepo) Create(ctx context.Context, h *model.Hall) error {
	const q = `INSERT INTO halls (name, total_rows, seats_per_row) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, h.Name, h.TotalRows, h.SeatsPerRow)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	// Read the row back so DB defaults (created_at) are populated.
	const sel = `SELECT id, name, total_rows, seats_per_row, created_at FROM halls WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, h.ID).
		Scan(&h.ID, &h.Name, &h.TotalRows, &h.SeatsPerRow, &h.CreatedAt)
}

// GetByID retrieves a hall by its ID.  It returns ErrHallNotFound when
// no row exists.
func (r *HallRepo) GetByID(ctx context.Context, id uint64) (*model.Hall, error) {
	const q = `SELECT id, name, total_rows, seats_per_row, created_at FROM halls WHERE id = ?`
	var h model.Hall
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&h.ID, &h.Name, &h.TotalRows, &h.SeatsPerRow, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHallNotFound
		}
		return nil, err
	}
	return &h, nil
}

// ListAll returns every hall ordered by ID.  Used by the admin catalog
// listing.
func (r *HallRepo) ListAll(ctx context.Context) ([]*model.Hall, error) {
	const q = `SELECT id, name, total_rows, seats_per_row, created_at FROM halls ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Hall
	for rows.Next() {
		h := new(model.Hall)
		if err := rows.Scan(&h.ID, &h.Name, &h.TotalRows, &h.SeatsPerRow, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
