package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mxkwnz/Mangekyo-Films/internal/model"
)

// PaymentRepo appends entries to the payments ledger.  Rows are never
// updated or deleted; refunds are separate entries referencing the same
// booking.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx inserts a ledger entry within the scope of an existing
// transaction.  A transaction code is generated when the caller leaves
// it empty.  The generated ID and CreatedAt are populated on the given
// payment; the caller must commit or roll back the transaction.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	if p.TransactionCode == "" {
		code, err := newTransactionCode()
		if err != nil {
			return err
		}
		p.TransactionCode = code
	}
	const q = `INSERT INTO payments (user_id, booking_id, amount_cents, kind, transaction_code)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.UserID, p.BookingID, p.AmountCents, p.Kind, p.TransactionCode)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	const sel = `SELECT created_at FROM payments WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, p.ID).Scan(&p.CreatedAt)
}

// ListByUser returns the user's ledger entries, newest first.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Payment, error) {
	const q = `SELECT id, user_id, booking_id, amount_cents, kind, transaction_code, created_at
	           FROM payments WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p := new(model.Payment)
		var bookingID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.UserID, &bookingID, &p.AmountCents, &p.Kind, &p.TransactionCode, &p.CreatedAt); err != nil {
			return nil, err
		}
		if bookingID.Valid {
			bid := uint64(bookingID.Int64)
			p.BookingID = &bid
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// newTransactionCode produces a code like TXN-1735689600-a1b2c3d4.
func newTransactionCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("TXN-%d-%s", time.Now().Unix(), hex.EncodeToString(buf)), nil
}
