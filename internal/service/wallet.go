// Package service holds application services that sit between HTTP
// handlers and repositories.  The wallet service groups the balance
// movement and its ledger entry into one database transaction.
package service

import (
	"context"
	"database/sql"

	"github.com/mxkwnz/Mangekyo-Films/internal/model"
	"github.com/mxkwnz/Mangekyo-Films/internal/repository"
)

// Wallet performs balance movements.  Every movement writes a ledger
// row in the same transaction as the balance update, so the ledger and
// the balance can never disagree.
type Wallet struct {
	db       *sql.DB
	users    *repository.UserRepo
	payments *repository.PaymentRepo
}

// NewWallet constructs a wallet service.  All dependencies must be
// non-nil.
func NewWallet(db *sql.DB, users *repository.UserRepo, payments *repository.PaymentRepo) *Wallet {
	if db == nil || users == nil || payments == nil {
		panic("nil dependency passed to NewWallet")
	}
	return &Wallet{db: db, users: users, payments: payments}
}

// Balance returns the user's current balance in cents.
func (w *Wallet) Balance(ctx context.Context, userID uint64) (int64, error) {
	return w.users.Balance(ctx, userID)
}

// TopUp credits the wallet and records a TOPUP ledger entry.
func (w *Wallet) TopUp(ctx context.Context, userID uint64, amount int64) (*model.Payment, error) {
	p := &model.Payment{UserID: userID, AmountCents: amount, Kind: model.PaymentTopup}
	err := w.inTx(ctx, func(tx *sql.Tx) error {
		if err := w.users.CreditTx(ctx, tx, userID, amount); err != nil {
			return err
		}
		return w.payments.CreateTx(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ChargeBooking debits the holder for a committed booking.  Returns
// repository.ErrInsufficientBalance when the wallet cannot cover the
// amount; the caller is expected to compensate by cancelling the
// booking.
func (w *Wallet) ChargeBooking(ctx context.Context, userID, bookingID uint64, amount int64) (*model.Payment, error) {
	p := &model.Payment{UserID: userID, BookingID: &bookingID, AmountCents: amount, Kind: model.PaymentCharge}
	err := w.inTx(ctx, func(tx *sql.Tx) error {
		if err := w.users.DebitTx(ctx, tx, userID, amount); err != nil {
			return err
		}
		return w.payments.CreateTx(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RefundBooking credits the holder back after a cancellation and
// records a REFUND ledger entry.
func (w *Wallet) RefundBooking(ctx context.Context, userID, bookingID uint64, amount int64) (*model.Payment, error) {
	p := &model.Payment{UserID: userID, BookingID: &bookingID, AmountCents: amount, Kind: model.PaymentRefund}
	err := w.inTx(ctx, func(tx *sql.Tx) error {
		if err := w.users.CreditTx(ctx, tx, userID, amount); err != nil {
			return err
		}
		return w.payments.CreateTx(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// History returns the user's ledger entries, newest first.
func (w *Wallet) History(ctx context.Context, userID uint64) ([]*model.Payment, error) {
	return w.payments.ListByUser(ctx, userID)
}

func (w *Wallet) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
