package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mxkwnz/Mangekyo-Films/internal/model"
	"github.com/mxkwnz/Mangekyo-Films/internal/utils"
)

// UserRepo persists users and their wallet balances.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user with a bcrypt-hashed password and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,balance_cents,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.BalanceCents, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,balance_cents,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.BalanceCents, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Balance returns the current wallet balance in cents.
func (r *UserRepo) Balance(ctx context.Context, id uint64) (int64, error) {
	var balance int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT balance_cents FROM users WHERE id=? LIMIT 1", id).Scan(&balance)
	return balance, err
}

// DebitTx subtracts amount from the user's balance within the given
// transaction.  The update is conditional on the balance covering the
// amount, so a concurrent debit can never drive the balance negative.
// Returns ErrInsufficientBalance when the condition fails for an
// existing user and sql.ErrNoRows for an unknown one.
func (r *UserRepo) DebitTx(ctx context.Context, tx *sql.Tx, id uint64, amount int64) error {
	if amount < 0 {
		return errors.New("negative debit amount")
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET balance_cents = balance_cents - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND balance_cents >= ?",
		amount, id, amount)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", id).Scan(&exists); err != nil {
			return err
		}
		return ErrInsufficientBalance
	}
	return nil
}

// CreditTx adds amount to the user's balance within the given
// transaction (top-ups and refunds).
func (r *UserRepo) CreditTx(ctx context.Context, tx *sql.Tx, id uint64, amount int64) error {
	if amount < 0 {
		return errors.New("negative credit amount")
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET balance_cents = balance_cents + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		amount, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
