package model

import "time"

// Payment kinds.  TOPUP credits the wallet, CHARGE debits it for a
// booking and REFUND returns the charge after a cancellation.
const (
	PaymentTopup  = "TOPUP"
	PaymentCharge = "CHARGE"
	PaymentRefund = "REFUND"
)

// Payment is an append-only ledger entry for a wallet movement.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – wallet owner.
//  BookingID       – booking this movement relates to (nil for top-ups).
//  AmountCents     – absolute amount moved, in cents.
//  Kind            – TOPUP, CHARGE or REFUND.
//  TransactionCode – external reference in the form TXN-<unix>-<hex>.
//  CreatedAt       – creation timestamp.
type Payment struct {
	ID              uint64    `json:"id"`                   // payments.id
	UserID          uint64    `json:"user_id"`              // payments.user_id
	BookingID       *uint64   `json:"booking_id,omitempty"` // payments.booking_id (nullable)
	AmountCents     int64     `json:"amount_cents"`         // payments.amount_cents
	Kind            string    `json:"kind"`                 // payments.kind
	TransactionCode string    `json:"transaction_code"`     // payments.transaction_code
	CreatedAt       time.Time `json:"created_at"`           // payments.created_at
}
