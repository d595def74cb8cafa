package model

import "time"

// Booking status values.  A booking is created CONFIRMED and may only
// transition one way to CANCELLED; a cancelled booking is never
// resurrected.  Rows are kept forever for audit and reporting.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Booking records that a user holds a specific seat for a session.
// The core invariant of the whole system: for a fixed session at most
// one CONFIRMED booking may exist per (row, seat) pair.
//
// Fields:
//  ID         – primary key identifier.
//  SessionID  – session being booked.
//  RowNo      – 1-based row coordinate inside the hall grid.
//  SeatNo     – 1-based seat coordinate inside the row.
//  UserID     – holder of the booking.
//  Status     – CONFIRMED or CANCELLED.
//  PriceCents – price paid for the seat, copied from the session.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last status transition timestamp.
type Booking struct {
	ID         uint64    `json:"id"`
	SessionID  uint64    `json:"session_id"`
	RowNo      uint32    `json:"row"`
	SeatNo     uint32    `json:"seat"`
	UserID     uint64    `json:"user_id"`
	Status     string    `json:"status"`
	PriceCents uint32    `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SeatRef is a bare (row, seat) coordinate.  The availability index is
// a set of SeatRef values derived from CONFIRMED bookings.
type SeatRef struct {
	Row  uint32 `json:"row"`
	Seat uint32 `json:"seat"`
}
