// Package queue defines booking events exchanged over the message
// broker and the background consumer that records them.
package queue

// Queue names used for booking lifecycle events.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published after a reservation commits and
// the holder has been charged.  It carries enough information for
// downstream consumers to log or notify without querying the primary
// database.
type BookingConfirmedEvent struct {
	BookingID  uint64 `json:"booking_id"`
	UserID     uint64 `json:"user_id"`
	SessionID  uint64 `json:"session_id"`
	MovieTitle string `json:"movie_title"`
	HallName   string `json:"hall_name"`
	Row        uint32 `json:"row"`
	Seat       uint32 `json:"seat"`
	PriceCents uint32 `json:"price_cents"`
	StartsAt   string `json:"starts_at"`
	BookedAt   string `json:"booked_at"`
}

// BookingCancelledEvent is published after a booking transitions to
// CANCELLED and any refund has been issued.
type BookingCancelledEvent struct {
	BookingID   uint64 `json:"booking_id"`
	UserID      uint64 `json:"user_id"`
	SessionID   uint64 `json:"session_id"`
	Row         uint32 `json:"row"`
	Seat        uint32 `json:"seat"`
	RefundCents uint32 `json:"refund_cents"`
	CancelledAt string `json:"cancelled_at"`
	ByAdmin     bool   `json:"by_admin"`
}
