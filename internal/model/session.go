package model

import "time"

// Session represents a scheduled screening of a movie in a particular
// hall.  The seat space of a session is inherited from its hall.
//
// Fields:
//  ID         – primary key identifier.
//  HallID     – hall where the screening takes place.
//  Title      – movie title shown at this session.
//  StartsAt   – when the screening begins (UTC).
//  PriceCents – ticket price in cents for one seat.
//  CreatedAt  – creation timestamp.
type Session struct {
	ID         uint64    `json:"id"`          // sessions.id
	HallID     uint64    `json:"hall_id"`     // sessions.hall_id
	Title      string    `json:"title"`       // sessions.title
	StartsAt   time.Time `json:"starts_at"`   // sessions.starts_at
	PriceCents uint32    `json:"price_cents"` // sessions.price_cents
	CreatedAt  time.Time `json:"created_at"`  // sessions.created_at
}
