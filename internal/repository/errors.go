// Package repository defines sentinel error values shared by the data
// access layer.  Higher layers use errors.Is against these values to
// translate storage outcomes into HTTP responses or engine results
// without inspecting driver-specific errors.
package repository

import "errors"

// ErrHallNotFound is returned when a hall lookup fails.
var ErrHallNotFound = errors.New("hall not found")

// ErrSessionNotFound is returned when a session lookup fails.
var ErrSessionNotFound = errors.New("session not found")

// ErrBookingNotFound is returned when a booking lookup fails.  The
// reservation engine also relies on it to recognise a free seat when
// probing for an active booking.
var ErrBookingNotFound = errors.New("booking not found")

// ErrDuplicateSeat is returned when the unique index on active seat
// bookings rejects an insert.  It is the database-level second line of
// defense behind the engine's per-seat lock.
var ErrDuplicateSeat = errors.New("seat already booked")

// ErrEmailExists is returned when registering with an email that is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrInsufficientBalance is returned when a conditional wallet debit
// affects no rows because the balance is too low.
var ErrInsufficientBalance = errors.New("insufficient balance")
