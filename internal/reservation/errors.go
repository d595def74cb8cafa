// Package reservation implements the seat reservation core: bounds
// validation against the hall grid, per-seat mutual exclusion for the
// check-then-commit sequence, and the booking lifecycle transitions.
package reservation

import "errors"

// ErrSeatOutOfBounds is returned when the requested coordinate lies
// outside the hall's grid.  The caller must correct the input.
var ErrSeatOutOfBounds = errors.New("seat out of bounds")

// ErrSeatTaken is returned when another CONFIRMED booking already holds
// the seat.  This is an expected concurrent-use outcome, not a system
// fault; handlers surface it without logging an error.
var ErrSeatTaken = errors.New("seat already taken")

// ErrForbidden is returned when a cancellation is attempted by someone
// who is neither the booking holder nor an administrator.
var ErrForbidden = errors.New("forbidden")

// ErrAlreadyCancelled is returned on a second cancel of the same
// booking.  Cancellation is strict rather than idempotent: the second
// call performs no state change and reports this error; callers that
// want idempotent semantics may treat it as success.
var ErrAlreadyCancelled = errors.New("booking already cancelled")
