package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/mxkwnz/Mangekyo-Films/internal/model"
	"github.com/mxkwnz/Mangekyo-Films/internal/repository"
)

// BookingStore is the durable booking lifecycle store the engine
// commits to.  Implementations must make every method a single-record
// atomic operation; cross-record seat uniqueness is guaranteed by the
// engine's per-seat critical section, with the store's unique index as
// a backstop.  ActiveBySeat and GetByID report a missing row as
// repository.ErrBookingNotFound.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ActiveBySeat(ctx context.Context, sessionID uint64, row, seat uint32) (*model.Booking, error)
	OccupiedSeats(ctx context.Context, sessionID uint64) ([]model.SeatRef, error)
	SetStatus(ctx context.Context, id uint64, status string) error
}

// SessionCatalog resolves sessions; a missing id is reported as
// repository.ErrSessionNotFound.
type SessionCatalog interface {
	GetByID(ctx context.Context, id uint64) (*model.Session, error)
}

// HallCatalog resolves hall layouts; a missing id is reported as
// repository.ErrHallNotFound.
type HallCatalog interface {
	GetByID(ctx context.Context, id uint64) (*model.Hall, error)
}

// Actor identifies who is asking for a cancellation.  Admin is
// resolved by the authentication middleware from the caller's role.
type Actor struct {
	ID    uint64
	Admin bool
}

// Engine is the reservation core.  It owns all booking writes: the
// check-then-commit sequence of Reserve and the status transition of
// Cancel both run inside a critical section scoped to the
// (session, row, seat) key, so for any one seat the outcome of N
// concurrent attempts is a single winner and N-1 ErrSeatTaken results.
// Requests for different seats never block each other.
//
// The engine performs no network calls to unrelated collaborators
// while holding a seat lock; event publishing and wallet movements are
// the caller's business, after commit.
type Engine struct {
	store    BookingStore
	sessions SessionCatalog
	halls    HallCatalog
	locks    *SeatLocks
	avail    *Availability
}

// NewEngine wires the engine.  avail may be built over a nil Redis
// client, in which case every availability read recomputes from the
// store.
func NewEngine(store BookingStore, sessions SessionCatalog, halls HallCatalog, avail *Availability) *Engine {
	if store == nil || sessions == nil || halls == nil {
		panic("nil dependency passed to NewEngine")
	}
	if avail == nil {
		avail = NewAvailability(nil, 0, "")
	}
	return &Engine{
		store:    store,
		sessions: sessions,
		halls:    halls,
		locks:    NewSeatLocks(),
		avail:    avail,
	}
}

// Reserve validates the seat coordinate against the session's hall
// grid and atomically either commits a new CONFIRMED booking or
// reports why it cannot:
//
//	repository.ErrSessionNotFound – unknown session
//	ErrSeatOutOfBounds            – coordinate outside the grid
//	ErrSeatTaken                  – a CONFIRMED booking already holds the seat
//
// A storage failure during commit is retried once with the lock held
// and then surfaced wrapped; the store write is all-or-nothing, so no
// partial booking can remain.
func (e *Engine) Reserve(ctx context.Context, sessionID uint64, row, seat uint32, holderID uint64) (*model.Booking, error) {
	sess, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	hall, err := e.halls.GetByID(ctx, sess.HallID)
	if err != nil {
		return nil, err
	}
	if !hall.Contains(row, seat) {
		return nil, ErrSeatOutOfBounds
	}

	unlock := e.locks.Lock(sessionID, row, seat)
	defer unlock()

	// Re-check under the lock: the availability view the client saw
	// may be arbitrarily old.
	if _, err := e.store.ActiveBySeat(ctx, sessionID, row, seat); err == nil {
		return nil, ErrSeatTaken
	} else if !errors.Is(err, repository.ErrBookingNotFound) {
		return nil, fmt.Errorf("reservation: check seat: %w", err)
	}

	b := &model.Booking{
		SessionID:  sessionID,
		RowNo:      row,
		SeatNo:     seat,
		UserID:     holderID,
		Status:     model.BookingConfirmed,
		PriceCents: sess.PriceCents,
	}
	if err := e.createWithRetry(ctx, b); err != nil {
		return nil, err
	}

	e.avail.Invalidate(ctx, sessionID)
	return b, nil
}

// createWithRetry performs the store write with a single internal
// retry.  A duplicate-seat rejection from the store's unique index is
// not retried; it is resolved against the existing active row instead,
// because the row may be this very caller's first attempt whose
// success report was lost in transit.
func (e *Engine) createWithRetry(ctx context.Context, b *model.Booking) error {
	err := e.store.Create(ctx, b)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrDuplicateSeat) {
		return e.resolveDuplicate(ctx, b)
	}
	if err = e.store.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicateSeat) {
			return e.resolveDuplicate(ctx, b)
		}
		return fmt.Errorf("reservation: persist booking: %w", err)
	}
	return nil
}

// resolveDuplicate decides what a duplicate-seat rejection means.  When
// the active booking behind the unique index belongs to the same
// holder, the first write committed and only its response was lost; the
// existing row is the successful commit and is returned as such.  A
// row held by anyone else means another writer won.
func (e *Engine) resolveDuplicate(ctx context.Context, b *model.Booking) error {
	existing, err := e.store.ActiveBySeat(ctx, b.SessionID, b.RowNo, b.SeatNo)
	if err != nil {
		return fmt.Errorf("reservation: resolve duplicate seat: %w", err)
	}
	if existing.UserID == b.UserID {
		*b = *existing
		return nil
	}
	return ErrSeatTaken
}

// Cancel transitions a booking to CANCELLED on behalf of its holder or
// an administrator.  It shares the per-seat critical section with
// Reserve, so a cancellation can never race a reservation of the same
// seat into an inconsistent read.  The returned booking reflects the
// new status.
//
//	repository.ErrBookingNotFound – unknown booking id
//	ErrForbidden                  – requester is neither holder nor admin
//	ErrAlreadyCancelled           – booking was already cancelled
func (e *Engine) Cancel(ctx context.Context, bookingID uint64, by Actor) (*model.Booking, error) {
	b, err := e.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != by.ID && !by.Admin {
		return nil, ErrForbidden
	}

	unlock := e.locks.Lock(b.SessionID, b.RowNo, b.SeatNo)
	defer unlock()

	// Re-read under the lock; a concurrent cancel may have won.
	b, err = e.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == model.BookingCancelled {
		return nil, ErrAlreadyCancelled
	}

	if err := e.store.SetStatus(ctx, bookingID, model.BookingCancelled); err != nil {
		if err = e.store.SetStatus(ctx, bookingID, model.BookingCancelled); err != nil {
			return nil, fmt.Errorf("reservation: cancel booking: %w", err)
		}
	}
	b.Status = model.BookingCancelled

	e.avail.Invalidate(ctx, b.SessionID)
	return b, nil
}

// OccupiedSeats returns the set of (row, seat) pairs with a CONFIRMED
// booking for the session, for rendering the seat map.  The cache is
// consulted first; on a miss the set is recomputed from the store.
// Unknown sessions report repository.ErrSessionNotFound.
func (e *Engine) OccupiedSeats(ctx context.Context, sessionID uint64) ([]model.SeatRef, error) {
	if _, err := e.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	if seats, ok := e.avail.Get(ctx, sessionID); ok {
		return seats, nil
	}
	seats, err := e.store.OccupiedSeats(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	e.avail.Set(ctx, sessionID, seats)
	return seats, nil
}
