package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mxkwnz/Mangekyo-Films/internal/model"
	"github.com/mxkwnz/Mangekyo-Films/internal/repository"
)

// fakeBookingStore is an in-memory BookingStore.  It can be told to
// fail a number of upcoming writes to exercise the engine's retry
// behaviour; lostCreates commits the row but reports failure, the way
// a driver timeout after a successful INSERT does.  Create enforces
// the same active-seat uniqueness the real unique index provides.
// All methods copy bookings so callers never alias the stored records.
type fakeBookingStore struct {
	mu          sync.Mutex
	nextID      uint64
	bookings    map[uint64]*model.Booking
	failCreates int
	lostCreates int
	failUpdates int
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{nextID: 1, bookings: make(map[uint64]*model.Booking)}
}

func (s *fakeBookingStore) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreates > 0 {
		s.failCreates--
		return errors.New("store unavailable")
	}
	for _, existing := range s.bookings {
		if existing.SessionID == b.SessionID && existing.RowNo == b.RowNo &&
			existing.SeatNo == b.SeatNo && existing.Status == model.BookingConfirmed {
			return repository.ErrDuplicateSeat
		}
	}
	b.ID = s.nextID
	s.nextID++
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	s.bookings[b.ID] = &cp
	if s.lostCreates > 0 {
		s.lostCreates--
		return errors.New("response lost after commit")
	}
	return nil
}

func (s *fakeBookingStore) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *fakeBookingStore) ActiveBySeat(_ context.Context, sessionID uint64, row, seat uint32) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.SessionID == sessionID && b.RowNo == row && b.SeatNo == seat && b.Status == model.BookingConfirmed {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (s *fakeBookingStore) OccupiedSeats(_ context.Context, sessionID uint64) ([]model.SeatRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SeatRef, 0)
	for _, b := range s.bookings {
		if b.SessionID == sessionID && b.Status == model.BookingConfirmed {
			out = append(out, model.SeatRef{Row: b.RowNo, Seat: b.SeatNo})
		}
	}
	return out, nil
}

func (s *fakeBookingStore) SetStatus(_ context.Context, id uint64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdates > 0 {
		s.failUpdates--
		return errors.New("store unavailable")
	}
	b, ok := s.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	return nil
}

type fakeCatalog struct {
	sessions map[uint64]*model.Session
}

func (c *fakeCatalog) GetByID(_ context.Context, id uint64) (*model.Session, error) {
	s, ok := c.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return s, nil
}

type fakeHalls struct{ halls map[uint64]*model.Hall }

func (c *fakeHalls) GetByID(_ context.Context, id uint64) (*model.Hall, error) {
	h, ok := c.halls[id]
	if !ok {
		return nil, repository.ErrHallNotFound
	}
	return h, nil
}

// newTestEngine builds an engine over a 5x8 hall (hall 1) with one
// session (session 10) priced at 1500 cents.
func newTestEngine() (*Engine, *fakeBookingStore) {
	store := newFakeBookingStore()
	sessions := &fakeCatalog{sessions: map[uint64]*model.Session{
		10: {ID: 10, HallID: 1, Title: "Blade Runner", StartsAt: time.Now().UTC().Add(time.Hour), PriceCents: 1500},
	}}
	halls := &fakeHalls{halls: map[uint64]*model.Hall{
		1: {ID: 1, Name: "Main", TotalRows: 5, SeatsPerRow: 8},
	}}
	return NewEngine(store, sessions, halls, nil), store
}

func TestEngineReserve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("commits a confirmed booking", func(t *testing.T) {
		eng, _ := newTestEngine()
		b, err := eng.Reserve(ctx, 10, 3, 4, 42)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if b.ID == 0 {
			t.Fatalf("expected booking ID to be set")
		}
		if b.Status != model.BookingConfirmed {
			t.Fatalf("expected status %s, got %s", model.BookingConfirmed, b.Status)
		}
		if b.PriceCents != 1500 {
			t.Fatalf("expected price copied from session, got %d", b.PriceCents)
		}
		if b.UserID != 42 || b.RowNo != 3 || b.SeatNo != 4 {
			t.Fatalf("unexpected booking contents: %+v", b)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		eng, _ := newTestEngine()
		_, err := eng.Reserve(ctx, 999, 1, 1, 42)
		if !errors.Is(err, repository.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("out of bounds", func(t *testing.T) {
		eng, _ := newTestEngine()
		cases := []struct{ row, seat uint32 }{
			{0, 1}, {1, 0}, {6, 1}, {1, 9}, {100, 100},
		}
		for _, tc := range cases {
			if _, err := eng.Reserve(ctx, 10, tc.row, tc.seat, 42); !errors.Is(err, ErrSeatOutOfBounds) {
				t.Fatalf("seat (%d,%d): expected ErrSeatOutOfBounds, got %v", tc.row, tc.seat, err)
			}
		}
	})

	t.Run("seat taken", func(t *testing.T) {
		eng, _ := newTestEngine()
		if _, err := eng.Reserve(ctx, 10, 2, 2, 42); err != nil {
			t.Fatalf("first reserve failed: %v", err)
		}
		if _, err := eng.Reserve(ctx, 10, 2, 2, 43); !errors.Is(err, ErrSeatTaken) {
			t.Fatalf("expected ErrSeatTaken, got %v", err)
		}
	})
}

// TestEngineReserveMutualExclusion races N callers at one seat and
// requires exactly one winner, everyone else losing with ErrSeatTaken.
func TestEngineReserveMutualExclusion(t *testing.T) {
	t.Parallel()
	const n = 100
	eng, store := newTestEngine()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, results[i] = eng.Reserve(ctx, 10, 4, 4, uint64(i+1))
		}(i)
	}
	close(start)
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSeatTaken):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d and %d", n-1, wins, conflicts)
	}

	seats, err := store.OccupiedSeats(ctx, 10)
	if err != nil {
		t.Fatalf("occupied seats: %v", err)
	}
	if len(seats) != 1 {
		t.Fatalf("expected exactly one confirmed booking, got %d", len(seats))
	}
}

// TestEngineReserveDistinctSeatsParallel fills the whole 5x8 grid
// concurrently; no request may block another out of its seat.
func TestEngineReserveDistinctSeatsParallel(t *testing.T) {
	t.Parallel()
	eng, store := newTestEngine()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for row := uint32(1); row <= 5; row++ {
		for seat := uint32(1); seat <= 8; seat++ {
			wg.Add(1)
			go func(row, seat uint32) {
				defer wg.Done()
				if _, err := eng.Reserve(ctx, 10, row, seat, uint64(row*100+seat)); err != nil {
					errs <- err
				}
			}(row, seat)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	seats, _ := store.OccupiedSeats(ctx, 10)
	if len(seats) != 40 {
		t.Fatalf("expected 40 confirmed bookings, got %d", len(seats))
	}
}

func TestEngineCancel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown booking", func(t *testing.T) {
		eng, _ := newTestEngine()
		if _, err := eng.Cancel(ctx, 777, Actor{ID: 1}); !errors.Is(err, repository.ErrBookingNotFound) {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
	})

	t.Run("forbidden for non-holder", func(t *testing.T) {
		eng, _ := newTestEngine()
		b, err := eng.Reserve(ctx, 10, 1, 1, 42)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if _, err := eng.Cancel(ctx, b.ID, Actor{ID: 43}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("admin may cancel any booking", func(t *testing.T) {
		eng, _ := newTestEngine()
		b, err := eng.Reserve(ctx, 10, 1, 2, 42)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		cancelled, err := eng.Cancel(ctx, b.ID, Actor{ID: 1, Admin: true})
		if err != nil {
			t.Fatalf("expected admin cancel to succeed, got %v", err)
		}
		if cancelled.Status != model.BookingCancelled {
			t.Fatalf("expected status CANCELLED, got %s", cancelled.Status)
		}
	})

	t.Run("second cancel reports already cancelled", func(t *testing.T) {
		eng, _ := newTestEngine()
		b, err := eng.Reserve(ctx, 10, 1, 3, 42)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if _, err := eng.Cancel(ctx, b.ID, Actor{ID: 42}); err != nil {
			t.Fatalf("first cancel: %v", err)
		}
		if _, err := eng.Cancel(ctx, b.ID, Actor{ID: 42}); !errors.Is(err, ErrAlreadyCancelled) {
			t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
		}
	})

	// The scenario from the booking flow: holder A takes (3,4), B
	// conflicts, A cancels, B succeeds with a fresh booking.
	t.Run("cancelled seat becomes reservable", func(t *testing.T) {
		eng, _ := newTestEngine()
		b1, err := eng.Reserve(ctx, 10, 3, 4, 42)
		if err != nil {
			t.Fatalf("reserve by A: %v", err)
		}
		if _, err := eng.Reserve(ctx, 10, 3, 4, 43); !errors.Is(err, ErrSeatTaken) {
			t.Fatalf("expected ErrSeatTaken for B, got %v", err)
		}
		if _, err := eng.Cancel(ctx, b1.ID, Actor{ID: 42}); err != nil {
			t.Fatalf("cancel by A: %v", err)
		}
		b2, err := eng.Reserve(ctx, 10, 3, 4, 43)
		if err != nil {
			t.Fatalf("expected reserve by B to succeed, got %v", err)
		}
		if b2.ID == b1.ID {
			t.Fatalf("expected a new booking, got the old id %d", b1.ID)
		}
		if b2.Status != model.BookingConfirmed {
			t.Fatalf("expected CONFIRMED, got %s", b2.Status)
		}
	})
}

// TestEngineReserveRecoversLostCommit covers the write whose INSERT
// commits but whose success response is lost: the internal retry then
// trips the unique index against the caller's own row.  That row is
// the win and must be returned as such, never reported as a conflict
// that would strand an unpaid CONFIRMED booking.
func TestEngineReserveRecoversLostCommit(t *testing.T) {
	t.Parallel()
	eng, store := newTestEngine()
	ctx := context.Background()

	store.lostCreates = 1
	b, err := eng.Reserve(ctx, 10, 3, 4, 42)
	if err != nil {
		t.Fatalf("expected reserve to recover its own commit, got %v", err)
	}
	if b.UserID != 42 || b.Status != model.BookingConfirmed {
		t.Fatalf("unexpected booking: %+v", b)
	}

	seats, err := store.OccupiedSeats(ctx, 10)
	if err != nil {
		t.Fatalf("occupied seats: %v", err)
	}
	if len(seats) != 1 {
		t.Fatalf("expected exactly one confirmed booking, got %d", len(seats))
	}
	stored, err := store.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("returned booking must exist in the store: %v", err)
	}
	if stored.UserID != 42 || stored.Status != model.BookingConfirmed {
		t.Fatalf("stored row does not match the returned win: %+v", stored)
	}

	// The seat stays protected against everyone else.
	if _, err := eng.Reserve(ctx, 10, 3, 4, 43); !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("expected ErrSeatTaken for the next caller, got %v", err)
	}
}

func TestEngineStorageRetry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("one failure is retried", func(t *testing.T) {
		eng, store := newTestEngine()
		store.failCreates = 1
		b, err := eng.Reserve(ctx, 10, 5, 5, 42)
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if b.ID == 0 {
			t.Fatalf("expected booking ID to be set after retry")
		}
	})

	t.Run("two failures surface and leave no booking", func(t *testing.T) {
		eng, store := newTestEngine()
		store.failCreates = 2
		if _, err := eng.Reserve(ctx, 10, 5, 6, 42); err == nil {
			t.Fatalf("expected storage failure to surface")
		}
		seats, _ := store.OccupiedSeats(ctx, 10)
		if len(seats) != 0 {
			t.Fatalf("expected no booking after failed commit, got %d", len(seats))
		}
	})

	t.Run("cancel retries status update once", func(t *testing.T) {
		eng, store := newTestEngine()
		b, err := eng.Reserve(ctx, 10, 5, 7, 42)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		store.failUpdates = 1
		if _, err := eng.Cancel(ctx, b.ID, Actor{ID: 42}); err != nil {
			t.Fatalf("expected retried cancel to succeed, got %v", err)
		}
	})
}

func TestEngineOccupiedSeats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown session", func(t *testing.T) {
		eng, _ := newTestEngine()
		if _, err := eng.OccupiedSeats(ctx, 999); !errors.Is(err, repository.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("reflects the lifecycle store", func(t *testing.T) {
		eng, _ := newTestEngine()
		b1, err := eng.Reserve(ctx, 10, 1, 1, 42)
		if err != nil {
			t.Fatalf("reserve (1,1): %v", err)
		}
		if _, err := eng.Reserve(ctx, 10, 2, 3, 42); err != nil {
			t.Fatalf("reserve (2,3): %v", err)
		}
		if _, err := eng.Cancel(ctx, b1.ID, Actor{ID: 42}); err != nil {
			t.Fatalf("cancel (1,1): %v", err)
		}

		seats, err := eng.OccupiedSeats(ctx, 10)
		if err != nil {
			t.Fatalf("occupied seats: %v", err)
		}
		if len(seats) != 1 || seats[0] != (model.SeatRef{Row: 2, Seat: 3}) {
			t.Fatalf("expected exactly {(2,3)}, got %v", seats)
		}
	})

	t.Run("empty session yields empty set", func(t *testing.T) {
		eng, _ := newTestEngine()
		seats, err := eng.OccupiedSeats(ctx, 10)
		if err != nil {
			t.Fatalf("occupied seats: %v", err)
		}
		if len(seats) != 0 {
			t.Fatalf("expected empty set, got %v", seats)
		}
	})
}
