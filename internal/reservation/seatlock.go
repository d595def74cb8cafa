package reservation

import "sync"

// seatKey identifies one seat of one session.  All reservation and
// cancellation work touching the same key is serialized; different keys
// proceed fully in parallel.
type seatKey struct {
	sessionID uint64
	row       uint32
	seat      uint32
}

// SeatLocks is a keyed mutex map.  Entries are reference counted and
// removed as soon as the last holder releases, so the map stays
// proportional to the number of seats currently being contended rather
// than every seat ever touched.
type SeatLocks struct {
	mu   sync.Mutex
	held map[seatKey]*seatLock
}

type seatLock struct {
	mu   sync.Mutex
	refs int
}

// NewSeatLocks returns an empty lock map.
func NewSeatLocks() *SeatLocks {
	return &SeatLocks{held: make(map[seatKey]*seatLock)}
}

// Lock acquires the mutex for the given seat and returns the release
// function.  The caller must invoke the release exactly once.
func (l *SeatLocks) Lock(sessionID uint64, row, seat uint32) func() {
	k := seatKey{sessionID: sessionID, row: row, seat: seat}

	l.mu.Lock()
	e, ok := l.held[k]
	if !ok {
		e = &seatLock{}
		l.held[k] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.held, k)
		}
		l.mu.Unlock()
	}
}
