package reservation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mxkwnz/Mangekyo-Films/internal/model"
)

// Availability is a Redis-backed read cache for the occupied-seat set
// of a session.  It is a derived projection only: the booking store
// stays the source of truth and the engine never consults the cache
// when deciding whether a seat is free.  The cache is invalidated
// synchronously on every commit and cancel, and entries carry a short
// TTL so staleness is bounded even if an invalidation is lost.
//
// A nil Redis client disables the cache entirely; every read then
// recomputes from the store.
type Availability struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewAvailability builds the cache.  rdb may be nil.
func NewAvailability(rdb *redis.Client, ttl time.Duration, prefix string) *Availability {
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	if prefix == "" {
		prefix = "avail"
	}
	return &Availability{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (a *Availability) key(sessionID uint64) string {
	return fmt.Sprintf("%s:session:%d", a.prefix, sessionID)
}

// Get returns the cached occupied-seat set and true on a hit.  Any
// Redis or decode error is treated as a miss.
func (a *Availability) Get(ctx context.Context, sessionID uint64) ([]model.SeatRef, bool) {
	if a == nil || a.rdb == nil {
		return nil, false
	}
	raw, err := a.rdb.Get(ctx, a.key(sessionID)).Bytes()
	if err != nil {
		return nil, false
	}
	var seats []model.SeatRef
	if err := json.Unmarshal(raw, &seats); err != nil {
		return nil, false
	}
	return seats, true
}

// Set stores the occupied-seat set for a session.  Failures are
// ignored; the cache is best effort.
func (a *Availability) Set(ctx context.Context, sessionID uint64, seats []model.SeatRef) {
	if a == nil || a.rdb == nil {
		return
	}
	raw, err := json.Marshal(seats)
	if err != nil {
		return
	}
	_ = a.rdb.Set(ctx, a.key(sessionID), raw, a.ttl).Err()
}

// Invalidate drops the cached set for a session.  Called by the engine
// after every successful commit or cancel before the seat lock is
// released, so readers never see the seat state go backwards for
// longer than one TTL.
func (a *Availability) Invalidate(ctx context.Context, sessionID uint64) {
	if a == nil || a.rdb == nil {
		return
	}
	_ = a.rdb.Del(ctx, a.key(sessionID)).Err()
}
