package reservation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeatLocksSerializeSameKey(t *testing.T) {
	locks := NewSeatLocks()
	const workers = 64

	var counter, max int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(1, 2, 3)
			defer unlock()
			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, max, "at most one holder of the same seat key at a time")
}

func TestSeatLocksIndependentKeysDoNotBlock(t *testing.T) {
	locks := NewSeatLocks()

	unlockA := locks.Lock(1, 1, 1)
	defer unlockA()

	acquired := make(chan struct{})
	go func() {
		unlockB := locks.Lock(1, 1, 2) // same session, different seat
		defer unlockB()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on a different seat key should not block")
	}
}

func TestSeatLocksEntriesAreReleased(t *testing.T) {
	locks := NewSeatLocks()

	unlock := locks.Lock(7, 1, 1)
	unlock()

	locks.mu.Lock()
	remaining := len(locks.held)
	locks.mu.Unlock()
	assert.Zero(t, remaining, "released keys must be removed from the map")
}
