// Package dedup provides the bounded ledger of recently seen update IDs
// that keeps webhook retries from being processed twice.
package dedup

import (
	"context"
	"sync"
)

// Ledger tracks the most recently seen update IDs. Capacity is fixed; once
// full, recording a new ID evicts the oldest one (FIFO). Re-seeing an ID
// that was already evicted is indistinguishable from never having seen it.
type Ledger interface {
	// CheckAndRecord records the ID and reports whether it was already
	// present. The check and the insert are atomic with respect to other
	// calls carrying the same ID: two concurrent deliveries of one update
	// cannot both observe "not seen".
	CheckAndRecord(ctx context.Context, id int64) (seen bool, err error)

	// Seen reports whether the ID is currently in the ledger.
	Seen(ctx context.Context, id int64) (bool, error)

	// Record inserts the ID if absent. Duplicates leave the ledger unchanged.
	Record(ctx context.Context, id int64) error
}

// memoryLedger is the single-instance implementation: a ring of IDs plus a
// membership set under one mutex. The critical section is a map lookup and
// at most one append and one delete, cheap relative to request arrival.
type memoryLedger struct {
	mu       sync.Mutex
	capacity int
	order    []int64
	present  map[int64]struct{}
}

const DefaultCapacity = 20

// NewMemory creates an in-process ledger with the given capacity.
func NewMemory(capacity int) Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &memoryLedger{
		capacity: capacity,
		order:    make([]int64, 0, capacity),
		present:  make(map[int64]struct{}, capacity),
	}
}

func (l *memoryLedger) CheckAndRecord(_ context.Context, id int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.present[id]; ok {
		return true, nil
	}

	l.insert(id)

	return false, nil
}

func (l *memoryLedger) Seen(_ context.Context, id int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.present[id]

	return ok, nil
}

func (l *memoryLedger) Record(_ context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.present[id]; !ok {
		l.insert(id)
	}

	return nil
}

// insert appends the ID and evicts the oldest entry when over capacity.
// Callers must hold the mutex and have checked for presence.
func (l *memoryLedger) insert(id int64) {
	l.order = append(l.order, id)
	l.present[id] = struct{}{}

	if len(l.order) > l.capacity {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.present, oldest)
	}
}
