package core

import (
	"math"

	"github.com/cockroachdb/errors"
)

// InvalidID marks an identifier that was never minted.
const InvalidID uint64 = math.MaxUint64

// IDRegistry mints monotonically increasing identifiers up to a fixed capacity.
// Identifiers are never handed out twice until Reset is called.
type IDRegistry struct {
	name     string
	capacity uint64
	next     uint64
}

func NewIDRegistry(name string, capacity uint64) *IDRegistry {
	return &IDRegistry{
		name:     name,
		capacity: capacity,
	}
}

// Acquire returns the next identifier, or ErrCapacityExceeded once the
// registry holds capacity live identifiers. A refused call does not advance
// the counter.
func (r *IDRegistry) Acquire() (uint64, error) {
	if r.next >= r.capacity {
		return InvalidID, errors.Wrapf(ErrCapacityExceeded, "%s registry is full (max=%d)", r.name, r.capacity)
	}
	id := r.next
	r.next++
	return id, nil
}

// Peek returns the identifier the next successful Acquire will return.
func (r *IDRegistry) Peek() uint64 {
	return r.next
}

// Count is the number of live identifiers.
func (r *IDRegistry) Count() uint64 {
	return r.next
}

func (r *IDRegistry) Capacity() uint64 {
	return r.capacity
}

// Contains reports whether id was minted since the last Reset.
func (r *IDRegistry) Contains(id uint64) bool {
	return id < r.next
}

// Reset makes every identifier available again.
func (r *IDRegistry) Reset() {
	r.next = 0
}
