// SPDX-License-Identifier: MIT
/*
Package queue provides a bounded single-producer/single-consumer ring used
to pass messages between the audio callback and the rest of the program.

Thread Safety:
- Exactly one goroutine may call TryPush and exactly one may call TryPop
- Head and tail are published with atomic loads/stores, no locks
- Slots are pre-allocated, pushing a value never allocates
*/
package queue

import (
	"sync/atomic"

	"grec/pkg/bitint"
)

// Ring is a fixed-capacity SPSC queue of T values.
type Ring[T any] struct {
	slots []T
	mask  uint64

	// head is owned by the consumer, tail by the producer. Padding keeps the
	// two counters on separate cache lines.
	head atomic.Uint64
	_    [56]byte
	tail atomic.Uint64
	_    [56]byte
}

// NewRing creates a ring holding at least capacity values. The capacity is
// rounded up to a power of two so indices can be masked.
func NewRing[T any](capacity int) *Ring[T] {
	size := bitint.NextPowerOfTwo(capacity)
	return &Ring[T]{
		slots: make([]T, size),
		mask:  uint64(size - 1),
	}
}

// TryPush appends v and reports whether there was room. It never blocks.
func (r *Ring[T]) TryPush(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() == uint64(len(r.slots)) {
		return false
	}
	r.slots[tail&r.mask] = v
	r.tail.Store(tail + 1)
	return true
}

// TryPop removes the oldest value. The second result is false when the ring
// is empty. It never blocks.
func (r *Ring[T]) TryPop() (T, bool) {
	var zero T
	head := r.head.Load()
	if head == r.tail.Load() {
		return zero, false
	}
	idx := head & r.mask
	v := r.slots[idx]
	// Drop the slot's references so popped snapshots can be collected.
	r.slots[idx] = zero
	r.head.Store(head + 1)
	return v, true
}

// Len returns the number of queued values. From any goroutine other than
// the producer or consumer the result is only a hint.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Free returns the number of values that can be pushed before the ring is full.
func (r *Ring[T]) Free() int {
	return len(r.slots) - r.Len()
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return len(r.slots)
}
