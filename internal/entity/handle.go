// Package entity implements the entity tree of DDS §2.2/§4.4:
// DomainParticipant/Topic/Publisher/Subscriber/DataWriter/DataReader, the
// handle-based arena backing their opaque Handles, Conditions and WaitSets.
package entity

import "sync"

// Handle is the opaque integer identity DDS §2.2 requires of every Entity:
// a slot index in the low 32 bits and a generation counter in the high 32,
// so a freed-and-reused slot never aliases a stale Handle held by a caller.
type Handle uint64

func newHandle(index uint32, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) index() uint32      { return uint32(h) }
func (h Handle) generation() uint32 { return uint32(h >> 32) }

// Arena is a generation-checked slot allocator for entities of one kind,
// the same tradeoff internal/pool.Pool makes for fixed-size records:
// O(1) alloc/free via a freelist, with generation bumps standing in for
// a refcount-on-handle discipline (DDS §2.2's "deletion is
// hierarchical... handle (opaque integer)").
type Arena[T any] struct {
	mu    sync.Mutex
	slots []slot[T]
	free  []uint32
}

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

func NewArena[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Alloc stores v in a free slot (or a freshly appended one) and returns its
// Handle.
func (a *Arena[T]) Alloc(v T) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx].value = v
		a.slots[idx].occupied = true
		return newHandle(idx, a.slots[idx].generation)
	}

	idx := uint32(len(a.slots))
	a.slots = append(a.slots, slot[T]{value: v, occupied: true})
	return newHandle(idx, 0)
}

// Get returns the value stored at h, or false if h is stale (its slot was
// freed and/or reused since it was issued).
func (a *Arena[T]) Get(h Handle) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var zero T
	idx := h.index()
	if int(idx) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[idx]
	if !s.occupied || s.generation != h.generation() {
		return zero, false
	}
	return s.value, true
}

// Set overwrites the value at h in place, returning false if h is stale.
func (a *Arena[T]) Set(h Handle, v T) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := h.index()
	if int(idx) >= len(a.slots) {
		return false
	}
	s := &a.slots[idx]
	if !s.occupied || s.generation != h.generation() {
		return false
	}
	s.value = v
	return true
}

// Free releases h's slot, bumping its generation so any outstanding copy of
// h becomes stale.
func (a *Arena[T]) Free(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := h.index()
	if int(idx) >= len(a.slots) {
		return false
	}
	s := &a.slots[idx]
	if !s.occupied || s.generation != h.generation() {
		return false
	}
	var zero T
	s.value = zero
	s.occupied = false
	s.generation++
	a.free = append(a.free, idx)
	return true
}

// Range invokes fn for every currently occupied slot's Handle and value,
// stopping early if fn returns false.
func (a *Arena[T]) Range(fn func(Handle, T) bool) {
	a.mu.Lock()
	snapshot := make([]struct {
		h Handle
		v T
	}, 0, len(a.slots))
	for i := range a.slots {
		s := &a.slots[i]
		if s.occupied {
			snapshot = append(snapshot, struct {
				h Handle
				v T
			}{newHandle(uint32(i), s.generation), s.value})
		}
	}
	a.mu.Unlock()

	for _, e := range snapshot {
		if !fn(e.h, e.v) {
			return
		}
	}
}

func (a *Arena[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.slots) - len(a.free)
}
