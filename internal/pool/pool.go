// Package pool implements the middleware's memory substrate: fixed-size
// pools with dynamic spillover, sized from a {reserved, extra, grow}
// constraint record in the classic memory-descriptor-set design.
package pool

import (
	"sync"

	libatm "github.com/tdds/tdds-core/internal/atomicval"
)

// Constraints mirrors the C struct pool_limits: reserved blocks are
// preallocated in one contiguous slab, extra bounds total dynamic growth,
// and grow controls how many returned overflow blocks are retained instead
// of being released back to the heap.
type Constraints struct {
	Reserved uint32
	Extra    uint32 // ^uint32(0) (all bits set) means unlimited, matching ~0U in the C source.
	Grow     uint32 // percentage (0..100) of Extra kept on return.
}

const Unlimited uint32 = ^uint32(0)

// GrowAmount reproduces the pool_grow_amount macro: the number of extra
// buffers retained on return, as a Grow percentage of Extra.
func (c Constraints) GrowAmount() uint32 {
	if c.Grow >= 100 || (c.Extra == Unlimited && c.Grow != 0) {
		return c.Extra
	}
	return (c.Extra * c.Grow) / 100
}

// Stats exposes the diagnostic counters the pool dump surfaces.
type Stats struct {
	InUse      uint32
	MaxInUse   uint32
	Dynamic    uint64 // cumulative dynamic (beyond-reserved) allocations.
	Denied     uint64 // nomem counter: allocations refused after exhaustion.
	Retained   uint32 // overflow blocks currently kept per the grow knob.
}

// Pool is a typed fixed-size pool with dynamic spillover to the heap.
// Allocation prefers the preallocated slab, then the retained overflow
// list, then falls back to heap; exhaustion increments Denied and returns
// nil.
type Pool[T any] struct {
	mu    sync.Mutex
	limit Constraints

	slab     []*T // preallocated reserved-size slab.
	freeSlab []*T // free list drawn from the slab.
	overflow []*T // retained overflow blocks (bounded by GrowAmount()).

	inUse   uint32
	maxUse  uint32
	dynAlloc uint64
	denied   uint64

	extraOut uint32 // currently-outstanding dynamic (non-slab, non-overflow) allocations.

	zero func() T
}

// New builds a Pool honoring c, preallocating c.Reserved elements.
// zero, if non-nil, is called to produce each fresh element (useful for
// types needing field initialization beyond the Go zero value).
func New[T any](c Constraints, zero func() T) *Pool[T] {
	p := &Pool[T]{limit: c, zero: zero}
	p.slab = make([]*T, c.Reserved)
	p.freeSlab = make([]*T, 0, c.Reserved)
	for i := range p.slab {
		p.slab[i] = p.newElem()
		p.freeSlab = append(p.freeSlab, p.slab[i])
	}
	return p
}

func (p *Pool[T]) newElem() *T {
	v := new(T)
	if p.zero != nil {
		*v = p.zero()
	}
	return v
}

// Alloc returns a pooled element or nil if every tier (slab, overflow,
// heap-under-Extra) is exhausted.
func (p *Pool[T]) Alloc() *T {
	p.mu.Lock()
	defer p.mu.Unlock()

	var v *T
	switch {
	case len(p.freeSlab) > 0:
		n := len(p.freeSlab) - 1
		v = p.freeSlab[n]
		p.freeSlab = p.freeSlab[:n]
	case len(p.overflow) > 0:
		n := len(p.overflow) - 1
		v = p.overflow[n]
		p.overflow = p.overflow[:n]
	default:
		if p.limit.Extra != Unlimited && p.extraOut >= p.limit.Extra {
			p.denied++
			return nil
		}
		v = p.newElem()
		p.extraOut++
		p.dynAlloc++
	}

	p.inUse++
	if p.inUse > p.maxUse {
		p.maxUse = p.inUse
	}
	return v
}

// Free returns v to the pool: to the slab free list if it came from the
// slab, else to the retained overflow list up to GrowAmount(), else it is
// dropped (released to the GC) and the extra-allocation count decremented.
func (p *Pool[T]) Free(v *T) {
	if v == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inUse > 0 {
		p.inUse--
	}

	if p.fromSlab(v) {
		p.freeSlab = append(p.freeSlab, v)
		return
	}

	grow := p.limit.GrowAmount()
	if grow == Unlimited || uint32(len(p.overflow)) < grow {
		p.overflow = append(p.overflow, v)
		return
	}

	if p.extraOut > 0 {
		p.extraOut--
	}
}

func (p *Pool[T]) fromSlab(v *T) bool {
	for _, s := range p.slab {
		if s == v {
			return true
		}
	}
	return false
}

// Stats returns a snapshot of the pool's diagnostic counters.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		InUse:    p.inUse,
		MaxInUse: p.maxUse,
		Dynamic:  p.dynAlloc,
		Denied:   p.denied,
		Retained: uint32(len(p.overflow)),
	}
}

// Sequence is a process-wide lock-free counter used for pool-id tagging and
// cache sequence-number allocation; it wraps the generic atomic.Value[T]
// pattern golib exposes for this exact purpose.
type Sequence struct {
	v libatm.Value[uint64]
}

func NewSequence(start uint64) *Sequence {
	s := &Sequence{}
	s.v.Store(start)
	return s
}

func (s *Sequence) Next() uint64 {
	for {
		old := s.v.Load()
		if s.v.CompareAndSwap(old, old+1) {
			return old + 1
		}
	}
}

func (s *Sequence) Current() uint64 { return s.v.Load() }
