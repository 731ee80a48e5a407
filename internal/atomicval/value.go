// Package atomicval provides a generic, lock-free typed value on top of
// sync/atomic.Value, after the shape of golib's atomic.Value[T]
// (github.com/nabbar/golib/atomic) for use by the sequence counters and
// shared state of the pool, cache and discovery engines.
package atomicval

import "sync/atomic"

// Value is a type-safe wrapper around atomic.Value holding T.
type Value[T any] struct {
	av atomic.Value
}

type box[T any] struct{ v T }

// Load returns the stored value, or the zero value of T if nothing has
// been stored yet.
func (o *Value[T]) Load() (val T) {
	if b, ok := o.av.Load().(box[T]); ok {
		return b.v
	}
	return val
}

// Store sets the value atomically.
func (o *Value[T]) Store(val T) {
	o.av.Store(box[T]{v: val})
}

// Swap atomically stores new and returns the previous value.
func (o *Value[T]) Swap(new T) (old T) {
	if b, ok := o.av.Swap(box[T]{v: new}).(box[T]); ok {
		return b.v
	}
	return old
}

// CompareAndSwap atomically stores new if the current value equals old.
// T must be comparable; this mirrors the restriction atomic.Value itself
// imposes on the values it swaps.
func (o *Value[T]) CompareAndSwap(old, new T) bool {
	return o.av.CompareAndSwap(box[T]{v: old}, box[T]{v: new})
}
