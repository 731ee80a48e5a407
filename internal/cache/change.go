// Package cache implements the per-endpoint HistoryCache engine of spec
// §4.2: a dual-indexed (by sequence number, by instance key) store of
// Changes with KEEP_LAST/KEEP_ALL enforcement, sample/view/instance state
// filtering, and TRANSIENT_LOCAL durability replay.
package cache

import (
	"time"

	"github.com/tdds/tdds-core/internal/pool"
	"github.com/tdds/tdds-core/pkg/guid"
)

// Kind classifies a Change the way DDS distinguishes live data from
// instance lifecycle transitions.
type Kind int

const (
	Alive Kind = iota
	NotAliveDisposed
	NotAliveNoWriters
)

// SampleState tracks whether a reader has already consumed a Change.
type SampleState int

const (
	NotRead SampleState = iota
	Read
)

// ViewState tracks whether an instance is newly discovered to the reader.
type ViewState int

const (
	NewView ViewState = iota
	NotNewView
)

// InstanceState mirrors the DDS instance lifecycle.
type InstanceState int

const (
	InstanceAlive InstanceState = iota
	InstanceNotAliveDisposed
	InstanceNotAliveNoWriters
)

// InstanceKey is the hashed+raw identity of one keyed instance within a
// topic, computed over a type's @Key fields (pkg/cdr.Type.KeyFields).
type InstanceKey struct {
	Hash uint64
	Raw  string // canonical serialization of the key fields, for hash-collision disambiguation.
}

// Change is one published sample plus its cache metadata, RTPS §8.2.
type Change struct {
	SeqNum     uint64
	Writer     guid.Guid
	Key        InstanceKey
	Kind       Kind
	Payload    *pool.DataBuffer
	SourceTime time.Time
	ArrivalTime time.Time
	Sample     SampleState
	View       ViewState
	Instance   InstanceState

	refs uint32
}

// Retain increments the Change's cross-cache/proxy refcount; a change is
// freed only when the count reaches zero across every cache and proxy
// that ever held it.
func (c *Change) Retain() { c.refs++ }

// Release decrements the refcount and reports whether it reached zero,
// at which point the caller must return c.Payload to its buffer pool.
func (c *Change) Release() bool {
	if c.refs > 0 {
		c.refs--
	}
	return c.refs == 0
}

func seqCmp(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
