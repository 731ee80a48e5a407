package qos

import (
	"fmt"
	"sync"
)

// Ref is an interned, reference-counted QoS record handle (DDS §2.2: "QoS
// records are interned: identical QoS share one ref-counted instance").
type Ref struct {
	key    string
	policy Policies
}

func (r *Ref) Policies() Policies { return r.policy }

// Table interns Policies values by their canonical key so that identical QoS
// share one instance, in golib's cache/item style of a
// refcounted map guarded by a single mutex.
type Table struct {
	mu   sync.Mutex
	refs map[string]*entry
}

type entry struct {
	ref   Ref
	count int
}

func NewTable() *Table {
	return &Table{refs: make(map[string]*entry)}
}

// Intern returns the shared Ref for p, incrementing its reference count.
// Callers must call Release when they no longer hold the Ref.
func (t *Table) Intern(p Policies) *Ref {
	k := canonicalKey(p)

	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.refs[k]; ok {
		e.count++
		return &e.ref
	}

	e := &entry{ref: Ref{key: k, policy: p}, count: 1}
	t.refs[k] = e
	return &e.ref
}

// Release decrements the refcount of r, removing it from the table once it
// reaches zero.
func (t *Table) Release(r *Ref) {
	if r == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.refs[r.key]; ok {
		e.count--
		if e.count <= 0 {
			delete(t.refs, r.key)
		}
	}
}

// RefCount reports the current sharing count for diagnostic dumps.
func (t *Table) RefCount(r *Ref) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.refs[r.key]; ok {
		return e.count
	}
	return 0
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.refs)
}

// canonicalKey is a deliberately simple, deterministic fmt-based key: QoS
// records are small and interning happens at entity-creation rate, not on
// any data-path hot loop, so readability wins over a hand-rolled hash here.
func canonicalKey(p Policies) string {
	return fmt.Sprintf("%+v", p)
}
