package pool

import (
	"math/bits"
	"sync"

	"github.com/tdds/tdds-core/pkg/guid"
)

// MaxLevels bounds skiplist height, the usual MAX_LEVELS
// (tuned for up to ~2^16 entries per list; the HistoryCache seqnum index
// stays well under that).
const MaxLevels = 16

// randomLevel draws a node level the classic skiplist way: the level is the
// count of consecutive zero bits drawn from the source, i.e. the
// trailing-zero-bit count of each drawn word (an all-zero word adds 32 and
// draws again), clamped to MaxLevels-1.
// This keeps level k half as likely as level k-1 without a division or
// float.
func randomLevel(src guid.RandomSource) int {
	level := 0
	for {
		w := src.Uint32()
		if w == 0 {
			level += 32
			if level >= MaxLevels {
				return MaxLevels - 1
			}
			continue
		}
		level += bits.TrailingZeros32(w)
		break
	}
	if level >= MaxLevels {
		return MaxLevels - 1
	}
	return level
}

// node is a single skiplist entry; next holds one forward pointer per
// level it participates in, mirroring SLNode_t's flexible-array tail.
type node[K any, V any] struct {
	key   K
	val   V
	level int
	next  []*node[K, V]
}

// Skiplist is a generic ordered map, allocated from stratified per-level
// pools the way sl_pool_init bands MAX_LEVELS into (MAX_LEVELS>>1)+1
// bands so tall (expensive) nodes are rarer than short ones.
type Skiplist[K any, V any] struct {
	mu      sync.RWMutex
	cmp     func(a, b K) int
	src     guid.RandomSource
	head    *node[K, V]
	length  int
	levels  [MaxLevels / 2 + 1]*Pool[node[K, V]]
}

// NewSkiplist creates an empty skiplist ordered by cmp, drawing levels from src.
// bandLimits configures one Constraints per level band (len must be
// MaxLevels/2+1); a nil bandLimits uses unconstrained heap allocation for
// every band.
func NewSkiplist[K any, V any](cmp func(a, b K) int, src guid.RandomSource, bandLimits []Constraints) *Skiplist[K, V] {
	sl := &Skiplist[K, V]{
		cmp:  cmp,
		src:  src,
		head: &node[K, V]{level: MaxLevels - 1, next: make([]*node[K, V], MaxLevels)},
	}
	for i := range sl.levels {
		var c Constraints
		if i < len(bandLimits) {
			c = bandLimits[i]
		} else {
			c = Constraints{Reserved: 0, Extra: Unlimited, Grow: 100}
		}
		sl.levels[i] = New[node[K, V]](c, nil)
	}
	return sl
}

func (sl *Skiplist[K, V]) band(level int) *Pool[node[K, V]] {
	return sl.levels[level>>1]
}

// Len returns the number of entries currently stored.
func (sl *Skiplist[K, V]) Len() int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.length
}

// Insert adds or replaces the value for key, returning true if a new node
// was allocated (false if an existing one was updated in place), mirroring
// sl_insert's *allocated out-parameter.
func (sl *Skiplist[K, V]) Insert(key K, val V) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	var update [MaxLevels]*node[K, V]
	p := sl.head
	for lvl := MaxLevels - 1; lvl >= 0; lvl-- {
		for p.next[lvl] != nil && sl.cmp(p.next[lvl].key, key) < 0 {
			p = p.next[lvl]
		}
		update[lvl] = p
	}

	if q := p.next[0]; q != nil && sl.cmp(q.key, key) == 0 {
		q.val = val
		return false
	}

	lvl := randomLevel(sl.src)
	n := sl.band(lvl).Alloc()
	if n == nil {
		n = &node[K, V]{}
	}
	n.key, n.val, n.level = key, val, lvl
	n.next = make([]*node[K, V], lvl+1)

	for i := 0; i <= lvl; i++ {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n
	}
	sl.length++
	return true
}

// Delete removes key if present, returning whether it was found.
func (sl *Skiplist[K, V]) Delete(key K) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	var update [MaxLevels]*node[K, V]
	p := sl.head
	for lvl := MaxLevels - 1; lvl >= 0; lvl-- {
		for p.next[lvl] != nil && sl.cmp(p.next[lvl].key, key) < 0 {
			p = p.next[lvl]
		}
		update[lvl] = p
	}

	q := p.next[0]
	if q == nil || sl.cmp(q.key, key) != 0 {
		return false
	}
	for i := 0; i <= q.level; i++ {
		if update[i].next[i] == q {
			update[i].next[i] = q.next[i]
		}
	}
	sl.band(q.level).Free(q)
	sl.length--
	return true
}

// Get returns the value stored for key, if any.
func (sl *Skiplist[K, V]) Get(key K) (V, bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	p := sl.head
	for lvl := MaxLevels - 1; lvl >= 0; lvl-- {
		for p.next[lvl] != nil && sl.cmp(p.next[lvl].key, key) < 0 {
			p = p.next[lvl]
		}
	}
	q := p.next[0]
	if q == nil || sl.cmp(q.key, key) != 0 {
		var zero V
		return zero, false
	}
	return q.val, true
}

// Range walks entries in ascending key order, stopping early if fn
// returns false.
func (sl *Skiplist[K, V]) Range(fn func(key K, val V) bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	for p := sl.head.next[0]; p != nil; p = p.next[0] {
		if !fn(p.key, p.val) {
			return
		}
	}
}
