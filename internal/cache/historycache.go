package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	libsem "github.com/nabbar/golib/semaphore/sem"

	"github.com/tdds/tdds-core/internal/pool"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

// maxBlockedWriters bounds the number of goroutines a single cache will
// park in waitForSpace concurrently (write() is the publish path's one
// bounded suspension point),
// so a KEEP_ALL cache under sustained overflow cannot spawn an unbounded
// number of waiting goroutines.
const maxBlockedWriters = 64

// blockGate is the subset of github.com/nabbar/golib/semaphore/sem's
// returned weighted semaphore this package relies on.
type blockGate interface {
	NewWorker() error
	DeferWorker()
}

// HistoryCache is the per-endpoint sample store of RTPS §8.2: a primary
// index by sequence number (a skiplist) plus a secondary index by
// instance key, enforcing the endpoint's History/ResourceLimits QoS.
type HistoryCache struct {
	mu   sync.Mutex
	cond *sync.Cond

	policy qos.Policies
	bySeq  *pool.Skiplist[uint64, *Change]
	byKey  map[uint64][]*instance // InstanceKey.Hash -> bucket, collisions resolved by Key.Raw compare.
	count  int                    // total distinct instances, tracked alongside byKey for O(1) max_instances checks.

	nextSeq uint64
	blocked blockGate // bounds concurrent waitForSpace callers, see maxBlockedWriters.
}

// New builds an empty cache honoring policy's History/ResourceLimits.
func New(policy qos.Policies, rng guid.RandomSource) *HistoryCache {
	hc := &HistoryCache{
		policy:  policy,
		bySeq:   pool.NewSkiplist[uint64, *Change](seqCmp, rng, nil),
		byKey:   make(map[uint64][]*instance),
		blocked: libsem.New(context.Background(), maxBlockedWriters),
	}
	hc.cond = sync.NewCond(&hc.mu)
	return hc
}

// lookupInstance finds the existing instance for key, if any, resolving
// hash collisions by comparing the raw key encoding.
func (hc *HistoryCache) lookupInstance(key InstanceKey) (*instance, bool) {
	for _, in := range hc.byKey[key.Hash] {
		if in.key.Raw == key.Raw {
			return in, true
		}
	}
	return nil, false
}

func (hc *HistoryCache) evictInstance(key InstanceKey) {
	bucket := hc.byKey[key.Hash]
	for i, in := range bucket {
		if in.key.Raw == key.Raw {
			hc.byKey[key.Hash] = append(bucket[:i], bucket[i+1:]...)
			hc.count--
			return
		}
	}
}

func (hc *HistoryCache) instanceFor(key InstanceKey) *instance {
	if in, ok := hc.lookupInstance(key); ok {
		return in
	}
	in := newInstance(key)
	hc.byKey[key.Hash] = append(hc.byKey[key.Hash], in)
	hc.count++
	return in
}

// AddChange appends a change on the writer side, assigning the next
// sequence number, enforcing KEEP_LAST eviction or KEEP_ALL blocking per
// resource limits (RTPS §8.2's writer cache contract).
func (hc *HistoryCache) AddChange(ctx context.Context, key InstanceKey, kind Kind, payload *pool.DataBuffer, sourceTime time.Time) (*Change, error) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	in := hc.instanceFor(key)

	if hc.policy.History.Kind == qos.KeepLast {
		for in.aliveCount() >= int(hc.policy.History.Depth) {
			if old := in.dropOldestAlive(); old != nil {
				hc.bySeq.Delete(old.SeqNum)
				old.Release()
			} else {
				break
			}
		}
	} else { // KeepAll: bound by ResourceLimits.MaxSamplesPerInstance, blocking on reliable overflow.
		limit := hc.policy.ResourceLimits.MaxSamplesPerInstance
		deadline := time.Time{}
		if !hc.policy.Reliability.MaxBlockingTime.Infinite {
			deadline = time.Now().Add(hc.policy.Reliability.MaxBlockingTime.Duration)
		}
		for limit > 0 && in.aliveCount() >= int(limit) {
			if hc.policy.Reliability.Kind != qos.Reliable {
				return nil, ErrRejected()
			}
			if !hc.waitForSpace(ctx, deadline) {
				return nil, ErrTimeout()
			}
		}
	}

	if hc.policy.ResourceLimits.MaxInstances > 0 && hc.count > int(hc.policy.ResourceLimits.MaxInstances) {
		if len(in.alive) == 0 {
			hc.evictInstance(key)
		}
		return nil, ErrRejected()
	}

	hc.nextSeq++
	c := &Change{
		SeqNum:      hc.nextSeq,
		Key:         key,
		Kind:        kind,
		Payload:     payload,
		SourceTime:  sourceTime,
		ArrivalTime: time.Now(),
		Sample:      NotRead,
		View:        NewView,
		Instance:    InstanceAlive,
		refs:        1,
	}
	in.append(c)
	hc.bySeq.Insert(c.SeqNum, c)
	hc.cond.Broadcast()
	return c, nil
}

// waitForSpace blocks until Broadcast (a RemoveChange freed room) or the
// deadline/ctx fires, returning false on timeout/cancellation. Concurrent
// callers are bounded by hc.blocked (maxBlockedWriters), so a cache under
// sustained KEEP_ALL overflow cannot spawn an unbounded number of parked
// goroutines.
func (hc *HistoryCache) waitForSpace(ctx context.Context, deadline time.Time) bool {
	hc.mu.Unlock()
	defer hc.mu.Lock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		timeout = time.After(time.Until(deadline))
	}

	acquired := make(chan struct{})
	go func() {
		if hc.blocked.NewWorker() == nil {
			close(acquired)
		}
	}()
	select {
	case <-acquired:
	case <-ctx.Done():
		return false
	case <-timeout:
		return false
	}
	defer hc.blocked.DeferWorker()

	done := make(chan struct{})
	go func() {
		hc.cond.L.Lock()
		hc.cond.Wait()
		hc.cond.L.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	case <-timeout:
		return false
	}
}

// RemoveChange drops a change once every matched reliable reader has
// acknowledged it (RTPS §8.2, writer-side `remove_change`).
func (hc *HistoryCache) RemoveChange(seq uint64) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	v, ok := hc.bySeq.Get(seq)
	if !ok {
		return
	}
	if in, ok2 := hc.lookupInstance(v.Key); ok2 {
		in.remove(seq)
	}
	hc.bySeq.Delete(seq)
	v.Release()
	hc.cond.Broadcast()
}

// GetChangeForReader returns the stored change for seq, used by the
// reliable writer state machine to retransmit on NACK.
func (hc *HistoryCache) GetChangeForReader(seq uint64) (*Change, bool) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return hc.bySeq.Get(seq)
}

// ReceiveChange inserts a reader-side change at its writer-assigned
// seqnum position, rejecting it (SAMPLE_REJECTED) if its instance is new
// and max_instances is already saturated (RTPS §8.2 reader contract).
func (hc *HistoryCache) ReceiveChange(c *Change) error {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	_, known := hc.lookupInstance(c.Key)
	if !known && hc.policy.ResourceLimits.MaxInstances > 0 &&
		hc.count >= int(hc.policy.ResourceLimits.MaxInstances) {
		return ErrRejected()
	}
	in := hc.instanceFor(c.Key)
	in.append(c)
	hc.bySeq.Insert(c.SeqNum, c)
	c.Retain()
	hc.cond.Broadcast()
	return nil
}

// ReadFilter selects which combination of sample/view/instance states a
// read/take call returns, per DDS §2.2's masked conditions.
type ReadFilter struct {
	Sample   []SampleState
	View     []ViewState
	Instance []InstanceState
}

func (f ReadFilter) matches(c *Change) bool {
	return matchAny(f.Sample, c.Sample) && matchAny(f.View, c.View) && matchAny(f.Instance, c.Instance)
}

func matchAny[T comparable](set []T, v T) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Read returns changes matching filter in delivery order (by source
// timestamp under BY_SOURCE_TIMESTAMP, else reception order) without
// marking them taken.
func (hc *HistoryCache) Read(filter ReadFilter, bySourceTime bool) []*Change {
	return hc.collect(filter, bySourceTime, false)
}

// Take behaves like Read but additionally marks returned changes Read and
// removes them from the cache (the caller owns the returned refs until it
// calls ReturnLoan).
func (hc *HistoryCache) Take(filter ReadFilter, bySourceTime bool) []*Change {
	return hc.collect(filter, bySourceTime, true)
}

// expireLifespan drops alive changes whose lifespan QoS has elapsed since
// their source timestamp; called under hc.mu before any read path walks
// the cache.
func (hc *HistoryCache) expireLifespan() {
	if hc.policy.Lifespan.Infinite {
		return
	}
	cutoff := time.Now().Add(-hc.policy.Lifespan.Duration)
	var expired []*Change
	hc.bySeq.Range(func(_ uint64, c *Change) bool {
		if c.Kind == Alive && c.SourceTime.Before(cutoff) {
			expired = append(expired, c)
		}
		return true
	})
	for _, c := range expired {
		hc.bySeq.Delete(c.SeqNum)
		if in, ok := hc.lookupInstance(c.Key); ok {
			in.remove(c.SeqNum)
		}
		c.Release()
	}
	if len(expired) > 0 {
		hc.cond.Broadcast()
	}
}

func (hc *HistoryCache) collect(filter ReadFilter, bySourceTime, take bool) []*Change {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.expireLifespan()

	var out []*Change
	hc.bySeq.Range(func(_ uint64, c *Change) bool {
		if filter.matches(c) {
			out = append(out, c)
		}
		return true
	})

	if bySourceTime {
		sort.SliceStable(out, func(i, j int) bool { return out[i].SourceTime.Before(out[j].SourceTime) })
	}

	for _, c := range out {
		c.Sample = Read
		c.View = NotNewView
		if take {
			hc.bySeq.Delete(c.SeqNum)
			if in, ok := hc.lookupInstance(c.Key); ok {
				in.remove(c.SeqNum)
			}
		}
	}
	return out
}

// ReturnLoan releases the application's reference on previously
// taken/read changes, clearing a change's Payload once its refcount
// reaches zero. Changes removed by Take are not re-inserted: after take
// followed by return_loan they are gone from the cache and hold no
// reference from it.
func (hc *HistoryCache) ReturnLoan(changes []*Change) {
	for _, c := range changes {
		if c.Release() && c.Payload != nil {
			// The DataBufferPool that owns c.Payload is threaded in by the
			// caller (entity layer); here we only drop our own reference.
			c.Payload = nil
		}
	}
}

// DurabilityReplay returns every currently alive change in seqnum order,
// for delivery to a newly matched TRANSIENT_LOCAL reader before any new
// publication (RTPS §8.2).
func (hc *HistoryCache) DurabilityReplay() []*Change {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.expireLifespan()
	var out []*Change
	hc.bySeq.Range(func(_ uint64, c *Change) bool {
		if c.Kind == Alive {
			out = append(out, c)
		}
		return true
	})
	return out
}

// WalkSeq invokes fn for every sequence number currently stored, in
// ascending order — used by the RTPS writer state machine to compute the
// [first, last] range a HEARTBEAT announces.
func (hc *HistoryCache) WalkSeq(fn func(seq uint64)) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.bySeq.Range(func(seq uint64, _ *Change) bool {
		fn(seq)
		return true
	})
}

// Len reports the total number of changes currently stored.
func (hc *HistoryCache) Len() int {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return hc.bySeq.Len()
}
