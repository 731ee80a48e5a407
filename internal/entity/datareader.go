package entity

import (
	"sync"
	"time"

	"github.com/tdds/tdds-core/internal/cache"
	"github.com/tdds/tdds-core/internal/rtps"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

// instanceOwner tracks the current EXCLUSIVE-ownership winner for one
// instance, RTPS §8.4's tie-break rule.
type instanceOwner struct {
	writer   guid.Guid
	strength int32
}

// DataReader is a local subscription endpoint bound to exactly one Topic.
type DataReader struct {
	Base
	Topic      *Topic
	subscriber *Subscriber
	StatusCond *StatusCondition

	cache      *cache.HistoryCache
	rtpsReader *rtps.ReliableReader

	mu       sync.Mutex
	matched  map[guid.Guid]qos.Policies
	owners   map[string]instanceOwner // InstanceKey.Raw -> current EXCLUSIVE owner.
	lastSeen map[string]time.Time     // InstanceKey.Raw -> arrival of last accepted sample, for time_based_filter.

	coherent *coherentStage
}

// CheckDeadlines posts StatusRequestedDeadlineMissed for every instance
// that has not seen a sample within the Deadline QoS period, returning how
// many instances missed. Driven periodically from the dispatcher, the same
// way liveliness sweeps are.
func (dr *DataReader) CheckDeadlines(now time.Time) int {
	period := dr.QoS.Policies().Deadline
	if period.Infinite {
		return 0
	}
	dr.mu.Lock()
	missed := 0
	for _, last := range dr.lastSeen {
		if now.Sub(last) > period.Duration {
			missed++
		}
	}
	dr.mu.Unlock()
	if missed > 0 {
		dr.StatusCond.Post(StatusRequestedDeadlineMissed)
	}
	return missed
}

// observeInstance records an instance's latest sample arrival, feeding both
// the time_based_filter window and deadline tracking.
func (dr *DataReader) observeInstance(key string, at time.Time) {
	if dr.lastSeen == nil {
		dr.lastSeen = make(map[string]time.Time)
	}
	dr.lastSeen[key] = at
}

// passesTimeFilter enforces the time_based_filter QoS: at most one alive
// sample per instance per minimum-separation window; lifecycle changes
// (dispose/unregister) always pass.
func (dr *DataReader) passesTimeFilter(c *cache.Change) bool {
	if c.Kind != cache.Alive {
		return true
	}
	minSep := dr.QoS.Policies().TimeBasedFilter
	dr.mu.Lock()
	defer dr.mu.Unlock()
	now := time.Now()
	if !minSep.Infinite && minSep.Duration > 0 {
		if last, ok := dr.lastSeen[c.Key.Raw]; ok && now.Sub(last) < minSep.Duration {
			return false
		}
	}
	dr.observeInstance(c.Key.Raw, now)
	return true
}

func (dr *DataReader) MatchWriter(writer guid.Guid, offered qos.Policies) {
	dr.mu.Lock()
	if dr.matched == nil {
		dr.matched = make(map[guid.Guid]qos.Policies)
	}
	dr.matched[writer] = offered
	dr.mu.Unlock()

	if dr.rtpsReader != nil {
		dr.rtpsReader.MatchWriter(writer)
	}
	dr.StatusCond.Post(StatusSubscriptionMatched)
}

func (dr *DataReader) UnmatchWriter(writer guid.Guid) {
	dr.mu.Lock()
	delete(dr.matched, writer)
	owningGone := false
	for key, o := range dr.owners {
		if o.writer == writer {
			delete(dr.owners, key)
			owningGone = true
		}
	}
	dr.mu.Unlock()
	_ = owningGone
	if dr.rtpsReader != nil {
		dr.rtpsReader.UnmatchWriter(writer)
	}
	dr.StatusCond.Post(StatusSubscriptionMatched)
}

func (dr *DataReader) Compatible(offered qos.Policies) qos.Incompatibility {
	return qos.Compatible(offered, dr.QoS.Policies())
}

// AcceptsSample applies RTPS §8.4's EXCLUSIVE-ownership tie-break: of the
// writers seen for one instance, the one with the higher
// ownership_strength wins (lexicographically greater GuidPrefix breaks a
// tie); any sample from a non-winning writer is suppressed.
func (dr *DataReader) AcceptsSample(writer guid.Guid, strength int32, key cache.InstanceKey) bool {
	if dr.QoS.Policies().Ownership.Kind != qos.Exclusive {
		return true
	}
	dr.mu.Lock()
	defer dr.mu.Unlock()
	cur, ok := dr.owners[key.Raw]
	if !ok {
		dr.owners[key.Raw] = instanceOwner{writer: writer, strength: strength}
		return true
	}
	if writer == cur.writer {
		cur.strength = strength
		dr.owners[key.Raw] = cur
		return true
	}
	if strength > cur.strength || (strength == cur.strength && writer.Prefix.Compare(cur.writer.Prefix) > 0) {
		dr.owners[key.Raw] = instanceOwner{writer: writer, strength: strength}
		return true
	}
	return false
}

// ReleaseOwnership clears any EXCLUSIVE-ownership record held by writer, so
// the next surviving writer's samples are accepted once this one goes
// NOT_ALIVE (liveliness lost or disposed), per RTPS §8.4.
func (dr *DataReader) ReleaseOwnership(writer guid.Guid) {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	for key, o := range dr.owners {
		if o.writer == writer {
			delete(dr.owners, key)
		}
	}
}

// Receive delivers one incoming change into this reader's cache, honoring
// ownership arbitration and, for a coherent-presentation writer, staging it
// until the set's closing marker (RTPS §8.4/§4.4).
func (dr *DataReader) Receive(writer guid.Guid, strength int32, c *cache.Change, coherentSet bool, setClose bool) error {
	if !dr.AcceptsSample(writer, strength, c.Key) {
		return nil
	}
	if !dr.passesTimeFilter(c) {
		return nil
	}
	if coherentSet && dr.QoS.Policies().Presentation.Coherent {
		if dr.coherent == nil {
			dr.coherent = newCoherentStage()
		}
		dr.coherent.add(c)
		if !setClose {
			return nil
		}
		staged := dr.coherent.drain()
		for _, sc := range staged {
			if err := dr.cache.ReceiveChange(sc); err != nil {
				return err
			}
		}
		return nil
	}
	return dr.cache.ReceiveChange(c)
}

func (dr *DataReader) Read(filter cache.ReadFilter, bySourceTime bool) []*cache.Change {
	return dr.cache.Read(filter, bySourceTime)
}

func (dr *DataReader) Take(filter cache.ReadFilter, bySourceTime bool) []*cache.Change {
	return dr.cache.Take(filter, bySourceTime)
}

func (dr *DataReader) ReturnLoan(changes []*cache.Change) {
	dr.cache.ReturnLoan(changes)
}

// coherentStage holds one in-progress coherent change set (RTPS §8.4:
// "samples belonging to one coherent set are held in a staging area until
// the closing submessage arrives and delivered atomically").
type coherentStage struct {
	mu      sync.Mutex
	pending []*cache.Change
}

func newCoherentStage() *coherentStage { return &coherentStage{} }

func (s *coherentStage) add(c *cache.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, c)
}

func (s *coherentStage) drain() []*cache.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}
