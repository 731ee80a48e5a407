package discovery

import (
	"sync"

	"github.com/tdds/tdds-core/internal/log"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

// LocalEndpoint is the matching engine's view of one local writer or
// reader: just enough to run RTPS §8.5's matching algorithm and for the
// caller to recognize which of its own entities a callback refers to.
type LocalEndpoint struct {
	Guid              guid.Guid
	TopicName         string
	TypeName          string
	QoS               qos.Policies
	IsWriter          bool
	OwnershipStrength int32
	Ignored           bool
}

// Matcher receives the matching engine's add/remove decisions. The RTPS
// layer implements it to create/remove WriterProxy/ReaderProxy objects
// (RTPS §8.5 step 3).
type Matcher interface {
	Match(local LocalEndpoint, remote EndpointData)
	Unmatch(local LocalEndpoint, remote EndpointData)
}

type pairKey struct {
	local  guid.EntityId
	remote guid.Guid
}

// MatchingEngine implements RTPS §8.5's algorithm: on any of {local reader
// created, local writer created, remote endpoint discovered, remote
// endpoint updated, participant ignored, QoS changed}, recompute the
// cartesian product of candidate (local, remote) pairs, filter by topic+
// type name and QoS compatibility (§4.4), and report the diff to Matcher.
type MatchingEngine struct {
	mu      sync.Mutex
	locals  map[guid.EntityId]LocalEndpoint
	remotes map[guid.Guid]EndpointData
	matched map[pairKey]struct{}
	matcher Matcher
	log     *log.Logger
}

func NewMatchingEngine(matcher Matcher, logger *log.Logger) *MatchingEngine {
	if logger == nil {
		logger = log.Discard()
	}
	return &MatchingEngine{
		locals:  make(map[guid.EntityId]LocalEndpoint),
		remotes: make(map[guid.Guid]EndpointData),
		matched: make(map[pairKey]struct{}),
		matcher: matcher,
		log:     logger,
	}
}

// RegisterLocal adds or replaces a local endpoint and recomputes its
// matches against every currently known remote endpoint.
func (m *MatchingEngine) RegisterLocal(e LocalEndpoint) {
	m.mu.Lock()
	m.locals[e.Guid.Entity] = e
	remotes := m.remoteSnapshotLocked()
	m.mu.Unlock()

	for _, r := range remotes {
		m.evaluate(e, r)
	}
}

// UnregisterLocal removes a local endpoint, unmatching it from every
// remote it was currently matched with.
func (m *MatchingEngine) UnregisterLocal(id guid.EntityId) {
	m.mu.Lock()
	local, ok := m.locals[id]
	delete(m.locals, id)
	var toUnmatch []EndpointData
	if ok {
		for key := range m.matched {
			if key.local == id {
				if r, ok := m.remotes[key.remote]; ok {
					toUnmatch = append(toUnmatch, r)
				}
				delete(m.matched, key)
			}
		}
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	for _, r := range toUnmatch {
		m.matcher.Unmatch(local, r)
	}
}

// SetIgnored updates a local endpoint's ignore flag and, if now ignored,
// unmatches it from everything (RTPS §8.5's "participant ignored" trigger,
// applied at endpoint granularity for ignore_publication/ignore_subscription).
func (m *MatchingEngine) SetIgnored(id guid.EntityId, ignored bool) {
	m.mu.Lock()
	local, ok := m.locals[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	local.Ignored = ignored
	m.locals[id] = local
	remotes := m.remoteSnapshotLocked()
	m.mu.Unlock()

	for _, r := range remotes {
		m.evaluate(local, r)
	}
}

// OnRemoteEndpoint is wired as the SEDPAgent.OnEndpoint callback: it
// records (or forgets) one remote endpoint and recomputes matches for
// every local endpoint against it.
func (m *MatchingEngine) OnRemoteEndpoint(peer guid.GuidPrefix, e *EndpointData, removed bool) {
	m.mu.Lock()
	if removed {
		delete(m.remotes, e.Guid)
	} else {
		m.remotes[e.Guid] = *e
	}
	locals := m.localSnapshotLocked()
	var toUnmatch []LocalEndpoint
	if removed {
		for key := range m.matched {
			if key.remote == e.Guid {
				if l, ok := m.locals[key.local]; ok {
					toUnmatch = append(toUnmatch, l)
				}
				delete(m.matched, key)
			}
		}
	}
	m.mu.Unlock()

	if removed {
		for _, l := range toUnmatch {
			m.matcher.Unmatch(l, *e)
		}
		return
	}
	for _, l := range locals {
		m.evaluate(l, *e)
	}
}

func (m *MatchingEngine) remoteSnapshotLocked() []EndpointData {
	out := make([]EndpointData, 0, len(m.remotes))
	for _, r := range m.remotes {
		out = append(out, r)
	}
	return out
}

func (m *MatchingEngine) localSnapshotLocked() []LocalEndpoint {
	out := make([]LocalEndpoint, 0, len(m.locals))
	for _, l := range m.locals {
		out = append(out, l)
	}
	return out
}

// candidate reports whether l and r are even eligible to match: opposite
// directions (writer<->reader), same topic and type name, and l not ignored
// (RTPS §8.5 step 1). EndpointData carries no ignore flag, so only the
// local side's flag is checked.
func candidate(l LocalEndpoint, r EndpointData) bool {
	if l.Ignored {
		return false
	}
	if l.IsWriter == r.IsWriter {
		return false
	}
	return l.TopicName == r.TopicName && l.TypeName == r.TypeName
}

// evaluate runs RTPS §8.5 step 2 (QoS compatibility) for one (local,
// remote) candidate pair and reports the Match/Unmatch diff against the
// engine's current matched-pair set.
func (m *MatchingEngine) evaluate(l LocalEndpoint, r EndpointData) {
	key := pairKey{local: l.Guid.Entity, remote: r.Guid}
	ok := candidate(l, r)
	if ok {
		var offered, requested qos.Policies
		if l.IsWriter {
			offered, requested = l.QoS, r.QoS
		} else {
			offered, requested = r.QoS, l.QoS
		}
		ok = qos.Compatible(offered, requested) == qos.CompatOK
	}

	m.mu.Lock()
	_, wasMatched := m.matched[key]
	if ok {
		m.matched[key] = struct{}{}
	} else {
		delete(m.matched, key)
	}
	m.mu.Unlock()

	switch {
	case ok && !wasMatched:
		m.matcher.Match(l, r)
	case !ok && wasMatched:
		m.matcher.Unmatch(l, r)
	}
}

// MatchedRemotes returns the remote Guids currently matched with local, for
// diagnostics and tests.
func (m *MatchingEngine) MatchedRemotes(local guid.EntityId) []guid.Guid {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []guid.Guid
	for key := range m.matched {
		if key.local == local {
			out = append(out, key.remote)
		}
	}
	return out
}
