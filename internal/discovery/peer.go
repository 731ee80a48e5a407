package discovery

import (
	"sync"
	"time"

	"github.com/tdds/tdds-core/pkg/guid"
)

// DiscoveredParticipant is the local record of a remote participant (spec
// §3's "Participant record (local or remote)"): its announced data, the
// wall-clock time it was last seen, and the set of its endpoints this core
// has learned about via SEDP, keyed by EntityId.
type DiscoveredParticipant struct {
	Data     ParticipantData
	LastSeen time.Time
	Ignored  bool

	mu        sync.Mutex
	endpoints map[guid.EntityId]*EndpointData
}

func newDiscoveredParticipant(data ParticipantData, now time.Time) *DiscoveredParticipant {
	return &DiscoveredParticipant{
		Data:      data,
		LastSeen:  now,
		endpoints: make(map[guid.EntityId]*EndpointData),
	}
}

// Lease returns the participant's announced lease duration, defaulting to
// 30s (this core's SPDP resend_period default) if it announced zero,
// matching the rejection of a zero lease at the *local* create path
// while remaining lenient about a malformed remote announcement.
func (d *DiscoveredParticipant) Lease() time.Duration {
	if d.Data.LeaseDuration <= 0 {
		return 30 * time.Second
	}
	return d.Data.LeaseDuration
}

// Expired reports whether now has passed LastSeen+Lease (the peer-set invariant
// 6: "now − P.last_seen ≤ P.lease_duration or P is absent from the peer set").
func (d *DiscoveredParticipant) Expired(now time.Time) bool {
	return now.Sub(d.LastSeen) > d.Lease()
}

func (d *DiscoveredParticipant) upsertEndpoint(e *EndpointData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endpoints[e.Guid.Entity] = e
}

func (d *DiscoveredParticipant) removeEndpoint(id guid.EntityId) (*EndpointData, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.endpoints[id]
	delete(d.endpoints, id)
	return e, ok
}

// Endpoints returns a snapshot of every endpoint currently known for this
// participant.
func (d *DiscoveredParticipant) Endpoints() []*EndpointData {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*EndpointData, 0, len(d.endpoints))
	for _, e := range d.endpoints {
		out = append(out, e)
	}
	return out
}

// PeerTable is the set of all currently known remote participants, indexed
// by GuidPrefix, with lease-based expiry (RTPS §8.5's SPDP "ttl" semantics).
type PeerTable struct {
	mu   sync.Mutex
	byID map[guid.GuidPrefix]*DiscoveredParticipant
}

func NewPeerTable() *PeerTable {
	return &PeerTable{byID: make(map[guid.GuidPrefix]*DiscoveredParticipant)}
}

// Upsert records data as of now, creating a DiscoveredParticipant on first
// sight or refreshing LastSeen on a repeat announcement. Reports whether
// this was a brand-new peer.
func (t *PeerTable) Upsert(data ParticipantData, now time.Time) (*DiscoveredParticipant, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.byID[data.Prefix]; ok {
		p.Data = data
		p.LastSeen = now
		return p, false
	}
	p := newDiscoveredParticipant(data, now)
	t.byID[data.Prefix] = p
	return p, true
}

func (t *PeerTable) Get(prefix guid.GuidPrefix) (*DiscoveredParticipant, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byID[prefix]
	return p, ok
}

func (t *PeerTable) Ignore(prefix guid.GuidPrefix) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.byID[prefix]; ok {
		p.Ignored = true
	}
}

func (t *PeerTable) Remove(prefix guid.GuidPrefix) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, prefix)
}

// Sweep removes every participant whose lease has expired as of now,
// returning their prefixes so the caller can tear down matched proxies and
// emit PUBLICATION_MATCHED/SUBSCRIPTION_MATCHED decrements (DDS §2.2
// scenario 5).
func (t *PeerTable) Sweep(now time.Time) []guid.GuidPrefix {
	t.mu.Lock()
	defer t.mu.Unlock()
	var lost []guid.GuidPrefix
	for prefix, p := range t.byID {
		if p.Expired(now) {
			lost = append(lost, prefix)
			delete(t.byID, prefix)
		}
	}
	return lost
}

func (t *PeerTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

// Range invokes fn for every currently known peer.
func (t *PeerTable) Range(fn func(guid.GuidPrefix, *DiscoveredParticipant) bool) {
	t.mu.Lock()
	snapshot := make(map[guid.GuidPrefix]*DiscoveredParticipant, len(t.byID))
	for k, v := range t.byID {
		snapshot[k] = v
	}
	t.mu.Unlock()
	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}
