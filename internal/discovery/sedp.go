package discovery

import (
	"sync"
	"time"

	"github.com/tdds/tdds-core/internal/log"
	"github.com/tdds/tdds-core/internal/rtps"
	"github.com/tdds/tdds-core/pkg/cdr"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

// Parameter ids for the DiscoveredWriterData/DiscoveredReaderData record
// (RTPS §8.5's SEDP "full effective QoS" exchange), a practical subset of
// RTPS 2.x §9.6.3's full PID catalog covering the QoS policies §4.4's
// compatibility algebra actually inspects.
const (
	pidEndpointGuid      cdr.ParamID = 0x005a
	pidTopicName         cdr.ParamID = 0x0005
	pidTypeName          cdr.ParamID = 0x0007
	pidReliability       cdr.ParamID = 0x001a
	pidDurability        cdr.ParamID = 0x001d
	pidOwnership         cdr.ParamID = 0x001f
	pidOwnershipStrength cdr.ParamID = 0x0006
	pidDeadline          cdr.ParamID = 0x0023
	pidLiveliness        cdr.ParamID = 0x001b
	pidPartition         cdr.ParamID = 0x0029
	pidIsWriter          cdr.ParamID = 0x1001 // vendor-specific extension: this core ships both directions on one PID family.
)

// EncodeEndpointData serializes the QoS-bearing subset of an EndpointData
// RTPS §8.5's SEDP exchange carries.
func EncodeEndpointData(e EndpointData) []byte {
	w := cdr.NewWriter(cdr.LittleEndian)
	var params []cdr.Param

	gw := cdr.NewWriter(cdr.LittleEndian)
	gw.Bytes_(e.Guid.Prefix[:])
	gw.Bytes_(e.Guid.Entity[:])
	params = append(params, cdr.Param{ID: pidEndpointGuid, Value: gw.Bytes()})

	params = append(params, cdr.Param{ID: pidTopicName, Value: []byte(e.TopicName)})
	params = append(params, cdr.Param{ID: pidTypeName, Value: []byte(e.TypeName)})

	rw := cdr.NewWriter(cdr.LittleEndian)
	rw.Long(int32(e.QoS.Reliability.Kind))
	params = append(params, cdr.Param{ID: pidReliability, Value: rw.Bytes()})

	dw := cdr.NewWriter(cdr.LittleEndian)
	dw.Long(int32(e.QoS.Durability))
	params = append(params, cdr.Param{ID: pidDurability, Value: dw.Bytes()})

	ow := cdr.NewWriter(cdr.LittleEndian)
	ow.Long(int32(e.QoS.Ownership.Kind))
	params = append(params, cdr.Param{ID: pidOwnership, Value: ow.Bytes()})

	sw := cdr.NewWriter(cdr.LittleEndian)
	sw.Long(e.OwnershipStrength)
	params = append(params, cdr.Param{ID: pidOwnershipStrength, Value: sw.Bytes()})

	ddl := cdr.NewWriter(cdr.LittleEndian)
	ddl.LongLong(int64(e.QoS.Deadline.Duration))
	ddl.Bool(e.QoS.Deadline.Infinite)
	params = append(params, cdr.Param{ID: pidDeadline, Value: ddl.Bytes()})

	lw := cdr.NewWriter(cdr.LittleEndian)
	lw.Long(int32(e.QoS.Liveliness.Kind))
	lw.LongLong(int64(e.QoS.Liveliness.LeaseDuration.Duration))
	lw.Bool(e.QoS.Liveliness.LeaseDuration.Infinite)
	params = append(params, cdr.Param{ID: pidLiveliness, Value: lw.Bytes()})

	for _, part := range e.QoS.Partition {
		params = append(params, cdr.Param{ID: pidPartition, Value: []byte(part)})
	}

	iw := cdr.NewWriter(cdr.LittleEndian)
	iw.Bool(e.IsWriter)
	params = append(params, cdr.Param{ID: pidIsWriter, Value: iw.Bytes()})

	w.WriteParamList(params)
	return w.Bytes()
}

// DecodeEndpointData parses an EncodeEndpointData payload back into an
// EndpointData, applying spec Default() QoS for any policy this core
// doesn't carry over the wire.
func DecodeEndpointData(payload []byte) (EndpointData, error) {
	var e EndpointData
	e.QoS = qos.Default()
	r := cdr.NewReader(cdr.LittleEndian, payload)
	params, err := r.ReadParamList()
	if err != nil {
		return e, err
	}
	if p, ok := cdr.Find(params, pidEndpointGuid); ok && len(p.Value) >= guid.PrefixLen+guid.EntityIdLen {
		copy(e.Guid.Prefix[:], p.Value[:guid.PrefixLen])
		copy(e.Guid.Entity[:], p.Value[guid.PrefixLen:guid.PrefixLen+guid.EntityIdLen])
	}
	if p, ok := cdr.Find(params, pidTopicName); ok {
		e.TopicName = string(p.Value)
	}
	if p, ok := cdr.Find(params, pidTypeName); ok {
		e.TypeName = string(p.Value)
	}
	if p, ok := cdr.Find(params, pidReliability); ok && len(p.Value) >= 4 {
		rr := cdr.NewReader(cdr.LittleEndian, p.Value)
		v, _ := rr.Long()
		e.QoS.Reliability.Kind = qos.ReliabilityKind(v)
	}
	if p, ok := cdr.Find(params, pidDurability); ok && len(p.Value) >= 4 {
		rr := cdr.NewReader(cdr.LittleEndian, p.Value)
		v, _ := rr.Long()
		e.QoS.Durability = qos.DurabilityKind(v)
	}
	if p, ok := cdr.Find(params, pidOwnership); ok && len(p.Value) >= 4 {
		rr := cdr.NewReader(cdr.LittleEndian, p.Value)
		v, _ := rr.Long()
		e.QoS.Ownership.Kind = qos.OwnershipKind(v)
	}
	if p, ok := cdr.Find(params, pidOwnershipStrength); ok && len(p.Value) >= 4 {
		rr := cdr.NewReader(cdr.LittleEndian, p.Value)
		v, _ := rr.Long()
		e.OwnershipStrength = v
		e.QoS.Ownership.Strength = v
	}
	if p, ok := cdr.Find(params, pidDeadline); ok && len(p.Value) >= 9 {
		rr := cdr.NewReader(cdr.LittleEndian, p.Value)
		v, _ := rr.LongLong()
		inf, _ := rr.Bool()
		e.QoS.Deadline = qos.Duration{Duration: time.Duration(v), Infinite: inf}
	}
	if p, ok := cdr.Find(params, pidLiveliness); ok && len(p.Value) >= 12 {
		rr := cdr.NewReader(cdr.LittleEndian, p.Value)
		kind, _ := rr.Long()
		lease, _ := rr.LongLong()
		inf, _ := rr.Bool()
		e.QoS.Liveliness = qos.Liveliness{
			Kind:          qos.LivelinessKind(kind),
			LeaseDuration: qos.Duration{Duration: time.Duration(lease), Infinite: inf},
		}
	}
	for _, p := range params {
		if p.ID == pidPartition {
			e.QoS.Partition = append(e.QoS.Partition, string(p.Value))
		}
	}
	if p, ok := cdr.Find(params, pidIsWriter); ok && len(p.Value) >= 1 {
		e.IsWriter = p.Value[0] != 0
	}
	return e, nil
}

// SEDPAgent owns the local registry of user endpoints this participant
// publishes to every matched peer, and decodes incoming SEDP records into
// the peer's DiscoveredParticipant entry (RTPS §8.5 "SEDP").
type SEDPAgent struct {
	sender Sender
	peers  *PeerTable
	log    *log.Logger

	mu    sync.Mutex
	local map[guid.EntityId]*EndpointData

	onEndpoint func(peer guid.GuidPrefix, e *EndpointData, removed bool)
}

func NewSEDPAgent(sender Sender, peers *PeerTable, logger *log.Logger) *SEDPAgent {
	if logger == nil {
		logger = log.Discard()
	}
	return &SEDPAgent{sender: sender, peers: peers, log: logger, local: make(map[guid.EntityId]*EndpointData)}
}

// OnEndpoint registers a callback invoked whenever a remote endpoint
// appears or disappears — the matching engine's trigger (RTPS §8.5 step 1:
// "remote endpoint discovered, remote endpoint updated").
func (s *SEDPAgent) OnEndpoint(fn func(guid.GuidPrefix, *EndpointData, bool)) { s.onEndpoint = fn }

// RegisterLocal adds (or replaces) a local user endpoint advertised to
// every matched peer's SEDP reader.
func (s *SEDPAgent) RegisterLocal(e *EndpointData) {
	s.mu.Lock()
	s.local[e.Guid.Entity] = e
	s.mu.Unlock()
}

func (s *SEDPAgent) UnregisterLocal(id guid.EntityId) {
	s.mu.Lock()
	delete(s.local, id)
	s.mu.Unlock()
}

// AnnounceTo sends every currently registered local endpoint to dst, the
// step that follows a newly matched SEDP peer pair (RTPS §8.5: "the local
// SEDP writer publishes all local user endpoints").
func (s *SEDPAgent) AnnounceTo(dst rtps.Locator) error {
	s.mu.Lock()
	snapshot := make([]*EndpointData, 0, len(s.local))
	for _, e := range s.local {
		snapshot = append(snapshot, e)
	}
	s.mu.Unlock()

	var firstErr error
	for _, e := range snapshot {
		if err := s.sender.Send(dst, EncodeEndpointData(*e)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HandleReceived decodes one SEDP record and files it under its owning
// peer, invoking OnEndpoint. A record from an unknown participant (SEDP
// arriving before/without a corresponding SPDP sighting) is dropped — spec
// §4.5's control flow always creates the peer via SPDP first.
func (s *SEDPAgent) HandleReceived(payload []byte) {
	e, err := DecodeEndpointData(payload)
	if err != nil {
		s.log.With("error", err.Error()).Warn("discovery: malformed SEDP payload, dropping")
		return
	}
	peer, ok := s.peers.Get(e.Guid.Prefix)
	if !ok {
		s.log.With("peer", e.Guid.Prefix.String()).Debug("discovery: SEDP record for unknown peer, dropping")
		return
	}
	peer.upsertEndpoint(&e)
	if s.onEndpoint != nil {
		s.onEndpoint(e.Guid.Prefix, &e, false)
	}
}

// HandleRemoved processes an explicit endpoint withdrawal (a GAP/dispose on
// the SEDP stream, or a participant-lost sweep tearing down its endpoints).
func (s *SEDPAgent) HandleRemoved(peerPrefix guid.GuidPrefix, id guid.EntityId) {
	peer, ok := s.peers.Get(peerPrefix)
	if !ok {
		return
	}
	e, removed := peer.removeEndpoint(id)
	if removed && s.onEndpoint != nil {
		s.onEndpoint(peerPrefix, e, true)
	}
}
