package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/tdds/tdds-core/internal/log"
	"github.com/tdds/tdds-core/internal/rtps"
	"github.com/tdds/tdds-core/pkg/cdr"
	"github.com/tdds/tdds-core/pkg/guid"
)

// Sender is the transport-independent boundary SPDP/SEDP announce over —
// satisfied by internal/rtps/transport.UDP.Send. Decoupling from the
// concrete transport keeps discovery's announce/receive logic unit
// testable without a real socket.
type Sender interface {
	Send(dst rtps.Locator, payload []byte) error
}

// Parameter ids for the PL_CDR-encoded ParticipantBuiltinTopicData SPDP
// carries (RTPS §8.5). Numbering follows RTPS 2.x §9.6.2's well-known PIDs
// for the fields this core actually uses.
const (
	pidGuidPrefix          cdr.ParamID = 0x0050
	pidProtocolVersion     cdr.ParamID = 0x0015
	pidVendorId            cdr.ParamID = 0x0016
	pidDefaultUnicast      cdr.ParamID = 0x0031
	pidDefaultMulticast    cdr.ParamID = 0x0048
	pidMetaUnicast         cdr.ParamID = 0x0032
	pidMetaMulticast       cdr.ParamID = 0x0033
	pidBuiltinEndpointSet  cdr.ParamID = 0x0058
	pidLeaseDuration       cdr.ParamID = 0x0002
)

// EncodeParticipantData serializes a ParticipantData as a PL_CDR parameter
// list, the wire form one SPDP DATA submessage's payload carries.
func EncodeParticipantData(d ParticipantData) []byte {
	w := cdr.NewWriter(cdr.LittleEndian)
	var params []cdr.Param

	params = append(params, cdr.Param{ID: pidGuidPrefix, Value: append([]byte(nil), d.Prefix[:]...)})

	pv := cdr.NewWriter(cdr.LittleEndian)
	pv.Octet(d.ProtocolVersion.Major)
	pv.Octet(d.ProtocolVersion.Minor)
	params = append(params, cdr.Param{ID: pidProtocolVersion, Value: pv.Bytes()})

	params = append(params, cdr.Param{ID: pidVendorId, Value: append([]byte(nil), d.VendorId[:]...)})

	params = append(params, encodeLocators(pidDefaultUnicast, d.DefaultUnicastLocators)...)
	params = append(params, encodeLocators(pidDefaultMulticast, d.DefaultMulticastLocators)...)
	params = append(params, encodeLocators(pidMetaUnicast, d.MetatrafficUnicastLocators)...)
	params = append(params, encodeLocators(pidMetaMulticast, d.MetatrafficMulticastLocators)...)

	bw := cdr.NewWriter(cdr.LittleEndian)
	bw.ULong(uint32(d.AvailableBuiltinEndpoints))
	params = append(params, cdr.Param{ID: pidBuiltinEndpointSet, Value: bw.Bytes()})

	lw := cdr.NewWriter(cdr.LittleEndian)
	lw.LongLong(int64(d.LeaseDuration))
	params = append(params, cdr.Param{ID: pidLeaseDuration, Value: lw.Bytes()})

	w.WriteParamList(params)
	return w.Bytes()
}

func encodeLocators(id cdr.ParamID, locs []rtps.Locator) []cdr.Param {
	out := make([]cdr.Param, 0, len(locs))
	for _, l := range locs {
		lw := cdr.NewWriter(cdr.LittleEndian)
		lw.Long(int32(l.Kind))
		lw.ULong(l.Port)
		lw.Bytes_(l.Addr[:])
		out = append(out, cdr.Param{ID: id, Value: lw.Bytes()})
	}
	return out
}

// DecodeParticipantData parses a PL_CDR parameter list encoded by
// EncodeParticipantData back into a ParticipantData.
func DecodeParticipantData(payload []byte) (ParticipantData, error) {
	var d ParticipantData
	r := cdr.NewReader(cdr.LittleEndian, payload)
	params, err := r.ReadParamList()
	if err != nil {
		return d, err
	}
	if p, ok := cdr.Find(params, pidGuidPrefix); ok {
		copy(d.Prefix[:], p.Value)
	}
	if p, ok := cdr.Find(params, pidProtocolVersion); ok && len(p.Value) >= 2 {
		d.ProtocolVersion = guid.ProtocolVersion{Major: p.Value[0], Minor: p.Value[1]}
	}
	if p, ok := cdr.Find(params, pidVendorId); ok && len(p.Value) >= 2 {
		d.VendorId = guid.VendorId{p.Value[0], p.Value[1]}
	}
	d.DefaultUnicastLocators = decodeLocators(params, pidDefaultUnicast)
	d.DefaultMulticastLocators = decodeLocators(params, pidDefaultMulticast)
	d.MetatrafficUnicastLocators = decodeLocators(params, pidMetaUnicast)
	d.MetatrafficMulticastLocators = decodeLocators(params, pidMetaMulticast)
	if p, ok := cdr.Find(params, pidBuiltinEndpointSet); ok && len(p.Value) >= 4 {
		lr := cdr.NewReader(cdr.LittleEndian, p.Value)
		v, _ := lr.ULong()
		d.AvailableBuiltinEndpoints = BuiltinEndpointSet(v)
	}
	if p, ok := cdr.Find(params, pidLeaseDuration); ok && len(p.Value) >= 8 {
		lr := cdr.NewReader(cdr.LittleEndian, p.Value)
		v, _ := lr.LongLong()
		d.LeaseDuration = time.Duration(v)
	}
	return d, nil
}

func decodeLocators(params []cdr.Param, id cdr.ParamID) []rtps.Locator {
	var out []rtps.Locator
	for _, p := range params {
		if p.ID != id || len(p.Value) < 24 {
			continue
		}
		lr := cdr.NewReader(cdr.LittleEndian, p.Value)
		kind, _ := lr.Long()
		port, _ := lr.ULong()
		addr, _ := lr.Bytes_(16)
		var l rtps.Locator
		l.Kind = rtps.LocatorKind(kind)
		l.Port = port
		copy(l.Addr[:], addr)
		out = append(out, l)
	}
	return out
}

// SPDPAgent drives the participant-discovery built-in writer+reader: it
// periodically announces this participant's ParticipantData to the
// well-known SPDP multicast locator and decodes incoming announcements
// into the shared PeerTable (RTPS §8.5 "SPDP").
type SPDPAgent struct {
	local        ParticipantData
	sender       Sender
	destinations []rtps.Locator
	resendPeriod time.Duration
	peers        *PeerTable
	log          *log.Logger

	onNew  func(guid.GuidPrefix, ParticipantData)
	onLost func(guid.GuidPrefix)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewSPDPAgent builds an agent that announces local on the given resend
// period to destinations (the SPDP multicast group, plus any configured
// unicast peers) via sender, tracking discovered peers in peers.
func NewSPDPAgent(local ParticipantData, sender Sender, destinations []rtps.Locator, resendPeriod time.Duration, peers *PeerTable, logger *log.Logger) *SPDPAgent {
	if logger == nil {
		logger = log.Discard()
	}
	return &SPDPAgent{
		local:        local,
		sender:       sender,
		destinations: destinations,
		resendPeriod: resendPeriod,
		peers:        peers,
		log:          logger,
	}
}

// OnNewPeer registers a callback invoked whenever HandleReceived sees a
// participant prefix for the first time.
func (a *SPDPAgent) OnNewPeer(fn func(guid.GuidPrefix, ParticipantData)) { a.onNew = fn }

// OnLostPeer registers a callback invoked when Sweep (driven by Start's
// internal ticker) finds an expired peer.
func (a *SPDPAgent) OnLostPeer(fn func(guid.GuidPrefix)) { a.onLost = fn }

// Announce sends one SPDP DATA payload to every destination locator,
// matching RTPS §8.5's "SPDP writes a participant announcement to a
// well-known multicast locator every lease/3."
func (a *SPDPAgent) Announce() error {
	payload := EncodeParticipantData(a.local)
	var firstErr error
	for _, dst := range a.destinations {
		if err := a.sender.Send(dst, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HandleReceived decodes an incoming SPDP payload and upserts the sending
// participant into the PeerTable, invoking OnNewPeer for a first sighting.
// A decode error is a DDS §2.2.1 "recovered locally" wire-parse error: it is
// logged and otherwise ignored, never propagated to the caller's read loop.
func (a *SPDPAgent) HandleReceived(payload []byte, now time.Time) {
	data, err := DecodeParticipantData(payload)
	if err != nil {
		a.log.With("error", err.Error()).Warn("discovery: malformed SPDP payload, dropping")
		return
	}
	if data.Prefix.IsZero() || data.Prefix == a.local.Prefix {
		return // ignore our own loopback reflection.
	}
	_, isNew := a.peers.Upsert(data, now)
	if isNew && a.onNew != nil {
		a.onNew(data.Prefix, data)
	}
}

// Start runs the announce ticker (every resendPeriod) and a lease-sweep
// ticker (every resendPeriod/2, so expiry is detected promptly without a
// dedicated third timer) until ctx is cancelled.
func (a *SPDPAgent) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.running = true
	a.cancel = cancel
	a.mu.Unlock()

	announceTicker := time.NewTicker(a.resendPeriod)
	sweepTicker := time.NewTicker(a.resendPeriod / 2)
	defer announceTicker.Stop()
	defer sweepTicker.Stop()

	_ = a.Announce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-announceTicker.C:
			if err := a.Announce(); err != nil {
				a.log.With("error", err.Error()).Warn("discovery: SPDP announce failed")
			}
		case now := <-sweepTicker.C:
			for _, lost := range a.peers.Sweep(now) {
				if a.onLost != nil {
					a.onLost(lost)
				}
			}
		}
	}
}

func (a *SPDPAgent) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running && a.cancel != nil {
		a.cancel()
		a.running = false
	}
}
