package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/tdds/tdds-core/internal/log"
	"github.com/tdds/tdds-core/internal/rtps"
	"github.com/tdds/tdds-core/pkg/guid"
)

// Config gathers the RTPS §8.5 timing knobs an Engine needs: the SPDP
// resend period (RTPS_RESEND_TIME, default 30s, "typically lease/3") and
// this participant's own announced lease.
type Config struct {
	ResendPeriod  time.Duration
	LeaseDuration time.Duration
}

// DefaultConfig returns the standard SPDP/SEDP timing defaults.
func DefaultConfig() Config {
	return Config{ResendPeriod: 30 * time.Second, LeaseDuration: 90 * time.Second}
}

// Engine is the top-level discovery subsystem: SPDP participant
// announce/receive, SEDP endpoint exchange, the matching engine and
// liveliness tracking, wired together the way
// the classic discovery daemon control flow drives them from
// one dispatcher loop.
type Engine struct {
	cfg   Config
	log   *log.Logger
	Peers *PeerTable
	SPDP  *SPDPAgent
	SEDP  *SEDPAgent
	Match *MatchingEngine
	Live  *LivelinessTracker

	mu                sync.Mutex
	onParticipantLost []func(guid.GuidPrefix)
}

// NewEngine wires an Engine for local (this participant's own SPDP data),
// announcing over sender to destinations (the well-known SPDP multicast
// locator, plus any configured unicast peers), reporting every matching
// decision to matcher.
func NewEngine(cfg Config, local ParticipantData, sender Sender, destinations []rtps.Locator, matcher Matcher, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Discard()
	}
	peers := NewPeerTable()
	e := &Engine{
		cfg:   cfg,
		log:   logger,
		Peers: peers,
		SEDP:  NewSEDPAgent(sender, peers, logger),
		Match: NewMatchingEngine(matcher, logger),
		Live:  NewLivelinessTracker(),
	}
	local.LeaseDuration = cfg.LeaseDuration
	e.SPDP = NewSPDPAgent(local, sender, destinations, cfg.ResendPeriod, peers, logger)

	e.SPDP.OnNewPeer(func(prefix guid.GuidPrefix, data ParticipantData) {
		e.log.With("peer", prefix.String()).Info("discovery: new participant")
		for _, loc := range data.MetatrafficUnicastLocators {
			if err := e.SEDP.AnnounceTo(loc); err != nil {
				e.log.With("error", err.Error()).Warn("discovery: SEDP announce to new peer failed")
			}
			break // one reachable metatraffic unicast locator is enough.
		}
	})
	e.SPDP.OnLostPeer(func(prefix guid.GuidPrefix) {
		e.log.With("peer", prefix.String()).Info("discovery: participant lost (lease expired)")
		e.mu.Lock()
		callbacks := append([]func(guid.GuidPrefix){}, e.onParticipantLost...)
		e.mu.Unlock()
		for _, fn := range callbacks {
			fn(prefix)
		}
	})
	e.SEDP.OnEndpoint(e.Match.OnRemoteEndpoint)

	return e
}

// OnParticipantLost registers a callback invoked when SPDP lease expiry
// removes a peer, the hook lease-expiry tests exercise ("A must remove B
// within lease_duration+1s and emit a PUBLICATION_MATCHED status
// decrement on every affected reader").
func (e *Engine) OnParticipantLost(fn func(guid.GuidPrefix)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onParticipantLost = append(e.onParticipantLost, fn)
}

// Start runs the SPDP announce/sweep loop until ctx is cancelled. SEDP and
// the matching engine are purely reactive (driven by HandleReceived calls
// from the core thread's receive path) and need no loop of their own.
func (e *Engine) Start(ctx context.Context) {
	e.SPDP.Start(ctx)
}

func (e *Engine) Stop() {
	e.SPDP.Stop()
}

// HandleSPDP feeds one received SPDP datagram payload into the engine.
func (e *Engine) HandleSPDP(payload []byte) {
	e.SPDP.HandleReceived(payload, time.Now())
}

// HandleSEDP feeds one received SEDP datagram payload into the engine.
func (e *Engine) HandleSEDP(payload []byte) {
	e.SEDP.HandleReceived(payload)
}

// RegisterLocalEndpoint adds a local writer/reader to both SEDP (so it's
// advertised to peers) and the matching engine (so it's matched against
// already-known remotes).
func (e *Engine) RegisterLocalEndpoint(local LocalEndpoint) {
	e.SEDP.RegisterLocal(&EndpointData{
		Guid:              local.Guid,
		TopicName:         local.TopicName,
		TypeName:          local.TypeName,
		QoS:               local.QoS,
		IsWriter:          local.IsWriter,
		OwnershipStrength: local.OwnershipStrength,
	})
	e.Match.RegisterLocal(local)
}

func (e *Engine) UnregisterLocalEndpoint(id guid.EntityId) {
	e.SEDP.UnregisterLocal(id)
	e.Match.UnregisterLocal(id)
}

// IgnoreParticipant sets the Ignored flag on a discovered participant's
// PeerTable entry without removing the entry. The matching engine does not
// consult this flag: endpoints of the participant that are already matched
// stay matched, and its later SEDP records are still matched.
func (e *Engine) IgnoreParticipant(prefix guid.GuidPrefix) {
	e.Peers.Ignore(prefix)
}
