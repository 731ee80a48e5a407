// Package discovery implements SPDP (participant discovery) and SEDP
// (endpoint discovery), the matching engine that pairs local readers/
// writers with compatible remote endpoints, and liveliness tracking
// (RTPS §8.5). The control flow is event-driven — participant announce,
// peer ttl sweep, endpoint exchange, matching-on-event — organized in the
// config-driven engine shape golib's cluster package uses (one engine
// object with async dispatch and a scoped logger).
package discovery

import (
	"time"

	"github.com/tdds/tdds-core/internal/rtps"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

// BuiltinEndpointSet is the bitmask of built-in discovery/liveliness
// endpoints a participant makes available, carried in its SPDP
// announcement (RTPS 2.x §8.5.3.3).
type BuiltinEndpointSet uint32

const (
	HasSPDPWriter BuiltinEndpointSet = 1 << iota
	HasSPDPReader
	HasSEDPPubWriter
	HasSEDPPubReader
	HasSEDPSubWriter
	HasSEDPSubReader
	HasSEDPTopicWriter
	HasSEDPTopicReader
	HasParticipantMessageWriter
	HasParticipantMessageReader
)

// DefaultBuiltinEndpoints is the set every participant in this core
// advertises: full SPDP+SEDP (pub/sub/topic) plus the liveliness writer.
const DefaultBuiltinEndpoints = HasSPDPWriter | HasSPDPReader |
	HasSEDPPubWriter | HasSEDPPubReader | HasSEDPSubWriter | HasSEDPSubReader |
	HasSEDPTopicWriter | HasSEDPTopicReader |
	HasParticipantMessageWriter | HasParticipantMessageReader

// ParticipantData is the ParticipantBuiltinTopicData RTPS §8.5 names: the
// content of one SPDP announcement.
type ParticipantData struct {
	Prefix                       guid.GuidPrefix
	ProtocolVersion              guid.ProtocolVersion
	VendorId                     guid.VendorId
	DefaultUnicastLocators       []rtps.Locator
	DefaultMulticastLocators     []rtps.Locator
	MetatrafficUnicastLocators   []rtps.Locator
	MetatrafficMulticastLocators []rtps.Locator
	AvailableBuiltinEndpoints    BuiltinEndpointSet
	LeaseDuration                time.Duration
}

// EndpointData is the SEDP DiscoveredWriterData/DiscoveredReaderData
// record RTPS §8.5 describes ("the remote's publications are delivered to
// the local SEDP reader... full effective QoS").
type EndpointData struct {
	Guid      guid.Guid
	TopicName string
	TypeName  string
	QoS       qos.Policies
	IsWriter  bool
	// OwnershipStrength is carried alongside the QoS for EXCLUSIVE-ownership
	// arbitration (RTPS §8.4); zero for readers.
	OwnershipStrength int32
}
