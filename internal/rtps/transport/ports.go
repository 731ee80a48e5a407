package transport

// PortMapping holds the port-derivation constants of RTPS §9.6.1.1: the
// standard formulas map (domain id, participant id) onto the four
// well-known port classes. Every field is overridable through the UDP/TCP
// config groups (PB, DG, PG, D0..D3).
type PortMapping struct {
	PB int // port base.
	DG int // domain id gain.
	PG int // participant id gain.
	D0 int // metatraffic multicast offset.
	D1 int // metatraffic unicast offset.
	D2 int // default (user) multicast offset.
	D3 int // default (user) unicast offset.
}

// DefaultPortMapping returns the RTPS 2.x standard assignment.
func DefaultPortMapping() PortMapping {
	return PortMapping{PB: 7400, DG: 250, PG: 2, D0: 0, D1: 10, D2: 1, D3: 11}
}

// MetaMulticastPort is the SPDP well-known multicast port for a domain:
// PB + DG*domainId + D0.
func (m PortMapping) MetaMulticastPort(domainID int) int {
	return m.PB + m.DG*domainID + m.D0
}

// MetaUnicastPort is the per-participant metatraffic unicast port:
// PB + DG*domainId + D1 + PG*participantId.
func (m PortMapping) MetaUnicastPort(domainID, participantID int) int {
	return m.PB + m.DG*domainID + m.D1 + m.PG*participantID
}

// UserMulticastPort is the default user-traffic multicast port:
// PB + DG*domainId + D2.
func (m PortMapping) UserMulticastPort(domainID int) int {
	return m.PB + m.DG*domainID + m.D2
}

// UserUnicastPort is the per-participant default unicast port:
// PB + DG*domainId + D3 + PG*participantId.
func (m PortMapping) UserUnicastPort(domainID, participantID int) int {
	return m.PB + m.DG*domainID + m.D3 + m.PG*participantID
}
