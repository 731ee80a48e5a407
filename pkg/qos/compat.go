package qos

// Incompatibility enumerates which policy caused a match to fail, so the
// caller can post the right OFFERED_INCOMPATIBLE_QOS / REQUESTED_INCOMPATIBLE_QOS
// status id (DDS §2.2).
type Incompatibility int

const (
	CompatOK Incompatibility = iota
	IncompatReliability
	IncompatDurability
	IncompatDeadline
	IncompatLatencyBudget
	IncompatLiveliness
	IncompatDestinationOrder
	IncompatPresentation
	IncompatOwnership
	IncompatPartition
)

func (i Incompatibility) String() string {
	switch i {
	case CompatOK:
		return "OK"
	case IncompatReliability:
		return "RELIABILITY"
	case IncompatDurability:
		return "DURABILITY"
	case IncompatDeadline:
		return "DEADLINE"
	case IncompatLatencyBudget:
		return "LATENCY_BUDGET"
	case IncompatLiveliness:
		return "LIVELINESS"
	case IncompatDestinationOrder:
		return "DESTINATION_ORDER"
	case IncompatPresentation:
		return "PRESENTATION"
	case IncompatOwnership:
		return "OWNERSHIP"
	case IncompatPartition:
		return "PARTITION"
	default:
		return "UNKNOWN"
	}
}

// Compatible implements the writer/reader QoS-compatibility algebra of
// DDS §2.2. offered is the writer's QoS, requested is the reader's.
func Compatible(offered, requested Policies) Incompatibility {
	if offered.Reliability.Kind < requested.Reliability.Kind {
		return IncompatReliability
	}
	if offered.Durability.rank() < requested.Durability.rank() {
		return IncompatDurability
	}
	if !requested.Deadline.Infinite {
		if offered.Deadline.Infinite || offered.Deadline.Duration > requested.Deadline.Duration {
			return IncompatDeadline
		}
	}
	if !offered.LatencyBudget.LE(requested.LatencyBudget) {
		return IncompatLatencyBudget
	}
	if offered.Liveliness.Kind.rank() < requested.Liveliness.Kind.rank() {
		return IncompatLiveliness
	}
	if !offered.Liveliness.LeaseDuration.LE(requested.Liveliness.LeaseDuration) {
		return IncompatLiveliness
	}
	if offered.DestinationOrder < requested.DestinationOrder {
		return IncompatDestinationOrder
	}
	if offered.Presentation.AccessScope.rank() < requested.Presentation.AccessScope.rank() {
		return IncompatPresentation
	}
	if !offered.Presentation.Coherent && requested.Presentation.Coherent {
		return IncompatPresentation
	}
	if !offered.Presentation.OrderedAccess && requested.Presentation.OrderedAccess {
		return IncompatPresentation
	}
	if offered.Ownership.Kind != requested.Ownership.Kind {
		return IncompatOwnership
	}
	if !PartitionsMatch(offered.Partition, requested.Partition) {
		return IncompatPartition
	}
	return CompatOK
}

// PartitionsMatch implements DDS §2.2's partition-matching rule: two
// endpoints match if their partition string sets have non-empty
// intersection under simple '*'/'?' glob semantics; the empty set matches
// only the empty set or an explicit "*" entry.
func PartitionsMatch(a, b []string) bool {
	if len(a) == 0 {
		a = []string{""}
	}
	if len(b) == 0 {
		b = []string{""}
	}
	for _, pa := range a {
		for _, pb := range b {
			if pa == pb || globMatch(pa, pb) || globMatch(pb, pa) {
				return true
			}
		}
	}
	return false
}

// globMatch reports whether value matches pattern, where pattern may use
// '*' (any run of characters) and '?' (any single character).
func globMatch(pattern, value string) bool {
	return globMatchRunes([]rune(pattern), []rune(value))
}

func globMatchRunes(p, v []rune) bool {
	if len(p) == 0 {
		return len(v) == 0
	}
	if p[0] == '*' {
		if globMatchRunes(p[1:], v) {
			return true
		}
		if len(v) > 0 && globMatchRunes(p, v[1:]) {
			return true
		}
		return false
	}
	if len(v) == 0 {
		return false
	}
	if p[0] == '?' || p[0] == v[0] {
		return globMatchRunes(p[1:], v[1:])
	}
	return false
}
