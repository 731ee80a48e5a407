// Package qos implements the DDS QoS policy record, its interning table and
// the writer/reader compatibility algebra (DDS §2.2, §4.4).
package qos

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type DurabilityKind int

const (
	Volatile DurabilityKind = iota
	TransientLocal
	Transient
	Persistent
)

// rank gives the total order VOLATILE < TRANSIENT_LOCAL < TRANSIENT < PERSISTENT
// used by the durability compatibility check.
func (d DurabilityKind) rank() int { return int(d) }

type ReliabilityKind int

const (
	BestEffort ReliabilityKind = iota
	Reliable
)

type HistoryKind int

const (
	KeepLast HistoryKind = iota
	KeepAll
)

type OwnershipKind int

const (
	Shared OwnershipKind = iota
	Exclusive
)

type LivelinessKind int

const (
	Automatic LivelinessKind = iota
	ManualByParticipant
	ManualByTopic
)

func (l LivelinessKind) rank() int { return int(l) }

type DestinationOrderKind int

const (
	ByReceptionTimestamp DestinationOrderKind = iota
	BySourceTimestamp
)

type PresentationScope int

const (
	InstanceScope PresentationScope = iota
	TopicScope
	GroupScope
)

func (p PresentationScope) rank() int { return int(p) }

// Duration holds a QoS duration policy value; DurationInfinite models the
// DDS "infinite" sentinel.
type Duration struct {
	time.Duration
	Infinite bool
}

var DurationInfinite = Duration{Infinite: true}

func Finite(d time.Duration) Duration { return Duration{Duration: d} }

// LE reports whether d <= o under DDS duration-compare semantics (infinite
// is greater than every finite value).
func (d Duration) LE(o Duration) bool {
	if d.Infinite {
		return o.Infinite
	}
	if o.Infinite {
		return true
	}
	return d.Duration <= o.Duration
}

type History struct {
	Kind  HistoryKind
	Depth int32 `validate:"gte=0"`
}

type ResourceLimits struct {
	MaxSamples            int32 `validate:"gte=-1"`
	MaxInstances          int32 `validate:"gte=-1"`
	MaxSamplesPerInstance int32 `validate:"gte=-1"`
}

// Unlimited is the DDS LENGTH_UNLIMITED sentinel.
const Unlimited int32 = -1

type Reliability struct {
	Kind            ReliabilityKind
	MaxBlockingTime Duration
}

type Ownership struct {
	Kind     OwnershipKind
	Strength int32
}

type Liveliness struct {
	Kind          LivelinessKind
	LeaseDuration Duration
}

type Presentation struct {
	AccessScope   PresentationScope
	Coherent      bool
	OrderedAccess bool
}

// Policies is the full interned QoS record described in DDS §2.2.
type Policies struct {
	Durability        DurabilityKind
	Reliability       Reliability
	History           History
	ResourceLimits    ResourceLimits
	Ownership         Ownership
	Deadline          Duration
	LatencyBudget     Duration
	Liveliness        Liveliness
	Lifespan          Duration
	DestinationOrder  DestinationOrderKind
	Presentation      Presentation
	Partition         []string `validate:"dive,max=256"`
	TimeBasedFilter   Duration
	UserData          []byte `validate:"max=4096"`
	TopicData         []byte `validate:"max=4096"`
	GroupData         []byte `validate:"max=4096"`
}

// Default returns the DDS-mandated default QoS: VOLATILE, BEST_EFFORT,
// KEEP_LAST(1), SHARED ownership, AUTOMATIC liveliness with infinite lease.
func Default() Policies {
	return Policies{
		Durability:  Volatile,
		Reliability: Reliability{Kind: BestEffort, MaxBlockingTime: Finite(100 * time.Millisecond)},
		History:     History{Kind: KeepLast, Depth: 1},
		ResourceLimits: ResourceLimits{
			MaxSamples: Unlimited, MaxInstances: Unlimited, MaxSamplesPerInstance: Unlimited,
		},
		Ownership:        Ownership{Kind: Shared},
		Deadline:         DurationInfinite,
		LatencyBudget:    Finite(0),
		Liveliness:       Liveliness{Kind: Automatic, LeaseDuration: DurationInfinite},
		Lifespan:         DurationInfinite,
		DestinationOrder: ByReceptionTimestamp,
		Presentation:     Presentation{AccessScope: InstanceScope},
		TimeBasedFilter:  Finite(0),
	}
}

var structValidator = validator.New()

// Validate reports BAD_PARAMETER-class field violations (bounded strings,
// non-negative resource limits) ahead of the INCONSISTENT_POLICY checks a
// caller performs when mutating an enabled entity's QoS.
func (p Policies) Validate() error {
	if err := structValidator.Struct(p.History); err != nil {
		return err
	}
	if err := structValidator.Struct(p.ResourceLimits); err != nil {
		return err
	}
	return structValidator.Struct(p)
}

// Consistent reports whether this record is internally self-consistent
// (INCONSISTENT_POLICY class, DDS §2.2.1): resource limits must not contradict
// history depth, and a KEEP_LAST depth must be positive.
func (p Policies) Consistent() bool {
	if p.History.Kind == KeepLast && p.History.Depth < 1 {
		return false
	}
	rl := p.ResourceLimits
	if rl.MaxSamplesPerInstance != Unlimited && p.History.Kind == KeepLast &&
		p.History.Depth > rl.MaxSamplesPerInstance {
		return false
	}
	if rl.MaxSamples != Unlimited && rl.MaxSamplesPerInstance != Unlimited &&
		rl.MaxSamples < rl.MaxSamplesPerInstance {
		return false
	}
	return true
}
