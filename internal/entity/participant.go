package entity

import (
	"sync"

	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

// DomainParticipant owns a domain id's local Topics, Publishers and
// Subscribers (DDS §2.2's entity tree root).
type DomainParticipant struct {
	Base
	DomainID uint32

	mu          sync.Mutex
	topics      map[string]*Topic
	publishers  *Arena[*Publisher]
	subscribers *Arena[*Subscriber]

	QoSTable *qos.Table
}

// NewParticipant validates policies before constructing the participant:
// field-level violations and internal inconsistency both reject, and a
// lease_duration of exactly zero is rejected as BAD_PARAMETER (the
// boundary case — zero means "never renews", distinct from the DURATION
// infinite sentinel used for "no liveliness lease").
func NewParticipant(domainID uint32, prefix guid.GuidPrefix, table *qos.Table, policies qos.Policies) (*DomainParticipant, error) {
	if err := policies.Validate(); err != nil {
		return nil, ErrInvalidQoS(err)
	}
	if !policies.Consistent() {
		return nil, ErrInconsistentQoS()
	}
	lease := policies.Liveliness.LeaseDuration
	if !lease.Infinite && lease.Duration == 0 {
		return nil, ErrInvalidLeaseDuration()
	}

	p := &DomainParticipant{
		DomainID:    domainID,
		topics:      make(map[string]*Topic),
		publishers:  NewArena[*Publisher](),
		subscribers: NewArena[*Subscriber](),
		QoSTable:    table,
	}
	p.Guid = guid.New(prefix, guid.EntityIdParticipant)
	p.Flags = FlagLocal
	p.QoS = table.Intern(policies)
	return p, nil
}

// RegisterTopic installs a fully-built Topic (DDS §2.2's reference-counting
// contract: "one ref per local readers/writers plus one ref per remote
// discovery").
func (p *DomainParticipant) RegisterTopic(t *Topic) *Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.topics[t.Name]; ok {
		existing.Retain()
		return existing
	}
	t.Retain()
	p.topics[t.Name] = t
	return t
}

// DeleteTopic releases one reference; the caller's RETAIN/RELEASE-matching
// discipline decides when the topic's refcount reaches zero and it's
// actually removed.
func (p *DomainParticipant) DeleteTopic(t *Topic) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.Release() {
		delete(p.topics, t.Name)
	}
}

func (p *DomainParticipant) LookupTopic(name string) (*Topic, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.topics[name]
	return t, ok
}

func (p *DomainParticipant) CreatePublisher(policies qos.Policies) (*Publisher, error) {
	if err := policies.Validate(); err != nil {
		return nil, ErrInvalidQoS(err)
	}
	if !policies.Consistent() {
		return nil, ErrInconsistentQoS()
	}

	pub := &Publisher{participant: p, writers: NewArena[*DataWriter]()}
	pub.QoS = p.QoSTable.Intern(policies)
	pub.Flags = FlagLocal
	p.mu.Lock()
	pub.Handle = p.publishers.Alloc(pub)
	p.mu.Unlock()
	return pub, nil
}

func (p *DomainParticipant) CreateSubscriber(policies qos.Policies) (*Subscriber, error) {
	if err := policies.Validate(); err != nil {
		return nil, ErrInvalidQoS(err)
	}
	if !policies.Consistent() {
		return nil, ErrInconsistentQoS()
	}

	sub := &Subscriber{participant: p, readers: NewArena[*DataReader]()}
	sub.QoS = p.QoSTable.Intern(policies)
	sub.Flags = FlagLocal
	p.mu.Lock()
	sub.Handle = p.subscribers.Alloc(sub)
	p.mu.Unlock()
	return sub, nil
}

// DeletePublisher removes pub's arena slot; the caller is responsible for
// deleting pub's writers first (DDS §2.2's hierarchical deletion).
func (p *DomainParticipant) DeletePublisher(pub *Publisher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publishers.Free(pub.Handle)
}

func (p *DomainParticipant) DeleteSubscriber(sub *Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers.Free(sub.Handle)
}
