package entity

import (
	"github.com/tdds/tdds-core/pkg/cdr"
)

// Topic is the named, typed, QoS-carrying channel writers and readers
// attach to (DDS §2.2's Topic record). It is reference-counted: one ref per
// local writer/reader plus one per remote discovery record referencing it.
type Topic struct {
	Base
	Name     string
	TypeName string
	Type     cdr.Type

	refs int
}

// NewTopic validates name length (DDS §2.2: "Name (≤256 chars)") before
// constructing the Topic record.
func NewTopic(name, typeName string, t cdr.Type) (*Topic, error) {
	if len(name) > 256 {
		return nil, ErrNameTooLong()
	}
	return &Topic{Name: name, TypeName: typeName, Type: t}, nil
}

func (t *Topic) Retain() { t.refs++ }

// Release decrements the topic's reference count, reporting whether it
// reached zero (the point at which the owning participant may delete it).
func (t *Topic) Release() bool {
	if t.refs > 0 {
		t.refs--
	}
	return t.refs == 0
}

func (t *Topic) RefCount() int { return t.refs }
