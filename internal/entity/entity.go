package entity

import (
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

// Flags distinguishes the local/remote, built-in/user, enabled/disabled,
// ignored/not axes DDS §2.2 requires on every Entity.
type Flags uint32

const (
	FlagLocal    Flags = 1 << iota // clear means this Entity mirrors a remote peer.
	FlagBuiltin                    // discovery/liveliness endpoint rather than user topic.
	FlagEnabled                    // DDS §2.2's "created disabled, must be enabled before discovery advertises them."
	FlagIgnored                    // application called ignore_participant/ignore_publication/etc.
)

// Base is the common header every concrete entity type embeds: identity,
// handle, lifecycle flags and interned QoS (DDS §2.2).
type Base struct {
	Guid   guid.Guid
	Handle Handle
	Flags  Flags
	QoS    *qos.Ref
}

func (b *Base) Enabled() bool { return b.Flags&FlagEnabled != 0 }

func (b *Base) Enable() { b.Flags |= FlagEnabled }

func (b *Base) Ignored() bool { return b.Flags&FlagIgnored != 0 }

func (b *Base) Ignore() { b.Flags |= FlagIgnored }

func (b *Base) IsLocal() bool { return b.Flags&FlagLocal != 0 }

func (b *Base) IsBuiltin() bool { return b.Flags&FlagBuiltin != 0 }
