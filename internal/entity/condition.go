package entity

import (
	"sync"

	"github.com/tdds/tdds-core/internal/cache"
)

// Condition is one triggerable gate a WaitSet can block on (DDS §2.2).
type Condition interface {
	// Triggered reports the condition's current trigger value.
	Triggered() bool
}

// StatusMask is a bitset of the communication-status kinds an entity can
// report (DATA_AVAILABLE, PUBLICATION_MATCHED, LIVELINESS_CHANGED, ...).
type StatusMask uint32

const (
	StatusDataAvailable StatusMask = 1 << iota
	StatusPublicationMatched
	StatusSubscriptionMatched
	StatusOfferedIncompatibleQoS
	StatusRequestedIncompatibleQoS
	StatusLivelinessChanged
	StatusSampleRejected
	StatusSampleLost
	StatusRequestedDeadlineMissed
	StatusOfferedDeadlineMissed
)

// StatusCondition triggers when any bit of Pending intersects Mask — the
// entity sets Pending as statuses occur and clears it when the application
// reads/acknowledges them.
type StatusCondition struct {
	mu      sync.Mutex
	Mask    StatusMask
	Pending StatusMask
}

func (c *StatusCondition) Triggered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Pending&c.Mask != 0
}

func (c *StatusCondition) Post(s StatusMask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Pending |= s
}

func (c *StatusCondition) SetEnabledStatuses(mask StatusMask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Mask = mask
}

// ReadCondition triggers when the reader's cache holds at least one Change
// matching its (sample, view, instance) state mask — an optional query
// expression further narrows it (QueryCondition, DDS §2.2).
type ReadCondition struct {
	Reader *DataReader
	Filter cache.ReadFilter
	Query  func(*cache.Change) bool // nil for a plain ReadCondition.
}

func (c *ReadCondition) Triggered() bool {
	matches := c.Reader.cache.Read(c.Filter, false)
	if c.Query == nil {
		return len(matches) > 0
	}
	for _, m := range matches {
		if c.Query(m) {
			return true
		}
	}
	return false
}

// GuardCondition is a user-triggered bit with no other semantics (DDS §2.2).
type GuardCondition struct {
	mu sync.Mutex
	trigger bool
}

func (c *GuardCondition) Triggered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trigger
}

func (c *GuardCondition) Set(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trigger = v
}
