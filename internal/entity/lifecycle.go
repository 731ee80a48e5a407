package entity

import (
	"time"

	"github.com/tdds/tdds-core/internal/dispatch"
)

// DeleteContainedEntities implements DDS §2.2/§5's hierarchical-deletion
// rule: every DataWriter/DataReader owned (transitively, via its
// Publishers/Subscribers) by p is torn down after purgeDelay elapses, not
// immediately, to let outstanding operations on them drain ("deleting a
// participant deletes all contained entities after a configurable grace
// period (default 50 ms)"). The grace period is realized as a
// dispatch.Timer so the calling goroutine never blocks; the returned
// channel is closed once teardown completes.
func (p *DomainParticipant) DeleteContainedEntities(purgeDelay time.Duration) <-chan struct{} {
	done := make(chan struct{})
	timer := dispatch.NewTimer("purge-delay:" + p.Guid.String())
	_ = timer.Start(purgeDelay, nil, func(interface{}) {
		p.teardownContainedEntities()
		close(done)
	})
	return done
}

// teardownContainedEntities frees every Publisher's DataWriters then the
// Publisher itself, and every Subscriber's DataReaders then the Subscriber
// itself — children before parents, per DDS §2.2's hierarchical contract.
func (p *DomainParticipant) teardownContainedEntities() {
	p.mu.Lock()
	pubs := p.publishers
	subs := p.subscribers
	p.mu.Unlock()

	pubs.Range(func(_ Handle, pub *Publisher) bool {
		pub.writers.Range(func(_ Handle, dw *DataWriter) bool {
			pub.DeleteDataWriter(dw)
			return true
		})
		return true
	})
	subs.Range(func(_ Handle, sub *Subscriber) bool {
		sub.readers.Range(func(_ Handle, dr *DataReader) bool {
			sub.DeleteDataReader(dr)
			return true
		})
		return true
	})

	p.mu.Lock()
	pubs.Range(func(h Handle, _ *Publisher) bool { pubs.Free(h); return true })
	subs.Range(func(h Handle, _ *Subscriber) bool { subs.Free(h); return true })
	p.mu.Unlock()
}
