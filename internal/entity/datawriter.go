package entity

import (
	"context"
	"sync"
	"time"

	"github.com/tdds/tdds-core/internal/cache"
	"github.com/tdds/tdds-core/internal/rtps"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

// DataWriter is a local publication endpoint bound to exactly one Topic
// (DDS §2.2). Samples flow: Write -> HistoryCache.AddChange -> (if
// reliable) ReliableWriter bookkeeping for retransmission.
type DataWriter struct {
	Base
	Topic      *Topic
	publisher  *Publisher
	StatusCond *StatusCondition

	cache      *cache.HistoryCache
	rtpsWriter *rtps.ReliableWriter

	mu      sync.Mutex
	matched map[guid.Guid]qos.Policies // remote reader Guid -> its requested QoS, for OFFERED_INCOMPATIBLE_QOS bookkeeping.
}

// Write adds one change for instance key to the writer's history cache,
// returning the stored Change. kind distinguishes an ordinary write from
// dispose/unregister (RTPS §8.2's writer cache contract). The payload bytes
// are not stored: the returned Change has a nil Payload.
func (dw *DataWriter) Write(ctx context.Context, key cache.InstanceKey, kind cache.Kind, payload []byte, sourceTime time.Time) (*cache.Change, error) {
	c, err := dw.cache.AddChange(ctx, key, kind, nil, sourceTime)
	if err != nil {
		return nil, err
	}
	c.Payload = nil // the caller's buffer pool owns the wire bytes; Change carries a reference via rtpsWriter's send path, not here.
	if dw.rtpsWriter != nil {
		dw.rtpsWriter.OnChangeAdded(c.SeqNum)
	}
	return c, nil
}

// MatchReader records a newly matched remote reader (RTPS §8.5's matching
// engine outcome) and, for a reliable writer, registers its proxy.
func (dw *DataWriter) MatchReader(reader guid.Guid, requested qos.Policies) {
	dw.mu.Lock()
	if dw.matched == nil {
		dw.matched = make(map[guid.Guid]qos.Policies)
	}
	dw.matched[reader] = requested
	dw.mu.Unlock()

	if dw.rtpsWriter != nil {
		dw.rtpsWriter.MatchReader(reader)
	}
	dw.StatusCond.Post(StatusPublicationMatched)
}

// UnmatchReader purges a reader that was deleted or declared lost.
func (dw *DataWriter) UnmatchReader(reader guid.Guid) {
	dw.mu.Lock()
	delete(dw.matched, reader)
	dw.mu.Unlock()
	if dw.rtpsWriter != nil {
		dw.rtpsWriter.UnmatchReader(reader)
	}
	dw.StatusCond.Post(StatusPublicationMatched)
}

// Compatible reports DDS §2.2's QoS-compatibility verdict for a candidate
// remote reader's requested QoS against this writer's offered QoS.
func (dw *DataWriter) Compatible(requested qos.Policies) qos.Incompatibility {
	return qos.Compatible(dw.QoS.Policies(), requested)
}

// DurabilityReplay returns the currently alive changes a newly matched
// TRANSIENT_LOCAL reliable reader must receive before any new publication
// (RTPS §8.2/§4.5).
func (dw *DataWriter) DurabilityReplay() []*cache.Change {
	return dw.cache.DurabilityReplay()
}
