package rtps

import (
	"sync"
	"time"

	"github.com/tdds/tdds-core/internal/cache"
	"github.com/tdds/tdds-core/pkg/guid"
)

// WriterProxyState is the per-matched-reader lifecycle of RTPS §8.4's
// reliable writer state machine.
type WriterProxyState int

const (
	StateInitial WriterProxyState = iota
	StateAnnouncing
	StateWaiting
	StateFinal
)

// nackEntry tracks one scheduled or recently-sent resend, enforcing
// nack_resp_time delay and nack_supp_time duplicate suppression.
type nackEntry struct {
	scheduledAt time.Time
	sentAt      time.Time
}

// ReaderProxy is a reliable writer's bookkeeping for one matched reader: the
// set of samples it has acknowledged, and any samples currently scheduled
// for resend under an outstanding NACK.
type ReaderProxy struct {
	Reader     guid.Guid
	State      WriterProxyState
	AckedUpTo  uint64 // every seqnum <= this is acknowledged.
	Unacked    map[uint64]bool
	nackSched  map[uint64]*nackEntry
	lastHBCount int32
	lastANCount int32
	mu         sync.Mutex
}

func newReaderProxy(reader guid.Guid) *ReaderProxy {
	return &ReaderProxy{
		Reader:    reader,
		State:     StateInitial,
		Unacked:   make(map[uint64]bool),
		nackSched: make(map[uint64]*nackEntry),
	}
}

// ReliableWriter drives the writer-side state machine of RTPS §8.4 over one
// endpoint's HistoryCache: scheduling HEARTBEATs, tracking per-reader
// acknowledgement, and resolving ACKNACK into scheduled resends.
type ReliableWriter struct {
	mu        sync.Mutex
	Cache     *cache.HistoryCache
	Writer    guid.Guid
	HBPeriod  time.Duration
	NackRespTime time.Duration
	NackSuppTime time.Duration
	proxies   map[guid.Guid]*ReaderProxy
	hbCount   int32
	Send      func(reader guid.Guid, msg []byte)
}

func NewReliableWriter(c *cache.HistoryCache, w guid.Guid, hbPeriod, nackResp, nackSupp time.Duration) *ReliableWriter {
	return &ReliableWriter{
		Cache: c, Writer: w, HBPeriod: hbPeriod,
		NackRespTime: nackResp, NackSuppTime: nackSupp,
		proxies: make(map[guid.Guid]*ReaderProxy),
	}
}

// MatchReader registers a newly matched reader; durability replay (if any)
// is the caller's responsibility (entity layer, RTPS §8.5) before samples
// start flowing through this proxy.
func (rw *ReliableWriter) MatchReader(reader guid.Guid) *ReaderProxy {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if p, ok := rw.proxies[reader]; ok {
		return p
	}
	p := newReaderProxy(reader)
	p.State = StateAnnouncing
	rw.proxies[reader] = p
	return p
}

// UnmatchReader purges a reader proxy, per RTPS §8.4's "proxy removal purges
// any in-flight work referring to it."
func (rw *ReliableWriter) UnmatchReader(reader guid.Guid) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	delete(rw.proxies, reader)
}

// OnChangeAdded marks a newly added change as unacknowledged by every
// matched reader, to be picked up by the next heartbeat/data send.
func (rw *ReliableWriter) OnChangeAdded(seq uint64) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	for _, p := range rw.proxies {
		p.mu.Lock()
		p.Unacked[seq] = true
		p.mu.Unlock()
	}
}

// Heartbeat builds the HEARTBEAT submessage announcing this writer's
// currently held [first, last] seqnum range to every matched reader; the
// caller sends the returned per-reader frames.
func (rw *ReliableWriter) Heartbeat(readerEntity, writerEntity guid.EntityId) map[guid.Guid]Heartbeat {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.hbCount++
	out := make(map[guid.Guid]Heartbeat, len(rw.proxies))
	first, last := rw.seqRange()
	for reader, p := range rw.proxies {
		p.mu.Lock()
		p.State = StateWaiting
		p.lastHBCount = rw.hbCount
		p.mu.Unlock()
		out[reader] = Heartbeat{
			ReaderId: readerEntity, WriterId: writerEntity,
			First: first, Last: last, Count: rw.hbCount,
			Final: len(p.Unacked) == 0,
		}
	}
	return out
}

func (rw *ReliableWriter) seqRange() (uint64, uint64) {
	var first, last uint64
	seen := false
	rw.Cache.WalkSeq(func(seq uint64) {
		if !seen || seq < first {
			first = seq
		}
		if seq > last {
			last = seq
		}
		seen = true
	})
	return first, last
}

// OnAckNack folds a reader's ACKNACK into this proxy: acknowledging every
// seqnum below the base, scheduling resends for the NACK bitmap entries
// (deduplicated within NackSuppTime), and advancing State to Final once
// nothing remains unacked.
func (rw *ReliableWriter) OnAckNack(reader guid.Guid, an AckNack) (toResend []uint64) {
	rw.mu.Lock()
	p, ok := rw.proxies[reader]
	rw.mu.Unlock()
	if !ok {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if an.Count <= p.lastANCount {
		return nil // duplicate/out-of-order ACKNACK, ignore.
	}
	p.lastANCount = an.Count

	if an.Reader.Base > p.AckedUpTo {
		for seq := p.AckedUpTo; seq < an.Reader.Base; seq++ {
			delete(p.Unacked, seq)
		}
		p.AckedUpTo = an.Reader.Base - 1
	}

	now := time.Now()
	for i, missing := range an.Reader.Bitmap {
		if !missing {
			continue
		}
		seq := an.Reader.Base + uint64(i)
		entry, scheduled := p.nackSched[seq]
		if scheduled && now.Sub(entry.sentAt) < rw.NackSuppTime {
			continue
		}
		p.nackSched[seq] = &nackEntry{scheduledAt: now}
		toResend = append(toResend, seq)
	}

	if len(p.Unacked) == 0 && len(an.Reader.Bitmap) == 0 {
		p.State = StateFinal
	} else {
		p.State = StateAnnouncing
	}
	return toResend
}

// OnNackFrag resolves a reader's fragment-level NACK into the targeted
// DATAFRAG resends RTPS §8.4 calls for: the stored sample is re-sliced and
// only the requested fragment numbers are returned. Duplicate NACKFRAGs
// inside NackSuppTime are suppressed the same way sample-level NACKs are.
func (rw *ReliableWriter) OnNackFrag(reader guid.Guid, n NackFrag, fragSize uint16) []DataFrag {
	rw.mu.Lock()
	p, ok := rw.proxies[reader]
	rw.mu.Unlock()
	if !ok {
		return nil
	}

	p.mu.Lock()
	entry, scheduled := p.nackSched[n.WriterSN]
	if scheduled && time.Since(entry.sentAt) < rw.NackSuppTime {
		p.mu.Unlock()
		return nil
	}
	p.nackSched[n.WriterSN] = &nackEntry{scheduledAt: time.Now(), sentAt: time.Now()}
	p.mu.Unlock()

	c, ok := rw.Cache.GetChangeForReader(n.WriterSN)
	if !ok || c.Payload == nil {
		return nil
	}
	var wanted []uint32
	for i, miss := range n.Fragments.Bitmap {
		if miss {
			wanted = append(wanted, uint32(n.Fragments.Base)+uint32(i))
		}
	}
	payload := c.Payload.Linearize()
	return FragmentSample(n.WriterSN, payload, fragSize, wanted)
}

// MarkResent records that seq was just retransmitted to reader, starting
// its nack_supp_time suppression window.
func (rw *ReliableWriter) MarkResent(reader guid.Guid, seq uint64) {
	rw.mu.Lock()
	p, ok := rw.proxies[reader]
	rw.mu.Unlock()
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.nackSched[seq]; ok {
		e.sentAt = time.Now()
	}
}

// RetirableUpTo returns the seqnum up to which every matched reader has
// acknowledged, the point below which the writer may safely call
// HistoryCache.RemoveChange (RTPS §8.4's "on local disposal of an
// acked-by-all change, retire it").
func (rw *ReliableWriter) RetirableUpTo() uint64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if len(rw.proxies) == 0 {
		return ^uint64(0)
	}
	min := ^uint64(0)
	for _, p := range rw.proxies {
		p.mu.Lock()
		if p.AckedUpTo < min {
			min = p.AckedUpTo
		}
		p.mu.Unlock()
	}
	return min
}
