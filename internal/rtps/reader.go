package rtps

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"

	"github.com/tdds/tdds-core/internal/cache"
	"github.com/tdds/tdds-core/pkg/guid"
)

// WriterProxy is a reliable reader's view of one matched writer: the
// contiguous-missing/high-water tracking RTPS §8.4 requires to detect gaps
// and build ACKNACK responses.
type WriterProxy struct {
	mu sync.Mutex

	Writer          guid.Guid
	EarliestMissing uint64 // lowest seqnum not yet confirmed received (1-based).
	HighestReceived uint64
	missing         map[uint64]struct{} // absolute seqnums known missing, EarliestMissing..HighestReceived.
	reassembler     *Reassembler

	ackCount      int32
	lastHBCount   int32
	nackFragCnt   int32
	fragRetries   map[uint64]int // NACKFRAG retries per incomplete sample.
	fragHighWater map[uint64]uint32
}

func newWriterProxy(writer guid.Guid, fragAbort time.Duration) *WriterProxy {
	return &WriterProxy{
		Writer: writer, EarliestMissing: 1,
		missing:       make(map[uint64]struct{}),
		reassembler:   NewReassembler(fragAbort),
		fragRetries:   make(map[uint64]int),
		fragHighWater: make(map[uint64]uint32),
	}
}

// ReliableReader drives the reader-side state machine of RTPS §8.4: for each
// matched writer proxy, validates incoming DATA/DATAFRAG against the
// missing-set, reassembles fragments, and schedules ACKNACK generation.
type ReliableReader struct {
	mu                sync.Mutex
	Cache             *cache.HistoryCache
	Reader            guid.Guid
	HeartbeatRespTime time.Duration
	HeartbeatSuppTime time.Duration
	proxies           map[guid.Guid]*WriterProxy
}

func NewReliableReader(c *cache.HistoryCache, reader guid.Guid, hbResp, hbSupp time.Duration) *ReliableReader {
	return &ReliableReader{
		Cache: c, Reader: reader,
		HeartbeatRespTime: hbResp, HeartbeatSuppTime: hbSupp,
		proxies: make(map[guid.Guid]*WriterProxy),
	}
}

func (rr *ReliableReader) MatchWriter(writer guid.Guid) *WriterProxy {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if p, ok := rr.proxies[writer]; ok {
		return p
	}
	p := newWriterProxy(writer, rr.HeartbeatRespTime*4)
	rr.proxies[writer] = p
	return p
}

func (rr *ReliableReader) UnmatchWriter(writer guid.Guid) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	delete(rr.proxies, writer)
}

func (rr *ReliableReader) proxyFor(writer guid.Guid) (*WriterProxy, bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	p, ok := rr.proxies[writer]
	return p, ok
}

// OnData validates one DATA submessage's sequence number against the
// proxy's (earliest_missing, highest_received, missing_set) and reports
// whether it should be delivered to the cache (RTPS §8.4 reader rules):
// a seqnum below earliest_missing is a duplicate and discarded, one inside
// the missing set fills a gap, and any other extends the set.
func (p *WriterProxy) OnData(seq uint64) (deliver bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq < p.EarliestMissing {
		return false // already delivered or superseded.
	}
	if seq > p.HighestReceived {
		for s := p.HighestReceived + 1; s < seq; s++ {
			p.missing[s] = struct{}{}
		}
		p.HighestReceived = seq
	}
	delete(p.missing, seq)
	p.advanceEarliestMissing()
	return true
}

// advanceEarliestMissing slides earliest_missing past every seqnum already
// confirmed received (i.e. no longer in the missing set).
func (p *WriterProxy) advanceEarliestMissing() {
	for {
		if p.EarliestMissing > p.HighestReceived {
			return
		}
		if _, stillMissing := p.missing[p.EarliestMissing]; stillMissing {
			return
		}
		p.EarliestMissing++
	}
}

// OnHeartbeat extends the missing set up to the writer's announced Last
// seqnum (RTPS §8.4: "if lastSN > highest_received, extend missing_set").
func (p *WriterProxy) OnHeartbeat(hb Heartbeat) (shouldRespond bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hb.Count <= p.lastHBCount {
		return false
	}
	p.lastHBCount = hb.Count
	if hb.Last > p.HighestReceived {
		for s := p.HighestReceived + 1; s <= hb.Last; s++ {
			p.missing[s] = struct{}{}
		}
		p.HighestReceived = hb.Last
	}
	return !hb.Final
}

// BuildAckNack reports the current (base, bitmap) gap description for this
// proxy, the payload of the ACKNACK the reader sends after
// heartbeat_resp_time coalescing. The bitmap itself is built over a
// bits-and-blooms/bitset so the wire encoder (SequenceNumberSet.Encode)
// works from a dense representation rather than re-deriving it from the map.
func (p *WriterProxy) BuildAckNack() SequenceNumberSet {
	p.mu.Lock()
	defer p.mu.Unlock()

	span := int64(p.HighestReceived) - int64(p.EarliestMissing) + 1
	if span < 0 {
		span = 0
	}
	bs := bitset.New(uint(span))
	for s := range p.missing {
		if s >= p.EarliestMissing && s <= p.HighestReceived {
			bs.Set(uint(s - p.EarliestMissing))
		}
	}
	bitmap := make([]bool, span)
	for i := uint(0); i < uint(span); i++ {
		bitmap[i] = bs.Test(i)
	}
	p.ackCount++
	return SequenceNumberSet{Base: p.EarliestMissing, Bitmap: bitmap}
}

func (p *WriterProxy) AckNackCount() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ackCount
}

// OnDataFrag feeds one DATAFRAG into this proxy's reassembler, returning the
// completed payload (to be delivered as an ordinary Change) once every
// fragment of WriterSN has arrived.
func (p *WriterProxy) OnDataFrag(d DataFrag) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	payload, done := p.reassembler.Feed(d)
	if done {
		delete(p.fragRetries, d.WriterSN)
		delete(p.fragHighWater, d.WriterSN)
	}
	return payload, done
}

// OnGap marks the announced range and bitmap entries as irrelevant: the
// writer will never send them (filtered or overwritten), so they leave the
// missing set without a sample arriving (RTPS §8.4 GAP).
func (p *WriterProxy) OnGap(g Gap) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if g.GapList.Base > p.HighestReceived+1 {
		for s := p.HighestReceived + 1; s < g.GapList.Base; s++ {
			p.missing[s] = struct{}{}
		}
		p.HighestReceived = g.GapList.Base - 1
	}
	for s := g.GapStart; s < g.GapList.Base; s++ {
		delete(p.missing, s)
	}
	for i, gapped := range g.GapList.Bitmap {
		if !gapped {
			continue
		}
		s := g.GapList.Base + uint64(i)
		if s > p.HighestReceived {
			p.HighestReceived = s
		}
		delete(p.missing, s)
	}
	p.advanceEarliestMissing()
}

// OnHeartbeatFrag records the writer's announced high-water fragment for an
// in-flight sample and builds the NACKFRAG requesting whatever this proxy
// still lacks. The second return is false once the sample needs nothing, is
// already complete, or its retry budget (sl_retries) is exhausted — in that
// last case the assembly is aborted and lost reports true, the trigger for
// the reader's SAMPLE_LOST status.
func (p *WriterProxy) OnHeartbeatFrag(h HeartbeatFrag, slRetries int) (nf NackFrag, send bool, lost bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h.LastFragNum > p.fragHighWater[h.WriterSN] {
		p.fragHighWater[h.WriterSN] = h.LastFragNum
	}
	missing := p.reassembler.Missing(h.WriterSN, p.fragHighWater[h.WriterSN])
	if len(missing) == 0 {
		return NackFrag{}, false, false
	}

	p.fragRetries[h.WriterSN]++
	if slRetries > 0 && p.fragRetries[h.WriterSN] > slRetries {
		p.reassembler.Abort(h.WriterSN)
		delete(p.fragRetries, h.WriterSN)
		delete(p.fragHighWater, h.WriterSN)
		return NackFrag{}, false, true
	}

	base := uint64(missing[0])
	span := missing[len(missing)-1] - missing[0] + 1
	bitmap := make([]bool, span)
	for _, m := range missing {
		bitmap[m-missing[0]] = true
	}
	p.nackFragCnt++
	return NackFrag{
		WriterSN:  h.WriterSN,
		Fragments: SequenceNumberSet{Base: base, Bitmap: bitmap},
		Count:     p.nackFragCnt,
	}, true, false
}
