package rtps

import (
	"sync"

	"github.com/tdds/tdds-core/pkg/guid"
)

// bestEffortWindow is how far behind the highest delivered seqnum an
// out-of-order sample may arrive and still be accepted; anything older is
// dropped (RTPS §8.4's best-effort mode).
const bestEffortWindow = 16

// bestEffortProxy tracks one writer's delivery high-water mark plus the
// recent seqnums already delivered inside the reorder window, so a late
// duplicate is never delivered twice.
type bestEffortProxy struct {
	writer    guid.Guid
	highest   uint64
	delivered map[uint64]struct{} // seqnums in (highest-window, highest].
}

// BestEffortReader accepts DATA without any HEARTBEAT/ACKNACK exchange:
// in-order and mildly reordered samples are delivered once each, samples
// falling out of the reorder window are dropped silently.
type BestEffortReader struct {
	mu      sync.Mutex
	Reader  guid.Guid
	proxies map[guid.Guid]*bestEffortProxy
}

func NewBestEffortReader(reader guid.Guid) *BestEffortReader {
	return &BestEffortReader{
		Reader:  reader,
		proxies: make(map[guid.Guid]*bestEffortProxy),
	}
}

func (br *BestEffortReader) MatchWriter(writer guid.Guid) {
	br.mu.Lock()
	defer br.mu.Unlock()
	if _, ok := br.proxies[writer]; !ok {
		br.proxies[writer] = &bestEffortProxy{
			writer:    writer,
			delivered: make(map[uint64]struct{}),
		}
	}
}

func (br *BestEffortReader) UnmatchWriter(writer guid.Guid) {
	br.mu.Lock()
	defer br.mu.Unlock()
	delete(br.proxies, writer)
}

// OnData reports whether one incoming seqnum should be delivered: true for
// anything new within the reorder window, false for duplicates and for
// samples older than window behind the high-water mark.
func (br *BestEffortReader) OnData(writer guid.Guid, seq uint64) (deliver bool) {
	br.mu.Lock()
	defer br.mu.Unlock()
	p, ok := br.proxies[writer]
	if !ok {
		return false
	}

	if seq > p.highest {
		p.highest = seq
		p.delivered[seq] = struct{}{}
		p.trim()
		return true
	}
	if p.highest >= bestEffortWindow && seq <= p.highest-bestEffortWindow {
		return false
	}
	if _, seen := p.delivered[seq]; seen {
		return false
	}
	p.delivered[seq] = struct{}{}
	return true
}

// trim discards delivery records that fell out of the reorder window.
func (p *bestEffortProxy) trim() {
	for s := range p.delivered {
		if p.highest >= bestEffortWindow && s <= p.highest-bestEffortWindow {
			delete(p.delivered, s)
		}
	}
}
