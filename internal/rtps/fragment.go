package rtps

import (
	"time"
)

// Reassembly holds the in-progress fragment buffer for one sample under
// reconstruction, RTPS §8.4's "Fragment assembly edge cases": a fragment for
// an already-completed or aborted seqnum is dropped, and a new seqnum's
// first fragment aborts an older incomplete assembly after
// heartbeat_resp_time*4 with no progress.
type Reassembly struct {
	WriterSN     uint64
	SampleSize   uint32
	FragmentSize uint16
	chunks       map[uint32][]byte // 1-based fragment index -> payload.
	received     int
	total        uint32
	lastProgress time.Time
}

func newReassembly(sn uint64, sampleSize uint32, fragSize uint16) *Reassembly {
	total := uint32(0)
	if fragSize > 0 {
		total = (sampleSize + uint32(fragSize) - 1) / uint32(fragSize)
	}
	return &Reassembly{
		WriterSN: sn, SampleSize: sampleSize, FragmentSize: fragSize,
		chunks: make(map[uint32][]byte), total: total, lastProgress: time.Now(),
	}
}

// Add stores one DATAFRAG's fragment range, returning the reassembled
// payload once every fragment has arrived.
func (a *Reassembly) Add(d DataFrag) ([]byte, bool) {
	for i := uint16(0); i < d.FragmentsInSub; i++ {
		idx := d.FragmentStart + uint32(i)
		if _, ok := a.chunks[idx]; ok {
			continue
		}
		lo := int(i) * int(d.FragmentSize)
		hi := lo + int(d.FragmentSize)
		if hi > len(d.Payload) {
			hi = len(d.Payload)
		}
		if lo >= hi {
			continue
		}
		a.chunks[idx] = d.Payload[lo:hi]
		a.received++
	}
	a.lastProgress = time.Now()
	if a.total == 0 || uint32(a.received) < a.total {
		return nil, false
	}
	out := make([]byte, 0, a.SampleSize)
	for i := uint32(1); i <= a.total; i++ {
		out = append(out, a.chunks[i]...)
	}
	return out, true
}

// stale reports whether this assembly has made no progress for longer than
// the abort window (heartbeat_resp_time*4, RTPS §8.4).
func (a *Reassembly) stale(abortAfter time.Duration) bool {
	return time.Since(a.lastProgress) > abortAfter
}

// Reassembler tracks one Reassembly per in-flight writer sequence number for
// a single reader proxy, enforcing the abort rule for idle incomplete
// assemblies.
type Reassembler struct {
	abortAfter time.Duration
	active     map[uint64]*Reassembly
	completed  map[uint64]bool
	aborted    map[uint64]bool
}

func NewReassembler(abortAfter time.Duration) *Reassembler {
	return &Reassembler{
		abortAfter: abortAfter,
		active:     make(map[uint64]*Reassembly),
		completed:  make(map[uint64]bool),
		aborted:    make(map[uint64]bool),
	}
}

// Feed processes one DATAFRAG submessage, returning the completed sample
// payload when the fragment it carries finishes an assembly.
func (r *Reassembler) Feed(d DataFrag) ([]byte, bool) {
	if r.completed[d.WriterSN] || r.aborted[d.WriterSN] {
		return nil, false
	}
	r.expireStale(d.WriterSN)

	a, ok := r.active[d.WriterSN]
	if !ok {
		a = newReassembly(d.WriterSN, d.SampleSize, d.FragmentSize)
		r.active[d.WriterSN] = a
	}
	payload, done := a.Add(d)
	if done {
		delete(r.active, d.WriterSN)
		r.completed[d.WriterSN] = true
	}
	return payload, done
}

// expireStale aborts any other active assembly that has been idle past
// abortAfter; assemblies that are still making progress stay live
// alongside the one for keep.
func (r *Reassembler) expireStale(keep uint64) {
	for sn, a := range r.active {
		if sn == keep {
			continue
		}
		if a.stale(r.abortAfter) {
			delete(r.active, sn)
			r.aborted[sn] = true
		}
	}
}

// Missing returns the fragment numbers not yet received for sn's active
// assembly, the payload of a NACKFRAG. upTo caps the scan at the highest
// fragment the writer has announced (HEARTBEATFRAG's lastFragNum); zero
// means the assembly's own total.
func (r *Reassembler) Missing(sn uint64, upTo uint32) []uint32 {
	a, ok := r.active[sn]
	if !ok {
		if r.completed[sn] || r.aborted[sn] {
			return nil
		}
		// Nothing received yet: every fragment up to the announced high
		// water mark is missing.
		out := make([]uint32, 0, upTo)
		for i := uint32(1); i <= upTo; i++ {
			out = append(out, i)
		}
		return out
	}
	limit := a.total
	if upTo != 0 && upTo < limit {
		limit = upTo
	}
	var out []uint32
	for i := uint32(1); i <= limit; i++ {
		if _, got := a.chunks[i]; !got {
			out = append(out, i)
		}
	}
	return out
}

// Abort drops sn's assembly permanently; further fragments for it are
// ignored. Used when NACKFRAG retries are exhausted (SAMPLE_LOST).
func (r *Reassembler) Abort(sn uint64) {
	delete(r.active, sn)
	r.aborted[sn] = true
}

// FragmentSample slices one serialized sample into the DATAFRAG submessages
// a writer sends when the sample exceeds msg_size, each carrying fragSize
// bytes except a possibly short tail (RTPS §8.4). only, if non-empty,
// restricts the output to those fragment numbers — the targeted resend path
// a NACKFRAG requests.
func FragmentSample(writerSN uint64, payload []byte, fragSize uint16, only []uint32) []DataFrag {
	if fragSize == 0 {
		return nil
	}
	total := (uint32(len(payload)) + uint32(fragSize) - 1) / uint32(fragSize)
	wanted := func(n uint32) bool {
		if len(only) == 0 {
			return true
		}
		for _, o := range only {
			if o == n {
				return true
			}
		}
		return false
	}
	var out []DataFrag
	for n := uint32(1); n <= total; n++ {
		if !wanted(n) {
			continue
		}
		lo := int(n-1) * int(fragSize)
		hi := lo + int(fragSize)
		if hi > len(payload) {
			hi = len(payload)
		}
		out = append(out, DataFrag{
			WriterSN:       writerSN,
			FragmentStart:  n,
			FragmentsInSub: 1,
			FragmentSize:   fragSize,
			SampleSize:     uint32(len(payload)),
			Payload:        payload[lo:hi],
		})
	}
	return out
}
