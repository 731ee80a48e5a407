package rtps

import (
	"testing"
	"time"

	"github.com/tdds/tdds-core/pkg/guid"
)

func TestWriterProxyOnDataFillsGapsAndAdvancesEarliestMissing(t *testing.T) {
	p := newWriterProxy(guid.Guid{}, 0)

	if !p.OnData(1) || p.EarliestMissing != 2 {
		t.Fatalf("expected seq 1 to advance earliest_missing to 2, got %d", p.EarliestMissing)
	}
	if !p.OnData(3) {
		t.Fatal("expected seq 3 accepted")
	}
	if p.EarliestMissing != 2 || p.HighestReceived != 3 {
		t.Fatalf("expected earliest_missing=2 highest_received=3, got %d/%d", p.EarliestMissing, p.HighestReceived)
	}
	set := p.BuildAckNack()
	if set.Base != 2 || len(set.Bitmap) != 2 || !set.Bitmap[0] || set.Bitmap[1] {
		t.Fatalf("expected base=2 bitmap=[missing,present], got %+v", set)
	}

	if !p.OnData(2) || p.EarliestMissing != 4 {
		t.Fatalf("expected filling seq 2 to advance earliest_missing past 3, got %d", p.EarliestMissing)
	}
}

func TestWriterProxyOnDataDiscardsDuplicate(t *testing.T) {
	p := newWriterProxy(guid.Guid{}, 0)
	p.OnData(1)
	p.OnData(2)
	if p.OnData(1) {
		t.Fatal("expected duplicate seq 1 to be discarded")
	}
}

func TestWriterProxyOnHeartbeatExtendsMissingSet(t *testing.T) {
	p := newWriterProxy(guid.Guid{}, 0)
	p.OnData(1)
	if !p.OnHeartbeat(Heartbeat{Last: 5, Count: 1}) {
		t.Fatal("expected non-final heartbeat to request a response")
	}
	if p.HighestReceived != 5 {
		t.Fatalf("expected highest_received=5 after heartbeat, got %d", p.HighestReceived)
	}
	set := p.BuildAckNack()
	if set.Base != 2 || len(set.Bitmap) != 4 {
		t.Fatalf("expected base=2 with 4 missing slots, got %+v", set)
	}
}


func TestWriterProxyOnGapClearsUnsendableRange(t *testing.T) {
	p := newWriterProxy(guid.Guid{}, 0)
	p.OnData(1)
	p.OnHeartbeat(Heartbeat{Last: 6, Count: 1}) // 2..6 now missing.

	// Writer announces 2..3 will never be sent, plus 5 via the bitmap.
	p.OnGap(Gap{GapStart: 2, GapList: SequenceNumberSet{Base: 4, Bitmap: []bool{false, true}}})

	if p.EarliestMissing != 4 {
		t.Fatalf("expected earliest_missing=4 after gap over 2..3, got %d", p.EarliestMissing)
	}
	set := p.BuildAckNack()
	if set.Base != 4 || !set.Bitmap[0] || set.Bitmap[1] {
		t.Fatalf("expected only seq 4 and 6 still missing, got %+v", set)
	}
	if !p.OnData(4) {
		t.Fatal("expected seq 4 still deliverable")
	}
	if p.EarliestMissing != 6 {
		t.Fatalf("expected earliest_missing to skip gapped 5, got %d", p.EarliestMissing)
	}
}

func TestWriterProxyOnHeartbeatFragBuildsNackFrag(t *testing.T) {
	p := newWriterProxy(guid.Guid{}, time.Hour)
	p.OnDataFrag(DataFrag{WriterSN: 7, FragmentStart: 2, FragmentsInSub: 1, FragmentSize: 4, SampleSize: 12, Payload: []byte("EFGH")})

	nf, send, lost := p.OnHeartbeatFrag(HeartbeatFrag{WriterSN: 7, LastFragNum: 3, Count: 1}, 4)
	if !send || lost {
		t.Fatalf("expected a NACKFRAG, got send=%v lost=%v", send, lost)
	}
	if nf.WriterSN != 7 || nf.Fragments.Base != 1 {
		t.Fatalf("unexpected nackfrag %+v", nf)
	}
	// Fragments 1 and 3 missing, 2 held.
	if !nf.Fragments.Bitmap[0] || nf.Fragments.Bitmap[1] || !nf.Fragments.Bitmap[2] {
		t.Fatalf("expected bitmap [1,_,3] missing, got %v", nf.Fragments.Bitmap)
	}
}

func TestWriterProxyHeartbeatFragRetriesExhaustedReportsLost(t *testing.T) {
	p := newWriterProxy(guid.Guid{}, time.Hour)
	hb := HeartbeatFrag{WriterSN: 9, LastFragNum: 2, Count: 1}

	const slRetries = 3
	for i := 0; i < slRetries; i++ {
		if _, send, lost := p.OnHeartbeatFrag(hb, slRetries); !send || lost {
			t.Fatalf("retry %d: expected another NACKFRAG", i)
		}
	}
	if _, send, lost := p.OnHeartbeatFrag(hb, slRetries); send || !lost {
		t.Fatal("expected sample reported lost once sl_retries is exhausted")
	}
	// The aborted assembly ignores any late fragment.
	if _, done := p.OnDataFrag(DataFrag{WriterSN: 9, FragmentStart: 1, FragmentsInSub: 1, FragmentSize: 4, SampleSize: 8, Payload: []byte("ABCD")}); done {
		t.Fatal("expected aborted assembly to drop late fragments")
	}
}

func TestBestEffortReaderDropsStaleAndDuplicate(t *testing.T) {
	var w guid.Guid
	w.Prefix[0] = 1
	br := NewBestEffortReader(guid.Guid{})
	br.MatchWriter(w)

	if !br.OnData(w, 1) || !br.OnData(w, 2) {
		t.Fatal("expected in-order samples delivered")
	}
	if br.OnData(w, 2) {
		t.Fatal("expected duplicate dropped")
	}
	if !br.OnData(w, 100) {
		t.Fatal("expected jump forward delivered")
	}
	if br.OnData(w, 50) {
		t.Fatal("expected sample beyond the reorder window dropped")
	}
	if !br.OnData(w, 99) {
		t.Fatal("expected in-window reordered sample delivered")
	}
}

func TestFragmentSampleTargetedResend(t *testing.T) {
	payload := []byte("ABCDEFGHIJ") // 3 fragments of 4 at fragSize 4.
	frags := FragmentSample(5, payload, 4, []uint32{2})
	if len(frags) != 1 {
		t.Fatalf("expected exactly the requested fragment, got %d", len(frags))
	}
	if frags[0].FragmentStart != 2 || string(frags[0].Payload) != "EFGH" {
		t.Fatalf("unexpected fragment %+v", frags[0])
	}

	all := FragmentSample(5, payload, 4, nil)
	if len(all) != 3 || string(all[2].Payload) != "IJ" {
		t.Fatalf("expected full 3-fragment split with short tail, got %+v", all)
	}
}

func TestReassemblerCompletesAcrossFragments(t *testing.T) {
	r := NewReassembler(0)
	d1 := DataFrag{WriterSN: 1, FragmentStart: 1, FragmentsInSub: 1, FragmentSize: 4, SampleSize: 8, Payload: []byte("ABCD")}
	if _, done := r.Feed(d1); done {
		t.Fatal("expected incomplete after first fragment")
	}
	d2 := DataFrag{WriterSN: 1, FragmentStart: 2, FragmentsInSub: 1, FragmentSize: 4, SampleSize: 8, Payload: []byte("EFGH")}
	payload, done := r.Feed(d2)
	if !done {
		t.Fatal("expected completion after second fragment")
	}
	if string(payload) != "ABCDEFGH" {
		t.Fatalf("expected reassembled ABCDEFGH, got %q", payload)
	}
}
