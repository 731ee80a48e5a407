package cache

import (
	"context"
	"testing"
	"time"

	"github.com/tdds/tdds-core/internal/status"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

type seqSrc struct{ n uint32 }

func (s *seqSrc) Uint32() uint32 { s.n++; return s.n }

func keyFor(s string) InstanceKey { return InstanceKey{Hash: uint64(len(s)) + 1, Raw: s} }

func TestKeepLastEnforcesDepth(t *testing.T) {
	p := qos.Default()
	p.History = qos.History{Kind: qos.KeepLast, Depth: 2}
	hc := New(p, &seqSrc{})

	k := keyFor("instance-a")
	for i := 0; i < 5; i++ {
		if _, err := hc.AddChange(context.Background(), k, Alive, nil, time.Now()); err != nil {
			t.Fatalf("AddChange: %v", err)
		}
	}
	if hc.Len() != 2 {
		t.Fatalf("expected KEEP_LAST(2) to retain exactly 2 changes, got %d", hc.Len())
	}
}

func TestReceiveChangeRejectsBeyondMaxInstances(t *testing.T) {
	p := qos.Default()
	p.ResourceLimits.MaxInstances = 1
	hc := New(p, &seqSrc{})

	c1 := &Change{SeqNum: 1, Key: keyFor("a"), Kind: Alive}
	if err := hc.ReceiveChange(c1); err != nil {
		t.Fatalf("expected first instance accepted: %v", err)
	}
	c2 := &Change{SeqNum: 2, Key: keyFor("b"), Kind: Alive}
	if err := hc.ReceiveChange(c2); status.Of(err) != status.PRECONDITION_NOT_MET {
		t.Fatalf("expected PRECONDITION_NOT_MET for a second instance beyond max_instances, got %v", err)
	}
}

func TestLifespanExpiresStaleAliveChanges(t *testing.T) {
	p := qos.Default()
	p.History = qos.History{Kind: qos.KeepLast, Depth: 10}
	p.Lifespan = qos.Finite(50 * time.Millisecond)
	hc := New(p, &seqSrc{})

	k := keyFor("sensor")
	if _, err := hc.AddChange(context.Background(), k, Alive, nil, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("AddChange stale: %v", err)
	}
	fresh, err := hc.AddChange(context.Background(), k, Alive, nil, time.Now())
	if err != nil {
		t.Fatalf("AddChange fresh: %v", err)
	}

	got := hc.Read(ReadFilter{}, false)
	if len(got) != 1 || got[0].SeqNum != fresh.SeqNum {
		t.Fatalf("expected only the fresh change to survive lifespan expiry, got %d changes", len(got))
	}
}

func TestReadTakeFilterAndLoan(t *testing.T) {
	p := qos.Default()
	p.History.Depth = 10
	hc := New(p, guid.Default)

	for i := 0; i < 3; i++ {
		if _, err := hc.AddChange(context.Background(), keyFor("a"), Alive, nil, time.Now()); err != nil {
			t.Fatalf("AddChange: %v", err)
		}
	}

	unread := hc.Read(ReadFilter{Sample: []SampleState{NotRead}}, false)
	if len(unread) != 3 {
		t.Fatalf("expected 3 unread changes, got %d", len(unread))
	}

	taken := hc.Take(ReadFilter{}, false)
	if len(taken) != 3 {
		t.Fatalf("expected take to return all 3, got %d", len(taken))
	}
	if hc.Len() != 0 {
		t.Fatalf("expected cache empty after take, got %d", hc.Len())
	}
	hc.ReturnLoan(taken)
}

func keepAllReliable(maxBlocking time.Duration) qos.Policies {
	p := qos.Default()
	p.History = qos.History{Kind: qos.KeepAll}
	p.Reliability = qos.Reliability{Kind: qos.Reliable, MaxBlockingTime: qos.Finite(maxBlocking)}
	p.ResourceLimits.MaxSamplesPerInstance = 1
	return p
}

// A writer blocked on a full KEEP_ALL cache with no acks
// returns TIMEOUT after max_blocking_time.
func TestKeepAllFullCacheBlocksThenTimesOut(t *testing.T) {
	hc := New(keepAllReliable(80*time.Millisecond), &seqSrc{})
	k := keyFor("full")
	if _, err := hc.AddChange(context.Background(), k, Alive, nil, time.Now()); err != nil {
		t.Fatalf("first AddChange: %v", err)
	}

	start := time.Now()
	_, err := hc.AddChange(context.Background(), k, Alive, nil, time.Now())
	if status.Of(err) != status.TIMEOUT {
		t.Fatalf("expected TIMEOUT on a full cache with no acknowledgements, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Fatalf("expected the writer to block close to max_blocking_time, returned after %v", elapsed)
	}
}

// An acknowledgement arriving just before the deadline
// unblocks the writer with OK.
func TestKeepAllFullCacheUnblocksOnAck(t *testing.T) {
	hc := New(keepAllReliable(500*time.Millisecond), &seqSrc{})
	k := keyFor("full")
	first, err := hc.AddChange(context.Background(), k, Alive, nil, time.Now())
	if err != nil {
		t.Fatalf("first AddChange: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		hc.RemoveChange(first.SeqNum) // every matched reader acked.
	}()

	if _, err := hc.AddChange(context.Background(), k, Alive, nil, time.Now()); err != nil {
		t.Fatalf("expected the freed slot to unblock the writer, got %v", err)
	}
}

func TestDurabilityReplayReturnsAliveInSeqOrder(t *testing.T) {
	p := qos.Default()
	p.History.Depth = 10
	hc := New(p, guid.Default)

	for i := 0; i < 3; i++ {
		hc.AddChange(context.Background(), keyFor("a"), Alive, nil, time.Now())
	}
	replay := hc.DurabilityReplay()
	if len(replay) != 3 {
		t.Fatalf("expected 3 alive changes, got %d", len(replay))
	}
	for i := 1; i < len(replay); i++ {
		if replay[i].SeqNum <= replay[i-1].SeqNum {
			t.Fatalf("expected strictly increasing seqnums, got %d then %d", replay[i-1].SeqNum, replay[i].SeqNum)
		}
	}
}
