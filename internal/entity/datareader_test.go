package entity

import (
	"testing"
	"time"

	"github.com/tdds/tdds-core/internal/cache"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

func newTestReader(t *testing.T, policies qos.Policies) *DataReader {
	t.Helper()
	p := newTestParticipant(t)
	sub, err := p.CreateSubscriber(qos.Default())
	if err != nil {
		t.Fatalf("CreateSubscriber: %v", err)
	}
	dr, err := sub.CreateDataReader(keyedTopic(t, "Hunter"), policies, 10*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("CreateDataReader: %v", err)
	}
	return dr
}

func writerWithPrefix(b byte) guid.Guid {
	var g guid.Guid
	g.Prefix[0] = b
	g.Entity = guid.EntityId{0x00, 0x00, 0x01, guid.KindUserWriterWithKey}
	return g
}

// Two writers of the same instance under EXCLUSIVE
// ownership, strengths 10 and 20 — only the stronger writer's samples are
// delivered until it goes away, then the weaker one takes over.
func TestExclusiveOwnershipFailoverToWeakerWriter(t *testing.T) {
	policies := qos.Default()
	policies.Ownership.Kind = qos.Exclusive
	dr := newTestReader(t, policies)

	strong := writerWithPrefix(2)
	weak := writerWithPrefix(1)
	key := cache.InstanceKey{Hash: 3, Raw: "Red"}

	deliver := func(w guid.Guid, strength int32, seq uint64) error {
		return dr.Receive(w, strength, &cache.Change{SeqNum: seq, Writer: w, Key: key, Kind: cache.Alive}, false, false)
	}

	if err := deliver(strong, 20, 1); err != nil {
		t.Fatalf("deliver strong: %v", err)
	}
	if err := deliver(weak, 10, 1); err != nil {
		t.Fatalf("deliver weak: %v", err)
	}

	got := dr.Take(cache.ReadFilter{}, false)
	if len(got) != 1 || got[0].Writer != strong {
		t.Fatalf("expected only the strength-20 writer's sample, got %d samples", len(got))
	}

	// The strong writer is deleted; its ownership record is released and
	// the weaker writer's samples become visible.
	dr.ReleaseOwnership(strong)
	if err := deliver(weak, 10, 2); err != nil {
		t.Fatalf("deliver weak after failover: %v", err)
	}
	got = dr.Take(cache.ReadFilter{}, false)
	if len(got) != 1 || got[0].Writer != weak {
		t.Fatalf("expected the strength-10 writer's sample after failover, got %d samples", len(got))
	}
}

func TestTimeBasedFilterSuppressesRapidSamples(t *testing.T) {
	policies := qos.Default()
	policies.TimeBasedFilter = qos.Finite(time.Hour)
	dr := newTestReader(t, policies)

	w := writerWithPrefix(1)
	key := cache.InstanceKey{Hash: 3, Raw: "Red"}

	for seq := uint64(1); seq <= 3; seq++ {
		if err := dr.Receive(w, 0, &cache.Change{SeqNum: seq, Writer: w, Key: key, Kind: cache.Alive}, false, false); err != nil {
			t.Fatalf("Receive %d: %v", seq, err)
		}
	}
	if got := dr.Read(cache.ReadFilter{}, false); len(got) != 1 {
		t.Fatalf("expected the minimum-separation window to admit one sample, got %d", len(got))
	}

	// Instance lifecycle transitions always pass the filter.
	disposed := &cache.Change{SeqNum: 4, Writer: w, Key: key, Kind: cache.NotAliveDisposed, Instance: cache.InstanceNotAliveDisposed}
	if err := dr.Receive(w, 0, disposed, false, false); err != nil {
		t.Fatalf("Receive disposed: %v", err)
	}
	if got := dr.Read(cache.ReadFilter{}, false); len(got) != 2 {
		t.Fatalf("expected the dispose to pass the time filter, got %d samples", len(got))
	}
}

func TestCheckDeadlinesReportsStaleInstances(t *testing.T) {
	policies := qos.Default()
	policies.Deadline = qos.Finite(10 * time.Millisecond)
	dr := newTestReader(t, policies)

	w := writerWithPrefix(1)
	key := cache.InstanceKey{Hash: 3, Raw: "Red"}
	if err := dr.Receive(w, 0, &cache.Change{SeqNum: 1, Writer: w, Key: key, Kind: cache.Alive}, false, false); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	if missed := dr.CheckDeadlines(time.Now()); missed != 0 {
		t.Fatalf("expected no deadline miss immediately after a sample, got %d", missed)
	}
	if missed := dr.CheckDeadlines(time.Now().Add(time.Second)); missed != 1 {
		t.Fatalf("expected one stale instance past the deadline period, got %d", missed)
	}
	if dr.StatusCond.Pending&StatusRequestedDeadlineMissed == 0 {
		t.Fatal("expected the requested-deadline-missed status to be posted")
	}
}
