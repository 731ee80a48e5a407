package rtps

import (
	"context"
	"testing"
	"time"

	"github.com/tdds/tdds-core/internal/cache"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

// Half the DATA submessages are dropped for a while,
// then the loss stops. Driving the writer and reader state machines through
// repeated HEARTBEAT/ACKNACK/resend rounds must deliver every published
// sample exactly once, in order, with no duplicates.
func TestReliableRecoveryAfterLossWindow(t *testing.T) {
	const total = 40

	p := qos.Default()
	p.Reliability.Kind = qos.Reliable
	p.History = qos.History{Kind: qos.KeepAll}
	hc := cache.New(p, guid.Default)

	writerGuid := guid.New(guid.NewPrefix(guid.Default), guid.EntityId{0x00, 0x00, 0x01, guid.KindUserWriterWithKey})
	readerGuid := guid.New(guid.NewPrefix(guid.Default), guid.EntityId{0x00, 0x00, 0x01, guid.KindUserReaderWithKey})

	rw := NewReliableWriter(hc, writerGuid, time.Second, 0, 0)
	rw.MatchReader(readerGuid)

	readerCache := cache.New(p, guid.Default)
	rr := NewReliableReader(readerCache, readerGuid, 0, 0)
	proxy := rr.MatchWriter(writerGuid)

	for i := 0; i < total; i++ {
		c, err := hc.AddChange(context.Background(), cache.InstanceKey{Hash: 1, Raw: "k"}, cache.Alive, nil, time.Now())
		if err != nil {
			t.Fatalf("AddChange %d: %v", i, err)
		}
		rw.OnChangeAdded(c.SeqNum)
	}

	delivered := make(map[uint64]int)
	deliver := func(seq uint64) {
		if proxy.OnData(seq) {
			delivered[seq]++
		}
	}

	// Loss window: every odd seqnum is dropped on first transmission.
	for seq := uint64(1); seq <= total; seq++ {
		if seq%2 == 1 {
			continue
		}
		deliver(seq)
	}

	// Recovery rounds: HEARTBEAT -> ACKNACK -> targeted resends, now
	// lossless. A duplicate of an already-delivered sample is thrown in
	// each round to prove idempotence.
	for round := 0; round < 8 && proxy.EarliestMissing <= total; round++ {
		hbs := rw.Heartbeat(readerGuid.Entity, writerGuid.Entity)
		if proxy.OnHeartbeat(hbs[readerGuid]) {
			an := proxy.BuildAckNack()
			for _, seq := range rw.OnAckNack(readerGuid, AckNack{Reader: an, Count: int32(round + 1)}) {
				deliver(seq)
				rw.MarkResent(readerGuid, seq)
			}
		}
		deliver(2) // duplicate.
	}

	if proxy.EarliestMissing != total+1 {
		t.Fatalf("expected every sample recovered, earliest_missing=%d", proxy.EarliestMissing)
	}
	if len(delivered) != total {
		t.Fatalf("expected %d distinct samples delivered, got %d", total, len(delivered))
	}
	for seq, n := range delivered {
		if n != 1 {
			t.Fatalf("sample %d delivered %d times", seq, n)
		}
	}

	// With everything acknowledged, the writer may retire its whole cache.
	an := proxy.BuildAckNack()
	rw.OnAckNack(readerGuid, AckNack{Reader: an, Count: 100})
	if rw.RetirableUpTo() < total {
		t.Fatalf("expected all %d samples retirable after the final ack, got %d", total, rw.RetirableUpTo())
	}
}
