package rtps

import (
	"context"
	"testing"
	"time"

	"github.com/tdds/tdds-core/internal/cache"
	"github.com/tdds/tdds-core/internal/pool"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

func TestReliableWriterHeartbeatAndAckNackRetire(t *testing.T) {
	p := qos.Default()
	p.Reliability.Kind = qos.Reliable
	p.History.Depth = 10
	hc := cache.New(p, guid.Default)

	writerGuid := guid.New(guid.NewPrefix(guid.Default), guid.EntityId{0x00, 0x00, 0x01, guid.KindUserWriterWithKey})
	readerGuid := guid.New(guid.NewPrefix(guid.Default), guid.EntityId{0x00, 0x00, 0x01, guid.KindUserReaderWithKey})

	rw := NewReliableWriter(hc, writerGuid, time.Second, 10*time.Millisecond, 10*time.Millisecond)
	rw.MatchReader(readerGuid)

	key := cache.InstanceKey{Hash: 1, Raw: "a"}
	c1, err := hc.AddChange(context.Background(), key, cache.Alive, nil, time.Now())
	if err != nil {
		t.Fatalf("AddChange: %v", err)
	}
	rw.OnChangeAdded(c1.SeqNum)

	hbs := rw.Heartbeat(guid.EntityId{}, writerGuid.Entity)
	hb, ok := hbs[readerGuid]
	if !ok || hb.Final {
		t.Fatalf("expected a non-final heartbeat for the unacked change, got %+v (ok=%v)", hb, ok)
	}

	resend := rw.OnAckNack(readerGuid, AckNack{Reader: SequenceNumberSet{Base: c1.SeqNum + 1}, Count: 1, Final: true})
	if len(resend) != 0 {
		t.Fatalf("expected no resend when base acknowledges everything, got %v", resend)
	}
	if rw.RetirableUpTo() != c1.SeqNum {
		t.Fatalf("expected retirable up to %d, got %d", c1.SeqNum, rw.RetirableUpTo())
	}
}

func TestReliableWriterOnAckNackSchedulesResendForNackedSeq(t *testing.T) {
	p := qos.Default()
	p.Reliability.Kind = qos.Reliable
	p.History.Depth = 10
	hc := cache.New(p, guid.Default)

	writerGuid := guid.New(guid.NewPrefix(guid.Default), guid.EntityId{0x00, 0x00, 0x01, guid.KindUserWriterWithKey})
	readerGuid := guid.New(guid.NewPrefix(guid.Default), guid.EntityId{0x00, 0x00, 0x01, guid.KindUserReaderWithKey})
	rw := NewReliableWriter(hc, writerGuid, time.Second, 10*time.Millisecond, 50*time.Millisecond)
	rw.MatchReader(readerGuid)

	resend := rw.OnAckNack(readerGuid, AckNack{Reader: SequenceNumberSet{Base: 1, Bitmap: []bool{true}}, Count: 1})
	if len(resend) != 1 || resend[0] != 1 {
		t.Fatalf("expected resend=[1], got %v", resend)
	}

	// A duplicate ACKNACK within nack_supp_time must not reschedule.
	rw.MarkResent(readerGuid, 1)
	resend2 := rw.OnAckNack(readerGuid, AckNack{Reader: SequenceNumberSet{Base: 1, Bitmap: []bool{true}}, Count: 2})
	if len(resend2) != 0 {
		t.Fatalf("expected suppressed duplicate resend, got %v", resend2)
	}
}

func TestReliableWriterOnNackFragResendsOnlyRequestedFragments(t *testing.T) {
	p := qos.Default()
	p.Reliability.Kind = qos.Reliable
	p.History.Depth = 10
	hc := cache.New(p, guid.Default)

	dbp := pool.NewDataBufferPool(map[int]pool.Constraints{64: {Reserved: 4}})
	payload := dbp.Alloc(10, true)
	pool.PutData(payload, 0, []byte("ABCDEFGHIJ"))

	writerGuid := guid.New(guid.NewPrefix(guid.Default), guid.EntityId{0x00, 0x00, 0x01, guid.KindUserWriterWithKey})
	readerGuid := guid.New(guid.NewPrefix(guid.Default), guid.EntityId{0x00, 0x00, 0x01, guid.KindUserReaderWithKey})
	rw := NewReliableWriter(hc, writerGuid, time.Second, 10*time.Millisecond, 50*time.Millisecond)
	rw.MatchReader(readerGuid)

	c, err := hc.AddChange(context.Background(), cache.InstanceKey{Hash: 1, Raw: "a"}, cache.Alive, payload, time.Now())
	if err != nil {
		t.Fatalf("AddChange: %v", err)
	}

	nf := NackFrag{WriterSN: c.SeqNum, Fragments: SequenceNumberSet{Base: 1, Bitmap: []bool{false, false, true}}, Count: 1}
	frags := rw.OnNackFrag(readerGuid, nf, 4)
	if len(frags) != 1 || frags[0].FragmentStart != 3 || string(frags[0].Payload) != "IJ" {
		t.Fatalf("expected targeted resend of fragment 3 only, got %+v", frags)
	}

	// A second NACKFRAG inside nack_supp_time is suppressed.
	if again := rw.OnNackFrag(readerGuid, nf, 4); len(again) != 0 {
		t.Fatalf("expected suppressed duplicate fragment resend, got %+v", again)
	}
}
