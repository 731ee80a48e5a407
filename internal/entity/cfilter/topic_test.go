package cfilter_test

import (
	"encoding/binary"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/tdds/tdds-core/internal/cache"
	"github.com/tdds/tdds-core/internal/entity"
	"github.com/tdds/tdds-core/internal/entity/cfilter"
	"github.com/tdds/tdds-core/internal/pool"
	"github.com/tdds/tdds-core/pkg/cdr"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

// shapeExtractor decodes a fixed 16-byte little-endian {x, y float64}
// payload, the simplest possible stand-in for a pkg/cdr-generated struct
// decoder.
func shapeExtractor(payload []byte) (map[string]float64, error) {
	if len(payload) < 16 {
		return nil, nil
	}
	x := math.Float64frombits(binary.LittleEndian.Uint64(payload[0:8]))
	y := math.Float64frombits(binary.LittleEndian.Uint64(payload[8:16]))
	return map[string]float64{"x": x, "y": y}, nil
}

func encodeShape(x, y float64) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(x))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(y))
	return buf
}

func newShapeReader(t *testing.T) (*entity.DataReader, *pool.DataBufferPool) {
	t.Helper()
	table := qos.NewTable()
	prefix := guid.NewPrefix(guid.Default)
	participant, err := entity.NewParticipant(0, prefix, table, qos.Default())
	if err != nil {
		t.Fatalf("NewParticipant: %v", err)
	}

	typ := cdr.Type{
		Code: cdr.TCStruct,
		Name: "ShapeType",
		Fields: []cdr.Field{
			{Name: "x", Type: &cdr.Type{Code: cdr.TCLong}},
			{Name: "y", Type: &cdr.Type{Code: cdr.TCLong}},
		},
	}
	topic, err := entity.NewTopic("Square", "ShapeType", typ)
	if err != nil {
		t.Fatalf("NewTopic: %v", err)
	}
	participant.RegisterTopic(topic)

	sub, err := participant.CreateSubscriber(qos.Default())
	if err != nil {
		t.Fatalf("CreateSubscriber: %v", err)
	}
	dr, err := sub.CreateDataReader(topic, qos.Default(), 50*time.Millisecond, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("CreateDataReader: %v", err)
	}

	dbp := pool.NewDataBufferPool(map[int]pool.Constraints{
		32: {Reserved: 8, Extra: 8, Grow: 100},
	})
	return dr, dbp
}

func deliver(t *testing.T, dr *entity.DataReader, dbp *pool.DataBufferPool, seq uint64, x, y float64) {
	t.Helper()
	payload := encodeShape(x, y)
	buf := dbp.Alloc(len(payload), true)
	pool.PutData(buf, 0, payload)
	writer := guid.New(guid.NewPrefix(guid.Default), guid.EntityIdParticipant)
	ch := &cache.Change{
		SeqNum:     seq,
		Writer:     writer,
		Key:        cache.InstanceKey{Hash: seq, Raw: strconv.FormatUint(seq, 10)},
		Kind:       cache.Alive,
		Payload:    buf,
		SourceTime: time.Now(),
	}
	if err := dr.Receive(writer, 0, ch, false, false); err != nil {
		t.Fatalf("Receive: %v", err)
	}
}

func TestContentFilteredTopicTakeOnlyReturnsMatching(t *testing.T) {
	dr, dbp := newShapeReader(t)
	expr, err := cfilter.Parse("x > 50 and x < 100 and y > 50 and y < 100")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cft := cfilter.New(dr, expr, shapeExtractor)

	samples := []struct{ x, y float64 }{
		{75, 75},  // matches
		{10, 10},  // doesn't match
		{99, 51},  // matches
		{150, 75}, // doesn't match
	}
	for i, s := range samples {
		deliver(t, dr, dbp, uint64(i+1), s.x, s.y)
	}

	got := cft.Take(cache.ReadFilter{}, false)
	if len(got) != 2 {
		t.Fatalf("expected 2 matching samples, got %d", len(got))
	}
	for _, ch := range got {
		fields, _ := shapeExtractor(ch.Payload.Bytes())
		if !expr.Eval(fields) {
			t.Errorf("delivered sample %+v does not satisfy the filter", fields)
		}
	}

	// The non-matching samples were taken out of the cache by the
	// underlying Take but immediately returned on loan: a second Take
	// must find nothing left.
	if rest := dr.Take(cache.ReadFilter{}, false); len(rest) != 0 {
		t.Fatalf("expected cache drained after Take, found %d leftover changes", len(rest))
	}
}

func TestContentFilteredTopicReadDoesNotDrainCache(t *testing.T) {
	dr, dbp := newShapeReader(t)
	expr, err := cfilter.Parse("x > 50")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cft := cfilter.New(dr, expr, shapeExtractor)

	deliver(t, dr, dbp, 1, 75, 0)
	deliver(t, dr, dbp, 2, 10, 0)

	first := cft.Read(cache.ReadFilter{}, false)
	if len(first) != 1 {
		t.Fatalf("expected 1 matching sample, got %d", len(first))
	}
	second := cft.Read(cache.ReadFilter{}, false)
	if len(second) != 1 {
		t.Fatalf("expected Read to be repeatable (non-destructive), got %d", len(second))
	}
}
