package cdr

import (
	"testing"

	"github.com/tdds/tdds-core/internal/status"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	w := NewWriter(LittleEndian)
	w.Bool(true)
	w.Octet(0x42)
	w.Short(-7)
	w.ULong(0xDEADBEEF)
	w.LongLong(-123456789012345)
	w.Float(3.5)
	w.Double(2.71828)
	w.String("hello")

	r := NewReader(LittleEndian, w.Bytes())
	if v, err := r.Bool(); err != nil || v != true {
		t.Fatalf("Bool: %v %v", v, err)
	}
	if v, err := r.Octet(); err != nil || v != 0x42 {
		t.Fatalf("Octet: %v %v", v, err)
	}
	if v, err := r.Short(); err != nil || v != -7 {
		t.Fatalf("Short: %v %v", v, err)
	}
	if v, err := r.ULong(); err != nil || v != 0xDEADBEEF {
		t.Fatalf("ULong: %v %v", v, err)
	}
	if v, err := r.LongLong(); err != nil || v != -123456789012345 {
		t.Fatalf("LongLong: %v %v", v, err)
	}
	if v, err := r.Float(); err != nil || v != 3.5 {
		t.Fatalf("Float: %v %v", v, err)
	}
	if v, err := r.Double(); err != nil || v != 2.71828 {
		t.Fatalf("Double: %v %v", v, err)
	}
	if v, err := r.String(); err != nil || v != "hello" {
		t.Fatalf("String: %v %v", v, err)
	}
}

func TestAlignment(t *testing.T) {
	w := NewWriter(LittleEndian)
	w.Octet(1)
	w.ULong(2) // must be padded to offset 4
	if len(w.Bytes()) != 8 {
		t.Fatalf("expected 8 bytes (1 + 3 pad + 4), got %d", len(w.Bytes()))
	}

	w2 := NewWriter(LittleEndian)
	w2.Octet(1)
	w2.ULongLong(2) // must be padded to offset 8
	if len(w2.Bytes()) != 16 {
		t.Fatalf("expected 16 bytes (1 + 7 pad + 8), got %d", len(w2.Bytes()))
	}
}

func TestParamListRoundTrip(t *testing.T) {
	w := NewWriter(LittleEndian)
	w.WriteParamList([]Param{
		{ID: 0x0050, Value: []byte("topic-name")},
		{ID: 0x0005, Value: []byte{1, 2, 3}},
	})

	r := NewReader(LittleEndian, w.Bytes())
	params, err := r.ReadParamList()
	if err != nil {
		t.Fatalf("ReadParamList: %v", err)
	}
	if len(params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(params))
	}
	p, ok := Find(params, 0x0050)
	if !ok || string(p.Value) != "topic-name" {
		t.Fatalf("expected to find topic-name param, got %v ok=%v", p, ok)
	}
}

func TestReaderErrorsOnShortBuffer(t *testing.T) {
	r := NewReader(LittleEndian, []byte{1, 2})
	if _, err := r.ULongLong(); status.Of(err) != status.ERROR {
		t.Fatalf("expected ErrBufferTooShort, got %v", err)
	}
}
