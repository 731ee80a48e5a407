package pool

import (
	"bytes"
	"testing"
)

func smallPool() *DataBufferPool {
	return NewDataBufferPool(map[int]Constraints{
		16: {Reserved: 4, Extra: 4, Grow: 100},
	})
}

func TestDataBufferLinearRoundTrip(t *testing.T) {
	p := smallPool()
	payload := []byte("hello world")
	head := p.Alloc(len(payload), true)
	if head == nil {
		t.Fatal("expected allocation to succeed")
	}
	PutData(head, 0, payload)

	got := make([]byte, len(payload))
	GetData(head, 0, got)
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %q want %q", got, payload)
	}
	p.Release(head)
}

func TestDataBufferChainSpansLinks(t *testing.T) {
	p := smallPool()
	payload := bytes.Repeat([]byte("x"), 40)
	head := p.Alloc(len(payload), false)
	if head.Len() < len(payload) {
		t.Fatalf("expected chain capacity >= %d, got %d", len(payload), head.Len())
	}
	PutData(head, 0, payload)
	got := make([]byte, len(payload))
	GetData(head, 0, got)
	if !bytes.Equal(got, payload) {
		t.Fatalf("chained round trip mismatch: got %q want %q", got, payload)
	}
	p.Release(head)
}

func TestDataBufferRefcountRelease(t *testing.T) {
	p := smallPool()
	head := p.Alloc(8, true)
	p.Retain(head)
	p.Release(head)
	st := p.tiers[0].pool.Stats()
	if st.InUse != 1 {
		t.Fatalf("expected buffer still in use after one of two releases, got InUse=%d", st.InUse)
	}
	p.Release(head)
	st = p.tiers[0].pool.Stats()
	if st.InUse != 0 {
		t.Fatalf("expected buffer released after refcount reached zero, got InUse=%d", st.InUse)
	}
}
