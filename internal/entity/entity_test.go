package entity

import "testing"

func TestArenaAllocGetFreeRoundTrip(t *testing.T) {
	a := NewArena[string]()
	h := a.Alloc("first")

	got, ok := a.Get(h)
	if !ok || got != "first" {
		t.Fatalf("expected (first, true), got (%q, %v)", got, ok)
	}

	if !a.Free(h) {
		t.Fatal("expected Free to succeed on a live handle")
	}
	if _, ok := a.Get(h); ok {
		t.Fatal("expected Get to fail on a freed handle")
	}
}

func TestArenaFreedSlotGenerationPreventsAliasing(t *testing.T) {
	a := NewArena[int]()
	h1 := a.Alloc(1)
	a.Free(h1)
	h2 := a.Alloc(2)

	if h1 == h2 {
		t.Fatal("expected reused slot to carry a bumped generation")
	}
	if _, ok := a.Get(h1); ok {
		t.Fatal("expected stale handle from before reuse to stay invalid")
	}
	got, ok := a.Get(h2)
	if !ok || got != 2 {
		t.Fatalf("expected (2, true) for the fresh handle, got (%d, %v)", got, ok)
	}
}

func TestArenaRangeVisitsOnlyOccupiedSlots(t *testing.T) {
	a := NewArena[int]()
	h1 := a.Alloc(10)
	h2 := a.Alloc(20)
	a.Free(h1)

	seen := map[Handle]int{}
	a.Range(func(h Handle, v int) bool {
		seen[h] = v
		return true
	})

	if len(seen) != 1 {
		t.Fatalf("expected exactly 1 occupied slot, got %d", len(seen))
	}
	if v, ok := seen[h2]; !ok || v != 20 {
		t.Fatalf("expected surviving handle to map to 20, got %d (ok=%v)", v, ok)
	}
}

func TestArenaLenTracksOccupancy(t *testing.T) {
	a := NewArena[int]()
	if a.Len() != 0 {
		t.Fatalf("expected empty arena len 0, got %d", a.Len())
	}
	h := a.Alloc(1)
	_ = a.Alloc(2)
	if a.Len() != 2 {
		t.Fatalf("expected len 2 after two allocs, got %d", a.Len())
	}
	a.Free(h)
	if a.Len() != 1 {
		t.Fatalf("expected len 1 after one free, got %d", a.Len())
	}
}
