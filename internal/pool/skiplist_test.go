package pool

import "testing"

type cyclicSource struct {
	words []uint32
	i     int
}

func (c *cyclicSource) Uint32() uint32 {
	w := c.words[c.i%len(c.words)]
	c.i++
	return w
}

func intCmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func TestSkiplistInsertGetDelete(t *testing.T) {
	src := &cyclicSource{words: []uint32{1, 1, 1, 1}}
	sl := NewSkiplist[int, string](intCmp, src, nil)

	for _, k := range []int{5, 1, 3, 4, 2} {
		if !sl.Insert(k, "v") {
			t.Fatalf("expected fresh insert for key %d to allocate a node", k)
		}
	}
	if sl.Len() != 5 {
		t.Fatalf("expected length 5, got %d", sl.Len())
	}

	var order []int
	sl.Range(func(k int, _ string) bool { order = append(order, k); return true })
	want := []int{1, 2, 3, 4, 5}
	if len(order) != len(want) {
		t.Fatalf("order length mismatch: %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected ascending order %v, got %v", want, order)
		}
	}

	if v, ok := sl.Get(3); !ok || v != "v" {
		t.Fatalf("expected to find key 3")
	}
	if !sl.Delete(3) {
		t.Fatal("expected delete of present key to succeed")
	}
	if _, ok := sl.Get(3); ok {
		t.Fatal("expected key 3 to be gone after delete")
	}
	if sl.Len() != 4 {
		t.Fatalf("expected length 4 after delete, got %d", sl.Len())
	}
}

func TestSkiplistInsertUpdatesInPlace(t *testing.T) {
	src := &cyclicSource{words: []uint32{1}}
	sl := NewSkiplist[int, string](intCmp, src, nil)
	sl.Insert(1, "a")
	if sl.Insert(1, "b") {
		t.Fatal("expected second insert of the same key to update, not allocate")
	}
	if v, _ := sl.Get(1); v != "b" {
		t.Fatalf("expected updated value \"b\", got %q", v)
	}
	if sl.Len() != 1 {
		t.Fatalf("expected length 1, got %d", sl.Len())
	}
}

func TestRandomLevelAllZerosClampsToMax(t *testing.T) {
	src := &cyclicSource{words: []uint32{0, 0, 0, 0, 0, 0, 0, 0, 0}}
	if lvl := randomLevel(src); lvl != MaxLevels-1 {
		t.Fatalf("expected clamp to %d, got %d", MaxLevels-1, lvl)
	}
}
