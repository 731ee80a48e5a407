package pool

import "testing"

func TestPoolReservedThenOverflow(t *testing.T) {
	p := New[int](Constraints{Reserved: 2, Extra: 2, Grow: 50}, func() int { return 0 })

	a := p.Alloc()
	b := p.Alloc()
	if a == nil || b == nil {
		t.Fatal("expected two reserved allocations to succeed")
	}
	c := p.Alloc()
	if c == nil {
		t.Fatal("expected dynamic allocation within Extra to succeed")
	}
	d := p.Alloc()
	if d == nil {
		t.Fatal("expected second dynamic allocation within Extra to succeed")
	}
	if e := p.Alloc(); e != nil {
		t.Fatal("expected allocation beyond Reserved+Extra to be denied")
	}
	st := p.Stats()
	if st.Denied != 1 {
		t.Fatalf("expected 1 denied allocation, got %d", st.Denied)
	}
	if st.InUse != 4 {
		t.Fatalf("expected 4 in-use, got %d", st.InUse)
	}
}

func TestConstraintsGrowAmount(t *testing.T) {
	cases := []struct {
		name string
		c    Constraints
		want uint32
	}{
		{"grow>=100 keeps all extra", Constraints{Extra: 40, Grow: 100}, 40},
		{"grow 50% of extra", Constraints{Extra: 40, Grow: 50}, 20},
		{"grow 0% retains nothing", Constraints{Extra: 40, Grow: 0}, 0},
		{"unlimited extra with nonzero grow keeps all", Constraints{Extra: Unlimited, Grow: 1}, Unlimited},
	}
	for _, tc := range cases {
		if got := tc.c.GrowAmount(); got != tc.want {
			t.Errorf("%s: GrowAmount() = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestPoolFreeRetainsOverflowUpToGrow(t *testing.T) {
	p := New[int](Constraints{Reserved: 0, Extra: 10, Grow: 50}, nil)

	var allocs []*int
	for i := 0; i < 4; i++ {
		allocs = append(allocs, p.Alloc())
	}
	for _, a := range allocs {
		p.Free(a)
	}
	st := p.Stats()
	if st.Retained != 4 {
		t.Fatalf("expected all 4 returned buffers retained (grow=%d%% of extra=10 allows 5), got %d", 50, st.Retained)
	}
}

func TestSequenceMonotonic(t *testing.T) {
	s := NewSequence(0)
	prev := s.Current()
	for i := 0; i < 100; i++ {
		n := s.Next()
		if n <= prev {
			t.Fatalf("sequence not monotonic: %d after %d", n, prev)
		}
		prev = n
	}
}
