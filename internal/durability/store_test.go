package durability

import "testing"

func TestStorePutAndReplayOrdersBySequence(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	inst := []byte("instance-1")
	for seq := uint64(1); seq <= 3; seq++ {
		if err := s.Put("Temperature", Record{InstanceKey: inst, SeqNum: seq, Payload: []byte{byte(seq)}}); err != nil {
			t.Fatalf("Put seq %d: %v", seq, err)
		}
	}

	var seen []uint64
	if err := s.Replay("Temperature", func(rec Record) bool {
		seen = append(seen, rec.SeqNum)
		return true
	}); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Fatalf("expected sequence [1 2 3] in order, got %v", seen)
	}
}

func TestStorePurgeRemovesInstance(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	a, b := []byte("a"), []byte("b")
	_ = s.Put("T", Record{InstanceKey: a, SeqNum: 1, Payload: []byte{1}})
	_ = s.Put("T", Record{InstanceKey: b, SeqNum: 1, Payload: []byte{2}})

	if err := s.Purge("T", a); err != nil {
		t.Fatalf("Purge: %v", err)
	}

	var remaining []string
	_ = s.Replay("T", func(rec Record) bool {
		remaining = append(remaining, string(rec.InstanceKey))
		return true
	})
	if len(remaining) != 1 || remaining[0] != "b" {
		t.Fatalf("expected only instance b to remain, got %v", remaining)
	}
}
