package trace

import (
	"path/filepath"
	"testing"
)

type peerLostPayload struct {
	Prefix string
}

func TestSinkRecordAndRecentRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "trace.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Record("participant_lost", peerLostPayload{Prefix: "abcd"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record("endpoint_matched", peerLostPayload{Prefix: "ef01"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	events, err := s.Recent("participant_lost", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 matching event, got %d", len(events))
	}

	var decoded peerLostPayload
	if err := Decode(events[0], &decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Prefix != "abcd" {
		t.Fatalf("expected decoded prefix abcd, got %q", decoded.Prefix)
	}
}

func TestNilSinkRecordIsNoop(t *testing.T) {
	var s *Sink
	if err := s.Record("x", nil); err != nil {
		t.Fatalf("expected nil Sink Record to be a no-op, got %v", err)
	}
}
