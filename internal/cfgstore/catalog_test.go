package cfgstore

import "testing"

func TestCatalogDefaultsResolve(t *testing.T) {
	s := RegisterCatalog(New())
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, err := s.Number("purge_delay"); err != nil || got != 50 {
		t.Fatalf("expected purge_delay default 50, got %d (%v)", got, err)
	}
	if got := s.Mode("rtps_mode"); got != "enabled" {
		t.Fatalf("expected RTPS mode enabled, got %q", got)
	}
	if got := s.Mode("tcp_mode"); got != "disabled" {
		t.Fatalf("expected TCP mode disabled by default, got %q", got)
	}
	if got, err := s.Number("rtps_sl_retries"); err != nil || got != 4 {
		t.Fatalf("expected sl_retries default 4, got %d (%v)", got, err)
	}

	pb, dg, pg, d0, d1, d2, d3, err := s.PortNumbers(GroupUDP)
	if err != nil {
		t.Fatalf("PortNumbers: %v", err)
	}
	if pb != 7400 || dg != 250 || pg != 2 || d0 != 0 || d1 != 10 || d2 != 1 || d3 != 11 {
		t.Fatalf("unexpected UDP port constants %d/%d/%d/%d/%d/%d/%d", pb, dg, pg, d0, d1, d2, d3)
	}
}

func TestCatalogGroupQualifiedEnvOverride(t *testing.T) {
	s := RegisterCatalog(New())

	// The same bare name lives in several groups; each is overridden by its
	// own TDDS_<GROUP>_<NAME> variable only.
	t.Setenv("TDDS_UDP_PB", "8400")
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, _ := s.Number("udp_pb"); got != 8400 {
		t.Fatalf("expected UDP PB override 8400, got %d", got)
	}
	if got, _ := s.Number("tcp_pb"); got != 7400 {
		t.Fatalf("expected TCP PB untouched at 7400, got %d", got)
	}
}

func TestCatalogPoolConstraints(t *testing.T) {
	s := RegisterCatalog(New())
	t.Setenv("TDDS_POOL_CHANGES", "128-4096")
	t.Setenv("TDDS_POOL_GROWTH", "25")
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	c, err := s.PoolConstraints("changes")
	if err != nil {
		t.Fatalf("PoolConstraints: %v", err)
	}
	if c.Reserved != 128 || c.Extra != 4096 || c.Grow != 25 {
		t.Fatalf("unexpected constraints %+v", c)
	}
}
