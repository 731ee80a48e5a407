package cfgstore

import "testing"

func TestEnvName(t *testing.T) {
	cases := []struct {
		p    Param
		want string
	}{
		{Param{Name: "trace", Group: GroupCommon}, "TDDS_TRACE"},
		{Param{Name: "max_rx_buf", Group: GroupPool}, "TDDS_POOL_MAX_RX_BUF"},
		{Param{Name: "hb_time", Group: GroupRTPS}, "TDDS_RTPS_HB_TIME"},
	}
	for _, tc := range cases {
		if got := tc.p.EnvName(); got != tc.want {
			t.Errorf("EnvName() = %q, want %q", got, tc.want)
		}
	}
}

func TestLoadDefaultThenEnvOverride(t *testing.T) {
	s := New()
	s.Register(Param{Name: "sample_param", Group: GroupCommon, Kind: KindString, Default: "fallback"})

	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.String("sample_param"); got != "fallback" {
		t.Fatalf("expected default value, got %q", got)
	}

	t.Setenv("TDDS_SAMPLE_PARAM", "overridden")
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.String("sample_param"); got != "overridden" {
		t.Fatalf("expected env override, got %q", got)
	}
}

func TestNotifyFiresOnChange(t *testing.T) {
	s := New()
	s.Register(Param{Name: "watched", Group: GroupCommon, Kind: KindString, Default: "a"})
	fired := 0
	s.Notify("watched", func(name string, st *Store) { fired++ })

	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected notify on first resolution, got %d", fired)
	}

	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected no notify when value is unchanged, got %d", fired)
	}

	t.Setenv("TDDS_WATCHED", "b")
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fired != 2 {
		t.Fatalf("expected notify after value changed, got %d", fired)
	}
}

func TestRangeParsing(t *testing.T) {
	s := New()
	s.Register(Param{Name: "window", Group: GroupRTPS, Kind: KindRange, Default: "1-16"})
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	min, max, err := s.Range("rtps_window")
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if min != 1 || max != 16 {
		t.Fatalf("expected (1, 16), got (%d, %d)", min, max)
	}
}
