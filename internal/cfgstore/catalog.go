package cfgstore

import (
	"strings"

	"github.com/tdds/tdds-core/internal/pool"
)

// poolClasses enumerates every pool the POOL group sizes, one parameter
// per class holding a "reserved-extra" range. pool_growth carries the
// retention percentage.
var poolClasses = []string{
	"domains", "subscribers", "publishers", "readers", "writers",
	"topics", "types", "reader_proxies", "writer_proxies",
	"remote_participants", "remote_readers", "remote_writers",
	"pool_data", "rx_buffers", "changes", "instances", "samples",
	"cache_transfers", "time_filters", "time_instances",
	"strings", "string_data", "locators", "qos", "lists", "list_nodes",
	"timers", "waitsets", "conditions", "notifications", "topic_waits",
	"guards", "dyn_types", "dyn_samples",
}

// RegisterCatalog installs the full recognized parameter set on s: the
// COMMON, POOL, RTPS, IP, IPV6, UDP and TCP groups with their documented
// defaults. Returns s for chaining.
func RegisterCatalog(s *Store) *Store {
	// COMMON.
	s.Register(Param{Name: "name", Kind: KindString, Default: ""}).
		Register(Param{Name: "environment", Kind: KindString, Default: ""}).
		Register(Param{Name: "purge_delay", Kind: KindNumber, Default: "50"}). // ms
		Register(Param{Name: "max_sample", Kind: KindNumber, Default: "65536"}).
		Register(Param{Name: "forward", Kind: KindNumber, Default: "0"}).
		Register(Param{Name: "log_dir", Kind: KindString, Default: ""})

	// POOL: one reserved-extra range per class plus the growth percentage.
	for _, class := range poolClasses {
		s.Register(Param{Name: class, Group: GroupPool, Kind: KindRange, Default: "16-1024"})
	}
	s.Register(Param{Name: "growth", Group: GroupPool, Kind: KindNumber, Default: "10"})

	// RTPS.
	s.Register(Param{Name: "mode", Group: GroupRTPS, Kind: KindMode, Default: "enabled"}).
		Register(Param{Name: "sl_retries", Group: GroupRTPS, Kind: KindNumber, Default: "4"}).
		Register(Param{Name: "resend_time", Group: GroupRTPS, Kind: KindNumber, Default: "30"}). // s
		Register(Param{Name: "hb_time", Group: GroupRTPS, Kind: KindNumber, Default: "100"}).    // ms
		Register(Param{Name: "nack_resp_time", Group: GroupRTPS, Kind: KindNumber, Default: "10"}).
		Register(Param{Name: "nack_supp_time", Group: GroupRTPS, Kind: KindNumber, Default: "50"}).
		Register(Param{Name: "lease_time", Group: GroupRTPS, Kind: KindNumber, Default: "90"}). // s
		Register(Param{Name: "hb_resp_time", Group: GroupRTPS, Kind: KindNumber, Default: "10"}).
		Register(Param{Name: "hb_supp_time", Group: GroupRTPS, Kind: KindNumber, Default: "50"}).
		Register(Param{Name: "msg_size", Group: GroupRTPS, Kind: KindNumber, Default: "1452"}).
		Register(Param{Name: "frag_size", Group: GroupRTPS, Kind: KindNumber, Default: "1344"}).
		Register(Param{Name: "frag_burst", Group: GroupRTPS, Kind: KindNumber, Default: "16"}).
		Register(Param{Name: "frag_delay", Group: GroupRTPS, Kind: KindNumber, Default: "0"})

	// IP and IPV6 carry the same shape; MCAST_TTL is the v4 spelling,
	// MCAST_HOPS the v6 one.
	for _, g := range []Group{GroupIP, GroupIPv6} {
		s.Register(Param{Name: "sockets", Group: g, Kind: KindNumber, Default: "16"}).
			Register(Param{Name: "mode", Group: g, Kind: KindMode, Default: "preferred"}).
			Register(Param{Name: "scope", Group: g, Kind: KindRange, Default: "1-16"}).
			Register(Param{Name: "intf", Group: g, Kind: KindString, Default: ""}).
			Register(Param{Name: "address", Group: g, Kind: KindString, Default: ""}).
			Register(Param{Name: "network", Group: g, Kind: KindString, Default: ""}).
			Register(Param{Name: "no_mcast", Group: g, Kind: KindNumber, Default: "0"}).
			Register(Param{Name: "mcast_dest", Group: g, Kind: KindString, Default: ""}).
			Register(Param{Name: "mcast_src", Group: g, Kind: KindString, Default: ""}).
			Register(Param{Name: "mcast_intf", Group: g, Kind: KindString, Default: ""})
	}
	s.Register(Param{Name: "mcast_ttl", Group: GroupIP, Kind: KindNumber, Default: "1"}).
		Register(Param{Name: "group", Group: GroupIP, Kind: KindString, Default: "239.255.0.1"}).
		Register(Param{Name: "mcast_hops", Group: GroupIPv6, Kind: KindNumber, Default: "1"}).
		Register(Param{Name: "group", Group: GroupIPv6, Kind: KindString, Default: "ff02::ffff:239.255.0.1"})

	// UDP and TCP share the port-derivation constants; TCP adds its
	// stream-endpoint parameters.
	for _, g := range []Group{GroupUDP, GroupTCP} {
		s.Register(Param{Name: "mode", Group: g, Kind: KindMode, Default: modeDefault(g)}).
			Register(Param{Name: "pb", Group: g, Kind: KindNumber, Default: "7400"}).
			Register(Param{Name: "dg", Group: g, Kind: KindNumber, Default: "250"}).
			Register(Param{Name: "pg", Group: g, Kind: KindNumber, Default: "2"}).
			Register(Param{Name: "d0", Group: g, Kind: KindNumber, Default: "0"}).
			Register(Param{Name: "d1", Group: g, Kind: KindNumber, Default: "10"}).
			Register(Param{Name: "d2", Group: g, Kind: KindNumber, Default: "1"}).
			Register(Param{Name: "d3", Group: g, Kind: KindNumber, Default: "11"})
	}
	s.Register(Param{Name: "port", Group: GroupTCP, Kind: KindNumber, Default: "7400"}).
		Register(Param{Name: "server", Group: GroupTCP, Kind: KindString, Default: ""}).
		Register(Param{Name: "public", Group: GroupTCP, Kind: KindString, Default: ""}).
		Register(Param{Name: "private", Group: GroupTCP, Kind: KindNumber, Default: "0"}).
		Register(Param{Name: "sec_port", Group: GroupTCP, Kind: KindNumber, Default: "0"}).
		Register(Param{Name: "sec_server", Group: GroupTCP, Kind: KindString, Default: ""})

	return s
}

func modeDefault(g Group) string {
	if g == GroupTCP {
		return "disabled"
	}
	return "enabled"
}

// PoolConstraints resolves one POOL class parameter plus pool_growth into
// the Constraints record internal/pool consumes.
func (s *Store) PoolConstraints(class string) (pool.Constraints, error) {
	reserved, extra, err := s.Range("pool_" + strings.ToLower(class))
	if err != nil {
		return pool.Constraints{}, err
	}
	grow, err := s.Number("pool_growth")
	if err != nil {
		return pool.Constraints{}, err
	}
	return pool.Constraints{
		Reserved: uint32(reserved),
		Extra:    uint32(extra),
		Grow:     uint32(grow),
	}, nil
}

// PortNumbers resolves one transport group's PB/DG/PG/D0..D3 parameters,
// the inputs to the standard RTPS port formulas (RTPS §9.6.1.1).
func (s *Store) PortNumbers(g Group) (pb, dg, pg, d0, d1, d2, d3 uint64, err error) {
	prefix := strings.ToLower(string(g)) + "_"
	read := func(name string) uint64 {
		if err != nil {
			return 0
		}
		var v uint64
		v, err = s.Number(prefix + name)
		return v
	}
	pb, dg, pg = read("pb"), read("dg"), read("pg")
	d0, d1, d2, d3 = read("d0"), read("d1"), read("d2"), read("d3")
	return
}
