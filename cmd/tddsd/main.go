// Command tddsd is the standalone daemon entry point: it loads
// configuration, binds the RTPS UDP transport, starts the discovery engine
// and the loopback debug API, and blocks until signalled, grounded on the
// familiar cobra root command plus viper flag-binding shape
// (RegisterFlag(*cobra.Command, *viper.Viper)).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tdds/tdds-core/internal/cfgstore"
	"github.com/tdds/tdds-core/internal/debugapi"
	"github.com/tdds/tdds-core/internal/diag"
	"github.com/tdds/tdds-core/internal/discovery"
	"github.com/tdds/tdds-core/internal/dynip"
	"github.com/tdds/tdds-core/internal/log"
	"github.com/tdds/tdds-core/internal/rtps"
	"github.com/tdds/tdds-core/internal/rtps/transport"
	"github.com/tdds/tdds-core/internal/trace"
	"github.com/tdds/tdds-core/pkg/guid"
)

type flags struct {
	domainID    uint32
	bindAddr    string
	spdpGroup   string
	logLevel    string
	debugAddr   string
	shellAddr   string
	tracePath   string
}

func main() {
	f := &flags{}
	v := viper.New()

	root := &cobra.Command{
		Use:   "tddsd",
		Short: "RTPS discovery and data-plane daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	root.Flags().Uint32Var(&f.domainID, "domain", 0, "DDS domain id")
	root.Flags().StringVar(&f.bindAddr, "bind", "0.0.0.0:7400", "UDP metatraffic bind address")
	root.Flags().StringVar(&f.spdpGroup, "spdp-group", "", "SPDP multicast group (host[:port]; default derives from the domain id and the UDP port formulas)")
	root.Flags().StringVar(&f.logLevel, "log-level", "info", "log level (panic,fatal,error,warn,info,debug,trace)")
	root.Flags().StringVar(&f.debugAddr, "debug-addr", "127.0.0.1:8989", "loopback debug API bind address")
	root.Flags().StringVar(&f.shellAddr, "shell-addr", "127.0.0.1:7402", "loopback debug shell (pool/disc/proxy/trace) bind address")
	root.Flags().StringVar(&f.tracePath, "trace-db", "", "optional SQLite path for the diagnostic trace sink")

	_ = v.BindPFlags(root.Flags())
	v.SetEnvPrefix("TDDS")
	v.AutomaticEnv()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(parentCtx context.Context, f *flags) error {
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := log.New(f.logLevel)

	cfg := cfgstore.RegisterCatalog(cfgstore.New()).
		Register(cfgstore.Param{Name: "log_level", Kind: cfgstore.KindString, Default: f.logLevel})
	cfg.Notify("log_level", func(name string, s *cfgstore.Store) {
		logger = log.New(s.String(name))
	})
	if err := cfg.Load(); err != nil {
		return errLoadConfig(err)
	}
	defer cfg.Close()

	discCfg := discovery.DefaultConfig()
	if resend, err := cfg.Number("rtps_resend_time"); err == nil {
		discCfg.ResendPeriod = time.Duration(resend) * time.Second
	}
	if lease, err := cfg.Number("rtps_lease_time"); err == nil {
		discCfg.LeaseDuration = time.Duration(lease) * time.Second
	}

	ports := transport.DefaultPortMapping()
	if pb, dg, pg, d0, d1, d2, d3, err := cfg.PortNumbers(cfgstore.GroupUDP); err == nil {
		ports = transport.PortMapping{
			PB: int(pb), DG: int(dg), PG: int(pg),
			D0: int(d0), D1: int(d1), D2: int(d2), D3: int(d3),
		}
	}
	spdpGroup := f.spdpGroup
	if spdpGroup == "" {
		spdpGroup = cfg.String("ip_group")
	}
	if _, _, err := net.SplitHostPort(spdpGroup); err != nil {
		spdpGroup = net.JoinHostPort(spdpGroup, strconv.Itoa(ports.MetaMulticastPort(int(f.domainID))))
	}

	var tr *trace.Sink
	if f.tracePath != "" {
		var err error
		tr, err = trace.Open(f.tracePath)
		if err != nil {
			return errOpenTraceDB(err)
		}
		defer tr.Close()
	}

	diagReg := diag.New()

	local := guid.NewPrefix(guid.Default)
	participantGuid := guid.New(local, guid.EntityIdParticipant)
	logger = logger.WithGuid(participantGuid)

	var tp *transport.UDP
	var engine *discovery.Engine
	recvHandler := func(src net.Addr, payload []byte) {
		if engine != nil {
			engine.HandleSPDP(payload)
		}
	}

	var err error
	tp, err = transport.New(recvHandler, transport.Config{
		BindAddr:  f.bindAddr,
		Multicast: spdpGroup,
	})
	if err != nil {
		return errBindTransport(err)
	}
	defer tp.Close()

	localUnicast := transport.UDPAddrToLocator(tp.LocalAddr().(*net.UDPAddr))
	groupAddr, err := net.ResolveUDPAddr("udp", spdpGroup)
	if err != nil {
		return errResolveSPDPGroup(err)
	}
	multicastLocator := transport.UDPAddrToLocator(groupAddr)

	data := discovery.ParticipantData{
		Prefix:                     local,
		ProtocolVersion:            guid.ProtocolVersion2_3,
		VendorId:                   guid.VendorIdThis,
		DefaultUnicastLocators:     []rtps.Locator{localUnicast},
		MetatrafficUnicastLocators: []rtps.Locator{localUnicast},
		MetatrafficMulticastLocators: []rtps.Locator{multicastLocator},
		AvailableBuiltinEndpoints:   discovery.DefaultBuiltinEndpoints,
	}

	matcher := &tracingMatcher{diag: diagReg, trace: tr}
	engine = discovery.NewEngine(discCfg, data, tp, []rtps.Locator{multicastLocator}, matcher, logger)
	engine.OnParticipantLost(func(prefix guid.GuidPrefix) {
		_ = tr.Record("participant_lost", map[string]string{"prefix": prefix.String()})
	})

	monitor := dynip.NewMonitor(dynip.NewPollingNotifier(30*time.Second), dynip.DefaultFilter, func(ifaces []net.Interface) {
		logger.With("interfaces", len(ifaces)).Info("tddsd: multicast-capable interface set refreshed")
	})

	dbg := debugapi.New(engine, diagReg, tr)

	go func() { _ = tp.Start(ctx) }()
	go engine.Start(ctx)
	go func() { _ = monitor.Run(ctx) }()
	go func() {
		srv := &httpServer{addr: f.debugAddr, handler: dbg.Handler()}
		if err := srv.run(ctx); err != nil {
			logger.With("error", err.Error()).Warn("tddsd: debug API stopped")
		}
	}()
	go func() {
		shell := debugapi.NewShell(engine, diagReg, tr)
		if err := shell.ListenAndServe(ctx, f.shellAddr); err != nil {
			logger.With("error", err.Error()).Warn("tddsd: debug shell stopped")
		}
	}()

	logger.Info("tddsd: started")
	<-ctx.Done()
	engine.Stop()
	logger.Info("tddsd: shutting down")
	return nil
}

// tracingMatcher adapts discovery.Matcher decisions into diag counters and
// optional trace events, the glue between the discovery engine and the
// ambient observability stack.
type tracingMatcher struct {
	diag    *diag.Registry
	trace   *trace.Sink
	matched atomic.Int64
}

func (m *tracingMatcher) Match(local discovery.LocalEndpoint, remote discovery.EndpointData) {
	m.diag.SetMatchedEndpoints(int(m.matched.Add(1)))
	_ = m.trace.Record("endpoint_matched", map[string]string{
		"local_topic": local.TopicName, "remote_guid": remote.Guid.String(),
	})
}

func (m *tracingMatcher) Unmatch(local discovery.LocalEndpoint, remote discovery.EndpointData) {
	m.diag.SetMatchedEndpoints(int(m.matched.Add(-1)))
	_ = m.trace.Record("endpoint_unmatched", map[string]string{
		"local_topic": local.TopicName, "remote_guid": remote.Guid.String(),
	})
}
