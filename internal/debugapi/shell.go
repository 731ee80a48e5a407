// shell.go implements the loopback line-oriented debug shell
// (pool / disc / cache <ep> / proxy <ep> / trace <mask> / quit), a second
// transport for the same data the HTTP routes in debugapi.go expose.
package debugapi

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/tdds/tdds-core/internal/cache"
	"github.com/tdds/tdds-core/internal/diag"
	"github.com/tdds/tdds-core/internal/discovery"
	"github.com/tdds/tdds-core/internal/trace"
	"github.com/tdds/tdds-core/pkg/guid"
)

// Shell is the loopback TCP text protocol: one connection, one line per
// command, plain text responses, terminated by "quit".
type Shell struct {
	eng   *discovery.Engine
	diag  *diag.Registry
	trace *trace.Sink

	mu     sync.Mutex
	caches map[guid.EntityId]*cache.HistoryCache
}

func NewShell(eng *discovery.Engine, diagReg *diag.Registry, tr *trace.Sink) *Shell {
	return &Shell{
		eng: eng, diag: diagReg, trace: tr,
		caches: make(map[guid.EntityId]*cache.HistoryCache),
	}
}

// RegisterCache exposes one endpoint's history cache to the "cache <ep>"
// command; the entity layer calls this as endpoints are created.
func (s *Shell) RegisterCache(id guid.EntityId, hc *cache.HistoryCache) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caches[id] = hc
}

// UnregisterCache removes a deleted endpoint's cache from the shell.
func (s *Shell) UnregisterCache(id guid.EntityId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caches, id)
}

// ListenAndServe binds addr (intended to be loopback-only, e.g.
// "127.0.0.1:7402") and serves connections until ctx is cancelled.
func (s *Shell) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errListen(addr, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.serve(conn)
	}
}

func (s *Shell) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewScanner(conn)
	for r.Scan() {
		line := strings.TrimSpace(r.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "quit", "exit":
			return
		case "pool":
			s.cmdPool(conn)
		case "disc":
			s.cmdDisc(conn)
		case "cache":
			s.cmdCache(conn, fields)
		case "proxy":
			s.cmdProxy(conn, fields)
		case "trace":
			s.cmdTrace(conn, fields)
		default:
			fmt.Fprintf(conn, "unknown command %q\n", fields[0])
		}
	}
}

func (s *Shell) cmdPool(w io.Writer) {
	if s.diag == nil {
		fmt.Fprintln(w, "pool: diagnostics not enabled")
		return
	}
	mfs, err := s.diag.Gatherer().Gather()
	if err != nil {
		fmt.Fprintf(w, "pool: gather error: %v\n", err)
		return
	}
	for _, mf := range mfs {
		if !strings.Contains(mf.GetName(), "pool") {
			continue
		}
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(w, "%s %v\n", mf.GetName(), m)
		}
	}
}

func (s *Shell) cmdDisc(w io.Writer) {
	if s.eng == nil {
		fmt.Fprintln(w, "disc: discovery engine not available")
		return
	}
	s.eng.Peers.Range(func(prefix guid.GuidPrefix, p *discovery.DiscoveredParticipant) bool {
		fmt.Fprintf(w, "participant %s last_seen=%s endpoints=%d\n",
			prefix.String(), p.LastSeen.Format("15:04:05"), len(p.Endpoints()))
		return true
	})
}

func (s *Shell) cmdProxy(w io.Writer, fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(w, "usage: proxy <entity-id-hex>")
		return
	}
	raw, err := hex.DecodeString(fields[1])
	if err != nil || len(raw) != guid.EntityIdLen {
		fmt.Fprintf(w, "proxy: invalid entity id %q\n", fields[1])
		return
	}
	var id guid.EntityId
	copy(id[:], raw)

	for _, remote := range s.eng.Match.MatchedRemotes(id) {
		fmt.Fprintf(w, "matched %s\n", remote.String())
	}
}

func (s *Shell) cmdTrace(w io.Writer, fields []string) {
	if s.trace == nil {
		fmt.Fprintln(w, "trace: sink not enabled")
		return
	}
	kind := ""
	if len(fields) > 1 {
		kind = fields[1]
	}
	events, err := s.trace.Recent(kind, 50)
	if err != nil {
		fmt.Fprintf(w, "trace: %v\n", err)
		return
	}
	for _, e := range events {
		fmt.Fprintf(w, "%s %s\n", e.At.Format("15:04:05"), e.Kind)
	}
}

func (s *Shell) cmdCache(w io.Writer, fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(w, "usage: cache <entity-id-hex>")
		return
	}
	raw, err := hex.DecodeString(fields[1])
	if err != nil || len(raw) != guid.EntityIdLen {
		fmt.Fprintf(w, "cache: invalid entity id %q\n", fields[1])
		return
	}
	var id guid.EntityId
	copy(id[:], raw)

	s.mu.Lock()
	hc, ok := s.caches[id]
	s.mu.Unlock()
	if !ok {
		fmt.Fprintf(w, "cache: no endpoint registered for %s\n", fields[1])
		return
	}

	first, last := uint64(0), uint64(0)
	hc.WalkSeq(func(seq uint64) {
		if first == 0 {
			first = seq
		}
		last = seq
	})
	fmt.Fprintf(w, "cache %s changes=%d first=%d last=%d\n", fields[1], hc.Len(), first, last)
}
