package debugapi

import (
	"bufio"
	"context"
	"encoding/hex"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/tdds/tdds-core/internal/cache"
	"github.com/tdds/tdds-core/internal/discovery"
	"github.com/tdds/tdds-core/internal/log"
	"github.com/tdds/tdds-core/internal/rtps"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

type noopSender struct{}

func (noopSender) Send(rtps.Locator, []byte) error { return nil }

type noopMatcher struct{}

func (noopMatcher) Match(discovery.LocalEndpoint, discovery.EndpointData)   {}
func (noopMatcher) Unmatch(discovery.LocalEndpoint, discovery.EndpointData) {}

func TestShellDiscCommandListsPeers(t *testing.T) {
	local := discovery.ParticipantData{Prefix: guid.GuidPrefix{1}}
	eng := discovery.NewEngine(discovery.DefaultConfig(), local, noopSender{}, nil, noopMatcher{}, log.Discard())

	remote := discovery.ParticipantData{Prefix: guid.GuidPrefix{2}, LeaseDuration: time.Minute}
	eng.Peers.Upsert(remote, time.Now())

	shell := NewShell(eng, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	go shell.ListenAndServe(ctx, addr)

	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("disc\n"))
	conn.SetReadDeadline(time.Now().Add(time.Second))
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatalf("expected a response line, scan error: %v", scanner.Err())
	}
	line := scanner.Text()
	if line == "" {
		t.Fatal("expected non-empty disc output")
	}
}

func TestShellCacheCommandReportsRegisteredEndpoint(t *testing.T) {
	shell := NewShell(nil, nil, nil)

	hc := cache.New(qos.Default(), guid.Default)
	id := guid.EntityId{0x00, 0x00, 0x01, guid.KindUserWriterWithKey}
	shell.RegisterCache(id, hc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	go shell.ListenAndServe(ctx, addr)

	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("cache " + hex.EncodeToString(id[:]) + "\n"))
	conn.SetReadDeadline(time.Now().Add(time.Second))
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatalf("expected a response line, scan error: %v", scanner.Err())
	}
	if !strings.Contains(scanner.Text(), "changes=0") {
		t.Fatalf("expected an empty-cache report, got %q", scanner.Text())
	}
}
