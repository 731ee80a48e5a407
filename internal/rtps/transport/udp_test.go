package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/tdds/tdds-core/internal/rtps"
)

func TestLocatorUDPAddrRoundTripV4(t *testing.T) {
	addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 5), Port: 7400}
	loc := UDPAddrToLocator(addr)
	if loc.Kind != rtps.LocatorUDPv4 {
		t.Fatalf("expected LocatorUDPv4, got %v", loc.Kind)
	}
	back := LocatorToUDPAddr(loc)
	if back == nil || !back.IP.Equal(addr.IP) || back.Port != addr.Port {
		t.Fatalf("round-trip mismatch: got %+v", back)
	}
}

func TestUDPSendReceiveLoopback(t *testing.T) {
	received := make(chan string, 1)
	srv, err := New(func(src net.Addr, payload []byte) {
		received <- string(payload)
	}, Config{BindAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Start(ctx)

	localAddr := srv.LocalAddr().(*net.UDPAddr)
	client, err := New(nil, Config{BindAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New client: %v", err)
	}
	defer client.Close()

	if err := client.SendTo(localAddr, []byte("ping")); err != nil {
		t.Fatalf("SendTo: %v", err)
	}

	select {
	case msg := <-received:
		if msg != "ping" {
			t.Fatalf("expected ping, got %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for loopback datagram")
	}
}
