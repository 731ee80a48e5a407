package transport

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"
)

func TestDefaultPortMappingStandardFormulas(t *testing.T) {
	m := DefaultPortMapping()
	if got := m.MetaMulticastPort(0); got != 7400 {
		t.Fatalf("expected domain 0 SPDP multicast port 7400, got %d", got)
	}
	if got := m.MetaUnicastPort(1, 2); got != 7400+250+10+4 {
		t.Fatalf("expected metatraffic unicast 7664, got %d", got)
	}
	if got := m.UserMulticastPort(3); got != 7400+750+1 {
		t.Fatalf("expected user multicast 8151, got %d", got)
	}
	if got := m.UserUnicastPort(0, 0); got != 7411 {
		t.Fatalf("expected user unicast 7411, got %d", got)
	}
}

func TestTCPSendReceiveFramed(t *testing.T) {
	received := make(chan []byte, 2)
	srv, err := NewTCP(func(_ net.Addr, payload []byte) {
		received <- payload
	}, TCPConfig{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewTCP server: %v", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Start(ctx) }()

	cli, err := NewTCP(nil, TCPConfig{})
	if err != nil {
		t.Fatalf("NewTCP client: %v", err)
	}
	defer cli.Close()

	want1 := []byte("RTPS frame one")
	want2 := []byte("RTPS frame two, reusing the dialed connection")
	if err := cli.Send(srv.Addr().String(), want1); err != nil {
		t.Fatalf("Send 1: %v", err)
	}
	if err := cli.Send(srv.Addr().String(), want2); err != nil {
		t.Fatalf("Send 2: %v", err)
	}

	for _, want := range [][]byte{want1, want2} {
		select {
		case got := <-received:
			if !bytes.Equal(got, want) {
				t.Fatalf("expected frame %q, got %q", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for framed message")
		}
	}
}
