// Package transport implements the UDP unicast/multicast send-receive path
// RTPS runs over, in the
// handler-callback style the core's socket layer uses throughout.
package transport

import (
	"context"
	"net"
	"sync"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/tdds/tdds-core/internal/rtps"
)

// Handler receives one datagram's payload and the address it arrived from.
// It must not block indefinitely: it runs on the transport's receive
// goroutine (UDP's single receive loop, or TCP's goroutine for the
// connection the frame arrived on), the same core-thread-only rule listener
// callbacks follow.
type Handler func(src net.Addr, payload []byte)

// Config names the addresses one UDP endpoint binds and, optionally, the
// multicast group(s) it joins — grounped in the SPDP/SEDP metatraffic and
// default-unicast locator pair RTPS §8.5/§6 describes.
type Config struct {
	// BindAddr is the local unicast address ("0.0.0.0:7400" or "[::]:7400").
	BindAddr string
	// Multicast, if set, is joined on every multicast-capable interface
	// (or just Interface, if given).
	Multicast string
	Interface *net.Interface
	// RecvBufferBytes sizes the read buffer; zero uses a default sized to
	// the largest practical RTPS message (64KiB).
	RecvBufferBytes int
}

// UDP is one bound endpoint: a unicast socket optionally also carrying
// multicast group membership, matching the single-socket-does-both pattern
// RTPS implementations use for metatraffic (SPDP) and user multicast.
type UDP struct {
	conn    *net.UDPConn
	pconn4  *ipv4.PacketConn
	pconn6  *ipv6.PacketConn
	handler Handler
	bufSize int

	mu     sync.Mutex
	closed bool
}

// New binds cfg.BindAddr, optionally joins cfg.Multicast, and returns a
// UDP endpoint ready for Start. handler is invoked once per received
// datagram once Start is called.
func New(handler Handler, cfg Config) (*UDP, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.BindAddr)
	if err != nil {
		return nil, errResolveBindAddr(err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errListen(err)
	}

	u := &UDP{conn: conn, handler: handler, bufSize: cfg.RecvBufferBytes}
	if u.bufSize == 0 {
		u.bufSize = 64 * 1024
	}

	if cfg.Multicast != "" {
		if err := u.joinMulticast(cfg.Multicast, cfg.Interface); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return u, nil
}

func (u *UDP) joinMulticast(group string, iface *net.Interface) error {
	gaddr, err := net.ResolveUDPAddr("udp", group)
	if err != nil {
		return errResolveGroup(err)
	}
	if gaddr.IP.To4() != nil {
		p := ipv4.NewPacketConn(u.conn)
		if err := p.JoinGroup(iface, &net.UDPAddr{IP: gaddr.IP}); err != nil {
			return errJoinGroup(err)
		}
		_ = p.SetMulticastLoopback(true)
		u.pconn4 = p
		return nil
	}
	p := ipv6.NewPacketConn(u.conn)
	if err := p.JoinGroup(iface, &net.UDPAddr{IP: gaddr.IP}); err != nil {
		return errJoinGroup(err)
	}
	_ = p.SetMulticastLoopback(true)
	u.pconn6 = p
	return nil
}

// Start runs the receive loop until ctx is cancelled or Close is called.
// Matches the context-driven shutdown pattern the core's other background
// loops use (dispatcher, config watch).
func (u *UDP) Start(ctx context.Context) error {
	buf := make([]byte, u.bufSize)
	go func() {
		<-ctx.Done()
		u.Close()
	}()
	for {
		n, src, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			u.mu.Lock()
			closed := u.closed
			u.mu.Unlock()
			if closed {
				return nil
			}
			return errRead(err)
		}
		if u.handler != nil && n > 0 {
			payload := make([]byte, n)
			copy(payload, buf[:n])
			u.handler(src, payload)
		}
	}
}

// Send writes payload to dst, resolving an RTPS Locator into a net.UDPAddr.
func (u *UDP) Send(dst rtps.Locator, payload []byte) error {
	addr := LocatorToUDPAddr(dst)
	if addr == nil {
		return errInvalidLocator(int(dst.Kind))
	}
	_, err := u.conn.WriteToUDP(payload, addr)
	return err
}

// SendTo writes payload directly to a resolved address, the path used for
// unicast replies to a peer discovered from an incoming datagram's source.
func (u *UDP) SendTo(dst *net.UDPAddr, payload []byte) error {
	_, err := u.conn.WriteToUDP(payload, dst)
	return err
}

func (u *UDP) LocalAddr() net.Addr { return u.conn.LocalAddr() }

func (u *UDP) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true
	return u.conn.Close()
}

// LocatorToUDPAddr converts an RTPS Locator into a net.UDPAddr, or nil if
// its Kind isn't a UDP locator.
func LocatorToUDPAddr(l rtps.Locator) *net.UDPAddr {
	switch l.Kind {
	case rtps.LocatorUDPv4:
		ip := net.IPv4(l.Addr[12], l.Addr[13], l.Addr[14], l.Addr[15])
		return &net.UDPAddr{IP: ip, Port: int(l.Port)}
	case rtps.LocatorUDPv6:
		ip := make(net.IP, 16)
		copy(ip, l.Addr[:])
		return &net.UDPAddr{IP: ip, Port: int(l.Port)}
	default:
		return nil
	}
}

// UDPAddrToLocator converts a resolved net.UDPAddr into the RTPS Locator
// wire form SPDP/SEDP advertise.
func UDPAddrToLocator(a *net.UDPAddr) rtps.Locator {
	var loc rtps.Locator
	loc.Port = uint32(a.Port)
	if v4 := a.IP.To4(); v4 != nil {
		loc.Kind = rtps.LocatorUDPv4
		copy(loc.Addr[12:], v4)
	} else {
		loc.Kind = rtps.LocatorUDPv6
		copy(loc.Addr[:], a.IP.To16())
	}
	return loc
}
