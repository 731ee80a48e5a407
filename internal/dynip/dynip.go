// Package dynip implements the dynamic-IP layer: a monitor that polls an
// interface-change notifier and
// recomputes the set of multicast-capable locators fed down to
// internal/rtps/transport, grounded on
// a portable interface/address polling loop (no netlink dependency).
package dynip

import (
	"context"
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

// Notifier abstracts the host's interface-change signal: something that
// signals when the host's network interface/address set has changed. The
// core never talks to netlink/SCDynamicStore itself; a platform-specific
// notifier is injected, with PollingNotifier as the portable fallback.
type Notifier interface {
	Changed() <-chan struct{}
}

// PollingNotifier is the default Notifier: it samples net.Interfaces()
// every interval and emits a signal on Changed() whenever the observed set
// of up, non-loopback interface names+addresses differs from the prior
// sample — the portable strategy used where no native netlink or route
// socket integration is available.
type PollingNotifier struct {
	interval time.Duration
	ch       chan struct{}

	mu   sync.Mutex
	last string
}

func NewPollingNotifier(interval time.Duration) *PollingNotifier {
	return &PollingNotifier{interval: interval, ch: make(chan struct{}, 1)}
}

func (p *PollingNotifier) Changed() <-chan struct{} { return p.ch }

// Run samples the interface set every interval until ctx is cancelled.
func (p *PollingNotifier) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sample()
		}
	}
}

func (p *PollingNotifier) sample() {
	fp, err := fingerprint()
	if err != nil {
		return
	}
	p.mu.Lock()
	changed := fp != p.last
	p.last = fp
	p.mu.Unlock()
	if changed {
		select {
		case p.ch <- struct{}{}:
		default: // a pending signal already covers this change.
		}
	}
}

// fingerprint builds a deterministic string summarizing every up,
// non-loopback interface's name and bound addresses, so two samples can be
// compared without diffing interface lists structurally.
func fingerprint() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	var parts []string
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}
		var addrStrs []string
		for _, a := range addrs {
			addrStrs = append(addrStrs, a.String())
		}
		sort.Strings(addrStrs)
		parts = append(parts, ifc.Name+"="+strings.Join(addrStrs, ","))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";"), nil
}

// Filter decides whether an interface is eligible for RTPS multicast
// traffic (the IP_INTF/MCAST parameters narrow this further at the
// config layer; Filter is the structural floor: up, multicast-capable,
// not loopback).
type Filter func(net.Interface) bool

// DefaultFilter accepts any up, non-loopback interface advertising
// multicast support.
func DefaultFilter(ifc net.Interface) bool {
	return ifc.Flags&net.FlagUp != 0 &&
		ifc.Flags&net.FlagLoopback == 0 &&
		ifc.Flags&net.FlagMulticast != 0
}

// MulticastCapable returns every currently present interface passing
// filter (DefaultFilter if nil).
func MulticastCapable(filter Filter) ([]net.Interface, error) {
	if filter == nil {
		filter = DefaultFilter
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := ifaces[:0:0]
	for _, ifc := range ifaces {
		if filter(ifc) {
			out = append(out, ifc)
		}
	}
	return out, nil
}

// Monitor recomputes the multicast-capable interface set on every Notifier
// signal and invokes onChange with the new set, the hook
// internal/rtps/transport uses to rejoin multicast groups after an
// interface comes up or an address changes (the dynamic-IP contract:
// "feeding L2 locator lists").
type Monitor struct {
	notifier Notifier
	filter   Filter
	onChange func([]net.Interface)
}

func NewMonitor(notifier Notifier, filter Filter, onChange func([]net.Interface)) *Monitor {
	return &Monitor{notifier: notifier, filter: filter, onChange: onChange}
}

// Run invokes onChange once immediately (to seed the initial locator set)
// and again on every subsequent Notifier signal, until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ifaces, err := MulticastCapable(m.filter)
	if err != nil {
		return err
	}
	m.onChange(ifaces)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.notifier.Changed():
			ifaces, err := MulticastCapable(m.filter)
			if err != nil {
				continue // DDS §2.2.1: "interface down (re-filter locators, continue)" — a transient enumeration error is not fatal.
			}
			m.onChange(ifaces)
		}
	}
}
