package dispatch

import (
	"context"
	"sync"

	"github.com/nabbar/golib/server/runner/startStop"
)

// Handle is an opaque attachment identity for one event source a
// Dispatcher polls — the generalized form of
// "handle_attach(h, event_mask, fct, user)" cross-platform fd/handle
// primitive. A concrete fd number has no portable meaning in Go, so a
// Handle here identifies an attached Source rather than a numeric
// descriptor; the RTPS transport layer's read loop (internal/rtps/transport)
// and the debug shell's listener are both expressed as Sources.
type Handle uint64

// Source is a thing a Dispatcher can attach: Listen runs until ctx is
// cancelled or the source is permanently exhausted, invoking deliver once
// per received event (a datagram, a connection, a signal).
type Source interface {
	Listen(ctx context.Context, deliver func(event interface{})) error
}

// EventFunc is invoked on the attached Source's own goroutine for every
// event that Source delivers, carrying the same user value the Source was
// attached with (the opaque user word C event loops pass through
// handle_attach/timer start alike).
type EventFunc func(user interface{}, event interface{})

type attachment struct {
	handle Handle
	runner startStop.StartStop
}

// Dispatcher is the one core-thread event loop the concurrency model
// describe: it multiplexes attached Sources (the RTPS transport's receive
// loop, the debug shell's listener, ...), each on its own goroutine fed by
// golib's startStop lifecycle primitive. Timer instances are
// independent of any Dispatcher (they run on their own ticker goroutine)
// since timers and handles are separate, orthogonally
// created primitives that the core thread merely polls together.
type Dispatcher struct {
	mu       sync.Mutex
	next     uint64
	attached map[Handle]*attachment
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a Dispatcher bound to parent; cancelling parent stops every
// attached Source's Listen, and Close additionally detaches every handle.
// A Dispatcher owns no Timers.
func New(parent context.Context) *Dispatcher {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Dispatcher{
		attached: make(map[Handle]*attachment),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Attach starts src.Listen on its own goroutine, routing every delivered
// event through fct(user, event), and returns a Handle identifying the
// attachment for a later Detach. Mirrors handle_attach(h, event_mask, fct,
// user): event_mask has no analog here since Source already decides what
// it delivers.
func (d *Dispatcher) Attach(src Source, user interface{}, fct EventFunc) Handle {
	d.mu.Lock()
	d.next++
	h := Handle(d.next)
	d.mu.Unlock()

	start := func(ctx context.Context) error {
		return src.Listen(ctx, func(event interface{}) {
			fct(user, event)
		})
	}
	stop := func(context.Context) error { return nil }
	r := startStop.New(start, stop)

	d.mu.Lock()
	d.attached[h] = &attachment{handle: h, runner: r}
	d.mu.Unlock()

	go func() { _ = r.Start(d.ctx) }()
	return h
}

// Detach stops the Source attached as h and removes it from the poll set.
// Detaching a Handle that was never attached, or was already detached, is
// a no-op.
func (d *Dispatcher) Detach(h Handle) {
	d.mu.Lock()
	a, ok := d.attached[h]
	delete(d.attached, h)
	d.mu.Unlock()
	if !ok {
		return
	}
	_ = a.runner.Stop(d.ctx)
}

// Attached reports whether h currently identifies a live attachment.
func (d *Dispatcher) Attached(h Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.attached[h]
	return ok && a.runner.IsRunning()
}

// Count returns the number of currently attached handles.
func (d *Dispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.attached)
}

// Close detaches every attached handle and cancels the Dispatcher's
// context; Timers created independently of this Dispatcher are unaffected.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	handles := make([]Handle, 0, len(d.attached))
	for h := range d.attached {
		handles = append(handles, h)
	}
	d.mu.Unlock()
	for _, h := range handles {
		d.Detach(h)
	}
	d.cancel()
}
