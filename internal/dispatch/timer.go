// Package dispatch implements the core scheduling substrate: named
// one-shot Timers plus a Handle attach/detach primitive, polled together by
// one Dispatcher — the core thread's only system-call/goroutine-fan-in
// dependency ("the core thread owns the dispatcher — handle poll
// + timer wheel + RTPS ingress/egress)").
//
// Built on golib's scheduling primitives: Timer is a one-shot layer
// over github.com/nabbar/golib/server/runner/ticker's periodic ticker
// (stopping itself after the first fire), and Handle reuses the
// attach/detach lifecycle shape of
// github.com/nabbar/golib/server/runner/startStop.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/nabbar/golib/server/runner/ticker"
)

// Timer is a named one-shot timer (create/start/stop/delete).
// Used for lease timeouts, heartbeat scheduling, nack-response delays, and
// liveliness assertions.
type Timer struct {
	name string

	mu     sync.Mutex
	tck    ticker.Ticker
	cancel context.CancelFunc
}

// NewTimer creates a disarmed, named Timer. The name exists purely for
// diagnostics (pool/trace dumps) — it has no effect on scheduling.
func NewTimer(name string) *Timer {
	return &Timer{name: name}
}

func (t *Timer) Name() string { return t.name }

// Start (re)arms the timer to invoke fct(user) once after d elapses, from
// the Timer's own ticker goroutine. Calling Start while already armed is a
// logical reset: the pending fire is cancelled and the countdown restarts
// at d ("re-starting an already-armed timer
// is a logical reset").
func (t *Timer) Start(d time.Duration, user interface{}, fct func(user interface{})) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disarmLocked()

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	var once sync.Once
	tck := ticker.New(d, func(_ context.Context, tc *time.Ticker) error {
		once.Do(func() {
			tc.Stop()
			fct(user)
		})
		return nil
	})
	t.tck = tck
	return tck.Start(ctx)
}

// Stop disarms the timer; its callback will not fire unless Start is
// called again.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disarmLocked()
}

// Delete disarms the timer permanently. Present as a distinct method, per
// the create/start/stop/delete quartet, purely for symmetry with
// the classic timer API naming; it behaves exactly like Stop here, since Go's
// GC reclaims the Timer once it is no longer referenced.
func (t *Timer) Delete() { t.Stop() }

func (t *Timer) disarmLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.tck != nil {
		t.tck.Stop(context.Background())
		t.tck = nil
	}
}

// Armed reports whether the timer currently has a pending fire scheduled.
func (t *Timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tck != nil && t.tck.IsRunning()
}
