package dispatch

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerFiresOnceAfterDelay(t *testing.T) {
	tm := NewTimer("hb")
	var fired int32
	if err := tm.Start(20*time.Millisecond, "payload", func(user interface{}) {
		if user != "payload" {
			t.Errorf("unexpected user value: %v", user)
		}
		atomic.AddInt32(&fired, 1)
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("expected exactly one fire, got %d", got)
	}
}

func TestTimerRestartIsLogicalReset(t *testing.T) {
	tm := NewTimer("resend")
	var fired int32
	arm := func() {
		_ = tm.Start(60*time.Millisecond, nil, func(interface{}) {
			atomic.AddInt32(&fired, 1)
		})
	}
	arm()
	time.Sleep(30 * time.Millisecond)
	arm() // resets the countdown before the first fire would have happened.
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("expected no fire yet after reset, got %d", got)
	}
	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("expected exactly one fire after reset settles, got %d", got)
	}
}

func TestTimerStopPreventsCallback(t *testing.T) {
	tm := NewTimer("lease")
	var fired int32
	_ = tm.Start(20*time.Millisecond, nil, func(interface{}) {
		atomic.AddInt32(&fired, 1)
	})
	tm.Stop()
	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("expected no fire after Stop, got %d", got)
	}
	if tm.Armed() {
		t.Fatal("expected Armed() to be false after Stop")
	}
}
