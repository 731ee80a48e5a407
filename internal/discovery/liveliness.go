package discovery

import (
	"sync"
	"time"

	"github.com/tdds/tdds-core/pkg/guid"
)

// LivelinessTracker implements RTPS §8.5's reader-side liveliness
// observation: "Readers track the last assertion time per writer; failure
// to observe within the lease emits LIVELINESS_CHANGED and marks the
// instance NOT_ALIVE_NO_WRITERS."
//
// AUTOMATIC liveliness is asserted implicitly by every SPDP refresh
// (PeerTable.Upsert already refreshes LastSeen); this tracker additionally
// covers MANUAL_BY_PARTICIPANT (asserted whenever any local writer of that
// participant writes) and MANUAL_BY_TOPIC (an explicit assert_liveliness
// call) liveliness, which ride a dedicated participant-message writer
// rather than the SPDP heartbeat.
type LivelinessTracker struct {
	mu      sync.Mutex
	writers map[guid.Guid]*writerLiveliness
	onLost  func(guid.Guid)
}

type writerLiveliness struct {
	lastAssertion time.Time
	lease         time.Duration
}

func NewLivelinessTracker() *LivelinessTracker {
	return &LivelinessTracker{writers: make(map[guid.Guid]*writerLiveliness)}
}

func (t *LivelinessTracker) OnLost(fn func(guid.Guid)) { t.onLost = fn }

// Track begins (or updates) lease tracking for a matched writer.
func (t *LivelinessTracker) Track(writer guid.Guid, lease time.Duration, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writers[writer] = &writerLiveliness{lastAssertion: now, lease: lease}
}

// Untrack stops tracking a writer (it was unmatched or deleted).
func (t *LivelinessTracker) Untrack(writer guid.Guid) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.writers, writer)
}

// Assert records a liveliness assertion (SPDP refresh, a participant
// liveliness token, or an explicit assert_liveliness call) from writer at
// now.
func (t *LivelinessTracker) Assert(writer guid.Guid, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.writers[writer]; ok {
		w.lastAssertion = now
	}
}

// Sweep finds every tracked writer whose lease has elapsed since its last
// assertion, stops tracking it, and invokes OnLost for each — the reader
// side of RTPS §8.5's liveliness-lost rule.
func (t *LivelinessTracker) Sweep(now time.Time) []guid.Guid {
	t.mu.Lock()
	var lost []guid.Guid
	for w, state := range t.writers {
		if state.lease > 0 && now.Sub(state.lastAssertion) > state.lease {
			lost = append(lost, w)
			delete(t.writers, w)
		}
	}
	t.mu.Unlock()

	for _, w := range lost {
		if t.onLost != nil {
			t.onLost(w)
		}
	}
	return lost
}

// ParticipantMessageWriter models the MANUAL_BY_PARTICIPANT liveliness
// writer (RTPS §8.5: "asserted by a dedicated liveliness-message writer
// that publishes a participant-liveliness token whenever any local writer
// writes"). AssertOnWrite should be called from every local writer's Write
// path; Due reports when the accumulated assertions are stale enough that
// a token must actually go out on the wire (bounded by period so a burst
// of local writes doesn't flood the network with one token per sample).
type ParticipantMessageWriter struct {
	mu       sync.Mutex
	period   time.Duration
	lastSent time.Time
	dirty    bool
}

func NewParticipantMessageWriter(period time.Duration) *ParticipantMessageWriter {
	return &ParticipantMessageWriter{period: period}
}

// AssertOnWrite marks that at least one local writer produced a sample
// since the last token was sent.
func (w *ParticipantMessageWriter) AssertOnWrite() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirty = true
}

// Due reports whether a token should be sent now, resetting the dirty flag
// and last-sent time if so.
func (w *ParticipantMessageWriter) Due(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirty {
		return false
	}
	if now.Sub(w.lastSent) < w.period {
		return false
	}
	w.dirty = false
	w.lastSent = now
	return true
}
