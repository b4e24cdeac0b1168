// Package timer implements the single one-shot timer the tap FSM
// multiplexes between the tap timeout and the drag timeout (spec §4.3,
// §6.2 Timer, §9 "single timer, two semantics").
//
// Arming overwrites any previous deadline. Cancellation is idempotent. The
// fire channel is drained from the same goroutine that owns the FSM, so the
// "callback in the scheduler thread" semantics of the spec fall out of an
// ordinary select loop rather than a lock.
package timer

import (
	"sync"
	"time"
)

// Timer is a single-shot, re-armable timer with an absolute deadline.
type Timer struct {
	mu      sync.Mutex
	timer   *time.Timer
	fire    chan time.Time
	pending bool
}

// New returns an idle Timer.
func New() *Timer {
	return &Timer{fire: make(chan time.Time, 1)}
}

// Set arms the timer for the given absolute deadline, replacing any
// previous deadline.
func (t *Timer) Set(deadline time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	select {
	case <-t.fire: // drop a fire of the replaced deadline not yet received
	default:
	}
	t.pending = true

	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	var tm *time.Timer
	tm = time.AfterFunc(d, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.timer != tm {
			return // replaced or cancelled after it started firing
		}
		t.pending = false
		select {
		case t.fire <- deadline:
		default:
		}
	})
	t.timer = tm
}

// Cancel disarms the timer. It is safe to call on an already-idle timer.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	select {
	case <-t.fire: // drop a fire not yet received
	default:
	}
	t.pending = false
}

// Pending reports whether the timer is currently armed.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// C delivers the armed deadline once the timer fires. The caller's event
// loop must treat a value received here as a single TIMEOUT event.
func (t *Timer) C() <-chan time.Time {
	return t.fire
}
