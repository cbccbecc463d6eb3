// Package debounce coalesces a rapidly changing value (search keystrokes) into a
// single commit once the input has been quiet for a delay.
package debounce

import (
	"sync"
	"time"
)

// State is the controller's position in idle -> pending -> committed.
type State int

const (
	StateIdle State = iota
	StatePending
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	default:
		return "idle"
	}
}

// Debouncer commits the last value passed to Set after delay of silence.
// The commit callback runs on the timer goroutine, never under the lock.
type Debouncer[T comparable] struct {
	mu        sync.Mutex
	delay     time.Duration
	commit    func(T)
	state     State
	pending   T
	committed T
	timer     *time.Timer
	// gen tags each timer; a timer whose gen is no longer current does nothing.
	gen     uint64
	stopped bool
}

// New creates a debouncer. commit may be nil when the caller only polls Value.
func New[T comparable](delay time.Duration, commit func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, commit: commit}
}

// Set records v and restarts the quiet period.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = v
	d.state = StatePending
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Flush commits the pending value now, if any. It reports whether a commit happened.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.state != StatePending || d.stopped {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	value := d.commitLocked()
	d.mu.Unlock()
	d.emit(value)
	return true
}

// Stop cancels any pending commit; timers firing after Stop do nothing.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.state == StatePending {
		d.state = StateIdle
	}
}

// Value returns the last committed value.
func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.committed
}

// State returns the current state.
func (d *Debouncer[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.stopped || d.state != StatePending {
		d.mu.Unlock()
		return
	}
	value := d.commitLocked()
	d.mu.Unlock()
	d.emit(value)
}

func (d *Debouncer[T]) commitLocked() T {
	d.committed = d.pending
	d.state = StateCommitted
	return d.committed
}

func (d *Debouncer[T]) emit(value T) {
	if d.commit != nil {
		d.commit(value)
	}
}
