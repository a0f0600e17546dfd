// Package debounce collapses bursts of values into a single delayed delivery.
package debounce

import (
	"sync"
	"time"
)

// Debouncer delivers only the most recent scheduled value, once, after its
// delay elapses without a newer Schedule call.
//
// The callback runs on the timer's goroutine. A Debouncer must not be copied
// after first use.
type Debouncer[T any] struct {
	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool
}

// New creates a debouncer with nothing pending.
func New[T any]() *Debouncer[T] {
	return &Debouncer[T]{}
}

// Schedule replaces any pending delivery with value, to be passed to fn after
// delay. Calls after Stop are ignored.
func (d *Debouncer[T]) Schedule(value T, delay time.Duration, fn func(T)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	// A timer that already fired may still be waiting for the lock; the
	// generation check in fire discards it.
	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = time.AfterFunc(delay, func() {
		d.fire(gen, value, fn)
	})
}

func (d *Debouncer[T]) fire(gen uint64, value T, fn func(T)) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	fn(value)
}

// Cancel drops the pending delivery, if any. The debouncer stays usable.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Stop drops the pending delivery and rejects all future Schedule calls.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer[T]) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = false
}

// Pending reports whether a delivery is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
