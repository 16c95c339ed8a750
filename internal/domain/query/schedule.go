package query

import (
	"sync"
	"time"
)

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed calls. Tests replace it with a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock { return systemClock{} }

// Debouncer runs only the last of a burst of calls, once the calls have been
// quiet for the delay.
type Debouncer struct {
	clock Clock
	delay time.Duration

	mu      sync.Mutex
	gen     uint64
	timer   Timer
	pending func()
}

// NewDebouncer creates a Debouncer. A nil clock uses the system clock.
func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = SystemClock()
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Trigger replaces any pending call with fn and restarts the quiet period.
// A non-positive delay runs fn immediately.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	if d.delay <= 0 {
		d.pending, d.timer = nil, nil
		d.mu.Unlock()
		fn()
		return
	}
	gen := d.gen
	d.pending = fn
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
	d.mu.Unlock()
}

// fire runs the pending call if no newer Trigger superseded generation gen.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending, d.timer = nil, nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Flush runs the pending call now, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.mu.Unlock()
	d.fire(gen)
}

// Cancel drops the pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	d.pending, d.timer = nil, nil
}

// Pending reports whether a call is waiting.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Throttler runs a call at most once per interval. The first call in a quiet
// interval runs immediately; later calls collapse into one trailing call at
// the end of the interval, using the most recent fn.
type Throttler struct {
	clock    Clock
	interval time.Duration

	mu      sync.Mutex
	last    time.Time
	ran     bool
	timer   Timer
	pending func()
}

// NewThrottler creates a Throttler. A nil clock uses the system clock.
func NewThrottler(clock Clock, interval time.Duration) *Throttler {
	if clock == nil {
		clock = SystemClock()
	}
	return &Throttler{clock: clock, interval: interval}
}

// Trigger runs fn now or schedules it as the trailing call.
func (t *Throttler) Trigger(fn func()) {
	t.mu.Lock()

	now := t.clock.Now()
	elapsed := now.Sub(t.last)
	if t.timer == nil && (!t.ran || elapsed >= t.interval) {
		t.last, t.ran = now, true
		t.mu.Unlock()
		fn()
		return
	}

	t.pending = fn
	if t.timer == nil {
		t.timer = t.clock.AfterFunc(t.interval-elapsed, t.fire)
	}
	t.mu.Unlock()
}

func (t *Throttler) fire() {
	t.mu.Lock()
	fn := t.pending
	t.pending, t.timer = nil, nil
	if fn != nil {
		t.last, t.ran = t.clock.Now(), true
	}
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Flush runs the trailing call now, if any.
func (t *Throttler) Flush() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()
	t.fire()
}

// Cancel drops the trailing call.
func (t *Throttler) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.pending, t.timer = nil, nil
}

// Pending reports whether a trailing call is waiting.
func (t *Throttler) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}
