package capture

import "time"

// debouncer coalesces rapid selection adjustments into a single settled
// snapshot: the window restarts on every observation and only the latest
// snapshot survives. One Idle→Selected transition per quiet period.
type debouncer struct {
	window  time.Duration
	pending *Snapshot
	timer   *time.Timer
	timerCh <-chan time.Time
	flushFn func(*Snapshot)
}

func newDebouncer(window time.Duration, flushFn func(*Snapshot)) *debouncer {
	return &debouncer{window: window, flushFn: flushFn}
}

// observe records the latest selection and (re)starts the quiet-period
// timer.
func (d *debouncer) observe(snap *Snapshot) {
	d.pending = snap
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(d.window)
	d.timerCh = d.timer.C
}

// timerC returns the channel that fires when the quiet period elapses.
// Nil while nothing is pending, which blocks that select arm.
func (d *debouncer) timerC() <-chan time.Time {
	return d.timerCh
}

// flush emits the settled snapshot and resets.
func (d *debouncer) flush() {
	snap := d.pending
	d.reset()
	if snap != nil {
		d.flushFn(snap)
	}
}

// reset drops any pending snapshot, e.g. when the selection is cleared
// inside the quiet period.
func (d *debouncer) reset() {
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.timerCh = nil
	}
}
