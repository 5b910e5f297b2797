package drawing

import (
	"sync"
	"time"
)

// DefaultDebounce is how long the collector waits after the polygon
// becomes analyzable before it asks for recommendations.
const DefaultDebounce = 1000 * time.Millisecond

// Debouncer runs only the last of a burst of triggers, once the burst has
// been quiet for the delay.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules f, replacing anything scheduled before.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, f)
}

// Cancel drops the pending call, if any. It reports whether one was
// stopped before running.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}
