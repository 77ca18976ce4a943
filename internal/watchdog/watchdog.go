// Package watchdog provides a one-shot response deadline for a single request.
package watchdog

import (
	"sync"
	"time"
)

// Watchdog calls its expiry hook at most once, on the timer's goroutine,
// unless it is disarmed first.
type Watchdog struct {
	mu      sync.Mutex
	timer   *time.Timer
	fired   bool
	stopped bool
}

// Arm starts a countdown of d. onExpire runs once if Disarm has not been
// called by then. A non-positive d fires immediately.
func Arm(d time.Duration, onExpire func()) *Watchdog {
	w := &Watchdog{}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timer = time.AfterFunc(d, func() {
		w.mu.Lock()
		if w.stopped || w.fired {
			w.mu.Unlock()
			return
		}
		w.fired = true
		w.mu.Unlock()
		onExpire()
	})
	return w
}

// Disarm stops the countdown. It reports whether the hook was prevented from
// running; false means it already ran or is running.
func (w *Watchdog) Disarm() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return !w.fired
	}
	w.stopped = true
	w.timer.Stop()
	return !w.fired
}

// Fired reports whether the hook has been invoked.
func (w *Watchdog) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}
