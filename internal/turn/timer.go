package turn

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Timer is a single cancellable one-shot. Arming replaces any pending shot.
type Timer struct {
	clk clock.Clock

	mu sync.Mutex
	t  *clock.Timer
}

func NewTimer(clk clock.Clock) *Timer {
	if clk == nil {
		clk = clock.New()
	}
	return &Timer{clk: clk}
}

// Arm schedules fn after d. fn runs on the clock's goroutine.
func (t *Timer) Arm(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.t != nil {
		t.t.Stop()
	}
	t.t = t.clk.AfterFunc(d, fn)
}

// Cancel stops the pending shot and reports whether one was pending.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.t == nil {
		return false
	}
	stopped := t.t.Stop()
	t.t = nil
	return stopped
}
