package websocket

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sethvargo/go-retry"
)

// reconnector schedules reconnect attempts with delays base, 2*base, 4*base...
// up to max attempts. A scheduled attempt can be cancelled at any time.
type reconnector struct {
	clock clock.Clock
	base  time.Duration
	max   int

	mu      sync.Mutex
	backoff retry.Backoff
	attempt int
	timer   *clock.Timer
}

func newReconnector(clk clock.Clock, base time.Duration, max int) *reconnector {
	r := &reconnector{clock: clk, base: base, max: max}
	r.Reset()
	return r
}

// Schedule arranges for fn to run after the next backoff delay. ok is false
// once the attempt budget is spent, in which case nothing is scheduled.
func (r *reconnector) Schedule(fn func()) (attempt int, delay time.Duration, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delay, stop := r.backoff.Next()
	if stop {
		return r.attempt, 0, false
	}
	r.attempt++
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = r.clock.AfterFunc(delay, fn)
	return r.attempt, delay, true
}

// Cancel stops a pending attempt, if any
func (r *reconnector) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
}

// Reset cancels a pending attempt and restores the full attempt budget
func (r *reconnector) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
	r.attempt = 0
	r.backoff = retry.WithMaxRetries(uint64(r.max), retry.NewExponential(r.base))
}

func (r *reconnector) cancelLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
