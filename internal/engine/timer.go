package engine

import (
	"sync"
	"time"
)

// Timer is a countdown clock that ticks once per interval. Each tick
// decrements the remaining count by one and calls onTick; onExpire fires
// once when the count reaches zero.
type Timer struct {
	interval time.Duration
	onTick   func(remaining int)
	onExpire func()

	mu        sync.Mutex
	gen       uint64
	remaining int
	running   bool
	stop      chan struct{}
}

// NewTimer builds a stopped timer. A non-positive interval means one second.
func NewTimer(interval time.Duration, onTick func(remaining int), onExpire func()) *Timer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Timer{interval: interval, onTick: onTick, onExpire: onExpire}
}

// Start begins counting down from seconds, cancelling any earlier run.
// seconds <= 0 fires onExpire immediately on the calling goroutine.
func (t *Timer) Start(seconds int) {
	t.mu.Lock()
	t.stopLocked()
	if seconds <= 0 {
		t.remaining = 0
		t.mu.Unlock()
		if t.onExpire != nil {
			t.onExpire()
		}
		return
	}
	gen := t.gen
	stop := make(chan struct{})
	t.stop = stop
	t.remaining = seconds
	t.running = true
	t.mu.Unlock()

	go t.run(gen, stop)
}

// Restart is Stop followed by Start.
func (t *Timer) Restart(seconds int) {
	t.Start(seconds)
}

// Stop cancels ticking. It never blocks and may be called any number of
// times, including from inside a callback.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Timer) stopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.running = false
	t.gen++
}

// Remaining reports the seconds left in the current run.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Running reports whether the timer is counting down.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) run(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		t.mu.Lock()
		if t.gen != gen || !t.running {
			t.mu.Unlock()
			return
		}
		t.remaining--
		remaining := t.remaining
		expired := remaining <= 0
		if expired {
			t.remaining = 0
			remaining = 0
			t.running = false
			t.stop = nil
			t.gen++
		}
		t.mu.Unlock()

		if t.onTick != nil {
			t.onTick(remaining)
		}
		if expired {
			if t.onExpire != nil {
				t.onExpire()
			}
			return
		}
	}
}
