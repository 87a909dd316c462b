package engine

import (
	"sync"
	"testing"
	"time"
)

func TestTimerCountsDownAndExpiresOnce(t *testing.T) {
	var mu sync.Mutex
	var ticks []int
	expired := make(chan struct{}, 2)

	timer := NewTimer(2*time.Millisecond, func(remaining int) {
		mu.Lock()
		ticks = append(ticks, remaining)
		mu.Unlock()
	}, func() {
		expired <- struct{}{}
	})
	timer.Start(3)

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not expire")
	}
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) != 3 || ticks[0] != 2 || ticks[1] != 1 || ticks[2] != 0 {
		t.Fatalf("expected ticks [2 1 0], got %v", ticks)
	}
	if len(expired) != 0 {
		t.Fatalf("expected a single expiry")
	}
	if timer.Running() || timer.Remaining() != 0 {
		t.Fatalf("expected stopped timer at 0, running=%v remaining=%d", timer.Running(), timer.Remaining())
	}
}

func TestTimerNonPositiveExpiresImmediately(t *testing.T) {
	fired := 0
	timer := NewTimer(time.Millisecond, nil, func() { fired++ })
	timer.Start(0)
	if fired != 1 {
		t.Fatalf("expected immediate expiry, fired=%d", fired)
	}
	timer.Start(-3)
	if fired != 2 {
		t.Fatalf("expected immediate expiry for negative input, fired=%d", fired)
	}
}

func TestTimerStopIsIdempotentAndSilences(t *testing.T) {
	var mu sync.Mutex
	count := 0
	timer := NewTimer(2*time.Millisecond, func(int) {
		mu.Lock()
		count++
		mu.Unlock()
	}, nil)

	timer.Stop()
	timer.Start(1000)
	time.Sleep(10 * time.Millisecond)
	timer.Stop()
	timer.Stop()

	mu.Lock()
	after := count
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	// one tick may already have been in flight when Stop ran
	if count > after+1 {
		t.Fatalf("ticks continued after stop: %d -> %d", after, count)
	}
	if timer.Running() {
		t.Fatalf("expected stopped timer")
	}
}

func TestTimerRestartResetsRemaining(t *testing.T) {
	timer := NewTimer(time.Hour, nil, nil)
	timer.Start(10)
	timer.Restart(30)
	if timer.Remaining() != 30 || !timer.Running() {
		t.Fatalf("expected running timer at 30, got %d running=%v", timer.Remaining(), timer.Running())
	}
	timer.Stop()
}
