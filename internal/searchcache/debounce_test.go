package searchcache

import (
	"sync"
	"testing"
	"time"
)

func TestDebounce_TrailingEdgeUsesLastValue(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	done := make(chan struct{}, 1)
	call, stop := Debounce(func(v string) {
		mu.Lock()
		calls = append(calls, v)
		mu.Unlock()
		done <- struct{}{}
	}, 20*time.Millisecond)
	defer stop()

	call("g")
	call("go")
	call("gol")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced function never ran")
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 || calls[0] != "gol" {
		t.Errorf("calls = %v, want [gol]", calls)
	}
}

func TestDebounce_StopCancelsPending(t *testing.T) {
	ran := make(chan struct{}, 1)
	call, stop := Debounce(func(struct{}) { ran <- struct{}{} }, 20*time.Millisecond)
	call(struct{}{})
	stop()

	select {
	case <-ran:
		t.Error("stopped debounce should not run")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestThrottle_FixedWindow(t *testing.T) {
	count := 0
	fn := Throttle(func(int) { count++ }, 40*time.Millisecond)

	fn(1)
	fn(2)
	fn(3)
	if count != 1 {
		t.Fatalf("count within window = %d, want 1", count)
	}

	time.Sleep(60 * time.Millisecond)
	fn(4)
	if count != 2 {
		t.Errorf("count after window = %d, want 2", count)
	}
}
