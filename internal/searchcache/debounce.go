package searchcache

import (
	"sync"
	"time"
)

// Debounce returns call, which runs fn with the most recent argument once
// wait has passed without another call (trailing edge), and stop, which
// cancels a pending run.
func Debounce[T any](fn func(T), wait time.Duration) (call func(T), stop func()) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	call = func(v T) {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(wait, func() { fn(v) })
	}
	stop = func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return call, stop
}

// Throttle returns a function that runs fn at most once per window. Calls
// inside the window are dropped, not queued.
func Throttle[T any](fn func(T), window time.Duration) func(T) {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(v T) {
		mu.Lock()
		now := time.Now()
		if !last.IsZero() && now.Sub(last) < window {
			mu.Unlock()
			return
		}
		last = now
		mu.Unlock()
		fn(v)
	}
}
