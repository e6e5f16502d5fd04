// Package usage keeps an in-memory rolling log of upstream API calls for
// diagnostics. State lives for the process lifetime only.
package usage

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity bounds the log when NewTracker is given a non-positive size.
const DefaultCapacity = 1000

// Entry is one recorded upstream call.
type Entry struct {
	ID         string        `json:"id"`
	API        string        `json:"api"`
	Endpoint   string        `json:"endpoint"`
	Success    bool          `json:"success"`
	StatusCode int           `json:"status_code,omitempty"`
	Latency    time.Duration `json:"latency_ns"`
	Error      string        `json:"error,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// APIStats summarises the retained entries for one API.
type APIStats struct {
	Calls        int       `json:"calls"`
	Failures     int       `json:"failures"`
	SuccessRate  float64   `json:"success_rate"`
	AvgLatencyMs float64   `json:"avg_latency_ms"`
	LastError    string    `json:"last_error,omitempty"`
	LastCall     time.Time `json:"last_call"`
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	now      func() time.Time
}

// NewTracker returns a Tracker that keeps at most capacity entries.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{capacity: capacity, now: time.Now}
}

// Record appends e, dropping the oldest entry when full.
func (t *Tracker) Record(e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = t.now()
	}
	t.entries = append(t.entries, e)
	if over := len(t.entries) - t.capacity; over > 0 {
		t.entries = append(t.entries[:0:0], t.entries[over:]...)
	}
}

// RecordCall records the outcome of a call that began at start.
func (t *Tracker) RecordCall(api, endpoint string, start time.Time, statusCode int, err error) {
	e := Entry{
		API:        api,
		Endpoint:   endpoint,
		Success:    err == nil,
		StatusCode: statusCode,
		Latency:    t.now().Sub(start),
	}
	if err != nil {
		e.Error = err.Error()
	}
	t.Record(e)
}

// Recent returns up to n entries, newest first. n <= 0 returns all of them.
func (t *Tracker) Recent(n int) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || n > len(t.entries) {
		n = len(t.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(t.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, t.entries[i])
	}
	return out
}

// Stats aggregates the retained entries per API.
func (t *Tracker) Stats() map[string]APIStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	latency := map[string]time.Duration{}
	out := map[string]APIStats{}
	for _, e := range t.entries {
		s := out[e.API]
		s.Calls++
		if !e.Success {
			s.Failures++
			s.LastError = e.Error
		}
		if e.Timestamp.After(s.LastCall) {
			s.LastCall = e.Timestamp
		}
		latency[e.API] += e.Latency
		out[e.API] = s
	}
	for api, s := range out {
		s.SuccessRate = float64(s.Calls-s.Failures) / float64(s.Calls) * 100
		s.AvgLatencyMs = float64(latency[api].Milliseconds()) / float64(s.Calls)
		out[api] = s
	}
	return out
}

// Reset drops every entry.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.entries = nil
	t.mu.Unlock()
}
