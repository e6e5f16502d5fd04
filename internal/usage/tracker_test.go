package usage

import (
	"errors"
	"testing"
	"time"
)

func TestRecord_TrimsToCapacity(t *testing.T) {
	tr := NewTracker(3)
	for i := 0; i < 5; i++ {
		tr.Record(Entry{API: "adzuna", Endpoint: string(rune('a' + i)), Success: true})
	}

	recent := tr.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("len(Recent) = %d, want 3", len(recent))
	}
	if recent[0].Endpoint != "e" || recent[2].Endpoint != "c" {
		t.Errorf("Recent order = %q..%q, want e..c", recent[0].Endpoint, recent[2].Endpoint)
	}
	if recent[0].ID == "" {
		t.Error("Record should assign an ID")
	}
}

func TestRecordCall_LatencyAndFailure(t *testing.T) {
	tr := NewTracker(10)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	tr.RecordCall("jsearch", "/search", now.Add(-200*time.Millisecond), 200, nil)
	tr.RecordCall("jsearch", "/search", now.Add(-400*time.Millisecond), 502, errors.New("bad gateway"))

	s := tr.Stats()["jsearch"]
	if s.Calls != 2 || s.Failures != 1 {
		t.Fatalf("Calls/Failures = %d/%d, want 2/1", s.Calls, s.Failures)
	}
	if s.SuccessRate != 50 {
		t.Errorf("SuccessRate = %v, want 50", s.SuccessRate)
	}
	if s.AvgLatencyMs != 300 {
		t.Errorf("AvgLatencyMs = %v, want 300", s.AvgLatencyMs)
	}
	if s.LastError != "bad gateway" {
		t.Errorf("LastError = %q", s.LastError)
	}
}

func TestRecent_LimitAndReset(t *testing.T) {
	tr := NewTracker(0)
	for i := 0; i < 4; i++ {
		tr.Record(Entry{API: "adzuna", Success: true})
	}
	if got := len(tr.Recent(2)); got != 2 {
		t.Errorf("len(Recent(2)) = %d, want 2", got)
	}
	tr.Reset()
	if got := len(tr.Recent(0)); got != 0 {
		t.Errorf("after Reset len = %d, want 0", got)
	}
	if len(tr.Stats()) != 0 {
		t.Error("Stats should be empty after Reset")
	}
}
