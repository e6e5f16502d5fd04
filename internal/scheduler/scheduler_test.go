package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

type fakeResetter struct{ calls atomic.Int32 }

func (f *fakeResetter) ResetMonthlyQuotas() { f.calls.Add(1) }

type fakeCleaner struct {
	n     int64
	err   error
	calls chan struct{}
}

func (f *fakeCleaner) DeleteExpired(context.Context) (int64, error) {
	select {
	case f.calls <- struct{}{}:
	default:
	}
	return f.n, f.err
}

func TestStart_RegistersJobsAndSweepsImmediately(t *testing.T) {
	cleaner := &fakeCleaner{n: 3, calls: make(chan struct{}, 1)}
	s := New(&fakeResetter{}, cleaner, 6)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if got := len(s.cron.Entries()); got != 2 {
		t.Errorf("entries = %d, want 2", got)
	}
	select {
	case <-cleaner.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup did not run on start")
	}
}

func TestStart_WithoutCleaner(t *testing.T) {
	s := New(&fakeResetter{}, nil, 24)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	if got := len(s.cron.Entries()); got != 1 {
		t.Errorf("entries = %d, want only the quota reset", got)
	}
	if n, err := s.RunCleanup(context.Background()); n != 0 || err != nil {
		t.Errorf("RunCleanup = %d, %v", n, err)
	}
}

func TestMonthlySpec_FirstOfMonthUTC(t *testing.T) {
	sched, err := cron.ParseStandard(MonthlySpec)
	if err != nil {
		t.Fatalf("ParseStandard: %v", err)
	}
	from := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	want := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	if got := sched.Next(from); !got.Equal(want) {
		t.Errorf("Next = %v, want %v", got, want)
	}
}

func TestResetQuotas(t *testing.T) {
	r := &fakeResetter{}
	s := New(r, nil, 24)
	s.resetQuotas()
	if r.calls.Load() != 1 {
		t.Errorf("calls = %d", r.calls.Load())
	}
}

func TestRunCleanup(t *testing.T) {
	s := New(nil, &fakeCleaner{n: 7, calls: make(chan struct{}, 1)}, 24)
	if n, err := s.RunCleanup(context.Background()); n != 7 || err != nil {
		t.Errorf("RunCleanup = %d, %v", n, err)
	}

	boom := errors.New("db down")
	s = New(nil, &fakeCleaner{err: boom, calls: make(chan struct{}, 1)}, 24)
	if _, err := s.RunCleanup(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}
