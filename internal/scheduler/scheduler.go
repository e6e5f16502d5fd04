// Package scheduler wires up the cron jobs that keep quota counters and
// stored job snapshots current.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// MonthlySpec fires at midnight UTC on the first day of each month.
const MonthlySpec = "0 0 1 * *"

// QuotaResetter is satisfied by *quota.Tracker.
type QuotaResetter interface {
	ResetMonthlyQuotas()
}

// Cleaner is satisfied by *store.Store.
type Cleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Scheduler wraps robfig/cron and manages the maintenance jobs.
type Scheduler struct {
	cron        *cron.Cron
	quotas      QuotaResetter
	cleaner     Cleaner // nil when no database is configured
	cleanupSpec string  // e.g. "@every 24h"
}

// New creates a Scheduler. cleaner may be nil, in which case only the
// monthly quota reset is registered.
func New(quotas QuotaResetter, cleaner Cleaner, cleanupIntervalHours int) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(time.UTC), cron.WithLogger(cron.DefaultLogger)),
		quotas:      quotas,
		cleaner:     cleaner,
		cleanupSpec: fmt.Sprintf("@every %dh", cleanupIntervalHours),
	}
}

// Start registers the jobs and starts the scheduler. Also runs one cleanup
// immediately so snapshots left over from a previous run are swept.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.quotas != nil {
		if _, err := s.cron.AddFunc(MonthlySpec, s.resetQuotas); err != nil {
			return fmt.Errorf("cron.AddFunc quota reset: %w", err)
		}
	}
	if s.cleaner != nil {
		if _, err := s.cron.AddFunc(s.cleanupSpec, func() { s.RunCleanup(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc cleanup: %w", err)
		}
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started, quota reset: %q, cleanup: %q", MonthlySpec, s.cleanupSpec)

	if s.cleaner != nil {
		go s.RunCleanup(ctx)
	}
	return nil
}

// Stop shuts down the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] Cron stopped")
}

func (s *Scheduler) resetQuotas() {
	s.quotas.ResetMonthlyQuotas()
	log.Println("[scheduler] Monthly quotas reset")
}

// RunCleanup deletes expired job snapshots once.
func (s *Scheduler) RunCleanup(ctx context.Context) (int64, error) {
	if s.cleaner == nil {
		return 0, nil
	}
	n, err := s.cleaner.DeleteExpired(ctx)
	if err != nil {
		log.Printf("[scheduler] Cleanup error: %v", err)
		return 0, err
	}
	log.Printf("[scheduler] Cleanup removed %d expired snapshot(s)", n)
	return n, nil
}
