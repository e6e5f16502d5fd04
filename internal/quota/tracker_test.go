package quota_test

import (
	"sync"
	"testing"
	"time"

	"github.com/ChristinaDay/updrift-sub001/internal/model"
	"github.com/ChristinaDay/updrift-sub001/internal/quota"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTracker(c *clock) *quota.Tracker {
	return quota.NewTracker(map[string]int{"adzuna": 1000, "jsearch": 200}, quota.WithClock(c.now))
}

// ── RecordUsage ────────────────────────────────────────────────────────────

func TestRecordUsage_Percentage(t *testing.T) {
	c := &clock{t: time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)}
	tr := newTracker(c)

	for i := 0; i < 250; i++ {
		tr.RecordUsage("adzuna", 1)
	}

	q, ok := tr.GetMonthlyQuota("adzuna")
	if !ok {
		t.Fatal("adzuna quota missing")
	}
	if q.UsagePercentage != 25 {
		t.Errorf("UsagePercentage = %v, want 25", q.UsagePercentage)
	}
	if q.CurrentUsage != 250 || q.RemainingQuota != 750 {
		t.Errorf("usage/remaining = %d/%d, want 250/750", q.CurrentUsage, q.RemainingQuota)
	}
	wantReset := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	if !q.ResetDate.Equal(wantReset) {
		t.Errorf("ResetDate = %v, want %v", q.ResetDate, wantReset)
	}
}

func TestRecordUsage_RemainingNeverNegative(t *testing.T) {
	c := &clock{t: time.Now()}
	tr := newTracker(c)
	tr.RecordUsage("jsearch", 250)

	q, _ := tr.GetMonthlyQuota("jsearch")
	if q.RemainingQuota != 0 {
		t.Errorf("RemainingQuota = %d, want 0", q.RemainingQuota)
	}
	if q.UsagePercentage != 125 {
		t.Errorf("UsagePercentage = %v, want 125", q.UsagePercentage)
	}
}

func TestRecordUsage_UnknownAPIAndNonPositive(t *testing.T) {
	c := &clock{t: time.Now()}
	tr := newTracker(c)

	tr.RecordUsage("adzuna", 0)
	tr.RecordUsage("adzuna", -3)
	if q, _ := tr.GetMonthlyQuota("adzuna"); q.CurrentUsage != 0 {
		t.Errorf("non-positive usage changed the counter to %d", q.CurrentUsage)
	}

	tr.RecordUsage("nominatim", 2)
	q, ok := tr.GetMonthlyQuota("nominatim")
	if !ok || q.CurrentUsage != 2 || q.UsagePercentage != 0 {
		t.Errorf("unknown api quota = %+v (ok=%v)", q, ok)
	}
}

// ── ResetMonthlyQuotas ─────────────────────────────────────────────────────

func TestResetMonthlyQuotas(t *testing.T) {
	c := &clock{t: time.Date(2026, 4, 30, 23, 0, 0, 0, time.UTC)}
	tr := newTracker(c)
	tr.RecordUsage("adzuna", 400)

	c.t = time.Date(2026, 5, 1, 0, 0, 1, 0, time.UTC)
	tr.ResetMonthlyQuotas()

	q, _ := tr.GetMonthlyQuota("adzuna")
	if q.CurrentUsage != 0 || q.RemainingQuota != 1000 || q.UsagePercentage != 0 {
		t.Errorf("after reset = %+v", q)
	}
	if want := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC); !q.ResetDate.Equal(want) {
		t.Errorf("ResetDate = %v, want %v", q.ResetDate, want)
	}
}

// ── UpdateFromAPIResponse ──────────────────────────────────────────────────

func TestUpdateFromAPIResponse_Overrides(t *testing.T) {
	c := &clock{t: time.Now()}
	tr := newTracker(c)
	tr.RecordUsage("jsearch", 5)

	reset := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	tr.UpdateFromAPIResponse("jsearch", &model.QuotaInfo{Limit: 500, Remaining: 380, ResetAt: reset})

	q, _ := tr.GetMonthlyQuota("jsearch")
	if q.Limit != 500 || q.CurrentUsage != 120 || q.RemainingQuota != 380 {
		t.Errorf("after override = %+v", q)
	}
	if !q.ResetDate.Equal(reset) {
		t.Errorf("ResetDate = %v, want %v", q.ResetDate, reset)
	}
}

func TestUpdateFromAPIResponse_IgnoresPartial(t *testing.T) {
	c := &clock{t: time.Now()}
	tr := newTracker(c)
	tr.RecordUsage("jsearch", 5)

	tr.UpdateFromAPIResponse("jsearch", nil)
	tr.UpdateFromAPIResponse("jsearch", &model.QuotaInfo{Limit: -1, Remaining: 10})
	tr.UpdateFromAPIResponse("jsearch", &model.QuotaInfo{Limit: 100, Remaining: -1})

	q, _ := tr.GetMonthlyQuota("jsearch")
	if q.Limit != 200 || q.CurrentUsage != 5 {
		t.Errorf("partial header info should not override: %+v", q)
	}
}

// ── GetUsageEstimate ───────────────────────────────────────────────────────

func TestGetUsageEstimate_RollingWindows(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &clock{t: start}
	tr := newTracker(c)

	tr.RecordUsage("adzuna", 10) // day 0
	c.t = start.Add(5 * 24 * time.Hour)
	tr.RecordUsage("adzuna", 20) // day 5
	c.t = start.Add(9 * 24 * time.Hour)
	tr.RecordUsage("adzuna", 30) // day 9

	c.t = start.Add(9*24*time.Hour + time.Hour)
	est := tr.GetUsageEstimate("adzuna")
	if est.Daily != 30 || est.Weekly != 50 || est.Monthly != 60 {
		t.Errorf("daily/weekly/monthly = %d/%d/%d, want 30/50/60", est.Daily, est.Weekly, est.Monthly)
	}
	// 60 requests over ceil(9d1h) = 10 days
	if est.DailyAverage != 6 {
		t.Errorf("DailyAverage = %v, want 6", est.DailyAverage)
	}
	if est.ProjectedMonthly != 180 {
		t.Errorf("ProjectedMonthly = %v, want 180", est.ProjectedMonthly)
	}
	if est.DaysUntilExhausted == nil || *est.DaysUntilExhausted != float64(940)/6 {
		t.Errorf("DaysUntilExhausted = %v", est.DaysUntilExhausted)
	}
}

func TestGetUsageEstimate_HistoryTrimmedTo30Days(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &clock{t: start}
	tr := newTracker(c)

	tr.RecordUsage("jsearch", 50)
	c.t = start.Add(31 * 24 * time.Hour)
	tr.RecordUsage("jsearch", 1)

	est := tr.GetUsageEstimate("jsearch")
	if est.Monthly != 1 {
		t.Errorf("Monthly = %d, want 1 (old history trimmed)", est.Monthly)
	}
}

func TestGetUsageEstimate_NoHistory(t *testing.T) {
	tr := newTracker(&clock{t: time.Now()})
	est := tr.GetUsageEstimate("adzuna")
	if est.Monthly != 0 || est.DailyAverage != 0 || est.DaysUntilExhausted != nil {
		t.Errorf("empty estimate = %+v", est)
	}
}

// ── Notifier ───────────────────────────────────────────────────────────────

type captureNotifier struct {
	mu   sync.Mutex
	seen []quota.MonthlyQuota
}

func (n *captureNotifier) QuotaChanged(q quota.MonthlyQuota) {
	n.mu.Lock()
	n.seen = append(n.seen, q)
	n.mu.Unlock()
}

func TestNotifier_SeesEveryChange(t *testing.T) {
	tr := newTracker(&clock{t: time.Now()})
	n := &captureNotifier{}
	tr.SetNotifier(n)

	tr.RecordUsage("adzuna", 1)
	tr.UpdateFromAPIResponse("jsearch", &model.QuotaInfo{Limit: 200, Remaining: 100})
	tr.ResetMonthlyQuotas()

	if len(n.seen) != 4 { // 1 + 1 + two quotas reset
		t.Errorf("notifications = %d, want 4", len(n.seen))
	}
	if all := tr.GetAllQuotas(); len(all) != 2 || all[0].API != "adzuna" {
		t.Errorf("GetAllQuotas = %+v", all)
	}
}
