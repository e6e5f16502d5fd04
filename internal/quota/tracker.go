// Package quota tracks monthly request quotas for each upstream provider.
//
// Counters only grow between resets. Nothing is persisted: a restart starts
// every provider from zero usage, and the month rollover is triggered from
// outside (the scheduler calls ResetMonthlyQuotas).
package quota

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ChristinaDay/updrift-sub001/internal/model"
)

const historyWindow = 30 * 24 * time.Hour

// MonthlyQuota is the current state of one provider's quota.
type MonthlyQuota struct {
	API             string    `json:"api"`
	Limit           int       `json:"limit"`
	CurrentUsage    int       `json:"current_usage"`
	RemainingQuota  int       `json:"remaining_quota"`
	UsagePercentage float64   `json:"usage_percentage"`
	ResetDate       time.Time `json:"reset_date"`
	LastUpdated     time.Time `json:"last_updated"`
}

// UsageEstimate is derived from the last 30 days of recorded usage.
type UsageEstimate struct {
	API                string   `json:"api"`
	Daily              int      `json:"daily"`   // last 24h
	Weekly             int      `json:"weekly"`  // last 7 days
	Monthly            int      `json:"monthly"` // last 30 days
	DailyAverage       float64  `json:"daily_average"`
	WeeklyAverage      float64  `json:"weekly_average"`
	ProjectedMonthly   float64  `json:"projected_monthly"`
	DaysUntilExhausted *float64 `json:"days_until_exhausted,omitempty"`
}

// Notifier is told about every quota change, outside the tracker's lock.
type Notifier interface {
	QuotaChanged(q MonthlyQuota)
}

type usagePoint struct {
	api   string
	count int
	at    time.Time
}

// Tracker holds per-provider counters. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	quotas   map[string]*MonthlyQuota
	history  []usagePoint
	now      func() time.Time
	notifier Notifier
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker starts a tracker with the given monthly limits per provider.
func NewTracker(limits map[string]int, opts ...Option) *Tracker {
	t := &Tracker{quotas: map[string]*MonthlyQuota{}, now: time.Now}
	for _, o := range opts {
		o(t)
	}
	now := t.now()
	for api, limit := range limits {
		t.quotas[api] = &MonthlyQuota{
			API:         api,
			Limit:       limit,
			ResetDate:   nextReset(now),
			LastUpdated: now,
		}
		t.quotas[api].recompute()
	}
	return t
}

// SetNotifier installs n. Pass nil to remove it.
func (t *Tracker) SetNotifier(n Notifier) {
	t.mu.Lock()
	t.notifier = n
	t.mu.Unlock()
}

func nextReset(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

func (q *MonthlyQuota) recompute() {
	q.RemainingQuota = q.Limit - q.CurrentUsage
	if q.RemainingQuota < 0 {
		q.RemainingQuota = 0
	}
	if q.Limit > 0 {
		q.UsagePercentage = float64(q.CurrentUsage) / float64(q.Limit) * 100
	} else {
		q.UsagePercentage = 0
	}
}

// quotaLocked returns the entry for api, creating an unlimited one on first use.
func (t *Tracker) quotaLocked(api string, now time.Time) *MonthlyQuota {
	q, ok := t.quotas[api]
	if !ok {
		q = &MonthlyQuota{API: api, ResetDate: nextReset(now), LastUpdated: now}
		t.quotas[api] = q
	}
	return q
}

func (t *Tracker) notify(n Notifier, q MonthlyQuota) {
	if n != nil {
		n.QuotaChanged(q)
	}
}

// RecordUsage adds n requests to api's counter and to the usage history.
func (t *Tracker) RecordUsage(api string, n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	now := t.now()
	q := t.quotaLocked(api, now)
	q.CurrentUsage += n
	q.LastUpdated = now
	q.recompute()

	t.history = append(t.history, usagePoint{api: api, count: n, at: now})
	t.trimHistoryLocked(now)

	snapshot, notifier := *q, t.notifier
	t.mu.Unlock()

	t.notify(notifier, snapshot)
}

func (t *Tracker) trimHistoryLocked(now time.Time) {
	cutoff := now.Add(-historyWindow)
	i := 0
	for i < len(t.history) && t.history[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.history = append(t.history[:0:0], t.history[i:]...)
	}
}

// UpdateFromAPIResponse lets the provider's own numbers override the local
// estimate. It applies only when both limit and remaining were reported.
func (t *Tracker) UpdateFromAPIResponse(api string, info *model.QuotaInfo) {
	if info == nil || info.Limit < 0 || info.Remaining < 0 {
		return
	}
	t.mu.Lock()
	now := t.now()
	q := t.quotaLocked(api, now)
	q.Limit = info.Limit
	q.CurrentUsage = info.Limit - info.Remaining
	if q.CurrentUsage < 0 {
		q.CurrentUsage = 0
	}
	if !info.ResetAt.IsZero() {
		q.ResetDate = info.ResetAt
	}
	q.LastUpdated = now
	q.recompute()
	snapshot, notifier := *q, t.notifier
	t.mu.Unlock()

	t.notify(notifier, snapshot)
}

// GetMonthlyQuota returns a copy of api's quota.
func (t *Tracker) GetMonthlyQuota(api string) (MonthlyQuota, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.quotas[api]
	if !ok {
		return MonthlyQuota{}, false
	}
	return *q, true
}

// GetAllQuotas returns every quota sorted by API name.
func (t *Tracker) GetAllQuotas() []MonthlyQuota {
	t.mu.Lock()
	out := make([]MonthlyQuota, 0, len(t.quotas))
	for _, q := range t.quotas {
		out = append(out, *q)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].API < out[j].API })
	return out
}

// ResetMonthlyQuotas zeroes every counter and moves reset dates forward.
func (t *Tracker) ResetMonthlyQuotas() {
	t.mu.Lock()
	now := t.now()
	changed := make([]MonthlyQuota, 0, len(t.quotas))
	for _, q := range t.quotas {
		q.CurrentUsage = 0
		q.ResetDate = nextReset(now)
		q.LastUpdated = now
		q.recompute()
		changed = append(changed, *q)
	}
	notifier := t.notifier
	t.mu.Unlock()

	for _, q := range changed {
		t.notify(notifier, q)
	}
}

// GetUsageEstimate computes rolling usage figures for api.
func (t *Tracker) GetUsageEstimate(api string) UsageEstimate {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	est := UsageEstimate{API: api}
	var oldest time.Time
	for _, p := range t.history {
		if p.api != api {
			continue
		}
		age := now.Sub(p.at)
		if age > historyWindow {
			continue
		}
		if oldest.IsZero() || p.at.Before(oldest) {
			oldest = p.at
		}
		est.Monthly += p.count
		if age <= 7*24*time.Hour {
			est.Weekly += p.count
		}
		if age <= 24*time.Hour {
			est.Daily += p.count
		}
	}
	if est.Monthly == 0 {
		return est
	}

	days := math.Ceil(now.Sub(oldest).Hours() / 24)
	if days < 1 {
		days = 1
	}
	if days > 30 {
		days = 30
	}
	est.DailyAverage = float64(est.Monthly) / days
	est.WeeklyAverage = est.DailyAverage * 7
	est.ProjectedMonthly = est.DailyAverage * 30

	if q, ok := t.quotas[api]; ok && q.Limit > 0 && est.DailyAverage > 0 {
		d := float64(q.RemainingQuota) / est.DailyAverage
		est.DaysUntilExhausted = &d
	}
	return est
}
