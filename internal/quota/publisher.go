package quota

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ChristinaDay/updrift-sub001/internal/searchcache"
)

// Redis channels published by Publisher.
const (
	ChannelQuotaWarning  = "EVENT_QUOTA_WARNING"
	ChannelQuotaSnapshot = "EVENT_QUOTA_SNAPSHOT"
)

const (
	DefaultWarnThreshold = 80.0
	warnWindow           = time.Hour
	snapshotDebounce     = 2 * time.Second
	publishTimeout       = 3 * time.Second
)

// Publisher forwards quota changes to Redis. Warnings go out at most once
// per provider per hour; snapshots are debounced so a fan-out search
// produces one message.
type Publisher struct {
	rdb       *redis.Client
	tracker   *Tracker
	threshold float64
	logger    *slog.Logger

	mu       sync.Mutex
	warners  map[string]func(MonthlyQuota)
	snapshot func(struct{})
	stop     func()
}

// NewPublisher attaches a Publisher to tracker. threshold is a usage
// percentage; non-positive values use DefaultWarnThreshold.
func NewPublisher(rdb *redis.Client, tracker *Tracker, threshold float64) *Publisher {
	if threshold <= 0 {
		threshold = DefaultWarnThreshold
	}
	p := &Publisher{
		rdb:       rdb,
		tracker:   tracker,
		threshold: threshold,
		logger:    slog.Default(),
		warners:   map[string]func(MonthlyQuota){},
	}
	p.snapshot, p.stop = searchcache.Debounce(func(struct{}) { p.publishSnapshot() }, snapshotDebounce)
	tracker.SetNotifier(p)
	return p
}

// QuotaChanged implements Notifier.
func (p *Publisher) QuotaChanged(q MonthlyQuota) {
	if q.Limit > 0 && q.UsagePercentage >= p.threshold {
		p.warner(q.API)(q)
	}
	p.snapshot(struct{}{})
}

func (p *Publisher) warner(api string) func(MonthlyQuota) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.warners[api]
	if !ok {
		w = searchcache.Throttle(p.publishWarning, warnWindow)
		p.warners[api] = w
	}
	return w
}

func (p *Publisher) publish(channel string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn("quota event encode failed", "channel", channel, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		p.logger.Warn("quota event publish failed", "channel", channel, "err", err)
	}
}

func (p *Publisher) publishWarning(q MonthlyQuota) {
	p.logger.Warn("provider quota nearly exhausted",
		"api", q.API, "usage_percentage", q.UsagePercentage, "remaining", q.RemainingQuota)
	p.publish(ChannelQuotaWarning, map[string]any{
		"type":  ChannelQuotaWarning,
		"quota": q,
	})
}

func (p *Publisher) publishSnapshot() {
	p.publish(ChannelQuotaSnapshot, map[string]any{
		"type":   ChannelQuotaSnapshot,
		"quotas": p.tracker.GetAllQuotas(),
	})
}

// Close detaches the publisher and cancels a pending snapshot.
func (p *Publisher) Close() {
	p.tracker.SetNotifier(nil)
	p.stop()
}
