// Package searchcache limits redundant upstream searches. It combines a
// 24-hour result cache, a per-key cooldown and an idle-user detector.
package searchcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ChristinaDay/updrift-sub001/internal/model"
)

const (
	CacheDuration  = 24 * time.Hour
	ThrottleWindow = 5 * time.Minute
	IdleThreshold  = 10 * time.Minute
	// SearchDebounce is the delay applied to keystroke-driven searches.
	SearchDebounce = 300 * time.Millisecond
)

// ActivityEvents are the user events that count as activity.
var ActivityEvents = []string{"mousedown", "mousemove", "keypress", "scroll", "touchstart", "click"}

// Key builds the cache key. Inputs are used verbatim; callers trim them.
func Key(query, location string, radius int) string {
	return fmt.Sprintf("%s:%s:%d", query, location, radius)
}

// Manager is safe for concurrent use.
type Manager struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger

	mu           sync.Mutex
	lastCall     map[string]time.Time
	lastActivity time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger used for store failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New returns a Manager over store; a nil store means in-memory. The user
// counts as active at construction time.
func New(store Store, opts ...Option) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	m := &Manager{
		store:    store,
		now:      time.Now,
		logger:   slog.Default(),
		lastCall: map[string]time.Time{},
	}
	for _, o := range opts {
		o(m)
	}
	m.lastActivity = m.now()
	return m
}

func (m *Manager) entry(ctx context.Context, key string) *Entry {
	e, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.Warn("search cache read failed", "key", key, "err", err)
		return nil
	}
	return e
}

func (m *Manager) valid(e *Entry) bool {
	return e != nil && e.Data != nil && m.now().Sub(e.Timestamp) < CacheDuration
}

// GetCachedResult returns the cached response for the search, or nil when
// there is none or it is older than CacheDuration.
func (m *Manager) GetCachedResult(ctx context.Context, query, location string, radius int) *model.JobSearchResponse {
	e := m.entry(ctx, Key(query, location, radius))
	if !m.valid(e) {
		return nil
	}
	return e.Data
}

// GetStaleResult returns whatever is stored for the search, regardless of
// age. It backs the fallback path when upstream fails.
func (m *Manager) GetStaleResult(ctx context.Context, query, location string, radius int) *Entry {
	e := m.entry(ctx, Key(query, location, radius))
	if e == nil || e.Data == nil {
		return nil
	}
	return e
}

// SetCachedResult stores data under the search's key, replacing any entry.
func (m *Manager) SetCachedResult(ctx context.Context, query, location string, radius int, data *model.JobSearchResponse) {
	key := Key(query, location, radius)
	if err := m.store.Set(ctx, &Entry{Key: key, Data: data, Timestamp: m.now()}); err != nil {
		m.logger.Warn("search cache write failed", "key", key, "err", err)
	}
}

// ShouldMakeAPICall reports whether an upstream call is allowed. It says no
// when a valid cache entry exists, when the user is idle, or when the key
// was called within ThrottleWindow. A true result reserves the key's
// cooldown so concurrent requests for the same search cannot both go out.
func (m *Manager) ShouldMakeAPICall(ctx context.Context, query, location string, radius int) bool {
	key := Key(query, location, radius)
	if m.valid(m.entry(ctx, key)) {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if now.Sub(m.lastActivity) >= IdleThreshold {
		return false
	}
	if last, ok := m.lastCall[key]; ok && now.Sub(last) < ThrottleWindow {
		return false
	}
	m.lastCall[key] = now
	return true
}

// RecordAPICall stamps the key's cooldown. A failed call stamps it too.
func (m *Manager) RecordAPICall(query, location string, radius int) {
	m.mu.Lock()
	m.lastCall[Key(query, location, radius)] = m.now()
	m.mu.Unlock()
}

// RecordActivity refreshes the idle timer if event is an activity event.
func (m *Manager) RecordActivity(event string) bool {
	for _, e := range ActivityEvents {
		if e == event {
			m.Touch()
			return true
		}
	}
	return false
}

// Touch refreshes the idle timer. A search the user asks for counts as
// activity.
func (m *Manager) Touch() {
	m.mu.Lock()
	m.lastActivity = m.now()
	m.mu.Unlock()
}

// IsUserIdle reports whether IdleThreshold has passed since the last activity.
func (m *Manager) IsUserIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.lastActivity) >= IdleThreshold
}

// ClearCache drops every entry and every cooldown.
func (m *Manager) ClearCache(ctx context.Context) error {
	m.mu.Lock()
	m.lastCall = map[string]time.Time{}
	m.mu.Unlock()
	return m.store.Clear(ctx)
}
