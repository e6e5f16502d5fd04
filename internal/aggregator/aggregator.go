// Package aggregator fans a search out to every registered provider and
// merges the results.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ChristinaDay/updrift-sub001/internal/model"
	"github.com/ChristinaDay/updrift-sub001/internal/provider"
)

// Outcome summarises one provider's part in an aggregated search.
type Outcome struct {
	Provider   string        `json:"provider"`
	OK         bool          `json:"ok"`
	Jobs       int           `json:"jobs"`
	TotalCount int           `json:"total_count"`
	Duration   time.Duration `json:"duration_ns"`
	Error      string        `json:"error,omitempty"`
}

// Result is the merged output of SearchAllProviders.
type Result struct {
	Data             []model.Job `json:"data"`
	OriginalData     []model.Job `json:"original_data"`
	TotalCount       int         `json:"total_count"`
	NumPages         int         `json:"num_pages"`
	LocationFiltered bool        `json:"location_filtered"`
	Outcomes         []Outcome   `json:"outcomes"`
}

// Aggregator is safe for concurrent use.
type Aggregator struct {
	registry         *provider.Registry
	logger           *slog.Logger
	dedupByPublisher bool
	observers        []func(Outcome)
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for provider failures.
func WithLogger(l *slog.Logger) Option { return func(a *Aggregator) { a.logger = l } }

// DedupByPublisher keys dedup on publisher and job_id instead of job_id
// alone, so cross-provider id collisions keep both jobs.
func DedupByPublisher() Option { return func(a *Aggregator) { a.dedupByPublisher = true } }

// WithObserver registers fn to receive every provider outcome after a
// search completes. Observers run on the searching goroutine.
func WithObserver(fn func(Outcome)) Option {
	return func(a *Aggregator) { a.observers = append(a.observers, fn) }
}

// New creates an Aggregator over registry.
func New(registry *provider.Registry, opts ...Option) *Aggregator {
	a := &Aggregator{registry: registry, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry returns the providers searched.
func (a *Aggregator) Registry() *provider.Registry { return a.registry }

// SearchAllProviders queries every provider concurrently. A failing provider
// contributes no jobs and a zero count; the call itself never fails because
// of one. Jobs are flattened in registration order and the first occurrence
// of each job_id wins. TotalCount is the sum of the providers' reported
// totals, so it may exceed len(Data).
func (a *Aggregator) SearchAllProviders(ctx context.Context, params model.JobSearchParams) *Result {
	providers := a.registry.Providers()
	results := make([]*model.ProviderResult, len(providers))
	outcomes := make([]Outcome, len(providers))

	// Provider errors are absorbed, so Wait never reports one.
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		g.Go(func() error {
			start := time.Now()
			res, err := safeSearch(gctx, p, params)
			out := Outcome{Provider: p.ID, Duration: time.Since(start)}
			if err != nil {
				a.logger.Error("provider search failed", "provider", p.ID, "err", err)
				out.Error = err.Error()
				res = &model.ProviderResult{Status: model.StatusError, Data: []model.Job{}}
			} else {
				out.OK = true
				out.Jobs = len(res.Data)
				out.TotalCount = res.TotalCount
			}
			results[i] = res
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outcomes {
		for _, fn := range a.observers {
			fn(out)
		}
	}
	return merge(results, outcomes, a.dedupKey())
}

func (a *Aggregator) dedupKey() func(model.Job) string {
	if a.dedupByPublisher {
		return model.Job.Key
	}
	return func(j model.Job) string { return j.JobID }
}

// safeSearch turns a provider panic into an error.
func safeSearch(ctx context.Context, p provider.Provider, params model.JobSearchParams) (res *model.ProviderResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider %s panicked: %v", p.ID, r)
		}
	}()
	res, err = p.Search(ctx, params)
	if err == nil && res == nil {
		res = &model.ProviderResult{Status: model.StatusSuccess, Data: []model.Job{}}
	}
	return res, err
}

func merge(results []*model.ProviderResult, outcomes []Outcome, key func(model.Job) string) *Result {
	out := &Result{Data: []model.Job{}, OriginalData: []model.Job{}, Outcomes: outcomes}
	var all []model.Job
	for _, r := range results {
		all = append(all, r.Data...)
		if r.OriginalData != nil {
			out.OriginalData = append(out.OriginalData, r.OriginalData...)
		} else {
			out.OriginalData = append(out.OriginalData, r.Data...)
		}
		out.TotalCount += r.TotalCount
		out.NumPages = max(out.NumPages, r.NumPages)
		out.LocationFiltered = out.LocationFiltered || r.LocationFiltered
	}
	out.Data = Dedup(all, key)
	return out
}

// Dedup keeps the first job per key, preserving order.
func Dedup(jobs []model.Job, key func(model.Job) string) []model.Job {
	seen := make(map[string]struct{}, len(jobs))
	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		k := key(j)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, j)
	}
	return out
}
