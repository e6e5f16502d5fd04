// Package search runs a user search end to end: cache lookup, throttle and
// idle checks, provider fan-out, stale-cache fallback and response shaping.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ChristinaDay/updrift-sub001/internal/aggregator"
	"github.com/ChristinaDay/updrift-sub001/internal/apierror"
	"github.com/ChristinaDay/updrift-sub001/internal/filter"
	"github.com/ChristinaDay/updrift-sub001/internal/model"
	"github.com/ChristinaDay/updrift-sub001/internal/provider"
	"github.com/ChristinaDay/updrift-sub001/internal/searchcache"
)

// User-facing messages.
const (
	MsgMock        = "No job providers are configured; showing sample listings."
	MsgIdle        = "Search paused while you were away. Interact with the page to resume."
	MsgThrottled   = "This search ran moments ago. Try again in a few minutes."
	MsgStale       = "Live search failed; showing your last saved results."
	MsgQueryNeeded = "Enter a job title or keyword to search."
)

var errAllProvidersFailed = errors.New("all job providers failed")

// Service is safe for concurrent use.
type Service struct {
	agg    *aggregator.Aggregator
	cache  *searchcache.Manager
	errs   *apierror.Handler
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock overrides time.Now for FetchedAt.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService wires a Service. A nil cache gets an in-memory one and a nil
// handler a default one.
func NewService(agg *aggregator.Aggregator, cache *searchcache.Manager, errs *apierror.Handler, opts ...Option) *Service {
	if cache == nil {
		cache = searchcache.New(nil)
	}
	if errs == nil {
		errs = apierror.NewHandler(nil, nil)
	}
	s := &Service{agg: agg, cache: cache, errs: errs, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache exposes the cache manager for activity and clear requests.
func (s *Service) Cache() *searchcache.Manager { return s.cache }

// Providers lists the registered providers in search order.
func (s *Service) Providers() []provider.Provider { return s.agg.Registry().Providers() }

// Search never returns an error: failures come back as StatusError with an
// empty job list and a message.
//
// Only first-page, non-remote-only searches go through the cache and the
// per-key throttle, since the cache key carries query, location and radius
// alone.
func (s *Service) Search(ctx context.Context, params model.JobSearchParams) *model.JobSearchResponse {
	p := params.Normalize()
	if p.Query == "" {
		return s.errorResponse(p, MsgQueryNeeded)
	}
	if s.agg == nil || s.agg.Registry().Len() == 0 {
		return s.mockResponse(p)
	}

	if p.Page != 1 || p.RemoteOnly {
		resp, err := s.fetch(ctx, p)
		if err != nil {
			return s.errorResponse(p, s.errs.Handle(ctx, err, "query", p.Query).UserMessage)
		}
		return s.finish(resp, p)
	}

	if cached := s.cache.GetCachedResult(ctx, p.Query, p.Location, p.Radius); cached != nil {
		s.logger.Debug("search cache hit", "query", p.Query, "location", p.Location)
		resp := *cached
		resp.Cached = true
		return s.finish(&resp, p)
	}

	if !s.cache.ShouldMakeAPICall(ctx, p.Query, p.Location, p.Radius) {
		msg := MsgThrottled
		if s.cache.IsUserIdle() {
			msg = MsgIdle
		}
		if stale := s.staleResponse(ctx, p, msg); stale != nil {
			return s.finish(stale, p)
		}
		return s.errorResponse(p, msg)
	}

	fromCache := false
	resp, err := apierror.WithFallback(ctx, s.errs,
		func(ctx context.Context) (*model.JobSearchResponse, error) {
			return s.fetch(ctx, p)
		},
		func(ctx context.Context) (*model.JobSearchResponse, error) {
			if stale := s.staleResponse(ctx, p, MsgStale); stale != nil {
				fromCache = true
				return stale, nil
			}
			return nil, errAllProvidersFailed
		},
	)
	s.cache.RecordAPICall(p.Query, p.Location, p.Radius)

	if err != nil {
		var c *apierror.Classified
		msg := "Job search is temporarily unavailable. Please try again later."
		if errors.As(err, &c) && c.UserMessage != "" && !errors.Is(err, errAllProvidersFailed) {
			msg = c.UserMessage
		}
		return s.errorResponse(p, msg)
	}
	if !fromCache {
		stored := *resp
		s.cache.SetCachedResult(ctx, p.Query, p.Location, p.Radius, &stored)
	}
	return s.finish(resp, p)
}

// LoadMore fetches the page after params.Page, bypassing the cache and the
// throttle, and drops jobs whose id is in seen.
func (s *Service) LoadMore(ctx context.Context, params model.JobSearchParams, seen []string) *model.JobSearchResponse {
	p := params.Normalize()
	p.Page++
	if p.Query == "" {
		return s.errorResponse(p, MsgQueryNeeded)
	}
	if s.agg == nil || s.agg.Registry().Len() == 0 {
		resp := s.emptyResponse(p, model.StatusMock)
		resp.Message = MsgMock
		return resp
	}

	resp, err := s.fetch(ctx, p)
	if err != nil {
		return s.errorResponse(p, s.errs.Handle(ctx, err, "query", p.Query, "page", p.Page).UserMessage)
	}

	known := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		known[id] = struct{}{}
	}
	fresh := make([]model.Job, 0, len(resp.Data))
	for _, j := range resp.Data {
		if _, dup := known[j.JobID]; !dup {
			fresh = append(fresh, j)
		}
	}
	resp.Data = fresh
	return s.finish(resp, p)
}

// fetch runs the aggregator and fails only when every provider failed.
func (s *Service) fetch(ctx context.Context, p model.JobSearchParams) (*model.JobSearchResponse, error) {
	res := s.agg.SearchAllProviders(ctx, p)

	failed := 0
	var msgs []string
	for _, o := range res.Outcomes {
		if !o.OK {
			failed++
			msgs = append(msgs, o.Provider+": "+o.Error)
		}
	}
	if len(res.Outcomes) > 0 && failed == len(res.Outcomes) {
		return nil, errors.Join(errAllProvidersFailed, errors.New(strings.Join(msgs, "; ")))
	}

	return &model.JobSearchResponse{
		Status:           model.StatusSuccess,
		Data:             res.Data,
		OriginalData:     res.OriginalData,
		TotalCount:       res.TotalCount,
		NumPages:         res.NumPages,
		Page:             p.Page,
		LocationFiltered: res.LocationFiltered,
		FetchedAt:        s.now(),
	}, nil
}

func (s *Service) staleResponse(ctx context.Context, p model.JobSearchParams, msg string) *model.JobSearchResponse {
	e := s.cache.GetStaleResult(ctx, p.Query, p.Location, p.Radius)
	if e == nil {
		return nil
	}
	resp := *e.Data
	resp.Cached = true
	resp.Message = msg
	return &resp
}

// finish applies per-request filters and paging flags. resp must not be the
// value held by the cache.
func (s *Service) finish(resp *model.JobSearchResponse, p model.JobSearchParams) *model.JobSearchResponse {
	data := resp.Data
	if len(p.Exclude) > 0 {
		kept, dropped := filter.ExcludeRedFlags(data, p.Exclude)
		if dropped > 0 {
			s.logger.Debug("red flags excluded", "dropped", dropped)
		}
		data = kept
	}
	if data == nil {
		data = []model.Job{}
	}
	resp.Data = data
	if resp.OriginalData == nil {
		resp.OriginalData = []model.Job{}
	}
	resp.Page = p.Page
	resp.HasMore = p.Page+p.NumPages-1 < resp.NumPages
	return resp
}

func (s *Service) emptyResponse(p model.JobSearchParams, status string) *model.JobSearchResponse {
	return &model.JobSearchResponse{
		Status:       status,
		Data:         []model.Job{},
		OriginalData: []model.Job{},
		Page:         p.Page,
		FetchedAt:    s.now(),
	}
}

func (s *Service) errorResponse(p model.JobSearchParams, msg string) *model.JobSearchResponse {
	resp := s.emptyResponse(p, model.StatusError)
	resp.Message = msg
	return resp
}

func (s *Service) mockResponse(p model.JobSearchParams) *model.JobSearchResponse {
	jobs := MockJobs()
	if p.RemoteOnly {
		jobs = filter.RemoteOnly(jobs)
	}
	original := jobs
	jobs, applied := filter.ByLocation(jobs, p.Location)

	resp := s.emptyResponse(p, model.StatusMock)
	resp.Message = MsgMock
	resp.Data = jobs
	resp.OriginalData = original
	resp.TotalCount = len(original)
	resp.NumPages = 1
	resp.LocationFiltered = applied
	return s.finish(resp, p)
}
