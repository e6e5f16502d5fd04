// Package api implements the HTTP surface of the search service.
//
// Routes:
//
//	GET  /health                              → liveness and provider count
//	GET  /api/jobs/search                     → aggregated search
//	GET  /api/jobs/load-more                  → next page, minus seen ids
//	POST /api/jobs/store                      → persist a job snapshot
//	GET  /api/jobs/{publisher}/{id}           → fetch a stored snapshot
//	POST /api/cleanup/expired-job-details     → delete expired snapshots
//	GET  /api/locations/suggest               → location autocomplete
//	GET  /api/logo                            → company logo URL
//	GET  /api/quota                           → monthly quotas and estimates
//	GET  /api/usage                           → upstream call stats
//	POST /api/activity                        → refresh idle detection
//	POST /api/cache/clear                     → drop cache and cooldowns
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ChristinaDay/updrift-sub001/internal/apierror"
	"github.com/ChristinaDay/updrift-sub001/internal/model"
	"github.com/ChristinaDay/updrift-sub001/internal/quota"
	"github.com/ChristinaDay/updrift-sub001/internal/search"
	"github.com/ChristinaDay/updrift-sub001/internal/store"
	"github.com/ChristinaDay/updrift-sub001/internal/usage"
)

// SnapshotStore is satisfied by *store.Store.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, job model.Job, ttl time.Duration) (*store.Snapshot, error)
	GetSnapshot(ctx context.Context, publisher, jobID string) (*store.Snapshot, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// LocationSuggester is satisfied by *location.Client.
type LocationSuggester interface {
	Suggest(ctx context.Context, q string, limit int) ([]model.LocationSuggestion, error)
}

// Deps holds everything the handlers need. Snapshots may be nil, in which
// case the store routes answer 503.
type Deps struct {
	Search     *search.Service
	Snapshots  SnapshotStore
	Locations  LocationSuggester
	Quota      *quota.Tracker
	Usage      *usage.Tracker
	Errors     *apierror.Handler
	HTTPClient *http.Client // used for logo validation
	Retry      apierror.RetryOptions
	Logger     *slog.Logger
	Version    string
}

type handler struct {
	Deps
}

// NewRouter mounts every route on a chi router.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	if d.Errors == nil {
		d.Errors = apierror.NewHandler(d.Logger, nil)
	}
	if d.Retry.MaxRetries == 0 {
		d.Retry.MaxRetries = 3
	}
	h := &handler{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/jobs/search", h.searchJobs)
		r.Get("/jobs/load-more", h.loadMore)
		r.Post("/jobs/store", h.storeJob)
		r.Get("/jobs/{publisher}/{id}", h.getJob)
		r.Post("/cleanup/expired-job-details", h.cleanupExpired)

		r.Get("/locations/suggest", h.suggestLocations)
		r.Get("/logo", h.logo)

		r.Get("/quota", h.quotas)
		r.Get("/usage", h.usageStats)
		r.Post("/activity", h.activity)
		r.Post("/cache/clear", h.clearCache)
	})

	return r
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.Logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
