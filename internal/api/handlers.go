package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ChristinaDay/updrift-sub001/internal/apierror"
	"github.com/ChristinaDay/updrift-sub001/internal/location"
	"github.com/ChristinaDay/updrift-sub001/internal/logo"
	"github.com/ChristinaDay/updrift-sub001/internal/model"
	"github.com/ChristinaDay/updrift-sub001/internal/quota"
	"github.com/ChristinaDay/updrift-sub001/internal/search"
	"github.com/ChristinaDay/updrift-sub001/internal/store"
)

const (
	maxBodySize      = 1 << 20
	defaultUsageRows = 50
)

// ─── Search ───────────────────────────────────────────────────────────────────

func parseSearchParams(q url.Values) (model.JobSearchParams, error) {
	p := model.JobSearchParams{
		Query:    q.Get("query"),
		Location: q.Get("location"),
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"radius", &p.Radius},
		{"page", &p.Page},
		{"num_pages", &p.NumPages},
	}
	for _, it := range ints {
		s := q.Get(it.name)
		if s == "" {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return p, fmt.Errorf("%s must be a positive integer", it.name)
		}
		*it.dst = v
	}
	if s := q.Get("remote_only"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return p, fmt.Errorf("remote_only must be true or false")
		}
		p.RemoteOnly = v
	}
	for _, raw := range q["exclude"] {
		p.Exclude = append(p.Exclude, strings.Split(raw, ",")...)
	}
	return p.Normalize(), nil
}

// searchJobs handles GET /api/jobs/search. Upstream trouble is reported in
// the body's status and message, not the HTTP status.
func (h *handler) searchJobs(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearchParams(r.URL.Query())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if p.Query == "" {
		jsonError(w, search.MsgQueryNeeded, http.StatusBadRequest)
		return
	}
	h.Search.Cache().Touch()
	jsonOK(w, h.Search.Search(r.Context(), p))
}

// loadMore handles GET /api/jobs/load-more?...&seen=id&seen=id
func (h *handler) loadMore(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearchParams(r.URL.Query())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if p.Query == "" {
		jsonError(w, search.MsgQueryNeeded, http.StatusBadRequest)
		return
	}
	h.Search.Cache().Touch()
	jsonOK(w, h.Search.LoadMore(r.Context(), p, r.URL.Query()["seen"]))
}

// ─── Job snapshots ────────────────────────────────────────────────────────────

type storeRequest struct {
	Job      model.Job `json:"job"`
	TTLHours int       `json:"ttl_hours,omitempty"`
}

// storeJob handles POST /api/jobs/store
func (h *handler) storeJob(w http.ResponseWriter, r *http.Request) {
	if h.Snapshots == nil {
		jsonError(w, "job storage is not configured", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TTLHours < 0 {
		jsonError(w, "ttl_hours must not be negative", http.StatusBadRequest)
		return
	}

	snap, err := h.Snapshots.SaveSnapshot(r.Context(), req.Job, time.Duration(req.TTLHours)*time.Hour)
	var ve *apierror.ValidationError
	switch {
	case errors.As(err, &ve):
		jsonError(w, ve.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.Errors.Handle(r.Context(), err, "route", "jobs/store")
		jsonError(w, "failed to store job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// getJob handles GET /api/jobs/{publisher}/{id}
func (h *handler) getJob(w http.ResponseWriter, r *http.Request) {
	if h.Snapshots == nil {
		jsonError(w, "job storage is not configured", http.StatusServiceUnavailable)
		return
	}
	snap, err := h.Snapshots.GetSnapshot(r.Context(), chi.URLParam(r, "publisher"), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, "job not found", http.StatusNotFound)
		return
	case err != nil:
		h.Errors.Handle(r.Context(), err, "route", "jobs/get")
		jsonError(w, "failed to load job", http.StatusInternalServerError)
		return
	}
	jsonOK(w, snap)
}

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// cleanupExpired handles POST /api/cleanup/expired-job-details
func (h *handler) cleanupExpired(w http.ResponseWriter, r *http.Request) {
	if h.Snapshots == nil {
		writeJSON(w, http.StatusServiceUnavailable, statusMessage{model.StatusError, "job storage is not configured"})
		return
	}
	n, err := apierror.WithRetry(r.Context(), h.Errors, h.Retry, h.Snapshots.DeleteExpired)
	if err != nil {
		msg := err.Error()
		var c *apierror.Classified
		if errors.As(err, &c) {
			msg = c.UserMessage
		}
		writeJSON(w, http.StatusInternalServerError, statusMessage{model.StatusError, msg})
		return
	}
	jsonOK(w, statusMessage{model.StatusSuccess, fmt.Sprintf("Removed %d expired job detail(s)", n)})
}

// ─── Locations and logos ──────────────────────────────────────────────────────

type suggestion struct {
	model.LocationSuggestion
	Label string `json:"label"`
}

// suggestLocations handles GET /api/locations/suggest?q=&limit=
func (h *handler) suggestLocations(w http.ResponseWriter, r *http.Request) {
	if h.Locations == nil {
		jsonError(w, "location suggestions are not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = v
	}

	found, err := h.Locations.Suggest(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		c := h.Errors.Handle(r.Context(), err, "route", "locations/suggest")
		jsonError(w, c.UserMessage, http.StatusBadGateway)
		return
	}
	out := make([]suggestion, 0, len(found))
	for _, s := range found {
		out = append(out, suggestion{LocationSuggestion: s, Label: location.Label(s)})
	}
	jsonOK(w, map[string]any{"suggestions": out})
}

// logo handles GET /api/logo?company=&website=&validate=1
func (h *handler) logo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	company := strings.TrimSpace(q.Get("company"))
	if company == "" {
		jsonError(w, "company is required", http.StatusBadRequest)
		return
	}
	website := q.Get("website")

	var u string
	validated := q.Get("validate") == "1" || q.Get("validate") == "true"
	if validated {
		u = logo.Resolve(r.Context(), h.HTTPClient, company, website)
	} else {
		u = logo.URL(company, website)
	}
	jsonOK(w, map[string]any{"company": company, "url": u, "validated": validated})
}

// ─── Quota, usage and activity ────────────────────────────────────────────────

// quotas handles GET /api/quota
func (h *handler) quotas(w http.ResponseWriter, r *http.Request) {
	all := h.Quota.GetAllQuotas()
	estimates := make([]quota.UsageEstimate, 0, len(all))
	for _, q := range all {
		estimates = append(estimates, h.Quota.GetUsageEstimate(q.API))
	}
	jsonOK(w, map[string]any{"quotas": all, "estimates": estimates})
}

// usageStats handles GET /api/usage?limit=
func (h *handler) usageStats(w http.ResponseWriter, r *http.Request) {
	n := defaultUsageRows
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		n = v
	}
	jsonOK(w, map[string]any{"stats": h.Usage.Stats(), "recent": h.Usage.Recent(n)})
}

// activity handles POST /api/activity with body {"event": "click"}
func (h *handler) activity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	var body struct {
		Event string `json:"event"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cache := h.Search.Cache()
	if !cache.RecordActivity(body.Event) {
		jsonError(w, fmt.Sprintf("unknown activity event %q", body.Event), http.StatusBadRequest)
		return
	}
	jsonOK(w, map[string]any{"recorded": true, "idle": cache.IsUserIdle()})
}

// clearCache handles POST /api/cache/clear
func (h *handler) clearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.Search.Cache().ClearCache(r.Context()); err != nil {
		h.Errors.Handle(r.Context(), err, "route", "cache/clear")
		writeJSON(w, http.StatusInternalServerError, statusMessage{model.StatusError, "failed to clear cache"})
		return
	}
	jsonOK(w, statusMessage{model.StatusSuccess, "Cache cleared"})
}

// health handles GET /health
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]any{
		"status":    "ok",
		"service":   "updrift",
		"version":   h.Version,
		"providers": h.Search.Providers(),
	})
}
