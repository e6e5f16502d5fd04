// Package provider holds the upstream job-board clients, the adapters that
// map their payloads onto model.Job, and the static provider registry.
package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/ChristinaDay/updrift-sub001/internal/apierror"
	"github.com/ChristinaDay/updrift-sub001/internal/model"
)

const (
	httpTimeout  = 15 * time.Second
	maxErrorBody = 512
)

// QuotaRecorder receives per-call quota accounting. *quota.Tracker
// satisfies it.
type QuotaRecorder interface {
	RecordUsage(api string, n int)
	UpdateFromAPIResponse(api string, info *model.QuotaInfo)
}

// UsageRecorder receives one entry per upstream call. *usage.Tracker
// satisfies it.
type UsageRecorder interface {
	RecordCall(api, endpoint string, start time.Time, statusCode int, err error)
}

// base carries what every client shares: transport, recorders, clock.
type base struct {
	baseURL string
	http    *http.Client
	quota   QuotaRecorder
	usage   UsageRecorder
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a client.
type Option func(*base)

// WithBaseURL points the client at another host, e.g. an httptest server.
func WithBaseURL(u string) Option { return func(b *base) { b.baseURL = u } }

// WithHTTPClient replaces the default 15s-timeout client.
func WithHTTPClient(c *http.Client) Option { return func(b *base) { b.http = c } }

// WithQuota wires a quota recorder.
func WithQuota(q QuotaRecorder) Option { return func(b *base) { b.quota = q } }

// WithUsage wires a usage recorder.
func WithUsage(u UsageRecorder) Option { return func(b *base) { b.usage = u } }

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option { return func(b *base) { b.logger = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(b *base) { b.now = now } }

func newBase(defaultURL string, opts []Option) base {
	b := base{
		baseURL: defaultURL,
		http:    &http.Client{Timeout: httpTimeout},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// get issues a GET and returns the body of a 2xx response. Any other status
// becomes an *apierror.HTTPError carrying the headers so Retry-After survives.
func (b *base) get(ctx context.Context, api, rawURL string, header http.Header) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := string(body)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return nil, resp, &apierror.HTTPError{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       text,
			Provider:   api,
		}
	}
	return body, resp, nil
}

// recordSuccess books calls against the quota and the usage log.
func (b *base) recordSuccess(api, endpoint string, start time.Time, calls int, resp *http.Response) *model.QuotaInfo {
	var info *model.QuotaInfo
	if resp != nil {
		info = ParseQuotaHeaders(resp.Header, b.now())
	}
	if b.quota != nil {
		b.quota.RecordUsage(api, calls)
		if info != nil {
			b.quota.UpdateFromAPIResponse(api, info)
		}
	}
	if b.usage != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		b.usage.RecordCall(api, endpoint, start, status, nil)
	}
	return info
}

// recordFailure logs err and books the calls that completed before it.
func (b *base) recordFailure(api, endpoint string, start time.Time, calls int, resp *http.Response, err error) {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	b.logger.Warn("provider call failed", "api", api, "endpoint", endpoint, "status", status, "calls", calls, "err", err)
	if b.quota != nil && calls > 0 {
		b.quota.RecordUsage(api, calls)
	}
	if b.usage != nil {
		b.usage.RecordCall(api, endpoint, start, status, err)
	}
}

// lastCall remembers the most recent response for usage accounting.
type lastCall struct {
	resp *http.Response
}

// pageCount is ceil(total / pageSize).
func pageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}
