package apierror

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Sink forwards classified errors to an external monitoring system.
type Sink interface {
	Report(ctx context.Context, c *Classified, attrs map[string]any)
}

// NoopSink discards reports. Production monitoring is not wired yet; swap in
// a real Sink here once one exists.
type NoopSink struct{}

func (NoopSink) Report(context.Context, *Classified, map[string]any) {}

// Handler classifies and logs errors. Construct one per process and pass it
// to the components that need it.
type Handler struct {
	logger *slog.Logger
	sink   Sink
	now    func() time.Time
}

// NewHandler returns a Handler. A nil logger uses slog.Default and a nil
// sink discards reports.
func NewHandler(logger *slog.Logger, sink Sink) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = NoopSink{}
	}
	return &Handler{logger: logger, sink: sink, now: time.Now}
}

// ParseError maps err onto the taxonomy. It returns nil for a nil error and
// returns an already classified error unchanged.
func (h *Handler) ParseError(err error) *Classified {
	if err == nil {
		return nil
	}

	var c *Classified
	if errors.As(err, &c) {
		return c
	}

	out := &Classified{Timestamp: h.now(), Cause: err, Message: err.Error()}

	var ve *ValidationError
	var he *HTTPError
	var ne net.Error
	var ue *url.Error
	var oe *net.OpError

	switch {
	case errors.As(err, &ve):
		out.Type = TypeValidation
		out.Severity = SeverityLow
		out.UserMessage = "Please check your search and try again."

	case errors.As(err, &he):
		classifyHTTP(out, he, h.now())

	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		out.Type = TypeTimeout
		out.Severity = SeverityMedium
		out.UserMessage = "The request took too long. Please try again."

	case errors.As(err, &ue), errors.As(err, &oe):
		out.Type = TypeNetwork
		out.Severity = SeverityHigh
		out.UserMessage = "Unable to reach the job search service. Check your connection and try again."

	default:
		out.Type = TypeUnknown
		out.Severity = SeverityMedium
		out.UserMessage = "Something went wrong. Please try again."
	}
	return out
}

func classifyHTTP(out *Classified, he *HTTPError, now time.Time) {
	out.StatusCode = he.StatusCode
	switch {
	case he.StatusCode == http.StatusTooManyRequests:
		out.Type = TypeRateLimit
		out.Severity = SeverityMedium
		out.RetryAfter = parseRetryAfter(he.Header.Get("Retry-After"), now)
		out.UserMessage = "Too many searches right now. Please wait a moment and try again."
	case he.StatusCode == http.StatusUnauthorized, he.StatusCode == http.StatusForbidden:
		out.Type = TypeAuthentication
		out.Severity = SeverityHigh
		out.UserMessage = "The job search service rejected our credentials."
	case he.StatusCode >= 400:
		out.Type = TypeAPI
		out.Severity = SeverityMedium
		if he.StatusCode >= 500 {
			out.Severity = SeverityHigh
		}
		out.UserMessage = statusMessage(he.StatusCode)
	default:
		out.Type = TypeUnknown
		out.Severity = SeverityMedium
		out.UserMessage = "Something went wrong. Please try again."
	}
}

func statusMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The search request was invalid. Please adjust your search."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusInternalServerError:
		return "The job search service had an internal error. Please try again later."
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return "The job search service is temporarily unavailable. Please try again later."
	}
	if code >= 500 {
		return "The job search service is having problems. Please try again later."
	}
	return "The job search request failed. Please try again."
}

// parseRetryAfter accepts delta-seconds or an HTTP date; 0 means absent.
func parseRetryAfter(v string, now time.Time) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return int(d.Round(time.Second) / time.Second)
		}
	}
	return 0
}

// Handle classifies err, logs it and forwards it to the sink.
func (h *Handler) Handle(ctx context.Context, err error, attrs ...any) *Classified {
	c := h.ParseError(err)
	if c == nil {
		return nil
	}
	h.Log(ctx, c, attrs...)
	return c
}

// Log writes c at a level matching its severity and reports it to the sink.
func (h *Handler) Log(ctx context.Context, c *Classified, attrs ...any) {
	level := slog.LevelWarn
	switch c.Severity {
	case SeverityLow:
		level = slog.LevelInfo
	case SeverityHigh, SeverityCritical:
		level = slog.LevelError
	}

	args := append([]any{
		"type", string(c.Type),
		"severity", string(c.Severity),
		"status", c.StatusCode,
		"err", c.Message,
	}, attrs...)
	h.logger.Log(ctx, level, "classified error", args...)

	fields := make(map[string]any, len(attrs)/2)
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); ok {
			fields[k] = attrs[i+1]
		}
	}
	h.sink.Report(ctx, c, fields)
}
