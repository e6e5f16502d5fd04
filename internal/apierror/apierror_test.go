package apierror_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/ChristinaDay/updrift-sub001/internal/apierror"
)

func newHandler() *apierror.Handler {
	return apierror.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

// ── ParseError ─────────────────────────────────────────────────────────────

func TestParseError_RateLimitWithRetryAfter(t *testing.T) {
	h := newHandler()
	err := &apierror.HTTPError{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{"Retry-After": []string{"30"}},
	}

	c := h.ParseError(err)
	if c.Type != apierror.TypeRateLimit {
		t.Fatalf("Type = %s, want %s", c.Type, apierror.TypeRateLimit)
	}
	if c.RetryAfter != 30 {
		t.Errorf("RetryAfter = %d, want 30", c.RetryAfter)
	}
	if !c.Retryable() {
		t.Error("rate limit errors must be retryable")
	}
}

func TestParseError_Authentication(t *testing.T) {
	h := newHandler()
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c := h.ParseError(&apierror.HTTPError{StatusCode: code})
		if c.Type != apierror.TypeAuthentication {
			t.Errorf("status %d: Type = %s, want %s", code, c.Type, apierror.TypeAuthentication)
		}
		if c.Retryable() {
			t.Errorf("status %d: authentication errors must not be retryable", code)
		}
	}
}

func TestParseError_APIStatusMessages(t *testing.T) {
	h := newHandler()
	cases := []struct {
		code     int
		severity apierror.Severity
	}{
		{http.StatusBadRequest, apierror.SeverityMedium},
		{http.StatusNotFound, apierror.SeverityMedium},
		{http.StatusInternalServerError, apierror.SeverityHigh},
		{http.StatusServiceUnavailable, apierror.SeverityHigh},
	}
	seen := map[string]bool{}
	for _, tc := range cases {
		c := h.ParseError(&apierror.HTTPError{StatusCode: tc.code, Body: "boom"})
		if c.Type != apierror.TypeAPI {
			t.Errorf("status %d: Type = %s, want API_ERROR", tc.code, c.Type)
		}
		if c.Severity != tc.severity {
			t.Errorf("status %d: Severity = %s, want %s", tc.code, c.Severity, tc.severity)
		}
		if c.StatusCode != tc.code {
			t.Errorf("status %d: StatusCode = %d", tc.code, c.StatusCode)
		}
		seen[c.UserMessage] = true
	}
	if len(seen) < 3 {
		t.Errorf("expected status-specific user messages, got %d distinct", len(seen))
	}
}

func TestParseError_Timeout(t *testing.T) {
	h := newHandler()
	err := fmt.Errorf("adzuna: %w", context.DeadlineExceeded)
	if got := h.ParseError(err).Type; got != apierror.TypeTimeout {
		t.Errorf("Type = %s, want TIMEOUT_ERROR", got)
	}
}

func TestParseError_Network(t *testing.T) {
	h := newHandler()
	err := &url.Error{Op: "Get", URL: "https://example.invalid", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}
	if got := h.ParseError(err).Type; got != apierror.TypeNetwork {
		t.Errorf("Type = %s, want NETWORK_ERROR", got)
	}
}

func TestParseError_Validation(t *testing.T) {
	h := newHandler()
	c := h.ParseError(&apierror.ValidationError{Field: "ADZUNA_APP_ID", Msg: "is required"})
	if c.Type != apierror.TypeValidation || c.Severity != apierror.SeverityLow {
		t.Errorf("got %s/%s, want VALIDATION_ERROR/LOW", c.Type, c.Severity)
	}
}

func TestParseError_UnknownAndNil(t *testing.T) {
	h := newHandler()
	if h.ParseError(nil) != nil {
		t.Error("ParseError(nil) should be nil")
	}
	if got := h.ParseError(errors.New("weird")).Type; got != apierror.TypeUnknown {
		t.Errorf("Type = %s, want UNKNOWN_ERROR", got)
	}
}

func TestParseError_AlreadyClassified(t *testing.T) {
	h := newHandler()
	first := h.ParseError(&apierror.HTTPError{StatusCode: 502})
	if again := h.ParseError(fmt.Errorf("wrapped: %w", first)); again != first {
		t.Error("ParseError should return an already classified error unchanged")
	}
}

// ── WithRetry ──────────────────────────────────────────────────────────────

type recordingSleep struct{ delays []time.Duration }

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestWithRetry_RateLimitWaitsRetryAfter(t *testing.T) {
	h := newHandler()
	rs := &recordingSleep{}
	calls := 0

	got, err := apierror.WithRetry(context.Background(), h, apierror.RetryOptions{Sleep: rs.sleep},
		func(context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", &apierror.HTTPError{
					StatusCode: http.StatusTooManyRequests,
					Header:     http.Header{"Retry-After": []string{"30"}},
				}
			}
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if got != "ok" || calls != 2 {
		t.Errorf("got %q after %d calls, want ok after 2", got, calls)
	}
	if len(rs.delays) != 1 || rs.delays[0] != 30*time.Second {
		t.Errorf("delays = %v, want [30s]", rs.delays)
	}
}

func TestWithRetry_NetworkUsesFlatDelayAndExhausts(t *testing.T) {
	h := newHandler()
	rs := &recordingSleep{}
	calls := 0

	_, err := apierror.WithRetry(context.Background(), h, apierror.RetryOptions{Sleep: rs.sleep},
		func(context.Context) (int, error) {
			calls++
			return 0, &url.Error{Op: "Get", URL: "x", Err: errors.New("reset")}
		})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != apierror.DefaultMaxRetries {
		t.Errorf("calls = %d, want %d", calls, apierror.DefaultMaxRetries)
	}
	if len(rs.delays) != apierror.DefaultMaxRetries-1 {
		t.Fatalf("delays = %v, want %d entries", rs.delays, apierror.DefaultMaxRetries-1)
	}
	for _, d := range rs.delays {
		if d != apierror.DefaultRetryDelay {
			t.Errorf("delay = %v, want %v", d, apierror.DefaultRetryDelay)
		}
	}
	var c *apierror.Classified
	if !errors.As(err, &c) || c.Type != apierror.TypeNetwork {
		t.Errorf("err = %v, want classified NETWORK_ERROR", err)
	}
}

func TestWithRetry_NonRetryableReturnsImmediately(t *testing.T) {
	h := newHandler()
	rs := &recordingSleep{}
	calls := 0

	_, err := apierror.WithRetry(context.Background(), h, apierror.RetryOptions{Sleep: rs.sleep, MaxRetries: 5},
		func(context.Context) (int, error) {
			calls++
			return 0, &apierror.HTTPError{StatusCode: http.StatusUnauthorized}
		})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 || len(rs.delays) != 0 {
		t.Errorf("calls = %d, sleeps = %d; want 1 call and no sleep", calls, len(rs.delays))
	}
}

func TestWithRetry_ContextCancelledDuringSleep(t *testing.T) {
	h := newHandler()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := apierror.WithRetry(ctx, h, apierror.RetryOptions{Delay: time.Hour},
		func(context.Context) (int, error) {
			return 0, &url.Error{Op: "Get", URL: "x", Err: errors.New("reset")}
		})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// ── WithFallback ───────────────────────────────────────────────────────────

func TestWithFallback_UsesFallbackOnPrimaryFailure(t *testing.T) {
	h := newHandler()
	got, err := apierror.WithFallback(context.Background(), h,
		func(context.Context) (string, error) { return "", errors.New("primary down") },
		func(context.Context) (string, error) { return "stale", nil },
	)
	if err != nil || got != "stale" {
		t.Errorf("got (%q, %v), want (stale, nil)", got, err)
	}
}

func TestWithFallback_ReturnsFallbackClassification(t *testing.T) {
	h := newHandler()
	_, err := apierror.WithFallback(context.Background(), h,
		func(context.Context) (int, error) { return 0, &apierror.HTTPError{StatusCode: 500} },
		func(context.Context) (int, error) { return 0, &apierror.ValidationError{Msg: "no cache"} },
	)
	var c *apierror.Classified
	if !errors.As(err, &c) {
		t.Fatalf("err = %v, want *Classified", err)
	}
	if c.Type != apierror.TypeValidation {
		t.Errorf("Type = %s, want the fallback's VALIDATION_ERROR", c.Type)
	}
}

func TestWithFallback_PrimarySuccessSkipsFallback(t *testing.T) {
	h := newHandler()
	fallbackCalled := false
	got, err := apierror.WithFallback(context.Background(), h,
		func(context.Context) (int, error) { return 7, nil },
		func(context.Context) (int, error) { fallbackCalled = true; return 0, nil },
	)
	if err != nil || got != 7 || fallbackCalled {
		t.Errorf("got (%d, %v, fallbackCalled=%v), want (7, nil, false)", got, err, fallbackCalled)
	}
}

// ── Sink ───────────────────────────────────────────────────────────────────

type captureSink struct{ reports []*apierror.Classified }

func (s *captureSink) Report(_ context.Context, c *apierror.Classified, _ map[string]any) {
	s.reports = append(s.reports, c)
}

func TestHandle_ForwardsToSink(t *testing.T) {
	sink := &captureSink{}
	h := apierror.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), sink)
	h.Handle(context.Background(), errors.New("x"), "provider", "adzuna")
	if len(sink.reports) != 1 {
		t.Errorf("sink got %d reports, want 1", len(sink.reports))
	}
}
