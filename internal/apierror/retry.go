package apierror

import (
	"context"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second
)

// RetryOptions tunes WithRetry. Zero values fall back to the defaults.
type RetryOptions struct {
	MaxRetries int
	Delay      time.Duration
	// Sleep waits between attempts; tests replace it to observe delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WithRetry calls fn until it succeeds, returns a non-retryable error, or
// MaxRetries attempts have been made. Rate-limit errors wait RetryAfter
// seconds before the next attempt; every other retryable kind waits Delay.
func WithRetry[T any](ctx context.Context, h *Handler, opts RetryOptions, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultRetryDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}

	for attempt := 1; ; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}

		c := h.Handle(ctx, err, "attempt", attempt, "max_retries", opts.MaxRetries)
		if !c.Retryable() || attempt >= opts.MaxRetries {
			return zero, c
		}

		delay := opts.Delay
		if c.Type == TypeRateLimit && c.RetryAfter > 0 {
			delay = time.Duration(c.RetryAfter) * time.Second
		}
		if err := opts.Sleep(ctx, delay); err != nil {
			return zero, h.ParseError(err)
		}
	}
}

// WithFallback runs primary and, on any failure, fallback. When both fail
// the fallback's classification is returned; the primary's is only logged.
func WithFallback[T any](ctx context.Context, h *Handler, primary, fallback func(context.Context) (T, error)) (T, error) {
	res, err := primary(ctx)
	if err == nil {
		return res, nil
	}
	h.Handle(ctx, err, "stage", "primary")

	res, err = fallback(ctx)
	if err == nil {
		return res, nil
	}
	var zero T
	return zero, h.Handle(ctx, err, "stage", "fallback")
}
