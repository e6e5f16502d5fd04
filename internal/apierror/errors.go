// Package apierror classifies failures from upstream job APIs into a fixed
// taxonomy and drives the retry and fallback helpers built on it.
package apierror

import (
	"fmt"
	"net/http"
	"time"
)

// Type is the classification bucket of an error.
type Type string

const (
	TypeNetwork        Type = "NETWORK_ERROR"
	TypeTimeout        Type = "TIMEOUT_ERROR"
	TypeRateLimit      Type = "RATE_LIMIT_ERROR"
	TypeAuthentication Type = "AUTHENTICATION_ERROR"
	TypeAPI            Type = "API_ERROR"
	TypeValidation     Type = "VALIDATION_ERROR"
	TypeUnknown        Type = "UNKNOWN_ERROR"
)

// Severity ranks how urgently an error needs attention.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// HTTPError is returned by provider clients for a non-2xx upstream response.
type HTTPError struct {
	StatusCode int
	Header     http.Header
	Body       string
	Provider   string
}

func (e *HTTPError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// ValidationError wraps a caller-facing validation or configuration message.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// Classified is the result of ParseError. It is itself an error so helpers
// can return it directly.
type Classified struct {
	Type        Type      `json:"type"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	UserMessage string    `json:"user_message"`
	StatusCode  int       `json:"status_code,omitempty"`
	RetryAfter  int       `json:"retry_after,omitempty"` // seconds
	Timestamp   time.Time `json:"timestamp"`
	Cause       error     `json:"-"`
}

func (c *Classified) Error() string {
	return fmt.Sprintf("%s: %s", c.Type, c.Message)
}

func (c *Classified) Unwrap() error { return c.Cause }

// Retryable reports whether WithRetry may try again after this error.
func (c *Classified) Retryable() bool {
	switch c.Type {
	case TypeNetwork, TypeTimeout, TypeRateLimit:
		return true
	}
	return false
}
