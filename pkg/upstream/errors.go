package upstream

import (
	"fmt"
	"time"
)

// UpstreamError represents a failure to obtain a response from the upstream
// API: connection refused, DNS failure, or a timeout. The proxy answers
// such failures with 502 Bad Gateway.
type UpstreamError struct {
	// StatusCode is the status the gateway should send downstream
	StatusCode int

	// Message describes the failure
	Message string

	// Cause is the underlying transport error (if any)
	Cause error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upstream error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// AuthError represents an authentication failure.
// This occurs when the upstream API rejects the caller's credentials
// (HTTP 401 or 403).
type AuthError struct {
	// StatusCode is the status returned by the API (401 or 403)
	StatusCode int

	// Message is the error body returned by the API
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("upstream authentication failed (status %d): %s", e.StatusCode, e.Message)
}

// RateLimitError represents a rate limit that persisted through the retry
// budget (HTTP 429). It includes the retry-after duration if the API
// provided one.
type RateLimitError struct {
	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration

	// Message is the error body returned by the API
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("upstream rate limit exceeded (retry after %s): %s", e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("upstream rate limit exceeded: %s", e.Message)
}

// APIError represents a non-2xx response on the JSON request path.
// Streaming relays error statuses verbatim instead of raising this.
type APIError struct {
	// StatusCode is the HTTP status returned by the API
	StatusCode int

	// Type is the Anthropic error type (e.g. "invalid_request_error")
	Type string

	// Message is the error message from the API
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("upstream API error (status %d, %s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("upstream API error (status %d): %s", e.StatusCode, e.Message)
}

// StreamParseError represents a failure while reading an in-flight event stream.
// The response headers were already sent downstream when this occurs, so the
// only remedy is terminating the stream.
type StreamParseError struct {
	// Message describes the failure
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *StreamParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upstream stream error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("upstream stream error: %s", e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamParseError) Unwrap() error {
	return e.Cause
}

// ParseError represents a malformed response body on the JSON request path.
type ParseError struct {
	// RawResponse is the response body that failed to parse
	RawResponse string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("upstream response parse error: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}
