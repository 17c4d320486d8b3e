package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"mercator-hq/quaestor/pkg/enforcement"
	"mercator-hq/quaestor/pkg/upstream"
)

// Error types in the Anthropic error envelope. Clients of this gateway
// speak the Messages API, so locally generated errors use the same shape
// the API itself would:
//
//	{"type": "error", "error": {"type": "...", "message": "..."}}
const (
	// ErrorTypeInvalidRequest indicates a malformed request (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeAuthentication indicates missing or rejected credentials (401).
	ErrorTypeAuthentication = "authentication_error"

	// ErrorTypeBudgetExceeded indicates the request was declined by budget
	// policy (402). This type is the gateway's own; it never comes from
	// the API.
	ErrorTypeBudgetExceeded = "budget_exceeded_error"

	// ErrorTypeAPI indicates an internal gateway failure (500).
	ErrorTypeAPI = "api_error"

	// ErrorTypeUpstream indicates the upstream API could not be reached (502).
	ErrorTypeUpstream = "upstream_error"
)

// ErrorResponse is the envelope for locally generated errors.
type ErrorResponse struct {
	Type  string      `json:"type"`
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error type and message.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response in the Anthropic envelope.
func WriteError(w http.ResponseWriter, statusCode int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Type:  "error",
		Error: ErrorDetail{Type: errType, Message: message},
	}
	// Encoding a flat struct of strings cannot fail
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleError maps gateway errors to a status code and envelope fields.
// Upstream error RESPONSES never pass through here (they relay verbatim);
// this covers failures the gateway produces itself.
func HandleError(err error) (statusCode int, errType, message string) {
	var budgetErr *enforcement.BudgetExceededError
	if errors.As(err, &budgetErr) {
		return http.StatusPaymentRequired, ErrorTypeBudgetExceeded, budgetErr.Error()
	}

	var upstreamErr *upstream.UpstreamError
	if errors.As(err, &upstreamErr) {
		code := upstreamErr.StatusCode
		if code == 0 {
			code = http.StatusBadGateway
		}
		return code, ErrorTypeUpstream, upstreamErr.Message
	}

	var authErr *upstream.AuthError
	if errors.As(err, &authErr) {
		return authErr.StatusCode, ErrorTypeAuthentication, authErr.Message
	}

	var rateErr *upstream.RateLimitError
	if errors.As(err, &rateErr) {
		return http.StatusTooManyRequests, "rate_limit_error", rateErr.Message
	}

	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		errType := apiErr.Type
		if errType == "" {
			errType = ErrorTypeUpstream
		}
		return apiErr.StatusCode, errType, apiErr.Message
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, ErrorTypeInvalidRequest, reqErr.Message
	}

	return http.StatusInternalServerError, ErrorTypeAPI,
		"An internal error occurred. Please try again later."
}

// RequestError represents a request parsing or validation failure.
type RequestError struct {
	// Message describes what is wrong with the request
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain support.
func (e *RequestError) Unwrap() error {
	return e.Cause
}
