package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/quaestor/pkg/enforcement"
	"mercator-hq/quaestor/pkg/upstream"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusPaymentRequired, ErrorTypeBudgetExceeded, "monthly budget exhausted")

	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Type != "error" {
		t.Errorf("type = %q, want error", resp.Type)
	}
	if resp.Error.Type != ErrorTypeBudgetExceeded {
		t.Errorf("error.type = %q, want %q", resp.Error.Type, ErrorTypeBudgetExceeded)
	}
	if resp.Error.Message != "monthly budget exhausted" {
		t.Errorf("error.message = %q", resp.Error.Message)
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "budget exceeded",
			err:        &enforcement.BudgetExceededError{Spent: 95_000_000, Limit: 90_000_000, DaysUntilReset: 6},
			wantStatus: http.StatusPaymentRequired,
			wantType:   ErrorTypeBudgetExceeded,
		},
		{
			name:       "upstream error",
			err:        &upstream.UpstreamError{Message: "connection refused", Cause: errors.New("dial tcp")},
			wantStatus: http.StatusBadGateway,
			wantType:   ErrorTypeUpstream,
		},
		{
			name:       "upstream error with status",
			err:        &upstream.UpstreamError{StatusCode: http.StatusGatewayTimeout, Message: "upstream timeout"},
			wantStatus: http.StatusGatewayTimeout,
			wantType:   ErrorTypeUpstream,
		},
		{
			name:       "auth error",
			err:        &upstream.AuthError{StatusCode: http.StatusUnauthorized, Message: "invalid x-api-key"},
			wantStatus: http.StatusUnauthorized,
			wantType:   ErrorTypeAuthentication,
		},
		{
			name:       "rate limit error",
			err:        &upstream.RateLimitError{RetryAfter: 5 * time.Second, Message: "rate limited"},
			wantStatus: http.StatusTooManyRequests,
			wantType:   "rate_limit_error",
		},
		{
			name:       "api error",
			err:        &upstream.APIError{StatusCode: http.StatusBadRequest, Type: "invalid_request_error", Message: "bad field"},
			wantStatus: http.StatusBadRequest,
			wantType:   "invalid_request_error",
		},
		{
			name:       "request error",
			err:        &RequestError{Message: "model is required"},
			wantStatus: http.StatusBadRequest,
			wantType:   ErrorTypeInvalidRequest,
		},
		{
			name:       "wrapped request error",
			err:        wrapErr(&RequestError{Message: "invalid JSON"}),
			wantStatus: http.StatusBadRequest,
			wantType:   ErrorTypeInvalidRequest,
		},
		{
			name:       "unknown error",
			err:        errors.New("something odd"),
			wantStatus: http.StatusInternalServerError,
			wantType:   ErrorTypeAPI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, errType, message := HandleError(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if errType != tt.wantType {
				t.Errorf("errType = %q, want %q", errType, tt.wantType)
			}
			if message == "" {
				t.Error("message is empty")
			}
		})
	}
}

func wrapErr(err error) error {
	return errors.Join(errors.New("context"), err)
}
