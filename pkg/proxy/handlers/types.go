package handlers

import (
	"context"
	"net/http"
	"time"

	"mercator-hq/quaestor/pkg/ledger"
	"mercator-hq/quaestor/pkg/pricing"
	"mercator-hq/quaestor/pkg/upstream/anthropic"
)

// UsageLedger is the slice of the ledger the handlers use.
type UsageLedger interface {
	Record(ctx context.Context, rec *ledger.UsageRecord) error
	Status(ctx context.Context, now time.Time) (*ledger.BudgetStatus, error)
	Recent(ctx context.Context, limit int) ([]*ledger.UsageRecord, error)
}

// Upstream is the slice of the API client the handlers use.
type Upstream interface {
	Forward(ctx context.Context, method, path string, body []byte, header http.Header) (*http.Response, error)
	Complete(ctx context.Context, req *anthropic.MessagesRequest, creds anthropic.Credentials) (*anthropic.MessagesResponse, error)
}

// Metrics receives the measurements the handlers emit. Implemented by the
// telemetry collector; a nil Metrics disables recording.
type Metrics interface {
	RecordRequest(tier, outcome string, duration time.Duration)
	RecordFirstByte(tier string, latency time.Duration)
	RecordDecision(tier, reason string)
	RecordUsage(tier, model string, inputTokens, outputTokens int64, cost pricing.MicroEUR)
	RecordBudget(status *ledger.BudgetStatus)
	RecordAlerts(alerts []string)
	RecordStorageError()
}

// Request outcomes recorded per request.
const (
	OutcomeComplete = "complete"
	OutcomeFailed   = "failed"
	OutcomeBlocked  = "blocked"
	OutcomeCanceled = "canceled"
)
