package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mercator-hq/quaestor/pkg/enforcement"
	"mercator-hq/quaestor/pkg/ledger"
	"mercator-hq/quaestor/pkg/pricing"
	"mercator-hq/quaestor/pkg/proxy"
	"mercator-hq/quaestor/pkg/proxy/middleware"
	"mercator-hq/quaestor/pkg/routing"
	"mercator-hq/quaestor/pkg/telemetry/logging"
	"mercator-hq/quaestor/pkg/upstream/anthropic"
)

// Request lifecycle states, attached to logs as the request progresses.
const (
	stateReceived    = "received"
	stateClassifying = "classifying"
	stateBudgetCheck = "budget_check"
	stateForwarding  = "forwarding"
	stateStreaming   = "streaming"
	stateCommitting  = "committing"
	stateComplete    = "complete"
	stateFailed      = "failed"
)

// messagesPath is the upstream path requests are forwarded to.
const messagesPath = "/v1/messages"

// MessagesHandler proxies POST /v1/messages: it routes the request to a
// tier, enforces the budget, forwards to the upstream API with only the
// model field rewritten, relays the response (streaming or not), and
// commits a usage record for every billable completion.
type MessagesHandler struct {
	// Router picks a tier for each query
	Router *routing.Router

	// Enforcer applies budget policy on top of the routed tier
	Enforcer *enforcement.Enforcer

	// Ledger records usage and serves budget snapshots
	Ledger UsageLedger

	// Upstream is the API client requests are forwarded through
	Upstream Upstream

	// Pricing converts token counts to cost
	Pricing *pricing.Table

	// Models maps tiers to concrete model IDs
	Models proxy.ModelMap

	// Credentials are injected when the client sends none. Usually empty:
	// callers bring their own keys.
	Credentials anthropic.Credentials

	// Metrics receives request measurements (may be nil)
	Metrics Metrics
}

// ServeHTTP implements http.Handler.
func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	startTime := time.Now()

	if r.Method != http.MethodPost {
		proxy.WriteError(w, http.StatusMethodNotAllowed, proxy.ErrorTypeInvalidRequest,
			fmt.Sprintf("Method %s not allowed. Use POST instead.", r.Method))
		return
	}

	slog.DebugContext(ctx, "request received",
		"request_id", requestID,
		"state", stateReceived,
	)

	// Credentials pass through from the caller; the config key fills in
	// only when the caller sent none.
	creds := proxy.CredentialsFrom(r.Header)
	if creds.Empty() {
		creds = h.Credentials
	}
	if creds.Empty() {
		slog.WarnContext(ctx, "request without credentials rejected",
			"request_id", requestID,
			"state", stateFailed,
		)
		proxy.WriteError(w, http.StatusUnauthorized, proxy.ErrorTypeAuthentication,
			"missing credentials: provide x-api-key or Authorization")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, proxy.MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			proxy.WriteError(w, http.StatusRequestEntityTooLarge, proxy.ErrorTypeInvalidRequest,
				fmt.Sprintf("request body exceeds maximum size of %d bytes", proxy.MaxRequestBodySize))
			return
		}
		slog.WarnContext(ctx, "failed to read request body",
			"request_id", requestID,
			"error", err,
		)
		proxy.WriteError(w, http.StatusBadRequest, proxy.ErrorTypeInvalidRequest,
			"failed to read request body")
		return
	}

	parsed, err := proxy.ParseRequest(body)
	if err != nil {
		h.writeFailure(ctx, w, requestID, err)
		return
	}

	manualTier, manual, err := proxy.ManualOverride(r.Header)
	if err != nil {
		h.writeFailure(ctx, w, requestID, err)
		return
	}

	// Routing. Heuristics are free; the classifier call waits until
	// budget checks confirm escalation is still wanted.
	var decision *routing.Decision
	if manual {
		decision = routing.Manual(manualTier)
	} else {
		decision = h.Router.Classify(parsed.Prompt)
	}
	slog.DebugContext(ctx, "routing decision",
		"request_id", requestID,
		"state", stateClassifying,
		"tier", string(decision.Tier),
		"reason", decision.Reason,
		"needs_escalation", decision.NeedsEscalation,
	)

	// Budget check. One status read serves enforcement, metrics, and
	// alerting; a failed read allows the request rather than guessing.
	status := h.budgetStatus(ctx, requestID)
	result := h.Enforcer.Evaluate(status, nil, manual)
	if h.Metrics != nil {
		if status != nil {
			h.Metrics.RecordBudget(status)
		}
		if len(result.Alerts) > 0 {
			h.Metrics.RecordAlerts(result.Alerts)
		}
	}

	if result.Blocked() {
		rejection := enforcement.NewBudgetExceededError(status)
		slog.WarnContext(ctx, "request declined by budget policy",
			"request_id", requestID,
			"state", stateFailed,
			"error", rejection,
		)
		h.writeFailure(ctx, w, requestID, rejection)
		h.observe(string(decision.Tier), OutcomeBlocked, startTime)
		return
	}
	if result.Overridden() {
		decision = &routing.Decision{Tier: result.Tier, Reason: result.Reason}
		slog.InfoContext(ctx, "tier overridden by budget policy",
			"request_id", requestID,
			"state", stateBudgetCheck,
			"tier", string(decision.Tier),
			"reason", decision.Reason,
		)
	}

	// Escalation runs only when the heuristics were inconclusive and no
	// budget override settled the tier. The classification call bills to
	// the caller and is recorded like any other usage.
	if decision.NeedsEscalation {
		var escUsage *routing.EscalationUsage
		decision, escUsage = h.Router.Escalate(ctx, parsed.Prompt, proxy.ClassifierFor(h.Upstream, creds))
		if escUsage != nil {
			h.commitClassification(ctx, requestID, escUsage)
		}
	}
	if h.Metrics != nil {
		h.Metrics.RecordDecision(string(decision.Tier), decision.Reason)
	}

	model, err := h.Models.Model(decision.Tier)
	if err != nil {
		slog.ErrorContext(ctx, "tier has no model binding",
			"request_id", requestID,
			"state", stateFailed,
			"tier", string(decision.Tier),
			"error", err,
		)
		proxy.WriteError(w, http.StatusInternalServerError, proxy.ErrorTypeAPI,
			"no model configured for the routed tier")
		h.observe(string(decision.Tier), OutcomeFailed, startTime)
		return
	}

	upstreamBody := body
	if model != parsed.Model {
		upstreamBody, err = parsed.RewriteModel(model)
		if err != nil {
			slog.ErrorContext(ctx, "model rewrite failed",
				"request_id", requestID,
				"state", stateFailed,
				"error", err,
			)
			proxy.WriteError(w, http.StatusInternalServerError, proxy.ErrorTypeAPI,
				"failed to prepare upstream request")
			h.observe(string(decision.Tier), OutcomeFailed, startTime)
			return
		}
	}

	estimate := h.Pricing.EstimateRequest(decision.Tier, model, parsed.Prompt)
	slog.InfoContext(ctx, "forwarding request",
		"request_id", requestID,
		"state", stateForwarding,
		"tier", string(decision.Tier),
		"reason", decision.Reason,
		"model", model,
		"requested_model", parsed.Model,
		"stream", parsed.Stream,
		"estimated_cost_min", estimate.CostMin.String(),
		"estimated_cost_max", estimate.CostMax.String(),
	)

	headers := proxy.FilterRequestHeaders(r.Header)
	creds.Apply(headers)
	slog.DebugContext(ctx, "upstream request headers",
		"request_id", requestID,
		"headers", logging.RedactHeaders(headers),
	)

	forwardStart := time.Now()
	resp, err := h.Upstream.Forward(ctx, http.MethodPost, messagesPath, upstreamBody, headers)
	if err != nil {
		slog.ErrorContext(ctx, "upstream request failed",
			"request_id", requestID,
			"state", stateFailed,
			"model", model,
			"error", err,
		)
		h.writeFailure(ctx, w, requestID, err)
		h.observe(string(decision.Tier), OutcomeFailed, startTime)
		return
	}
	defer resp.Body.Close()

	if h.Metrics != nil {
		h.Metrics.RecordFirstByte(string(decision.Tier), time.Since(forwardStart))
	}

	// Non-success responses relay verbatim and never reach the ledger.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.relayUpstreamError(ctx, w, resp, requestID)
		h.observe(string(decision.Tier), OutcomeFailed, startTime)
		return
	}

	var usage anthropic.Usage
	canceled := false
	if isEventStream(resp) {
		usage, canceled = h.relayStream(ctx, w, resp, requestID)
	} else {
		usage = h.relayJSON(ctx, w, resp, requestID)
	}

	// Commit whatever was observed. A missing model means not even
	// message_start arrived; there is nothing billable to record.
	var cost pricing.MicroEUR
	if usage.Model != "" {
		cost = h.commit(ctx, requestID, decision, parsed.Prompt, usage)
	} else {
		slog.WarnContext(ctx, "no usage observed, nothing to commit",
			"request_id", requestID,
			"state", stateCommitting,
		)
	}

	outcome := OutcomeComplete
	if canceled {
		outcome = OutcomeCanceled
	}
	h.observe(string(decision.Tier), outcome, startTime)

	slog.InfoContext(ctx, "request complete",
		"request_id", requestID,
		"state", stateComplete,
		"tier", string(decision.Tier),
		"reason", decision.Reason,
		"model", usage.Model,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"cost", cost.String(),
		"canceled", canceled,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
}

// budgetStatus reads the budget snapshot, returning nil on storage
// failure so the request can proceed unchecked.
func (h *MessagesHandler) budgetStatus(ctx context.Context, requestID string) *ledger.BudgetStatus {
	status, err := h.Ledger.Status(ctx, time.Now())
	if err != nil {
		slog.ErrorContext(ctx, "budget status read failed, allowing request unchecked",
			"request_id", requestID,
			"state", stateBudgetCheck,
			"error", err,
		)
		if h.Metrics != nil {
			h.Metrics.RecordStorageError()
		}
		return nil
	}
	return status
}

// relayStream forwards an SSE response event by event, flushing after
// each one, while reading usage off the passing events. Returns the usage
// observed so far and whether the client went away mid-stream.
func (h *MessagesHandler) relayStream(ctx context.Context, w http.ResponseWriter, resp *http.Response, requestID string) (anthropic.Usage, bool) {
	proxy.RelayResponseHeaders(w.Header(), resp.Header)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	slog.DebugContext(ctx, "relaying event stream",
		"request_id", requestID,
		"state", stateStreaming,
	)

	reader := anthropic.NewEventReader(resp.Body)
	var tracker anthropic.UsageTracker
	events := 0

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Headers are long gone; terminating the stream is the only
			// option left. Counts observed so far still commit.
			slog.WarnContext(ctx, "stream read failed, terminating relay",
				"request_id", requestID,
				"events_relayed", events,
				"error", err,
			)
			break
		}

		tracker.Observe(event)

		if _, werr := w.Write(event.Raw); werr != nil {
			slog.WarnContext(ctx, "client write failed, stopping relay",
				"request_id", requestID,
				"events_relayed", events,
				"error", werr,
			)
			return tracker.Usage(), true
		}
		if flusher != nil {
			flusher.Flush()
		}
		events++

		select {
		case <-ctx.Done():
			slog.WarnContext(ctx, "client disconnected during streaming",
				"request_id", requestID,
				"events_relayed", events,
			)
			return tracker.Usage(), true
		default:
		}
	}

	return tracker.Usage(), false
}

// relayJSON forwards a non-streaming response unchanged and reads usage
// from its body. An unparseable 2xx body still relays; it just cannot be
// billed.
func (h *MessagesHandler) relayJSON(ctx context.Context, w http.ResponseWriter, resp *http.Response, requestID string) anthropic.Usage {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read upstream response",
			"request_id", requestID,
			"state", stateFailed,
			"error", err,
		)
		proxy.WriteError(w, http.StatusBadGateway, proxy.ErrorTypeUpstream,
			"upstream response could not be read")
		return anthropic.Usage{}
	}

	proxy.RelayResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(body); err != nil {
		slog.WarnContext(ctx, "client write failed",
			"request_id", requestID,
			"error", err,
		)
	}

	var msg anthropic.MessagesResponse
	if err := json.Unmarshal(body, &msg); err != nil {
		slog.WarnContext(ctx, "unparseable upstream response, usage not recorded",
			"request_id", requestID,
			"error", err,
		)
		return anthropic.Usage{}
	}
	return anthropic.UsageFromResponse(&msg)
}

// relayUpstreamError copies a non-2xx upstream response to the client
// byte for byte.
func (h *MessagesHandler) relayUpstreamError(ctx context.Context, w http.ResponseWriter, resp *http.Response, requestID string) {
	proxy.RelayResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		slog.DebugContext(ctx, "error relay interrupted",
			"request_id", requestID,
			"error", err,
		)
	}

	slog.WarnContext(ctx, "upstream error relayed",
		"request_id", requestID,
		"state", stateFailed,
		"status", resp.StatusCode,
	)
}

// commit writes the usage record for the proxied exchange. The response
// has already been delivered, so a storage failure only loses accounting;
// it is logged loudly because silent budget drift compounds.
func (h *MessagesHandler) commit(ctx context.Context, requestID string, decision *routing.Decision, prompt string, usage anthropic.Usage) pricing.MicroEUR {
	if _, known := h.Pricing.PriceFor(usage.Model); !known {
		slog.WarnContext(ctx, "model missing from pricing table, recording zero cost",
			"request_id", requestID,
			"model", usage.Model,
		)
	}
	cost := h.Pricing.Cost(usage.Model, usage.InputTokens, usage.OutputTokens)

	rec := &ledger.UsageRecord{
		Tier:         decision.Tier,
		Model:        usage.Model,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		Cost:         cost,
		RoutedBy:     decision.Reason,
		QueryPreview: prompt,
	}

	slog.DebugContext(ctx, "committing usage record",
		"request_id", requestID,
		"state", stateCommitting,
		"model", usage.Model,
		"completed", usage.Completed,
	)

	// The request context may already be canceled (client disconnect);
	// the commit must still land.
	if err := h.Ledger.Record(context.WithoutCancel(ctx), rec); err != nil {
		slog.ErrorContext(ctx, "usage record commit failed, spend is uncounted",
			"request_id", requestID,
			"state", stateCommitting,
			"model", usage.Model,
			"cost", cost.String(),
			"error", err,
		)
		if h.Metrics != nil {
			h.Metrics.RecordStorageError()
		}
		return cost
	}

	if h.Metrics != nil {
		h.Metrics.RecordUsage(string(decision.Tier), usage.Model, usage.InputTokens, usage.OutputTokens, cost)
	}
	return cost
}

// commitClassification records the tokens a classification call consumed.
// The call ran on the cheap tier with the caller's credentials, so it
// bills like any other usage.
func (h *MessagesHandler) commitClassification(ctx context.Context, requestID string, escUsage *routing.EscalationUsage) {
	cost := h.Pricing.Cost(escUsage.Model, escUsage.InputTokens, escUsage.OutputTokens)

	rec := &ledger.UsageRecord{
		Tier:         pricing.TierCheap,
		Model:        escUsage.Model,
		InputTokens:  escUsage.InputTokens,
		OutputTokens: escUsage.OutputTokens,
		Cost:         cost,
		RoutedBy:     "classifier",
	}

	if err := h.Ledger.Record(context.WithoutCancel(ctx), rec); err != nil {
		slog.ErrorContext(ctx, "classification usage commit failed, spend is uncounted",
			"request_id", requestID,
			"model", escUsage.Model,
			"cost", cost.String(),
			"error", err,
		)
		if h.Metrics != nil {
			h.Metrics.RecordStorageError()
		}
		return
	}

	if h.Metrics != nil {
		h.Metrics.RecordUsage(string(pricing.TierCheap), escUsage.Model, escUsage.InputTokens, escUsage.OutputTokens, cost)
	}
}

// writeFailure maps an error to the client-facing envelope and logs it.
func (h *MessagesHandler) writeFailure(ctx context.Context, w http.ResponseWriter, requestID string, err error) {
	statusCode, errType, message := proxy.HandleError(err)
	if statusCode >= 500 {
		slog.ErrorContext(ctx, "request failed",
			"request_id", requestID,
			"state", stateFailed,
			"status", statusCode,
			"error", err,
		)
	} else {
		slog.WarnContext(ctx, "request rejected",
			"request_id", requestID,
			"state", stateFailed,
			"status", statusCode,
			"error", err,
		)
	}
	proxy.WriteError(w, statusCode, errType, message)
}

// observe records the per-request metrics.
func (h *MessagesHandler) observe(tier, outcome string, startTime time.Time) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.RecordRequest(tier, outcome, time.Since(startTime))
}

// isEventStream reports whether the response body is SSE.
func isEventStream(resp *http.Response) bool {
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream")
}
