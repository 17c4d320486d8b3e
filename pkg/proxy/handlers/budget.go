package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/quaestor/pkg/proxy"
	"mercator-hq/quaestor/pkg/proxy/middleware"
)

// BudgetHandler serves the current budget snapshot.
type BudgetHandler struct {
	Ledger UsageLedger
}

// NewBudgetHandler creates a new budget status handler.
func NewBudgetHandler(l UsageLedger) *BudgetHandler {
	return &BudgetHandler{Ledger: l}
}

// ServeHTTP implements http.Handler for GET /v1/budget.
func (h *BudgetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	status, err := h.Ledger.Status(ctx, time.Now())
	if err != nil {
		slog.ErrorContext(ctx, "budget status read failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		proxy.WriteError(w, http.StatusInternalServerError, proxy.ErrorTypeAPI,
			"budget status unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// UsageHandler serves recent usage records.
type UsageHandler struct {
	Ledger UsageLedger
}

// NewUsageHandler creates a new usage listing handler.
func NewUsageHandler(l UsageLedger) *UsageHandler {
	return &UsageHandler{Ledger: l}
}

// ServeHTTP implements http.Handler for GET /v1/usage. The limit query
// parameter caps the number of records returned (default 20).
func (h *UsageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			proxy.WriteError(w, http.StatusBadRequest, proxy.ErrorTypeInvalidRequest,
				"limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.Ledger.Recent(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "usage read failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		proxy.WriteError(w, http.StatusInternalServerError, proxy.ErrorTypeAPI,
			"usage records unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}
