package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/quaestor/pkg/ledger"
	"mercator-hq/quaestor/pkg/pricing"
)

func TestBudgetHandler(t *testing.T) {
	led := &memLedger{status: statusWith(2.5, 45)}
	h := NewBudgetHandler(led)

	req := httptest.NewRequest(http.MethodGet, "/v1/budget", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var status ledger.BudgetStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("response body: %v", err)
	}
	if status.DailySpent != pricing.FromEUR(2.5) {
		t.Errorf("daily spent = %d, want %d", status.DailySpent, pricing.FromEUR(2.5))
	}
	if status.MonthlyLimit != pricing.FromEUR(90) {
		t.Errorf("monthly limit = %d, want %d", status.MonthlyLimit, pricing.FromEUR(90))
	}
}

func TestBudgetHandlerMethodNotAllowed(t *testing.T) {
	h := NewBudgetHandler(&memLedger{status: statusWith(0, 0)})

	req := httptest.NewRequest(http.MethodPost, "/v1/budget", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestBudgetHandlerStorageFailure(t *testing.T) {
	led := &memLedger{statusErr: &ledger.StorageError{Op: "query spending"}}
	h := NewBudgetHandler(led)

	req := httptest.NewRequest(http.MethodGet, "/v1/budget", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestUsageHandler(t *testing.T) {
	led := &memLedger{status: statusWith(0, 0)}
	for i := 0; i < 5; i++ {
		led.records = append(led.records, &ledger.UsageRecord{
			ID:       "rec",
			Tier:     pricing.TierCheap,
			Model:    haikuModel,
			RoutedBy: "heuristic:short_message",
		})
	}
	h := NewUsageHandler(led)

	req := httptest.NewRequest(http.MethodGet, "/v1/usage?limit=3", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Count   int                   `json:"count"`
		Records []*ledger.UsageRecord `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response body: %v", err)
	}
	if resp.Count != 3 || len(resp.Records) != 3 {
		t.Errorf("count = %d, records = %d, want 3", resp.Count, len(resp.Records))
	}
}

func TestUsageHandlerInvalidLimit(t *testing.T) {
	h := NewUsageHandler(&memLedger{})

	for _, limit := range []string{"zero", "-1", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/usage?limit="+limit, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler("quaestor", "1.2.3")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response body: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v, want ok", resp["status"])
	}
	if resp["service"] != "quaestor" {
		t.Errorf("service field = %v", resp["service"])
	}
	if resp["version"] != "1.2.3" {
		t.Errorf("version field = %v", resp["version"])
	}
}
