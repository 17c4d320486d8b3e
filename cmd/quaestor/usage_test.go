package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/quaestor/pkg/ledger"
	"mercator-hq/quaestor/pkg/pricing"
)

func TestUsageTable(t *testing.T) {
	records := []*ledger.UsageRecord{
		{
			ID:           "rec-1",
			Timestamp:    time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC),
			Tier:         pricing.TierCheap,
			Model:        "claude-3-5-haiku-20241022",
			InputTokens:  100,
			OutputTokens: 50,
			Cost:         pricing.FromEUR(0.0123),
			RoutedBy:     "heuristic:short_message",
			QueryPreview: strings.Repeat("x", 80),
		},
	}

	table := usageTable(records)
	if len(table.Headers) != 7 || table.Headers[0] != "TIME" {
		t.Errorf("headers = %v", table.Headers)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(table.Rows))
	}

	row := table.Rows[0]
	if row[0] != "2025-08-25 12:00:00" {
		t.Errorf("time cell = %q", row[0])
	}
	if row[1] != "cheap" {
		t.Errorf("tier cell = %q", row[1])
	}
	if row[3] != "100/50" {
		t.Errorf("tokens cell = %q", row[3])
	}
	if row[4] != "€0.0123" {
		t.Errorf("cost cell = %q", row[4])
	}
	if want := strings.Repeat("x", 50) + "..."; row[6] != want {
		t.Errorf("preview cell = %q, want 50 chars plus ellipsis", row[6])
	}
}

func TestUsageTableShortPreviewKept(t *testing.T) {
	table := usageTable([]*ledger.UsageRecord{{QueryPreview: "hello"}})
	if table.Rows[0][6] != "hello" {
		t.Errorf("preview cell = %q", table.Rows[0][6])
	}
}

func TestFetchUsageHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/usage" {
			t.Errorf("path = %q, want /v1/usage", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want 5", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count": 1,
			"records": []*ledger.UsageRecord{{
				ID:    "rec-1",
				Model: "claude-3-5-haiku-20241022",
				Cost:  pricing.FromEUR(0.5),
			}},
		})
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	records, err := fetchUsageHTTP(addr, 5)
	if err != nil {
		t.Fatalf("fetchUsageHTTP: %v", err)
	}
	if len(records) != 1 || records[0].ID != "rec-1" {
		t.Errorf("records = %+v", records)
	}
	if records[0].Cost != pricing.FromEUR(0.5) {
		t.Errorf("cost = %v", records[0].Cost)
	}
}

func TestFetchUsageHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ledger offline", http.StatusInternalServerError)
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	if _, err := fetchUsageHTTP(addr, 5); err == nil {
		t.Fatal("error status should fail")
	}
}
