package ledger_test

import (
	"context"
	"testing"
	"time"

	"mercator-hq/quaestor/pkg/ledger"
	"mercator-hq/quaestor/pkg/ledger/storage"
	"mercator-hq/quaestor/pkg/pricing"
)

func testConfig() ledger.Config {
	return ledger.Config{
		MonthlyBudget:       pricing.FromEUR(90),
		DailySoftLimit:      pricing.FromEUR(5),
		DailyHardLimit:      pricing.FromEUR(10),
		RolloverEnabled:     true,
		MaxRolloverFraction: 0.5,
	}
}

func seedUsage(t *testing.T, led *ledger.Ledger, ts time.Time, cost pricing.MicroEUR) {
	t.Helper()
	err := led.Record(context.Background(), &ledger.UsageRecord{
		Timestamp:    ts,
		Tier:         pricing.TierMid,
		Model:        "claude-sonnet-4-20250514",
		InputTokens:  100,
		OutputTokens: 100,
		Cost:         cost,
		RoutedBy:     "manual",
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}
}

func TestRecordFillsDefaults(t *testing.T) {
	led := ledger.New(storage.NewMemoryStore(), testConfig(), nil)

	rec := &ledger.UsageRecord{
		Tier:         pricing.TierCheap,
		Model:        "claude-3-5-haiku-20241022",
		InputTokens:  12,
		OutputTokens: 40,
		Cost:         500,
		RoutedBy:     "heuristic:short_message",
		QueryPreview: "what\nis\tthe time",
	}
	if err := led.Record(context.Background(), rec); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if rec.ID == "" {
		t.Error("Record should assign an ID")
	}
	if rec.Timestamp.IsZero() || rec.Timestamp.Location() != time.UTC {
		t.Errorf("Record should assign a UTC timestamp, got %v", rec.Timestamp)
	}
	if rec.QueryPreview != "what is the time" {
		t.Errorf("preview not sanitized: %q", rec.QueryPreview)
	}

	recent, err := led.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != rec.ID {
		t.Errorf("Recent = %+v, want the committed record", recent)
	}
}

func TestRecordRejectsInvalid(t *testing.T) {
	led := ledger.New(storage.NewMemoryStore(), testConfig(), nil)

	err := led.Record(context.Background(), &ledger.UsageRecord{
		Tier:  "turbo",
		Model: "claude-3-5-haiku-20241022",
	})
	if err != ledger.ErrInvalidTier {
		t.Errorf("Record with bad tier = %v, want ErrInvalidTier", err)
	}

	recent, _ := led.Recent(context.Background(), 10)
	if len(recent) != 0 {
		t.Error("invalid record must not be written")
	}
}

func TestStatusSpendAggregation(t *testing.T) {
	led := ledger.New(storage.NewMemoryStore(), testConfig(), nil)
	now := time.Date(2025, 8, 25, 14, 0, 0, 0, time.UTC)

	seedUsage(t, led, now.Add(-2*time.Hour), pricing.FromEUR(1))           // today
	seedUsage(t, led, now.Add(-30*time.Minute), pricing.FromEUR(0.5))      // today
	seedUsage(t, led, now.AddDate(0, 0, -3), pricing.FromEUR(2))                        // this month, not today
	seedUsage(t, led, time.Date(2025, 7, 20, 9, 0, 0, 0, time.UTC), pricing.FromEUR(7)) // July, excluded

	st, err := led.Status(context.Background(), now)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}

	if want := pricing.FromEUR(1.5); st.DailySpent != want {
		t.Errorf("DailySpent = %v, want %v", st.DailySpent, want)
	}
	if want := pricing.FromEUR(3.5); st.MonthlySpent != want {
		t.Errorf("MonthlySpent = %v, want %v", st.MonthlySpent, want)
	}
	if st.DaysUntilReset != 6 {
		t.Errorf("DaysUntilReset = %d, want 6", st.DaysUntilReset)
	}
}

func TestStatusRollover(t *testing.T) {
	tests := []struct {
		name      string
		prevSpent float64
		enabled   bool
		want      float64
	}{
		// €90 budget, €70 spent: €20 unused carries in full.
		{"partial carry", 70, true, 20},
		// €90 budget, €10 spent: €80 unused capped at half the budget.
		{"capped at half", 10, true, 45},
		{"overspend carries nothing", 100, true, 0},
		{"disabled", 10, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.RolloverEnabled = tt.enabled
			led := ledger.New(storage.NewMemoryStore(), cfg, nil)

			now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)
			if tt.prevSpent > 0 {
				seedUsage(t, led, time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC), pricing.FromEUR(tt.prevSpent))
			}

			st, err := led.Status(context.Background(), now)
			if err != nil {
				t.Fatalf("Status: %v", err)
			}

			if want := pricing.FromEUR(tt.want); st.MonthlyRollover != want {
				t.Errorf("MonthlyRollover = %v, want %v", st.MonthlyRollover, want)
			}
			if want := pricing.FromEUR(90 + tt.want); st.MonthlyLimit != want {
				t.Errorf("MonthlyLimit = %v, want %v", st.MonthlyLimit, want)
			}
		})
	}
}

func TestRolloverDecidedOnce(t *testing.T) {
	led := ledger.New(storage.NewMemoryStore(), testConfig(), nil)
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	seedUsage(t, led, time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC), pricing.FromEUR(70))

	st, err := led.Status(context.Background(), now)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if want := pricing.FromEUR(20); st.MonthlyRollover != want {
		t.Fatalf("MonthlyRollover = %v, want %v", st.MonthlyRollover, want)
	}

	// Backfilled July spend must not change an already-decided rollover.
	seedUsage(t, led, time.Date(2025, 7, 11, 12, 0, 0, 0, time.UTC), pricing.FromEUR(15))

	st, err = led.Status(context.Background(), now)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if want := pricing.FromEUR(20); st.MonthlyRollover != want {
		t.Errorf("MonthlyRollover after backfill = %v, want %v", st.MonthlyRollover, want)
	}
}

func TestStatusLimitPredicates(t *testing.T) {
	led := ledger.New(storage.NewMemoryStore(), testConfig(), nil)
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	st, err := led.Status(context.Background(), now)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.DailyHardExceeded() || st.MonthlyExhausted() {
		t.Error("empty ledger should not trip limits")
	}

	// Exactly at the hard limit counts as exceeded.
	seedUsage(t, led, now.Add(-time.Hour), pricing.FromEUR(10))
	st, _ = led.Status(context.Background(), now)
	if !st.DailyHardExceeded() {
		t.Error("spend equal to hard limit should count as exceeded")
	}
}

func TestSnapshotWritesNothing(t *testing.T) {
	store := storage.NewMemoryStore()
	led := ledger.New(store, testConfig(), nil)
	now := time.Date(2025, 8, 25, 14, 0, 0, 0, time.UTC)

	seedUsage(t, led, now.Add(-time.Hour), pricing.FromEUR(1))
	seedUsage(t, led, now.AddDate(0, 0, -3), pricing.FromEUR(2))

	st, err := led.Snapshot(context.Background(), now)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if want := pricing.FromEUR(1); st.DailySpent != want {
		t.Errorf("DailySpent = %v, want %v", st.DailySpent, want)
	}
	if want := pricing.FromEUR(3); st.MonthlySpent != want {
		t.Errorf("MonthlySpent = %v, want %v", st.MonthlySpent, want)
	}
	if st.MonthlyRollover != 0 {
		t.Errorf("MonthlyRollover = %v, want 0 for unmaterialized month", st.MonthlyRollover)
	}

	p, err := store.GetPeriod(context.Background(), ledger.PeriodMonthly, ledger.MonthlyWindow(now).Start)
	if err != nil {
		t.Fatalf("GetPeriod: %v", err)
	}
	if p != nil {
		t.Error("Snapshot must not materialize period rows")
	}
}

func TestSnapshotSeesDecidedRollover(t *testing.T) {
	led := ledger.New(storage.NewMemoryStore(), testConfig(), nil)
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	seedUsage(t, led, time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC), pricing.FromEUR(70))

	// Status materializes the month and decides its rollover; Snapshot
	// must then report the same numbers.
	want, err := led.Status(context.Background(), now)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}

	st, err := led.Snapshot(context.Background(), now)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if st.MonthlyRollover != want.MonthlyRollover {
		t.Errorf("MonthlyRollover = %v, want %v", st.MonthlyRollover, want.MonthlyRollover)
	}
	if st.MonthlyLimit != want.MonthlyLimit {
		t.Errorf("MonthlyLimit = %v, want %v", st.MonthlyLimit, want.MonthlyLimit)
	}
	if want := pricing.FromEUR(20); st.MonthlyRollover != want {
		t.Errorf("MonthlyRollover = %v, want %v", st.MonthlyRollover, want)
	}
}

func TestUpdateBudget(t *testing.T) {
	led := ledger.New(storage.NewMemoryStore(), testConfig(), nil)
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	cfg := testConfig()
	cfg.DailyHardLimit = pricing.FromEUR(2)
	led.UpdateBudget(cfg)

	seedUsage(t, led, now.Add(-time.Hour), pricing.FromEUR(3))
	st, err := led.Status(context.Background(), now)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.DailyHardExceeded() {
		t.Error("lowered hard limit should apply from the next status")
	}
}

func TestPrune(t *testing.T) {
	led := ledger.New(storage.NewMemoryStore(), testConfig(), nil)
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	seedUsage(t, led, now.AddDate(-1, -1, 0), pricing.FromEUR(1))
	seedUsage(t, led, now.Add(-time.Hour), pricing.FromEUR(1))

	deleted, err := led.Prune(context.Background(), now.AddDate(-1, 0, 0))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Prune removed %d records, want 1", deleted)
	}

	recent, _ := led.Recent(context.Background(), 10)
	if len(recent) != 1 {
		t.Errorf("%d records left, want 1", len(recent))
	}
}
