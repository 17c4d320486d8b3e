package ledger

import (
	"strings"
	"testing"
	"time"

	"mercator-hq/quaestor/pkg/pricing"
)

func TestDailyWindow(t *testing.T) {
	now := time.Date(2025, 8, 25, 14, 30, 0, 0, time.UTC)
	w := DailyWindow(now)

	if want := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC); !w.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", w.Start, want)
	}
	if want := time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC); !w.End.Equal(want) {
		t.Errorf("End = %v, want %v", w.End, want)
	}

	// Half-open: start is inside, end is not.
	if !w.Contains(w.Start) {
		t.Error("window should contain its start")
	}
	if w.Contains(w.End) {
		t.Error("window should not contain its end")
	}
}

func TestDailyWindowUsesUTC(t *testing.T) {
	// 23:30 in UTC+2 is 21:30 UTC, still the same UTC day.
	loc := time.FixedZone("CEST", 2*3600)
	now := time.Date(2025, 8, 25, 23, 30, 0, 0, loc)

	w := DailyWindow(now)
	if want := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC); !w.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", w.Start, want)
	}
}

func TestMonthlyWindow(t *testing.T) {
	tests := []struct {
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			now:       time.Date(2025, 8, 25, 10, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			// December rolls into the next year.
			now:       time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC),
			wantStart: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		w := MonthlyWindow(tt.now)
		if !w.Start.Equal(tt.wantStart) || !w.End.Equal(tt.wantEnd) {
			t.Errorf("MonthlyWindow(%v) = [%v, %v), want [%v, %v)",
				tt.now, w.Start, w.End, tt.wantStart, tt.wantEnd)
		}
	}
}

func TestPreviousMonthlyWindow(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	w := PreviousMonthlyWindow(now)

	if want := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC); !w.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", w.Start, want)
	}
	if want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC); !w.End.Equal(want) {
		t.Errorf("End = %v, want %v", w.End, want)
	}
}

func TestDaysUntilMonthlyReset(t *testing.T) {
	tests := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2025, 8, 25, 14, 0, 0, 0, time.UTC), 6},
		{time.Date(2025, 8, 31, 23, 0, 0, 0, time.UTC), 0},
		{time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), 31},
	}
	for _, tt := range tests {
		if got := DaysUntilMonthlyReset(tt.now); got != tt.want {
			t.Errorf("DaysUntilMonthlyReset(%v) = %d, want %d", tt.now, got, tt.want)
		}
	}
}

func TestSanitizePreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"newlines collapse", "line one\nline two\n\tindented", "line one line two indented"},
		{"empty", "", ""},
		{
			"truncated to limit",
			strings.Repeat("a", 150),
			strings.Repeat("a", 100),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizePreview(tt.in); got != tt.want {
				t.Errorf("SanitizePreview = %q, want %q", got, tt.want)
			}
		})
	}

	// Rune-safe truncation must not split multi-byte characters.
	long := strings.Repeat("é", 150)
	got := SanitizePreview(long)
	if len([]rune(got)) != 100 {
		t.Errorf("truncated preview has %d runes, want 100", len([]rune(got)))
	}
}

func TestUsageRecordValidate(t *testing.T) {
	valid := func() *UsageRecord {
		return &UsageRecord{
			ID:           "rec-1",
			Timestamp:    time.Now().UTC(),
			Tier:         pricing.TierCheap,
			Model:        "claude-3-5-haiku-20241022",
			InputTokens:  10,
			OutputTokens: 20,
			Cost:         100,
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid record failed validation: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*UsageRecord)
		wantErr error
	}{
		{"missing id", func(r *UsageRecord) { r.ID = "" }, ErrNoID},
		{"missing timestamp", func(r *UsageRecord) { r.Timestamp = time.Time{} }, ErrNoTimestamp},
		{"bad tier", func(r *UsageRecord) { r.Tier = "turbo" }, ErrInvalidTier},
		{"missing model", func(r *UsageRecord) { r.Model = "" }, ErrNoModel},
		{"negative cost", func(r *UsageRecord) { r.Cost = -1 }, ErrNegativeCost},
		{"negative tokens", func(r *UsageRecord) { r.InputTokens = -1 }, ErrNegativeCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid()
			tt.mutate(rec)
			if err := rec.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
