package pricing

import "testing"

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"", 0},
		{"hi", 1}, // non-empty floors at one token
		{"exactly sixteen.", 4},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestEstimateRequestRanges(t *testing.T) {
	table := DefaultTable()
	model := "claude-sonnet-4-20250514"

	short := table.EstimateRequest(TierMid, model, "short question")
	if short.OutputTokensMin != 50 || short.OutputTokensMax != 200 {
		t.Errorf("short input range = [%d, %d], want [50, 200]",
			short.OutputTokensMin, short.OutputTokensMax)
	}

	// ~400 chars puts the input in the 50–200 token band.
	medium := table.EstimateRequest(TierMid, model, string(make([]byte, 400)))
	if medium.InputTokens < 50 || medium.InputTokens > 200 {
		t.Fatalf("medium input estimated at %d tokens", medium.InputTokens)
	}
	if medium.OutputTokensMin != 100 || medium.OutputTokensMax != 500 {
		t.Errorf("medium range = [%d, %d], want [100, 500]",
			medium.OutputTokensMin, medium.OutputTokensMax)
	}

	long := table.EstimateRequest(TierMid, model, string(make([]byte, 2000)))
	if long.OutputTokensMin != 200 || long.OutputTokensMax != 1000 {
		t.Errorf("long range = [%d, %d], want [200, 1000]",
			long.OutputTokensMin, long.OutputTokensMax)
	}

	if long.CostMin <= 0 || long.CostMax < long.CostMin {
		t.Errorf("cost range [%d, %d] not sane", long.CostMin, long.CostMax)
	}
}

func TestEstimateRequestMultipliers(t *testing.T) {
	table := DefaultTable()

	cheap := table.EstimateRequest(TierCheap, "claude-3-5-haiku-20241022", "why is the sky blue today")
	premium := table.EstimateRequest(TierPremium, "claude-opus-4-20250514", "why is the sky blue today")

	// Haiku is expected to answer shorter, Opus longer: 80% vs 130% of base.
	if cheap.OutputTokensMax != 160 {
		t.Errorf("cheap OutputTokensMax = %d, want 160", cheap.OutputTokensMax)
	}
	if premium.OutputTokensMax != 260 {
		t.Errorf("premium OutputTokensMax = %d, want 260", premium.OutputTokensMax)
	}
}
