package pricing

// Pre-flight estimation is advisory only: it feeds log fields and the status
// CLI. Billing always uses upstream-reported token counts.

// charsPerToken is the character ratio for the quick input estimate.
// Good to roughly ±20% on English prose, which is enough for a range.
const charsPerToken = 4

// Output token ranges by input size category.
var (
	outputRangeShort  = [2]int64{50, 200}   // input < 50 tokens
	outputRangeMedium = [2]int64{100, 500}  // input 50–200 tokens
	outputRangeLong   = [2]int64{200, 1000} // input > 200 tokens
)

// outputMultiplier captures how verbose each tier tends to be: Haiku is
// concise, Opus is verbose, Sonnet in between. Expressed as percent to keep
// the arithmetic integral.
func outputMultiplier(t Tier) int64 {
	switch t {
	case TierCheap:
		return 80
	case TierPremium:
		return 130
	default:
		return 100
	}
}

// Estimate is a pre-flight cost estimate for one request.
type Estimate struct {
	// InputTokens is the estimated input token count.
	InputTokens int64

	// OutputTokensMin and OutputTokensMax bound the expected output size.
	OutputTokensMin int64
	OutputTokensMax int64

	// CostMin and CostMax bound the expected cost.
	CostMin MicroEUR
	CostMax MicroEUR

	// Model is the concrete model the estimate was priced against.
	Model string
}

// EstimateTokens estimates the token count of text by character count.
// Non-empty text estimates to at least one token.
func EstimateTokens(text string) int64 {
	if text == "" {
		return 0
	}
	n := int64(len(text)+charsPerToken/2) / charsPerToken
	if n < 1 {
		n = 1
	}
	return n
}

// EstimateRequest produces a cost range for a request about to be routed to
// tier, priced as model. The output range scales with input size and the
// tier's verbosity multiplier.
func (t *Table) EstimateRequest(tier Tier, model, text string) *Estimate {
	in := EstimateTokens(text)

	var r [2]int64
	switch {
	case in < 50:
		r = outputRangeShort
	case in <= 200:
		r = outputRangeMedium
	default:
		r = outputRangeLong
	}

	mult := outputMultiplier(tier)
	outMin := r[0] * mult / 100
	outMax := r[1] * mult / 100

	return &Estimate{
		InputTokens:     in,
		OutputTokensMin: outMin,
		OutputTokensMax: outMax,
		CostMin:         t.Cost(model, in, outMin),
		CostMax:         t.Cost(model, in, outMax),
		Model:           model,
	}
}
