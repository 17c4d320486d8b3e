package routing

import (
	"context"
	"fmt"
	"strings"

	"mercator-hq/quaestor/pkg/pricing"
)

// reasonNeedsClassification is the placeholder reason on tentative
// decisions. Escalate always replaces it, so it never reaches the ledger.
const reasonNeedsClassification = "needs_classification"

// classifyQueryLimit caps how much of the query is embedded in the
// classification prompt.
const classifyQueryLimit = 500

// Escalate asks the cheap-tier classifier which tier should handle
// message. It never fails the request: classifier errors and unusable
// answers degrade to the mid tier, and the returned decision is always
// final (NeedsEscalation false). classifier is supplied per call since
// the classification request authenticates with the caller's upstream
// credentials; nil skips the call and falls back to the mid tier.
//
// The second result reports the tokens the classification call consumed,
// nil when no call completed. The caller records them in the ledger.
func (r *Router) Escalate(ctx context.Context, message string, classifier Classifier) (*Decision, *EscalationUsage) {
	cfg := r.Config()

	if classifier == nil {
		r.logger.Warn("no classifier available, falling back to mid tier")
		return &Decision{Tier: pricing.TierMid, Reason: ReasonErrorFallback}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.EscalationTimeout)
	defer cancel()

	prompt := classificationPrompt(message)
	reply, err := classifier.Classify(ctx, cfg.ClassifierModel, prompt, cfg.EscalationMaxTokens)
	if err != nil {
		cerr := &ClassificationError{Model: cfg.ClassifierModel, Cause: err}
		r.logger.Warn("classification call failed, falling back to mid tier",
			"error", cerr,
		)
		return &Decision{Tier: pricing.TierMid, Reason: ReasonErrorFallback}, nil
	}

	usage := &EscalationUsage{
		Model:        reply.Model,
		InputTokens:  reply.InputTokens,
		OutputTokens: reply.OutputTokens,
	}

	decision := parseClassifierAnswer(reply.Text)
	r.logger.Debug("classifier decision",
		"tier", string(decision.Tier),
		"reason", decision.Reason,
		"answer", strings.TrimSpace(reply.Text),
	)
	return decision, usage
}

// classificationPrompt builds the constrained prompt sent to the cheap
// tier. The query is truncated so the call stays small.
func classificationPrompt(message string) string {
	runes := []rune(message)
	if len(runes) > classifyQueryLimit {
		message = string(runes[:classifyQueryLimit])
	}

	return fmt.Sprintf(`Classify this query's complexity. Reply with ONE word only:
- HAIKU: Simple questions, basic info, short tasks
- SONNET: Code review, medium complexity, detailed explanations
- OPUS: Architecture, complex analysis, deep reasoning, planning

Query: %s

Answer (one word):`, message)
}

// parseClassifierAnswer maps the classifier's answer to a tier. The most
// capable label wins when several appear; an answer without any label
// falls back to the mid tier.
func parseClassifierAnswer(answer string) *Decision {
	upper := strings.ToUpper(answer)

	switch {
	case strings.Contains(upper, "OPUS"):
		return &Decision{Tier: pricing.TierPremium, Reason: ReasonEscalate}
	case strings.Contains(upper, "SONNET"):
		return &Decision{Tier: pricing.TierMid, Reason: ReasonEscalate}
	case strings.Contains(upper, "HAIKU"):
		return &Decision{Tier: pricing.TierCheap, Reason: ReasonSelfHandle}
	default:
		return &Decision{Tier: pricing.TierMid, Reason: ReasonAmbiguousFallback}
	}
}
