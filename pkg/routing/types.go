package routing

import (
	"context"
	"time"

	"mercator-hq/quaestor/pkg/pricing"
)

// Routing reason tags, recorded on usage records as RoutedBy.
const (
	// ReasonShortMessage marks short queries routed cheap without a
	// network call.
	ReasonShortMessage = "heuristic:short_message"

	// ReasonCodeBlock marks queries with a fenced code block, routed to
	// the mid tier.
	ReasonCodeBlock = "heuristic:code_block"

	// ReasonKeywordPrefix prefixes the matched complexity keyword, e.g.
	// "heuristic:keyword:architect".
	ReasonKeywordPrefix = "heuristic:keyword:"

	// ReasonSelfHandle marks queries the classifier kept on the cheap
	// tier.
	ReasonSelfHandle = "classifier:self_handle"

	// ReasonEscalate marks queries the classifier moved to a higher
	// tier.
	ReasonEscalate = "classifier:escalate"

	// ReasonAmbiguousFallback marks unparseable classifier answers,
	// routed mid.
	ReasonAmbiguousFallback = "classifier:ambiguous_fallback"

	// ReasonErrorFallback marks classifier transport failures, routed
	// mid.
	ReasonErrorFallback = "classifier:error_fallback"

	// ReasonManual marks explicit caller tier overrides.
	ReasonManual = "manual"

	// ReasonUnclassified marks ambiguous queries kept on the cheap tier
	// because auto-classification is disabled.
	ReasonUnclassified = "heuristic:unclassified"
)

// Decision is the outcome of routing one query.
type Decision struct {
	// Tier is the selected routing tier.
	Tier pricing.Tier `json:"tier"`

	// Reason is the routing reason tag.
	Reason string `json:"reason"`

	// NeedsEscalation is true when no heuristic matched and the
	// classifier should decide. Set only by Classify; Escalate always
	// resolves it.
	NeedsEscalation bool `json:"needs_escalation,omitempty"`
}

// EscalationUsage reports the tokens consumed by a classification call.
// The tokens were genuinely spent upstream, so the caller records them in
// the ledger like any other usage.
type EscalationUsage struct {
	// Model is the concrete model that served the classification.
	Model string

	// InputTokens and OutputTokens are upstream-reported counts.
	InputTokens  int64
	OutputTokens int64
}

// ClassifierReply is the raw result of one classification call.
type ClassifierReply struct {
	// Text is the model's answer, expected to contain one tier label.
	Text string

	// Model is the concrete model that answered.
	Model string

	// InputTokens and OutputTokens are upstream-reported counts.
	InputTokens  int64
	OutputTokens int64
}

// Classifier performs the single constrained completion used for
// escalation. Implemented by the upstream Anthropic client.
type Classifier interface {
	Classify(ctx context.Context, model, prompt string, maxTokens int) (*ClassifierReply, error)
}

// Config contains configuration for the router.
type Config struct {
	// ShortMessageWords is the word count below which a query routes
	// cheap. Default 20.
	ShortMessageWords int

	// Keywords are complexity markers that route a query to the premium
	// tier. Matched case-insensitively as substrings, first match wins.
	Keywords []string

	// ClassifierModel is the concrete cheap-tier model used for
	// escalation calls.
	ClassifierModel string

	// EscalationTimeout bounds the classification call. Default 10s.
	EscalationTimeout time.Duration

	// EscalationMaxTokens caps the classifier answer. Default 10.
	EscalationMaxTokens int

	// DisableAutoClassify turns off classifier escalation entirely.
	// Ambiguous queries stay on the cheap tier.
	DisableAutoClassify bool
}

// DefaultKeywords are the complexity keywords used when none are
// configured.
func DefaultKeywords() []string {
	return []string{
		"architect",
		"design",
		"complex",
		"plan",
		"analyze",
		"comprehensive",
		"strategy",
		"review thoroughly",
	}
}

// withDefaults fills unset config fields.
func (c Config) withDefaults() Config {
	if c.ShortMessageWords <= 0 {
		c.ShortMessageWords = 20
	}
	if len(c.Keywords) == 0 {
		c.Keywords = DefaultKeywords()
	}
	if c.EscalationTimeout <= 0 {
		c.EscalationTimeout = 10 * time.Second
	}
	if c.EscalationMaxTokens <= 0 {
		c.EscalationMaxTokens = 10
	}
	return c
}
