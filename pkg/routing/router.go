package routing

import (
	"log/slog"
	"strings"
	"sync"

	"mercator-hq/quaestor/pkg/pricing"
)

// Router selects the cheapest capable tier for a query.
//
// The routing decision follows this precedence:
//  1. Free heuristics, evaluated top-down, first match wins
//  2. One classifier escalation call when no heuristic matched
//  3. Conservative mid-tier fallback when the classifier misbehaves
//
// Heuristics never touch the network, so the common case costs nothing.
// The classifier is handed to Escalate per call because classification
// rides the caller's upstream credentials. Router is thread-safe; its
// config can be swapped at runtime via Update (hot reload).
type Router struct {
	logger *slog.Logger

	mu  sync.RWMutex
	cfg Config
}

// NewRouter creates a router. A nil logger falls back to slog.Default.
func NewRouter(cfg Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger: logger.With("component", "router"),
		cfg:    cfg.withDefaults(),
	}
}

// Update replaces the router configuration (hot-reload support).
func (r *Router) Update(cfg Config) {
	r.mu.Lock()
	r.cfg = cfg.withDefaults()
	r.mu.Unlock()
}

// Config returns the current router configuration.
func (r *Router) Config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Classify routes message using free heuristics only. It is pure and
// side-effect-free; when no heuristic matches it returns a tentative
// cheap decision with NeedsEscalation set.
func (r *Router) Classify(message string) *Decision {
	cfg := r.Config()

	// Rule 1: short messages go to the cheap tier.
	if len(strings.Fields(message)) < cfg.ShortMessageWords {
		return &Decision{Tier: pricing.TierCheap, Reason: ReasonShortMessage}
	}

	// Rule 2: fenced code blocks need at least the mid tier.
	if strings.Contains(message, "```") {
		return &Decision{Tier: pricing.TierMid, Reason: ReasonCodeBlock}
	}

	// Rule 3: complexity keywords go straight to premium.
	lower := strings.ToLower(message)
	for _, keyword := range cfg.Keywords {
		if strings.Contains(lower, keyword) {
			return &Decision{
				Tier:   pricing.TierPremium,
				Reason: ReasonKeywordPrefix + keyword,
			}
		}
	}

	// Rule 4: ambiguous, let the classifier decide. Without a
	// classifier the cheap tier keeps the request.
	if cfg.DisableAutoClassify {
		return &Decision{Tier: pricing.TierCheap, Reason: ReasonUnclassified}
	}
	return &Decision{
		Tier:            pricing.TierCheap,
		Reason:          reasonNeedsClassification,
		NeedsEscalation: true,
	}
}

// Manual builds the decision for an explicit caller tier override.
func Manual(tier pricing.Tier) *Decision {
	return &Decision{Tier: tier, Reason: ReasonManual}
}
