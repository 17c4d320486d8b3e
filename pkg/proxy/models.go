package proxy

import (
	"fmt"

	"mercator-hq/quaestor/pkg/pricing"
)

// ModelMap binds each tier to the concrete model the gateway forwards to.
type ModelMap map[pricing.Tier]string

// DefaultModelMap returns the stock tier bindings.
func DefaultModelMap() ModelMap {
	return ModelMap{
		pricing.TierCheap:   "claude-3-5-haiku-20241022",
		pricing.TierMid:     "claude-sonnet-4-20250514",
		pricing.TierPremium: "claude-opus-4-20250514",
	}
}

// Model resolves a tier to its model name.
func (m ModelMap) Model(tier pricing.Tier) (string, error) {
	model, ok := m[tier]
	if !ok || model == "" {
		return "", fmt.Errorf("no model configured for tier %q", tier)
	}
	return model, nil
}

// Validate checks that every tier has a model.
func (m ModelMap) Validate() error {
	for _, tier := range []pricing.Tier{pricing.TierCheap, pricing.TierMid, pricing.TierPremium} {
		if m[tier] == "" {
			return fmt.Errorf("model map missing tier %q", tier)
		}
	}
	return nil
}
