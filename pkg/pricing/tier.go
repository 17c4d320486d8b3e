package pricing

import (
	"fmt"
	"strings"
)

// Tier identifies a model capability/cost tier.
type Tier string

const (
	// TierCheap is the cheapest tier (Haiku family).
	TierCheap Tier = "cheap"

	// TierMid is the mid tier (Sonnet family).
	TierMid Tier = "mid"

	// TierPremium is the most capable and most expensive tier (Opus family).
	TierPremium Tier = "premium"
)

// Tiers lists all tiers in ascending cost order.
func Tiers() []Tier {
	return []Tier{TierCheap, TierMid, TierPremium}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierCheap, TierMid, TierPremium:
		return true
	}
	return false
}

// Rank returns the tier's position in ascending cost order (cheap=0).
// Unknown tiers rank below cheap.
func (t Tier) Rank() int {
	switch t {
	case TierCheap:
		return 0
	case TierMid:
		return 1
	case TierPremium:
		return 2
	}
	return -1
}

// Alias returns the model family alias for the tier (haiku, sonnet, opus).
func (t Tier) Alias() string {
	switch t {
	case TierCheap:
		return "haiku"
	case TierMid:
		return "sonnet"
	case TierPremium:
		return "opus"
	}
	return string(t)
}

// ParseTier parses a tier name or model family alias, case-insensitively.
// Accepted values: cheap, mid, premium, haiku, sonnet, opus.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cheap", "haiku":
		return TierCheap, nil
	case "mid", "sonnet":
		return TierMid, nil
	case "premium", "opus":
		return TierPremium, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}
