// Package pricing provides model pricing data and cost calculation for
// Anthropic API usage.
//
// # Money
//
// All monetary amounts are fixed-point int64 micro-EUR (MicroEUR); one EUR is
// 1,000,000 micro-EUR. Arithmetic on costs and budgets never touches floating
// point, so repeated small charges cannot drift. Conversion to float happens
// only at display and metrics edges.
//
// # Pricing Model
//
// Prices are per one million tokens, keyed by concrete model ID, converted
// from Anthropic's USD list prices at a fixed USD→EUR rate:
//
//   - Input (prompt) tokens: lower cost
//   - Output (completion) tokens: typically 5x input cost
//
// Lookup tries an exact model match first, then a prefix match (so dated
// snapshots like "claude-3-5-haiku-20241022" can match a "claude-3-5-haiku"
// entry). Unknown models cost zero; callers log and continue.
//
// # Usage
//
//	table := pricing.DefaultTable()
//	cost := table.Cost("claude-3-5-haiku-20241022", 1200, 450)
//	fmt.Printf("request cost: %s\n", cost)
//
// # Tiers
//
// The Tier type names the three routing tiers (cheap, mid, premium) used
// throughout quaestor. ParseTier also accepts the model family aliases
// (haiku, sonnet, opus).
//
// # Pricing Updates
//
// The table supports hot-reload via Update; access is guarded by a
// read-write lock.
package pricing
