package pricing

import (
	"strings"
	"sync"
)

// USDToEUR is the fixed conversion rate applied to Anthropic's USD list
// prices. Stored prices are EUR; there is no runtime currency conversion.
const USDToEUR = 0.92

// Price holds per-model token prices in micro-EUR per one million tokens.
type Price struct {
	// InputPerMTok is the price of one million input tokens.
	InputPerMTok MicroEUR

	// OutputPerMTok is the price of one million output tokens.
	OutputPerMTok MicroEUR
}

// Zero reports whether the price is entirely unset.
func (p Price) Zero() bool {
	return p.InputPerMTok == 0 && p.OutputPerMTok == 0
}

// perUSDPerMTok converts a USD-per-million-tokens list price to micro-EUR.
func perUSDPerMTok(usd float64) MicroEUR {
	return FromEUR(usd * USDToEUR)
}

// defaultPrices is the built-in price list, keyed by concrete model ID.
// USD list prices: Haiku 3.5 $1/$5, Sonnet $3/$15, Opus 4 $15/$75 per MTok.
func defaultPrices() map[string]Price {
	return map[string]Price{
		"claude-3-5-haiku-20241022": {
			InputPerMTok:  perUSDPerMTok(1.0),
			OutputPerMTok: perUSDPerMTok(5.0),
		},
		"claude-3-5-sonnet-20241022": {
			InputPerMTok:  perUSDPerMTok(3.0),
			OutputPerMTok: perUSDPerMTok(15.0),
		},
		"claude-sonnet-4-20250514": {
			InputPerMTok:  perUSDPerMTok(3.0),
			OutputPerMTok: perUSDPerMTok(15.0),
		},
		"claude-opus-4-20250514": {
			InputPerMTok:  perUSDPerMTok(15.0),
			OutputPerMTok: perUSDPerMTok(75.0),
		},
	}
}

// Table is a thread-safe model price table with hot-reload support.
type Table struct {
	mu     sync.RWMutex
	models map[string]Price
}

// DefaultTable returns a table with the built-in price list.
func DefaultTable() *Table {
	return &Table{models: defaultPrices()}
}

// NewTable returns the default table with overrides merged on top.
// Override entries replace or extend the built-in list.
func NewTable(overrides map[string]Price) *Table {
	t := DefaultTable()
	for model, price := range overrides {
		t.models[model] = price
	}
	return t
}

// PriceFor resolves the price for a concrete model ID. It tries an exact
// match first, then the longest matching prefix entry. The second return
// is false when no entry matches.
func (t *Table) PriceFor(model string) (Price, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if p, ok := t.models[model]; ok {
		return p, true
	}

	var (
		best    Price
		bestLen = -1
	)
	for pattern, p := range t.models {
		if strings.HasPrefix(model, pattern) && len(pattern) > bestLen {
			best = p
			bestLen = len(pattern)
		}
	}
	if bestLen >= 0 {
		return best, true
	}
	return Price{}, false
}

// Cost computes the cost of a call in micro-EUR from actual token counts.
// Unknown models cost zero; the caller decides whether to log.
func (t *Table) Cost(model string, inputTokens, outputTokens int64) MicroEUR {
	p, ok := t.PriceFor(model)
	if !ok {
		return 0
	}
	return tokenCost(inputTokens, p.InputPerMTok) + tokenCost(outputTokens, p.OutputPerMTok)
}

// Update replaces the price list (hot-reload support). A nil or empty map
// restores the built-in defaults.
func (t *Table) Update(prices map[string]Price) {
	if len(prices) == 0 {
		prices = defaultPrices()
	} else {
		merged := defaultPrices()
		for model, price := range prices {
			merged[model] = price
		}
		prices = merged
	}

	t.mu.Lock()
	t.models = prices
	t.mu.Unlock()
}

// Models returns the model IDs currently priced, for diagnostics.
func (t *Table) Models() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.models))
	for model := range t.models {
		out = append(out, model)
	}
	return out
}

// tokenCost is tokens * pricePerMTok / 1e6 in integer arithmetic,
// rounding half up.
func tokenCost(tokens int64, perMTok MicroEUR) MicroEUR {
	if tokens <= 0 || perMTok <= 0 {
		return 0
	}
	v := tokens*int64(perMTok) + 500_000
	return MicroEUR(v / 1_000_000)
}
