package pricing

import (
	"fmt"
	"math"
)

// MicroEUR is a monetary amount in millionths of a euro.
// All budget and cost arithmetic uses this fixed-point representation.
type MicroEUR int64

// MicroPerEUR is the number of micro-EUR in one euro.
const MicroPerEUR = 1_000_000

// FromEUR converts a euro amount to micro-EUR, rounding half away from zero.
// Used at configuration edges only; internal arithmetic stays integral.
func FromEUR(v float64) MicroEUR {
	return MicroEUR(math.Round(v * MicroPerEUR))
}

// EUR converts to a float euro amount for display and metrics.
func (m MicroEUR) EUR() float64 {
	return float64(m) / MicroPerEUR
}

// String formats the amount as a euro string with four decimal places.
func (m MicroEUR) String() string {
	return fmt.Sprintf("€%.4f", m.EUR())
}

// Clamp limits m to the range [lo, hi].
func (m MicroEUR) Clamp(lo, hi MicroEUR) MicroEUR {
	if m < lo {
		return lo
	}
	if m > hi {
		return hi
	}
	return m
}

// MulFrac multiplies m by the fraction num/den using integer arithmetic,
// rounding half up. m must be non-negative and den positive.
func (m MicroEUR) MulFrac(num, den int64) MicroEUR {
	if den <= 0 {
		return 0
	}
	v := int64(m)*num + den/2
	return MicroEUR(v / den)
}
