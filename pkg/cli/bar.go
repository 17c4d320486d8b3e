package cli

import (
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// DefaultBarWidth is the character width of budget progress bars.
const DefaultBarWidth = 20

// ANSI color sequences for budget display.
const (
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorReset  = "\033[0m"
)

// Bar renders a progress bar for a percentage (0-100). Values past 100
// render full.
func Bar(percent float64, width int) string {
	if width <= 0 {
		width = DefaultBarWidth
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(float64(width) * percent / 100)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// ColorForPercent returns the ANSI color for a budget percentage:
// green under 50, yellow from 50 to 80, red past 80.
func ColorForPercent(percent float64) string {
	switch {
	case percent >= 80:
		return colorRed
	case percent >= 50:
		return colorYellow
	default:
		return colorGreen
	}
}

// Colorize wraps s in the given ANSI color when colors are enabled.
func Colorize(s, color string) string {
	if !ColorsEnabled() {
		return s
	}
	return color + s + colorReset
}

var (
	colorsEnabled     bool
	colorsEnabledOnce sync.Once
)

// ColorsEnabled reports whether colored output should be used. Respects
// the NO_COLOR convention and disables colors when stdout is not a
// terminal.
func ColorsEnabled() bool {
	colorsEnabledOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			colorsEnabled = false
			return
		}
		if os.Getenv("FORCE_COLOR") != "" {
			colorsEnabled = true
			return
		}
		colorsEnabled = term.IsTerminal(int(os.Stdout.Fd()))
	})
	return colorsEnabled
}

// ForceColors overrides color detection. Tests only.
func ForceColors(enabled bool) {
	colorsEnabledOnce = sync.Once{}
	colorsEnabledOnce.Do(func() {
		colorsEnabled = enabled
	})
}
