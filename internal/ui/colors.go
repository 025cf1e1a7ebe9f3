package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Semantic colors (ANSI codes for broad terminal support).
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
	ColorPrimary lipgloss.Color = "7" // White/default
	ColorMuted   lipgloss.Color = "8" // Gray
)

// Load bands used when coloring percentages that have no explicit threshold.
const (
	warnBand = 60.0
	hotBand  = 80.0
)

// SuccessStyle returns a style for successful operations.
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorSuccess)
}

// ErrorStyle returns a style for failures and critical values.
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorError)
}

// WarningStyle returns a style for warnings.
func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorWarning)
}

// InfoStyle returns a style for informational messages.
func InfoStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorInfo)
}

// MutedStyle returns a style for secondary text.
func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorMuted)
}

// HeaderStyle is used for titles and table headers.
func HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
}

// PercentColor picks a color for a utilization value: red at or above
// threshold, yellow from 60%, green below. A threshold <= 0 means 80%.
func PercentColor(percent, threshold float64) lipgloss.Color {
	hot := hotBand
	if threshold > 0 {
		hot = threshold
	}
	switch {
	case percent >= hot:
		return ColorError
	case percent >= warnBand:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

// DisableColors switches Lip Gloss to plain ASCII output.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// ConfigureColors disables color when w is not a terminal or NO_COLOR is set.
// It returns whether color stayed enabled.
func ConfigureColors(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" || !IsTerminal(w) {
		DisableColors()
		return false
	}
	lipgloss.SetColorProfile(termenv.NewOutput(w).EnvColorProfile())
	return true
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
