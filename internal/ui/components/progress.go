package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/boki/internal/ui/theme"
)

// Bar is a completion bar with a left-aligned label and a trailing
// percentage, e.g. "Weekly   ████░░░░  50%  25/50".
type Bar struct {
	Label      string
	LabelWidth int // pad labels to this width so bars line up
	Ratio      float64
	Width      int // cells used by the bar itself
	Detail     string
}

// NewBar creates a bar of width cells.
func NewBar(label string, ratio float64, width int) Bar {
	return Bar{Label: label, Ratio: ratio, Width: width}
}

// Filled returns the number of filled cells.
func (b Bar) Filled() int {
	width := b.width()
	filled := int(float64(width) * b.Ratio)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return filled
}

func (b Bar) width() int {
	if b.Width < 4 {
		return 4
	}
	return b.Width
}

// View renders the bar.
func (b Bar) View() string {
	var sb strings.Builder

	if b.Label != "" {
		label := b.Label
		if pad := b.LabelWidth - lipgloss.Width(label); pad > 0 {
			label += strings.Repeat(" ", pad)
		}
		sb.WriteString(theme.Label.Render(label))
		sb.WriteString("  ")
	}

	filled := b.Filled()
	sb.WriteString(theme.ProgressFilled.Render(strings.Repeat("█", filled)))
	sb.WriteString(theme.ProgressEmpty.Render(strings.Repeat("░", b.width()-filled)))

	pct := int(b.Ratio*100 + 0.5)
	if pct > 100 {
		pct = 100
	}
	sb.WriteString(theme.Value.Render(fmt.Sprintf("  %3d%%", pct)))

	if b.Detail != "" {
		sb.WriteString("  ")
		sb.WriteString(theme.Hint.Render(b.Detail))
	}
	return sb.String()
}
