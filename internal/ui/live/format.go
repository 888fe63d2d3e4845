package live

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"docwatch/internal/run"
)

// formatDuration renders elapsed time with a coarse resolution.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Minute {
		return d.Round(100 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// truncate shortens text to limit runes, collapsing whitespace.
func truncate(text string, limit int) string {
	normalized := strings.Join(strings.Fields(text), " ")
	runes := []rune(normalized)
	if limit <= 3 || len(runes) <= limit {
		return normalized
	}
	return string(runes[:limit-3]) + "..."
}

// stepGlyph renders the marker in front of a step label.
func stepGlyph(status run.StepStatus, spinner string) string {
	switch status {
	case run.StepDone:
		return "✓"
	case run.StepActive:
		if spinner != "" {
			return spinner
		}
		return "●"
	default:
		return "○"
	}
}

// phaseLabel maps a phase to its display text.
func phaseLabel(phase run.Phase) string {
	switch phase {
	case run.PhaseUploading:
		return "uploading"
	case run.PhaseProcessing:
		return "processing"
	case run.PhaseDone:
		return "done"
	case run.PhaseError:
		return "error"
	case run.PhaseCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor || text == "" {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}

// phaseColor selects a color for a phase.
func phaseColor(phase run.Phase) lipgloss.Color {
	switch phase {
	case run.PhaseDone:
		return lipgloss.Color("42")
	case run.PhaseError:
		return lipgloss.Color("196")
	case run.PhaseCancelled:
		return lipgloss.Color("220")
	default:
		return lipgloss.Color("33")
	}
}

// severityColor selects a color for an issue severity.
func severityColor(severity string) lipgloss.Color {
	switch severity {
	case "error":
		return lipgloss.Color("196")
	case "warn":
		return lipgloss.Color("220")
	default:
		return lipgloss.Color("244")
	}
}
