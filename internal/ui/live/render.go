package live

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"docwatch/internal/run"
)

var viewOrder = []run.View{run.ViewIssues, run.ViewData, run.ViewText, run.ViewExport}

var viewTitles = map[run.View]string{
	run.ViewIssues: "Замечания",
	run.ViewData:   "Данные",
	run.ViewText:   "Текст",
	run.ViewExport: "Экспорт",
}

// renderHeader renders the file, request and elapsed time line.
func renderHeader(state State, now time.Time, noColor bool) string {
	line := "docwatch"
	if state.FileName != "" {
		line += " | " + state.FileName
	}
	line += " | " + phaseLabel(state.Phase)
	if state.RequestID != "" {
		line += " | request " + state.RequestID
	}
	if !state.StartedAt.IsZero() {
		line += " | " + formatDuration(state.Snapshot.Duration(now))
	}
	return stylize(line, noColor, phaseColor(state.Phase))
}

// renderStepper renders the five steps on one line.
func renderStepper(state State, spinner string, noColor bool) string {
	parts := make([]string, 0, len(state.Steps))
	for _, step := range state.Steps {
		text := stepGlyph(step.Status, spinner) + " " + step.Label
		switch step.Status {
		case run.StepDone:
			text = stylize(text, noColor, lipgloss.Color("42"))
		case run.StepActive:
			text = stylize(text, noColor, lipgloss.Color("33"))
		default:
			text = stylize(text, noColor, lipgloss.Color("242"))
		}
		parts = append(parts, text)
	}
	line := strings.Join(parts, "  ")
	if state.FallbackUsed {
		line += "  " + stylize("[fallback]", noColor, lipgloss.Color("220"))
	}
	return line
}

// renderErrorCard renders the terminal error in a bordered box.
func renderErrorCard(err *run.RunError, width int, noColor bool) string {
	if err == nil {
		return ""
	}
	lines := []string{err.Title, err.Message}
	details := make([]string, 0, 3)
	if err.Status != 0 {
		details = append(details, fmt.Sprintf("HTTP %d", err.Status))
	}
	if err.RequestID != "" {
		details = append(details, "request "+err.RequestID)
	}
	details = append(details, string(err.Kind))
	lines = append(lines, strings.Join(details, " | "))
	style := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	if width > 4 {
		style = style.Width(width - 2)
	}
	if !noColor {
		style = style.BorderForeground(lipgloss.Color("196"))
	}
	return style.Render(strings.Join(lines, "\n"))
}

// renderDecision renders the verdict and issue counts of a done run.
func renderDecision(state State, noColor bool) string {
	if state.Decision == nil {
		return ""
	}
	counts := map[string]int{}
	for _, issue := range state.Issues {
		counts[issue.Severity]++
	}
	line := fmt.Sprintf("%s: %s (error %d, warn %d, info %d)",
		strings.ToUpper(state.Decision.Status), state.Decision.Summary,
		counts["error"], counts["warn"], counts["info"])
	if state.Decision.NeedsRewrite {
		line += " | требуется переоформление"
	}
	return stylize(line, noColor, severityColor(decisionSeverity(state.Decision.Status)))
}

// decisionSeverity maps a decision status to an issue severity color key.
func decisionSeverity(status string) string {
	switch status {
	case "error", "warn":
		return status
	default:
		return "info"
	}
}

// renderTabs renders the result view selector.
func renderTabs(active run.View, noColor bool) string {
	parts := make([]string, 0, len(viewOrder))
	for i, view := range viewOrder {
		label := fmt.Sprintf("%d %s", i+1, viewTitles[view])
		if view == active {
			label = "[" + label + "]"
			if !noColor {
				label = lipgloss.NewStyle().Bold(true).Render(label)
			}
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}

// renderViewBody renders the non-table result views.
func renderViewBody(state State, width int) string {
	snapshot := state.Snapshot
	switch state.View {
	case run.ViewData:
		data, err := json.MarshalIndent(snapshot.EditableExtract, "", "  ")
		if err != nil {
			return err.Error()
		}
		return string(data)
	case run.ViewText:
		value, ok := snapshot.Field("raw_text")
		text, isString := value.(string)
		if !ok || !isString || strings.TrimSpace(text) == "" {
			return "(нет текста)"
		}
		return lipgloss.NewStyle().Width(max(width, 20)).Render(text)
	case run.ViewExport:
		data, err := json.MarshalIndent(snapshot.DiagnosticReport(), "", "  ")
		if err != nil {
			return err.Error()
		}
		return string(data)
	default:
		return ""
	}
}

// renderFooter renders the last event and key hints.
func renderFooter(state State, cancelRequested, closed bool, noColor bool) string {
	var hint string
	switch {
	case !state.Phase.Terminal() && cancelRequested:
		hint = "cancelling..."
	case !state.Phase.Terminal():
		hint = "esc/ctrl+c: cancel"
	case state.Phase == run.PhaseDone:
		hint = "1-4/tab: view  ↑/↓: issue  q: quit"
	default:
		hint = "q: quit"
	}
	if closed && !state.Phase.Terminal() {
		hint = "q: quit"
	}
	line := hint
	if state.LastEvent != "" {
		line = truncate(state.LastEvent, 100) + " | " + hint
	}
	return stylize(line, noColor, lipgloss.Color("244"))
}
