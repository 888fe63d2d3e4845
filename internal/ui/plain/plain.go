// Package plain renders run progress as line-oriented text for non-TTY
// output.
package plain

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"docwatch/internal/run"
)

// Printer writes one line per new log entry and phase change.
type Printer struct {
	mu         sync.Mutex
	out        io.Writer
	generation uint64
	phase      run.Phase
	logs       int
	step       run.StepKey
}

// New builds a printer writing to out.
func New(out io.Writer) *Printer {
	return &Printer{out: out}
}

// OnState prints what changed since the previous snapshot.
func (p *Printer) OnState(state run.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if state.Generation != p.generation {
		p.generation = state.Generation
		p.phase = ""
		p.logs = 0
		p.step = ""
	}
	if state.Phase != p.phase {
		p.phase = state.Phase
		p.printPhase(state)
	}
	for _, line := range state.Logs[min(p.logs, len(state.Logs)):] {
		fmt.Fprintf(p.out, "  %s\n", line)
	}
	p.logs = len(state.Logs)
	if step, ok := state.ActiveStep(); ok && step.Key != p.step && !state.Phase.Terminal() {
		p.step = step.Key
		fmt.Fprintf(p.out, "[%s] %s (%d%%)\n", phaseLabel(state.Phase), step.Label, int(state.Progress()*100))
	}
}

// printPhase writes the line for a phase transition.
func (p *Printer) printPhase(state run.State) {
	switch state.Phase {
	case run.PhaseUploading:
		fmt.Fprintf(p.out, "Uploading %s\n", state.FileName)
	case run.PhaseProcessing:
		fmt.Fprintf(p.out, "Accepted (request %s)\n", state.RequestID)
	case run.PhaseDone, run.PhaseError, run.PhaseCancelled:
		Summary(p.out, state)
	}
}

// Summary writes the final outcome of a run.
func Summary(out io.Writer, state run.State) {
	duration := formatElapsed(state.StartedAt, state.FinishedAt)
	switch state.Phase {
	case run.PhaseDone:
		decision := state.Result.EffectiveDecision()
		fmt.Fprintf(out, "Done in %s: %s", duration, strings.ToUpper(decision.Status))
		if decision.Summary != "" {
			fmt.Fprintf(out, " - %s", decision.Summary)
		}
		fmt.Fprintln(out)
		if decision.NeedsRewrite {
			fmt.Fprintln(out, "Document needs to be rewritten.")
		}
		for _, issue := range state.Issues() {
			field := ""
			if issue.Field != "" {
				field = " (" + issue.Field + ")"
			}
			fmt.Fprintf(out, "  [%s] %s%s: %s\n", issue.Severity, issue.Code, field, issue.Message)
		}
		if state.FallbackUsed {
			fmt.Fprintln(out, "Result was recovered through the fallback parser.")
		}
	case run.PhaseError:
		if state.Error == nil {
			fmt.Fprintf(out, "Failed after %s\n", duration)
			return
		}
		fmt.Fprintf(out, "Failed after %s: %s\n", duration, state.Error.Title)
		fmt.Fprintf(out, "  %s\n", state.Error.Message)
		if state.Error.RequestID != "" {
			fmt.Fprintf(out, "  request id: %s\n", state.Error.RequestID)
		}
	case run.PhaseCancelled:
		fmt.Fprintf(out, "Cancelled after %s\n", duration)
	}
}

// formatElapsed renders the time between two instants.
func formatElapsed(start, end time.Time) string {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return "0s"
	}
	return end.Sub(start).Round(100 * time.Millisecond).String()
}

// phaseLabel maps a phase to its display text.
func phaseLabel(phase run.Phase) string {
	if phase == "" {
		return string(run.PhaseIdle)
	}
	return string(phase)
}

var _ run.Observer = (*Printer)(nil)
