package live

import "docwatch/internal/run"

// Reduce projects a run snapshot onto the previous UI state.
func Reduce(prev State, snapshot run.State) State {
	next := State{
		Generation:   snapshot.Generation,
		Phase:        snapshot.Phase,
		FileName:     snapshot.FileName,
		RequestID:    snapshot.RequestID,
		Logs:         snapshot.Logs,
		Progress:     snapshot.Progress(),
		FallbackUsed: snapshot.FallbackUsed,
		StartedAt:    snapshot.StartedAt,
		FinishedAt:   snapshot.FinishedAt,
		Error:        snapshot.Error,
		Issues:       snapshot.Issues(),
		View:         snapshot.View,
		LastEvent:    prev.LastEvent,
		Snapshot:     snapshot,
	}
	next.Steps = make([]StepRow, len(snapshot.Steps))
	for i, step := range snapshot.Steps {
		next.Steps[i] = StepRow{Label: step.Label, Status: step.Status, ActivatedAt: step.ActivatedAt}
	}
	if snapshot.Phase == run.PhaseDone && snapshot.Result != nil {
		decision := snapshot.Result.EffectiveDecision()
		next.Decision = &decision
	}

	seen := 0
	if prev.Generation == snapshot.Generation {
		seen = len(prev.Logs)
	}
	next.NewLogs = max(len(snapshot.Logs)-seen, 0)
	if len(snapshot.Logs) > 0 {
		next.LastEvent = snapshot.Logs[len(snapshot.Logs)-1]
	}
	if snapshot.Phase != prev.Phase || snapshot.Generation != prev.Generation {
		if label := phaseEvent(snapshot); label != "" {
			next.LastEvent = label
		}
	}
	return next
}

// phaseEvent describes a phase change for the footer.
func phaseEvent(snapshot run.State) string {
	switch snapshot.Phase {
	case run.PhaseUploading:
		return "uploading " + snapshot.FileName
	case run.PhaseProcessing:
		return "accepted, request " + snapshot.RequestID
	case run.PhaseDone:
		return "finished"
	case run.PhaseError:
		if snapshot.Error != nil {
			return "failed: " + snapshot.Error.Title
		}
		return "failed"
	case run.PhaseCancelled:
		return "cancelled"
	default:
		return ""
	}
}
