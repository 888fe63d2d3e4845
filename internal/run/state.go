package run

import (
	"encoding/json"
	"time"
)

// State is a read-only snapshot of a run. The controller hands out copies;
// mutating a snapshot never affects the controller.
type State struct {
	Generation   uint64
	Phase        Phase
	FileName     string
	RequestID    string
	Steps        []Step
	Logs         []string
	Payload      json.RawMessage
	Result       *Result
	Error        *RunError
	FallbackUsed bool
	StartedAt    time.Time
	AcceptedAt   time.Time
	FinishedAt   time.Time

	View            View
	EditableExtract map[string]any
	SelectedIssue   int
}

// initialState is the shape of a controller that never ran.
func initialState() State {
	return State{
		Phase:         PhaseIdle,
		Steps:         newSteps(time.Time{}),
		View:          ViewIssues,
		SelectedIssue: -1,
	}
}

// Clone returns a deep copy of the mutable parts of the snapshot.
func (s State) Clone() State {
	out := s
	out.Steps = append([]Step(nil), s.Steps...)
	out.Logs = append([]string(nil), s.Logs...)
	if s.Error != nil {
		errCopy := *s.Error
		out.Error = &errCopy
	}
	if s.EditableExtract != nil {
		out.EditableExtract = deepCopyMap(s.EditableExtract)
	}
	return out
}

// Progress returns the completed share of the stepper, counting the active
// step as half done.
func (s State) Progress() float64 {
	if len(s.Steps) == 0 {
		return 0
	}
	var score float64
	for _, step := range s.Steps {
		switch step.Status {
		case StepDone:
			score++
		case StepActive:
			score += 0.5
		}
	}
	return score / float64(len(s.Steps))
}

// ActiveStep returns the step currently in progress.
func (s State) ActiveStep() (Step, bool) {
	for _, step := range s.Steps {
		if step.Status == StepActive {
			return step, true
		}
	}
	return Step{}, false
}

// Duration is the elapsed run time, up to now for a run still in flight.
func (s State) Duration(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	end := s.FinishedAt
	if end.IsZero() {
		end = now
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}

// Issues returns the issue list of the result, if any.
func (s State) Issues() []Issue {
	return s.Result.AllIssues()
}

// deepCopyMap copies nested JSON-like maps and slices.
func deepCopyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

// deepCopyValue copies one JSON-like value.
func deepCopyValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return deepCopyMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return typed
	}
}
