package run

import (
	"strings"
	"time"
)

// stepDefs is the fixed pipeline shown for every run.
var stepDefs = []Step{
	{Key: StepUpload, Label: "Загрузка"},
	{Key: StepAnalyze, Label: "Анализ"},
	{Key: StepCheck, Label: "Проверка"},
	{Key: StepFix, Label: "Исправление"},
	{Key: StepExport, Label: "Экспорт"},
}

// marker maps a lower-cased phrase in a back end message to a step.
// The table is a heuristic coupling to the back end's wording.
type marker struct {
	phrase   string
	key      StepKey
	complete bool
}

// markers are evaluated in order; the first match wins.
var markers = []marker{
	{phrase: "файл загружен", key: StepUpload},
	{phrase: "pdf открыт", key: StepAnalyze},
	{phrase: "pdf->png", key: StepAnalyze},
	{phrase: "vision", key: StepAnalyze},
	{phrase: "structured.parse", key: StepCheck},
	{phrase: "structured.fallback", key: StepCheck},
	{phrase: "compliance", key: StepCheck},
	{phrase: "готово", key: StepExport, complete: true},
}

// fallbackMarker flags a run where the back end used its fallback path.
const fallbackMarker = "fallback"

// Inference is the outcome of matching one step message.
type Inference struct {
	Key StepKey
	// Complete forces every step to done.
	Complete bool
}

// InferStep maps a free-text message to a step via the marker table.
func InferStep(message string) (Inference, bool) {
	text := strings.ToLower(message)
	for _, m := range markers {
		if strings.Contains(text, m.phrase) {
			return Inference{Key: m.key, Complete: m.complete}, true
		}
	}
	return Inference{}, false
}

// newSteps returns a fresh stepper with the first step active.
func newSteps(now time.Time) []Step {
	steps := make([]Step, len(stepDefs))
	copy(steps, stepDefs)
	for i := range steps {
		steps[i].Status = StepTodo
	}
	if len(steps) > 0 {
		steps[0].Status = StepActive
		steps[0].ActivatedAt = now
	}
	return steps
}

// applyInference advances steps and reports whether anything changed.
// Activation only moves forward: a target at or behind the furthest step
// already reached is ignored, so a superseded step never becomes active again.
func applyInference(steps []Step, inf Inference, now time.Time) bool {
	if inf.Complete {
		changed := false
		for i := range steps {
			if steps[i].Status != StepDone {
				steps[i].Status = StepDone
				changed = true
			}
		}
		return changed
	}
	target := stepIndex(steps, inf.Key)
	if target < 0 || target <= furthestReached(steps) {
		return false
	}
	for i := range steps {
		if steps[i].Status == StepActive {
			steps[i].Status = StepDone
		}
	}
	steps[target].Status = StepActive
	steps[target].ActivatedAt = now
	return true
}

// completeSteps forces every step to done.
func completeSteps(steps []Step) {
	for i := range steps {
		steps[i].Status = StepDone
	}
}

// stepIndex finds a step by key.
func stepIndex(steps []Step, key StepKey) int {
	for i, step := range steps {
		if step.Key == key {
			return i
		}
	}
	return -1
}

// furthestReached returns the index of the last step that is not todo.
func furthestReached(steps []Step) int {
	last := -1
	for i, step := range steps {
		if step.Status != StepTodo {
			last = i
		}
	}
	return last
}
