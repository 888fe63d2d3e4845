package live

import (
	"time"

	"docwatch/internal/run"
)

// StepRow holds display state for one stepper entry.
type StepRow struct {
	Label       string
	Status      run.StepStatus
	ActivatedAt time.Time
}

// State is the live UI projection of a run snapshot.
type State struct {
	Generation   uint64
	Phase        run.Phase
	FileName     string
	RequestID    string
	Steps        []StepRow
	Logs         []string
	NewLogs      int
	Progress     float64
	FallbackUsed bool
	StartedAt    time.Time
	FinishedAt   time.Time
	Error        *run.RunError
	Decision     *run.Decision
	Issues       []run.Issue
	View         run.View
	LastEvent    string
	// Snapshot is the latest run state, used by the result views.
	Snapshot run.State
}
