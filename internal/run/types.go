package run

import (
	"encoding/json"
	"fmt"
	"time"
)

// Phase is the externally observable lifecycle position of a run.
type Phase string

const (
	// PhaseIdle is the state before the first submission.
	PhaseIdle Phase = "idle"
	// PhaseUploading covers the request until the server accepts it.
	PhaseUploading Phase = "uploading"
	// PhaseProcessing covers the streamed response body.
	PhaseProcessing Phase = "processing"
	// PhaseDone means a valid successful result was received.
	PhaseDone Phase = "done"
	// PhaseError means the run failed.
	PhaseError Phase = "error"
	// PhaseCancelled means the user stopped the run.
	PhaseCancelled Phase = "cancelled"
)

// Terminal reports whether the phase ends a run.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseError || p == PhaseCancelled
}

// StepStatus tracks one pipeline step.
type StepStatus string

const (
	StepTodo   StepStatus = "todo"
	StepActive StepStatus = "active"
	StepDone   StepStatus = "done"
)

// StepKey identifies a pipeline step.
type StepKey string

const (
	StepUpload  StepKey = "upload"
	StepAnalyze StepKey = "analyze"
	StepCheck   StepKey = "check"
	StepFix     StepKey = "fix"
	StepExport  StepKey = "export"
)

// Step is one entry of the progress stepper.
type Step struct {
	Key         StepKey    `json:"key"`
	Label       string     `json:"label"`
	Status      StepStatus `json:"status"`
	ActivatedAt time.Time  `json:"activated_at,omitzero"`
}

// View selects the result tab shown by a renderer.
type View string

const (
	ViewIssues View = "issues"
	ViewData   View = "data"
	ViewText   View = "text"
	ViewExport View = "export"
)

// ParseView validates a view name.
func ParseView(value string) (View, error) {
	switch View(value) {
	case ViewIssues, ViewData, ViewText, ViewExport:
		return View(value), nil
	default:
		return "", fmt.Errorf("unknown view %q (expected issues|data|text|export)", value)
	}
}

// ErrorKind classifies a failed run.
type ErrorKind string

const (
	// ErrorTransport is a network or stream failure, including timeouts.
	ErrorTransport ErrorKind = "transport"
	// ErrorNoResult means the stream ended without a terminal payload.
	ErrorNoResult ErrorKind = "no_result"
	// ErrorDomain means the terminal payload reported a failure.
	ErrorDomain ErrorKind = "domain"
	// ErrorInvalidResult means a successful payload failed validation.
	ErrorInvalidResult ErrorKind = "invalid_result"
)

// RunError describes why a run ended in PhaseError.
type RunError struct {
	Kind      ErrorKind       `json:"kind"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Status    int             `json:"status,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Retryable bool            `json:"retryable"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.Title == "" {
		return e.Message
	}
	return e.Title + ": " + e.Message
}
