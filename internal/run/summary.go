package run

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// redactedKeys are dropped from the extract before it leaves the run.
var redactedKeys = map[string]struct{}{
	"raw_text":         {},
	"personnel_number": {},
}

// Summary is the sanitized record of a successful run handed to history.
type Summary struct {
	RunID        string           `json:"run_id"`
	RequestID    string           `json:"request_id,omitempty"`
	FileName     string           `json:"file_name"`
	Decision     Decision         `json:"decision"`
	TimingsMS    map[string]int64 `json:"timings_ms,omitempty"`
	DurationMS   int64            `json:"duration_ms"`
	Extract      map[string]any   `json:"extract,omitempty"`
	Issues       []Issue          `json:"issues"`
	FallbackUsed bool             `json:"fallback_used"`
	CreatedAt    time.Time        `json:"created_at"`
}

// SeverityCounts counts the summary's issues per severity.
func (s Summary) SeverityCounts() map[string]int {
	counts := map[string]int{"error": 0, "warn": 0, "info": 0}
	for _, issue := range s.Issues {
		counts[normalizeSeverity(issue.Severity)]++
	}
	return counts
}

// BuildSummary derives the sanitized summary of a finished run.
func BuildSummary(state State) Summary {
	summary := Summary{
		RunID:        uuid.NewString(),
		RequestID:    state.RequestID,
		FileName:     state.FileName,
		Decision:     state.Result.EffectiveDecision(),
		DurationMS:   state.Duration(state.FinishedAt).Milliseconds(),
		Issues:       append([]Issue(nil), state.Issues()...),
		FallbackUsed: state.FallbackUsed,
		CreatedAt:    state.FinishedAt,
	}
	if summary.Issues == nil {
		summary.Issues = []Issue{}
	}
	if state.Result != nil {
		if state.Result.Trace != nil {
			summary.TimingsMS = state.Result.Trace.TimingsMS
		}
		if state.Result.Extract != nil {
			summary.Extract = Redact(state.Result.Extract)
		}
	}
	return summary
}

// Redact copies an extract without free text and identifiers, and reduces
// personal names to a surname with initials.
func Redact(extract map[string]any) map[string]any {
	out := make(map[string]any, len(extract))
	for k, v := range extract {
		if _, drop := redactedKeys[k]; drop {
			continue
		}
		switch typed := v.(type) {
		case map[string]any:
			out[k] = Redact(typed)
		case string:
			if k == "full_name" {
				out[k] = initials(typed)
				continue
			}
			out[k] = typed
		default:
			out[k] = deepCopyValue(typed)
		}
	}
	return out
}

// initials turns "Иванов Иван Иванович" into "Иванов И. И.".
func initials(name string) string {
	parts := strings.Fields(name)
	if len(parts) <= 1 {
		return name
	}
	out := []string{parts[0]}
	for _, part := range parts[1:] {
		r := []rune(part)
		out = append(out, string(r[0])+".")
	}
	return strings.Join(out, " ")
}

// DiagnosticReport is the support bundle of a run. It carries no extract
// data.
type DiagnosticReport struct {
	RequestID    string           `json:"request_id,omitempty"`
	Phase        Phase            `json:"phase"`
	FileName     string           `json:"file_name,omitempty"`
	TimingsMS    map[string]int64 `json:"timings_ms,omitempty"`
	DurationMS   int64            `json:"duration_ms"`
	Decision     *Decision        `json:"decision,omitempty"`
	IssueCounts  map[string]int   `json:"issue_counts"`
	IssueCodes   []string         `json:"issue_codes"`
	FallbackUsed bool             `json:"fallback_used"`
	Error        *RunError        `json:"error,omitempty"`
	Steps        []Step           `json:"steps"`
}

// DiagnosticReport builds the support bundle for the snapshot.
func (s State) DiagnosticReport() DiagnosticReport {
	report := DiagnosticReport{
		RequestID:    s.RequestID,
		Phase:        s.Phase,
		FileName:     s.FileName,
		DurationMS:   s.Duration(s.FinishedAt).Milliseconds(),
		IssueCounts:  s.Result.SeverityCounts(),
		IssueCodes:   s.Result.IssueCodes(),
		FallbackUsed: s.FallbackUsed,
		Steps:        append([]Step(nil), s.Steps...),
	}
	if report.IssueCodes == nil {
		report.IssueCodes = []string{}
	}
	if s.Result != nil {
		if s.Result.Trace != nil {
			report.TimingsMS = s.Result.Trace.TimingsMS
		}
		if s.Phase == PhaseDone {
			decision := s.Result.EffectiveDecision()
			report.Decision = &decision
		}
	}
	if s.Error != nil {
		errCopy := *s.Error
		errCopy.Payload = nil
		report.Error = &errCopy
	}
	return report
}
