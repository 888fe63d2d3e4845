package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Issue is one finding reported by the back end.
type Issue struct {
	Severity string `json:"severity"`
	Domain   string `json:"domain,omitempty"`
	Category string `json:"category,omitempty"`
	Code     string `json:"code"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
	Hint     string `json:"hint,omitempty"`
}

// Decision is the overall verdict on the submitted document.
type Decision struct {
	Status       string `json:"status"`
	NeedsRewrite bool   `json:"needs_rewrite"`
	Summary      string `json:"summary"`
}

// Trace carries server-side correlation and timing data.
type Trace struct {
	RequestID string           `json:"request_id,omitempty"`
	TimingsMS map[string]int64 `json:"timings_ms,omitempty"`
}

// legacyIssue is the older validation/compliance item shape.
type legacyIssue struct {
	Level   string `json:"level"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Result is the decoded terminal payload. Only the fields the run
// controller reads are typed; Raw keeps the payload as received.
type Result struct {
	Extract      map[string]any  `json:"extract"`
	Issues       []Issue         `json:"issues"`
	Validation   []legacyIssue   `json:"validation"`
	Compliance   []legacyIssue   `json:"compliance"`
	Decision     *Decision       `json:"decision"`
	NeedsRewrite *bool           `json:"needs_rewrite"`
	Trace        *Trace          `json:"trace"`
	Error        json.RawMessage `json:"error"`
	Detail       json.RawMessage `json:"detail"`
	Message      json.RawMessage `json:"message"`
	Status       json.RawMessage `json:"status"`
	DebugSteps   []string        `json:"debug_steps"`
	Raw          json.RawMessage `json:"-"`
}

// ErrMissingExtract reports a successful payload without an extract object.
var ErrMissingExtract = errors.New("result has no extract")

// DecodeResult decodes a terminal payload. Non-object payloads are an error.
func DecodeResult(payload json.RawMessage) (*Result, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	result.Raw = payload
	return &result, nil
}

// ValidateResult is the default validity check: a usable extract object.
func ValidateResult(result *Result) error {
	if result == nil || result.Extract == nil {
		return ErrMissingExtract
	}
	return nil
}

// AllIssues returns the issue list, converting the legacy shape if needed.
func (r *Result) AllIssues() []Issue {
	if r == nil {
		return nil
	}
	if len(r.Issues) > 0 {
		return r.Issues
	}
	out := make([]Issue, 0, len(r.Validation)+len(r.Compliance))
	for _, item := range r.Validation {
		out = append(out, Issue{
			Severity: normalizeSeverity(item.Level),
			Domain:   "extraction",
			Code:     item.Code,
			Field:    item.Field,
			Message:  item.Message,
		})
	}
	for _, item := range r.Compliance {
		out = append(out, Issue{
			Severity: normalizeSeverity(item.Level),
			Domain:   "compliance",
			Code:     item.Code,
			Field:    item.Field,
			Message:  item.Message,
		})
	}
	return out
}

// IssueCodes returns the non-empty issue codes in order.
func (r *Result) IssueCodes() []string {
	var codes []string
	for _, issue := range r.AllIssues() {
		if issue.Code != "" {
			codes = append(codes, issue.Code)
		}
	}
	return codes
}

// EffectiveDecision returns the server decision or derives one from issues.
func (r *Result) EffectiveDecision() Decision {
	if r != nil && r.Decision != nil {
		return *r.Decision
	}
	issues := r.AllIssues()
	severe := false
	warn := false
	for _, issue := range issues {
		if issue.Severity == "error" && issue.Category != "quality" && issue.Domain != "upstream" {
			severe = true
		}
		if issue.Severity == "warn" {
			warn = true
		}
	}
	if r != nil && r.NeedsRewrite != nil && *r.NeedsRewrite {
		severe = true
	}
	switch {
	case severe:
		return Decision{Status: "error", NeedsRewrite: true, Summary: "Найдены критичные проблемы: заявление нужно исправить."}
	case warn:
		return Decision{Status: "warn", Summary: "Есть замечания. Проверьте поля перед отправкой в кадровую службу."}
	case len(issues) > 0:
		return Decision{Status: "ok", Summary: "Извлечение завершено. Есть информационные подсказки."}
	default:
		return Decision{Status: "ok", Summary: "Ошибок не найдено."}
	}
}

// SeverityCounts counts issues per severity bucket.
func (r *Result) SeverityCounts() map[string]int {
	counts := map[string]int{"error": 0, "warn": 0, "info": 0}
	for _, issue := range r.AllIssues() {
		counts[normalizeSeverity(issue.Severity)]++
	}
	return counts
}

// FailureText picks the message a failed payload carries: detail, error or
// message, in that order.
func (r *Result) FailureText() string {
	if r == nil {
		return "unknown reason"
	}
	if text := rawText(r.Detail); text != "" {
		return text
	}
	if text := rawText(r.Error); text != "" {
		return text
	}
	if text := rawText(r.Message); text != "" {
		return text
	}
	return "unknown reason"
}

// StatusCode reads the payload's own status field.
func (r *Result) StatusCode() int {
	if r == nil {
		return 0
	}
	return parseStatus(rawText(r.Status))
}

// normalizeSeverity folds unknown levels into info.
func normalizeSeverity(level string) string {
	switch strings.ToLower(level) {
	case "error":
		return "error"
	case "warn", "warning":
		return "warn"
	default:
		return "info"
	}
}

// rawText renders a JSON scalar as text; objects are kept as JSON.
func rawText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == "false" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	return trimmed
}

// parseStatus reads an HTTP status hint; unparsable hints are 0.
func parseStatus(hint string) int {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return 0
	}
	if n, err := strconv.Atoi(hint); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(hint, 64); err == nil {
		return int(f)
	}
	return 0
}
