package stream

import (
	"encoding/json"
	"strconv"
	"strings"
)

// resultMarkers are the fields that make a recovered object look like a
// final payload rather than an unrelated fragment.
var resultMarkers = []string{"extract", "error", "detail", "status"}

// ExtractJSON returns the first JSON value embedded in text: the whole text
// if it is valid JSON, otherwise the suffix starting at the leftmost '{'
// that decodes as exactly one value. Quadratic in the worst case; records
// are single lines.
func ExtractJSON(text string) (json.RawMessage, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, false
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s), true
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		candidate := s[i:]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), true
		}
	}
	return nil, false
}

// HasResultShape reports whether value is an object exposing at least one
// result marker field.
func HasResultShape(value json.RawMessage) bool {
	fields, ok := decodeObject(value)
	if !ok {
		return false
	}
	for _, key := range resultMarkers {
		if present(fields, key) {
			return true
		}
	}
	return false
}

// failureStatus reports whether a recovered status is an HTTP error code.
func failureStatus(status string) bool {
	code, err := strconv.ParseFloat(strings.TrimSpace(status), 64)
	return err == nil && code >= 400
}

// ExtractResult recovers a shape-matching payload from a free-text record.
func ExtractResult(text string) (*Terminal, bool) {
	value, ok := ExtractJSON(text)
	if !ok || !HasResultShape(value) {
		return nil, false
	}
	fields, _ := decodeObject(value)
	status, _ := textField(fields, "status")
	return &Terminal{
		Source:     SourceFallback,
		OK:         !present(fields, "error") && !present(fields, "detail") && !failureStatus(status),
		StatusHint: status,
		Payload:    value,
	}, true
}
