package stream

import "encoding/json"

// SelfCheck is one fixture for the extractor.
type SelfCheck struct {
	Name  string
	Input string
	Check func(value json.RawMessage, ok bool) bool
}

// SelfCheckResult pairs a fixture with its outcome.
type SelfCheckResult struct {
	Name   string
	Passed bool
	Value  string
}

// SelfChecks lists the fixtures every build of the extractor must satisfy.
func SelfChecks() []SelfCheck {
	return []SelfCheck{
		{
			Name:  "result record",
			Input: `{"type":"result","payload":{"ok":1}}`,
			Check: func(value json.RawMessage, ok bool) bool {
				return ok && ParseRecord(string(value)).Kind == EventResult
			},
		},
		{
			Name:  "log line with trailing error object",
			Input: `log... {"error":"boom","status":500}`,
			Check: func(value json.RawMessage, ok bool) bool {
				var out struct {
					Status int `json:"status"`
				}
				return ok && json.Unmarshal(value, &out) == nil && out.Status == 500
			},
		},
		{
			Name:  "bare extract object",
			Input: `{"extract":{"x":1}}`,
			Check: func(value json.RawMessage, ok bool) bool {
				var out struct {
					Extract struct {
						X int `json:"x"`
					} `json:"extract"`
				}
				return ok && json.Unmarshal(value, &out) == nil && out.Extract.X == 1
			},
		},
		{
			Name:  "plain text",
			Input: "not json",
			Check: func(value json.RawMessage, ok bool) bool {
				return !ok && value == nil
			},
		},
	}
}

// RunSelfChecks evaluates every fixture.
func RunSelfChecks() []SelfCheckResult {
	checks := SelfChecks()
	results := make([]SelfCheckResult, 0, len(checks))
	for _, check := range checks {
		value, ok := ExtractJSON(check.Input)
		results = append(results, SelfCheckResult{
			Name:   check.Name,
			Passed: check.Check(value, ok),
			Value:  string(value),
		})
	}
	return results
}
