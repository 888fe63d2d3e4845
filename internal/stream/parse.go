package stream

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ParseRecord decodes one record into an Event. Records that are not JSON
// objects, or objects of no known shape, come back as EventUnrecognized.
func ParseRecord(record string) Event {
	record = strings.TrimSpace(record)
	fields, ok := decodeObject([]byte(record))
	if !ok {
		return Event{Kind: EventUnrecognized, Raw: record}
	}

	typ, hasType := stringField(fields, "type")
	switch {
	case hasType && typ == "step":
		message, _ := textField(fields, "message")
		return Event{Kind: EventStep, Message: message}
	case hasType && typ == "result":
		status, _ := textField(fields, "status")
		return Event{
			Kind:       EventResult,
			OK:         truthy(fields["ok"]),
			StatusHint: status,
			Payload:    nonNull(fields["payload"]),
		}
	case !truthy(fields["type"]) && present(fields, "detail"):
		status, _ := textField(fields, "status")
		return Event{
			Kind:       EventError,
			StatusHint: status,
			Payload:    json.RawMessage(record),
		}
	}
	return Event{Kind: EventUnrecognized, Raw: record, Typed: truthy(fields["type"])}
}

// decodeObject decodes data as a single JSON object.
func decodeObject(data []byte) (map[string]json.RawMessage, bool) {
	if len(data) == 0 || data[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// stringField returns a field that holds a JSON string.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", false
	}
	return out, true
}

// textField renders a scalar field as text: strings unquoted, numbers and
// booleans verbatim. Null and absent fields report false.
func textField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw := nonNull(fields[key])
	if raw == nil {
		return "", false
	}
	if s, ok := stringField(fields, key); ok {
		return s, true
	}
	return string(raw), true
}

// present reports whether key exists with a non-null value.
func present(fields map[string]json.RawMessage, key string) bool {
	return nonNull(fields[key]) != nil
}

// nonNull drops absent and literal null values.
func nonNull(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}

// truthy follows the loose truthiness the back end's browser client used:
// false, 0, "", null and absent are false.
func truthy(raw json.RawMessage) bool {
	raw = nonNull(raw)
	if raw == nil {
		return false
	}
	switch string(raw) {
	case "false", `""`:
		return false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0
	}
	return true
}
