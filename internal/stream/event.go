package stream

import "encoding/json"

// EventKind identifies the variant carried by an Event.
type EventKind int

const (
	// EventStep is a free-text progress note.
	EventStep EventKind = iota
	// EventResult is a wrapped terminal success or failure.
	EventResult
	// EventError is a bare error object without a result wrapper.
	EventError
	// EventUnrecognized is any other record, shown as a log line.
	EventUnrecognized
)

// String returns the wire-style name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventStep:
		return "step"
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventUnrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}

// Event is one parsed record. Only the fields of its Kind are set.
type Event struct {
	Kind EventKind

	// Message is set for EventStep.
	Message string

	// OK is the success indicator of an EventResult.
	OK bool
	// StatusHint is the record's "status" field rendered as text, if any.
	StatusHint string
	// Payload is the result payload, or the whole record for EventError.
	Payload json.RawMessage

	// Raw is the record text of an EventUnrecognized.
	Raw string
	// Typed marks an unrecognized record that still carried a "type"
	// discriminator; the fallback extractor never inspects those.
	Typed bool
}

// IsTerminal reports whether the event ends the progress phase.
func (e Event) IsTerminal() bool {
	return e.Kind == EventResult || e.Kind == EventError
}

// TerminalSource records where a terminal payload came from.
type TerminalSource string

const (
	// SourceResult is a {"type":"result"} record.
	SourceResult TerminalSource = "result"
	// SourceError is a bare {"detail":...} record.
	SourceError TerminalSource = "error"
	// SourceFallback is a JSON object recovered from free text.
	SourceFallback TerminalSource = "fallback"
	// SourceDocument is a non-streamed JSON response body.
	SourceDocument TerminalSource = "document"
)

// Terminal is the final payload of a run as recorded by the consumer.
type Terminal struct {
	Source     TerminalSource
	OK         bool
	StatusHint string
	Payload    json.RawMessage
}

// terminalFromEvent converts a terminal event into a Terminal.
func terminalFromEvent(event Event) *Terminal {
	source := SourceResult
	if event.Kind == EventError {
		source = SourceError
	}
	return &Terminal{
		Source:     source,
		OK:         event.Kind == EventResult && event.OK,
		StatusHint: event.StatusHint,
		Payload:    event.Payload,
	}
}
