package live

import "docwatch/internal/run"

// EventKind identifies the type of live UI event.
type EventKind int

const (
	// EventState delivers a run snapshot.
	EventState EventKind = iota
)

// Event carries a UI update payload.
type Event struct {
	Kind  EventKind
	State run.State
}
