package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled reports that the caller cancelled the read loop.
	ErrCancelled = errors.New("stream cancelled")
	// ErrEmptyResponse reports a response body with zero bytes.
	ErrEmptyResponse = errors.New("empty response")
	// ErrNoFinalResult reports a stream that ended without a terminal event.
	ErrNoFinalResult = errors.New("no final result")
)

// TransportError wraps a failure of the underlying byte stream.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("transport: %v", e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// cancelled wraps the context cause with ErrCancelled.
func cancelled(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
