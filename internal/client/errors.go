package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPDF rejects documents without a .pdf extension.
	ErrNotPDF = errors.New("please upload a PDF file")
	// ErrTooLarge rejects documents above the upload limit.
	ErrTooLarge = errors.New("file is too large")
	// ErrUnhealthy reports a health check that never succeeded.
	ErrUnhealthy = errors.New("service is not healthy")
)

// StatusError reports a non-2xx response that carried no usable payload.
type StatusError struct {
	Code      int
	RequestID string
	Body      string
	Err       error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	msg := fmt.Sprintf("unexpected HTTP status %d", e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *StatusError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int {
	return e.Code
}
