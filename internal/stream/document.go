package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

// maxDocumentBytes caps a non-streamed JSON response.
const maxDocumentBytes = 16 << 20

// IsDocumentContentType reports whether a response uses single-document JSON
// framing instead of NDJSON.
func IsDocumentContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "application/json")
}

// ConsumeDocument reads a complete JSON document and returns it as a single
// terminal payload. httpStatus feeds both the success indicator and the
// status hint.
func ConsumeDocument(ctx context.Context, body io.Reader, httpStatus int) (*Terminal, error) {
	if err := ctx.Err(); err != nil {
		abort(body)
		return nil, cancelled(context.Cause(ctx))
	}
	data, err := io.ReadAll(io.LimitReader(body, maxDocumentBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(context.Cause(ctx))
		}
		return nil, &TransportError{Op: "read", Err: err}
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, ErrEmptyResponse
	}
	if !json.Valid([]byte(trimmed)) {
		if recovered, ok := ExtractResult(trimmed); ok {
			return recovered, nil
		}
		return nil, &DecodeError{Record: truncate(trimmed, 160), Err: errors.New("response is not valid JSON")}
	}
	payload := json.RawMessage(trimmed)
	ok := httpStatus >= 200 && httpStatus < 300
	if fields, isObject := decodeObject(payload); isObject && truthy(fields["error"]) {
		ok = false
	}
	status := ""
	if httpStatus > 0 {
		status = strconv.Itoa(httpStatus)
	}
	return &Terminal{
		Source:     SourceDocument,
		OK:         ok,
		StatusHint: status,
		Payload:    payload,
	}, nil
}

// DecodeError reports a record or document that could not be decoded.
// The read loop never returns it; only single-document framing does.
type DecodeError struct {
	Record string
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return "decode " + strconv.Quote(e.Record) + ": " + e.Err.Error()
}

// Unwrap exposes the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
