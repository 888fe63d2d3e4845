package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"docwatch/internal/stream"
)

const (
	defaultStreamPath      = "/api/extract/stream"
	defaultRequestIDHeader = "X-Request-Id"
	// maxErrorBody caps how much of an unexpected error body is kept.
	maxErrorBody = 4 << 10
)

// HTTPDoer abstracts the HTTP client used for requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	BaseURL         string
	StreamPath      string
	RequestIDHeader string
	HealthRetries   int
	// HealthInterval is the first retry delay of the health check.
	HealthInterval time.Duration
	HTTP           HTTPDoer
	Logger         *slog.Logger
}

// Client talks to the extraction service.
type Client struct {
	baseURL         string
	streamPath      string
	requestIDHeader string
	healthRetries   int
	healthInterval  time.Duration
	http            HTTPDoer
	logger          *slog.Logger
	newRequestID    func() string
}

// New validates cfg and builds a client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("base url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	streamPath := strings.TrimSpace(cfg.StreamPath)
	if streamPath == "" {
		streamPath = defaultStreamPath
	}
	if !strings.HasPrefix(streamPath, "/") {
		streamPath = "/" + streamPath
	}
	header := strings.TrimSpace(cfg.RequestIDHeader)
	if header == "" {
		header = defaultRequestIDHeader
	}
	doer := cfg.HTTP
	if doer == nil {
		doer = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.HealthInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Client{
		baseURL:         base,
		streamPath:      streamPath,
		requestIDHeader: header,
		healthRetries:   max(cfg.HealthRetries, 0),
		healthInterval:  interval,
		http:            doer,
		logger:          logger.With("component", "client"),
		newRequestID:    uuid.NewString,
	}, nil
}

// BaseURL returns the normalized service address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Accepted describes a request the server has started answering.
type Accepted struct {
	RequestID   string
	Status      int
	ContentType string
}

// Hooks receive progress of a submission, synchronously and in order.
type Hooks struct {
	// OnAccepted fires once response headers arrive.
	OnAccepted func(Accepted)
	// OnStep receives step messages and unrecognized records.
	OnStep func(message string)
}

// Response is the outcome of a submission that produced a terminal payload.
type Response struct {
	RequestID string
	Status    int
	Streamed  bool
	Terminal  *stream.Terminal
}

// Submit uploads doc and consumes the response until its terminal payload.
// Errors are the stream package's sentinels, *stream.TransportError or
// *StatusError.
func (c *Client) Submit(ctx context.Context, doc Document, hooks Hooks) (*Response, error) {
	body, contentType, err := multipartBody(doc)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.streamPath, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	sentID := c.newRequestID()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/x-ndjson, application/json")
	req.Header.Set(c.requestIDHeader, sentID)

	c.logger.Debug("submitting document", "file", doc.Name, "bytes", len(doc.Data), "request_id", sentID)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(ctx, "post", err)
	}
	defer resp.Body.Close()

	requestID := strings.TrimSpace(resp.Header.Get(c.requestIDHeader))
	if requestID == "" {
		requestID = sentID
	}
	responseType := resp.Header.Get("Content-Type")
	if hooks.OnAccepted != nil {
		hooks.OnAccepted(Accepted{RequestID: requestID, Status: resp.StatusCode, ContentType: responseType})
	}

	out := &Response{RequestID: requestID, Status: resp.StatusCode}
	if stream.IsDocumentContentType(responseType) {
		terminal, err := stream.ConsumeDocument(ctx, resp.Body, resp.StatusCode)
		if err != nil {
			return nil, c.wrapStatus(resp, err)
		}
		out.Terminal = terminal
		return out, nil
	}
	if !successful(resp.StatusCode) && !isStreamContentType(responseType) {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, RequestID: requestID, Body: strings.TrimSpace(string(data))}
	}
	out.Streamed = true
	terminal, err := stream.Consume(ctx, resp.Body, stream.Options{OnStep: hooks.OnStep, Logger: c.logger})
	if err != nil {
		return nil, c.wrapStatus(resp, err)
	}
	out.Terminal = terminal
	return out, nil
}

// wrapStatus keeps the HTTP status of a failed non-2xx body.
func (c *Client) wrapStatus(resp *http.Response, err error) error {
	if successful(resp.StatusCode) || errors.Is(err, stream.ErrCancelled) {
		return err
	}
	return &StatusError{Code: resp.StatusCode, Err: err}
}

// multipartBody encodes doc as the "file" form field.
func multipartBody(doc Document) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", doc.Name)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// transportError maps a request failure, keeping cancellation distinct.
func transportError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", stream.ErrCancelled, context.Cause(ctx))
	}
	return &stream.TransportError{Op: op, Err: err}
}

// successful reports a 2xx status.
func successful(code int) bool {
	return code >= 200 && code < 300
}

// isStreamContentType reports NDJSON or plain text framing.
func isStreamContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "ndjson") || strings.Contains(ct, "jsonl") || strings.Contains(ct, "text/plain")
}
