package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"docwatch/internal/mockserver"
	"docwatch/internal/stream"
	"docwatch/internal/testutil"
)

var pdf = Document{Name: "order.pdf", Data: []byte("%PDF-1.4 body")}

// newMockClient serves the mock back end and returns a client for it.
func newMockClient(t *testing.T, scenario mockserver.Scenario) *Client {
	t.Helper()
	handler, err := mockserver.NewHandler(mockserver.Config{Scenario: scenario, StepDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("mock handler: %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := New(Config{BaseURL: server.URL + "/", HealthInterval: time.Millisecond})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

// TestNewValidatesBaseURL rejects missing and relative addresses.
func TestNewValidatesBaseURL(t *testing.T) {
	for _, base := range []string{"", "   ", "localhost:8000", "/api"} {
		if _, err := New(Config{BaseURL: base}); err == nil {
			t.Fatalf("expected %q to be rejected", base)
		}
	}
	c, err := New(Config{BaseURL: "http://example.test/"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.BaseURL() != "http://example.test" {
		t.Fatalf("expected trailing slash trimmed, got %q", c.BaseURL())
	}
}

// TestSubmitStream verifies hooks fire in order and the request id round-trips.
func TestSubmitStream(t *testing.T) {
	c := newMockClient(t, mockserver.ScenarioOK)
	c.newRequestID = func() string { return "req-fixed" }

	var events []string
	resp, err := c.Submit(testutil.Context(t, 0), pdf, Hooks{
		OnAccepted: func(a Accepted) {
			events = append(events, "accepted:"+a.RequestID)
		},
		OnStep: func(message string) {
			events = append(events, "step")
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(events) < 2 || events[0] != "accepted:req-fixed" || events[1] != "step" {
		t.Fatalf("unexpected hook order %q", events)
	}
	if !resp.Streamed || resp.RequestID != "req-fixed" || resp.Status != http.StatusOK {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Terminal == nil || resp.Terminal.Source != stream.SourceResult || !resp.Terminal.OK {
		t.Fatalf("unexpected terminal %+v", resp.Terminal)
	}
	if !strings.Contains(string(resp.Terminal.Payload), `"request_id":"req-fixed"`) {
		t.Fatalf("expected the trace to carry the request id, got %s", resp.Terminal.Payload)
	}
}

// TestSubmitDocument verifies a JSON answer bypasses the line reader.
func TestSubmitDocument(t *testing.T) {
	c := newMockClient(t, mockserver.ScenarioJSON)
	steps := 0
	resp, err := c.Submit(testutil.Context(t, 0), pdf, Hooks{OnStep: func(string) { steps++ }})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.Streamed || steps != 0 {
		t.Fatalf("expected a document response without steps, got %+v steps=%d", resp, steps)
	}
	if resp.Terminal.Source != stream.SourceDocument || !resp.Terminal.OK {
		t.Fatalf("unexpected terminal %+v", resp.Terminal)
	}
}

// TestSubmitRejectedUpload verifies the 400 detail becomes a failed terminal.
func TestSubmitRejectedUpload(t *testing.T) {
	c := newMockClient(t, mockserver.ScenarioOK)
	resp, err := c.Submit(testutil.Context(t, 0), Document{Name: "notes.txt", Data: []byte("x")}, Hooks{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.Terminal.OK || resp.Terminal.StatusHint != "400" {
		t.Fatalf("expected failed 400 terminal, got %+v", resp.Terminal)
	}
}

// TestSubmitNoResult verifies stream sentinels pass through.
func TestSubmitNoResult(t *testing.T) {
	for scenario, want := range map[mockserver.Scenario]error{
		mockserver.ScenarioNoResult: stream.ErrNoFinalResult,
		mockserver.ScenarioEmpty:    stream.ErrEmptyResponse,
	} {
		c := newMockClient(t, scenario)
		_, err := c.Submit(testutil.Context(t, 0), pdf, Hooks{})
		if !errors.Is(err, want) {
			t.Fatalf("%s: expected %v, got %v", scenario, want, err)
		}
	}
}

// TestSubmitStatusError verifies a non-2xx HTML answer keeps its status.
func TestSubmitStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()
	c, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	_, err = c.Submit(testutil.Context(t, 0), pdf, Hooks{})
	var status *StatusError
	if !errors.As(err, &status) || status.HTTPStatus() != http.StatusBadGateway {
		t.Fatalf("expected 502 status error, got %v", err)
	}
	if status.RequestID == "" || !strings.Contains(status.Body, "bad gateway") {
		t.Fatalf("unexpected status error %+v", status)
	}
}

// TestSubmitCancelled verifies a cancelled context is not a transport error.
func TestSubmitCancelled(t *testing.T) {
	c := newMockClient(t, mockserver.ScenarioOK)
	ctx, cancel := context.WithCancel(testutil.Context(t, 0))
	cancel()
	_, err := c.Submit(ctx, pdf, Hooks{})
	if !errors.Is(err, stream.ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	var transport *stream.TransportError
	if errors.As(err, &transport) {
		t.Fatalf("expected no transport error, got %v", err)
	}
}

// TestHealthRetriesTransientFailures verifies backoff on 5xx answers.
func TestHealthRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()
	c, err := New(Config{BaseURL: server.URL, HealthRetries: 5, HealthInterval: time.Millisecond})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	health, err := c.Health(testutil.Context(t, 0))
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Status != "ok" || calls.Load() != 3 {
		t.Fatalf("expected ok after 3 calls, got %+v after %d", health, calls.Load())
	}
}

// TestHealthDoesNotRetryClientErrors verifies 4xx answers are permanent.
func TestHealthDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	c, err := New(Config{BaseURL: server.URL, HealthRetries: 5, HealthInterval: time.Millisecond})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if _, err := c.Health(testutil.Context(t, 0)); err == nil {
		t.Fatalf("expected an error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

// TestVersion reads build information from the mock.
func TestVersion(t *testing.T) {
	c := newMockClient(t, mockserver.ScenarioFallback)
	info, err := c.Version(testutil.Context(t, 0))
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if info["MOCK_MODE"] != "1" || info["SCENARIO"] != "fallback" {
		t.Fatalf("unexpected version %v", info)
	}
	if value, ok := info["RENDER_GIT_COMMIT"]; !ok || value != "" {
		t.Fatalf("expected null values as empty strings, got %v", info)
	}
}

// TestLoadDocument covers the local upload checks.
func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		return path
	}

	doc, err := LoadDocument(write("Order.PDF", []byte("%PDF")), MaxBytes(1))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Name != "Order.PDF" || string(doc.Data) != "%PDF" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if _, err := LoadDocument(write("notes.txt", []byte("x")), 0); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF, got %v", err)
	}
	if _, err := LoadDocument(write("big.pdf", make([]byte, 2048)), 1024); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := LoadDocument(write("empty.pdf", nil), 0); err == nil {
		t.Fatalf("expected empty document to be rejected")
	}
	if _, err := LoadDocument(filepath.Join(dir, "missing.pdf"), 0); err == nil {
		t.Fatalf("expected missing document to fail")
	}
}
