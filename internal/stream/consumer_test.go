package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"docwatch/internal/testutil"
)

// collectSteps returns Options that append every step message to out.
func collectSteps(out *[]string) Options {
	return Options{OnStep: func(message string) { *out = append(*out, message) }}
}

// TestConsumeStepThenResult covers a plain successful stream.
func TestConsumeStepThenResult(t *testing.T) {
	ctx := testutil.Context(t, 0)
	body := testutil.NewStringChunkReader(
		"{\"type\":\"step\",\"message\":\"Файл загружен\"}\n",
		"{\"type\":\"result\",\"payload\":{\"extract\":{\"x\":1}},\"ok\":true}\n",
	)
	var steps []string
	terminal, err := Consume(ctx, body, collectSteps(&steps))
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(steps) != 1 || steps[0] != "Файл загружен" {
		t.Fatalf("unexpected steps %q", steps)
	}
	if !terminal.OK || terminal.Source != SourceResult {
		t.Fatalf("unexpected terminal %+v", terminal)
	}
	assertJSONEqual(t, terminal.Payload, `{"extract":{"x":1}}`)
}

// TestConsumeFallbackFromText covers a free-text record with an error object.
func TestConsumeFallbackFromText(t *testing.T) {
	ctx := testutil.Context(t, 0)
	record := `upstream timeout {"detail":"timeout","status":504}`
	var steps []string
	terminal, err := Consume(ctx, strings.NewReader(record+"\n"), collectSteps(&steps))
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(steps) != 1 || steps[0] != record {
		t.Fatalf("expected the raw record as a log line, got %q", steps)
	}
	if terminal.OK || terminal.StatusHint != "504" || terminal.Source != SourceFallback {
		t.Fatalf("unexpected terminal %+v", terminal)
	}
	assertJSONEqual(t, terminal.Payload, `{"detail":"timeout","status":504}`)
}

// TestConsumeEmptyBody verifies an empty body is distinct from no result.
func TestConsumeEmptyBody(t *testing.T) {
	ctx := testutil.Context(t, 0)
	_, err := Consume(ctx, strings.NewReader(""), Options{})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	_, err = Consume(ctx, strings.NewReader("\n  \n"), Options{})
	if !errors.Is(err, ErrNoFinalResult) {
		t.Fatalf("expected ErrNoFinalResult for blank body, got %v", err)
	}
	_, err = Consume(ctx, strings.NewReader("{\"type\":\"step\",\"message\":\"a\"}\n"), Options{})
	if !errors.Is(err, ErrNoFinalResult) {
		t.Fatalf("expected ErrNoFinalResult, got %v", err)
	}
}

// TestConsumeCancelMidStream verifies no callbacks follow a cancellation.
func TestConsumeCancelMidStream(t *testing.T) {
	ctx, cancel := context.WithCancel(testutil.Context(t, 0))
	defer cancel()
	body := testutil.NewStringChunkReader(
		"{\"type\":\"step\",\"message\":\"one\"}\n{\"type\":\"step\",\"message\":\"two\"}\n",
		"{\"type\":\"result\",\"ok\":true,\"payload\":{\"extract\":{}}}\n",
	)
	var steps []string
	consumer := NewConsumer(Options{OnStep: func(message string) {
		steps = append(steps, message)
		cancel()
	}})
	terminal, err := consumer.Consume(ctx, body)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the context cause to be kept, got %v", err)
	}
	if terminal != nil || consumer.Terminal() != nil {
		t.Fatalf("expected no terminal payload")
	}
	if len(steps) != 1 {
		t.Fatalf("expected exactly one step, got %q", steps)
	}
	if !body.Closed() {
		t.Fatalf("expected the body to be closed on cancel")
	}
}

// TestConsumeCancelBeforeFirstRead verifies nothing is read after cancel.
func TestConsumeCancelBeforeFirstRead(t *testing.T) {
	ctx, cancel := context.WithCancel(testutil.Context(t, 0))
	cancel()
	body := testutil.NewStringChunkReader("{\"type\":\"step\",\"message\":\"one\"}\n")
	var steps []string
	_, err := Consume(ctx, body, collectSteps(&steps))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(steps) != 0 || body.Reads() != 0 {
		t.Fatalf("expected no reads and no steps, got %d reads, steps %q", body.Reads(), steps)
	}
}

// TestConsumeCancelDuringBlockedRead verifies a read unblocked by cancel.
func TestConsumeCancelDuringBlockedRead(t *testing.T) {
	ctx, cancel := context.WithCancel(testutil.Context(t, 0))
	defer cancel()
	body := testutil.NewBlockingReader(ctx, "{\"type\":\"step\",\"message\":\"one\"}\n")
	steps := make(chan string, 4)
	go func() {
		<-steps
		cancel()
	}()
	_, err := Consume(ctx, body, Options{OnStep: func(message string) { steps <- message }})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

// TestConsumeRecordSplitAcrossChunks verifies reassembly of a split record.
func TestConsumeRecordSplitAcrossChunks(t *testing.T) {
	ctx := testutil.Context(t, 0)
	body := testutil.NewStringChunkReader("{\"type\":\"st", "ep\",\"message\":\"ok\"}\n")
	var steps []string
	_, err := Consume(ctx, body, collectSteps(&steps))
	if !errors.Is(err, ErrNoFinalResult) {
		t.Fatalf("expected ErrNoFinalResult, got %v", err)
	}
	if len(steps) != 1 || steps[0] != "ok" {
		t.Fatalf("expected one step \"ok\", got %q", steps)
	}
}

// TestConsumeFirstTerminalWins verifies later terminals never overwrite.
func TestConsumeFirstTerminalWins(t *testing.T) {
	ctx := testutil.Context(t, 0)
	body := strings.NewReader(strings.Join([]string{
		`{"type":"result","ok":true,"payload":{"extract":{"n":1}}}`,
		`{"detail":"late failure","status":500}`,
		`trailing log {"error":"boom","status":502}`,
		`{"type":"result","ok":false,"payload":{"error":"again"}}`,
	}, "\n"))
	var steps []string
	terminal, err := Consume(ctx, body, collectSteps(&steps))
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	assertJSONEqual(t, terminal.Payload, `{"extract":{"n":1}}`)
	if len(steps) != 1 || !strings.HasPrefix(steps[0], "trailing log") {
		t.Fatalf("expected the trailing log line to be surfaced, got %q", steps)
	}
}

// TestConsumeTypedRecordSkipsFallback verifies typed records bypass the fallback extractor.
func TestConsumeTypedRecordSkipsFallback(t *testing.T) {
	ctx := testutil.Context(t, 0)
	body := strings.NewReader(`{"type":"step","message":"{\"detail\":\"x\",\"status\":500}"}` + "\n" +
		`{"type":"heartbeat","status":"alive"}` + "\n")
	var steps []string
	_, err := Consume(ctx, body, collectSteps(&steps))
	if !errors.Is(err, ErrNoFinalResult) {
		t.Fatalf("expected no terminal from typed records, got %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected both records as log lines, got %q", steps)
	}
}

// TestConsumeTypedErrorIsNotTerminal verifies an unknown typed record with
// error fields stays a log line.
func TestConsumeTypedErrorIsNotTerminal(t *testing.T) {
	ctx := testutil.Context(t, 0)
	record := `{"type":"error","detail":"boom","status":500}`
	var steps []string
	_, err := Consume(ctx, strings.NewReader(record+"\n"), collectSteps(&steps))
	if !errors.Is(err, ErrNoFinalResult) {
		t.Fatalf("expected ErrNoFinalResult, got %v", err)
	}
	if len(steps) != 1 || steps[0] != record {
		t.Fatalf("expected the record as a single log line, got %q", steps)
	}
}

// cancelOnEOFReader returns its data with io.EOF and cancels while doing so.
type cancelOnEOFReader struct {
	data   string
	cancel context.CancelFunc
}

func (r *cancelOnEOFReader) Read(p []byte) (int, error) {
	r.cancel()
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, io.EOF
}

// TestConsumeCancelBeforeResidualRecord verifies a cancel during the last
// read stops the unterminated final record from being dispatched.
func TestConsumeCancelBeforeResidualRecord(t *testing.T) {
	ctx, cancel := context.WithCancel(testutil.Context(t, 0))
	defer cancel()
	body := &cancelOnEOFReader{data: `{"type":"step","message":"late"}`, cancel: cancel}
	var steps []string
	_, err := Consume(ctx, body, collectSteps(&steps))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("expected no steps after cancel, got %q", steps)
	}
}

// TestConsumeResidualRecord verifies the final record needs no newline.
func TestConsumeResidualRecord(t *testing.T) {
	ctx := testutil.Context(t, 0)
	body := testutil.NewStringChunkReader(`{"type":"result","ok":true,`, `"payload":{"extract":{}}}`)
	terminal, err := Consume(ctx, body, Options{})
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !terminal.OK {
		t.Fatalf("expected ok terminal")
	}
}

// TestConsumeTransportError verifies read failures keep their cause.
func TestConsumeTransportError(t *testing.T) {
	ctx := testutil.Context(t, 0)
	cause := errors.New("connection reset by peer")
	body := testutil.NewStringChunkReader("{\"type\":\"step\",\"message\":\"a\"}\n").FailWith(cause)
	_, err := Consume(ctx, body, Options{})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be wrapped, got %v", err)
	}
}

// TestConsumeDocument covers single-document JSON framing.
func TestConsumeDocument(t *testing.T) {
	ctx := testutil.Context(t, 0)
	terminal, err := ConsumeDocument(ctx, strings.NewReader(`{"extract":{"x":1}}`), 200)
	if err != nil {
		t.Fatalf("consume document: %v", err)
	}
	if !terminal.OK || terminal.Source != SourceDocument || terminal.StatusHint != "200" {
		t.Fatalf("unexpected terminal %+v", terminal)
	}

	terminal, err = ConsumeDocument(ctx, strings.NewReader(`{"error":"Ошибка","status":502,"detail":"x"}`), 200)
	if err != nil {
		t.Fatalf("consume document: %v", err)
	}
	if terminal.OK {
		t.Fatalf("expected an error field to fail the document")
	}

	terminal, err = ConsumeDocument(ctx, strings.NewReader(`{"detail":"Файл слишком большой"}`), 413)
	if err != nil {
		t.Fatalf("consume document: %v", err)
	}
	if terminal.OK || terminal.StatusHint != "413" {
		t.Fatalf("expected 413 failure, got %+v", terminal)
	}

	if _, err := ConsumeDocument(ctx, strings.NewReader(""), 200); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	var decodeErr *DecodeError
	if _, err := ConsumeDocument(ctx, strings.NewReader("<html>bad gateway</html>"), 502); !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

// TestIsDocumentContentType covers the framing switch.
func TestIsDocumentContentType(t *testing.T) {
	if !IsDocumentContentType("Application/JSON; charset=utf-8") {
		t.Fatalf("expected JSON content type to select document framing")
	}
	if IsDocumentContentType("application/x-ndjson") {
		t.Fatalf("expected NDJSON to select stream framing")
	}
}

// assertJSONEqual compares two JSON documents structurally.
func assertJSONEqual(t *testing.T, got json.RawMessage, want string) {
	t.Helper()
	var a, b any
	if err := json.Unmarshal(got, &a); err != nil {
		t.Fatalf("decode got %q: %v", got, err)
	}
	if err := json.Unmarshal([]byte(want), &b); err != nil {
		t.Fatalf("decode want: %v", err)
	}
	ga, _ := json.Marshal(a)
	gb, _ := json.Marshal(b)
	if string(ga) != string(gb) {
		t.Fatalf("expected %s, got %s", gb, ga)
	}
}

var _ io.Reader = (*testutil.ChunkReader)(nil)
