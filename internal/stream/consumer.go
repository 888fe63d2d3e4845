package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// defaultChunkSize bounds a single read from the response body.
const defaultChunkSize = 32 * 1024

// Options configures a Consume call.
type Options struct {
	// OnStep receives step messages and unrecognized records in line order,
	// synchronously, before the next record is processed.
	OnStep func(message string)
	// ChunkSize overrides the read buffer size.
	ChunkSize int
	Logger    *slog.Logger
}

// Consumer runs the read, decode, frame, parse and dispatch cycle for one
// response body. It only produces events; it never holds run state.
type Consumer struct {
	opts     Options
	logger   *slog.Logger
	framer   *Framer
	terminal *Terminal
	records  int
	bytes    int
}

// NewConsumer builds a consumer for a single body.
func NewConsumer(opts Options) *Consumer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	return &Consumer{
		opts:   opts,
		logger: logger.With("component", "stream"),
		framer: NewFramer(),
	}
}

// Consume reads body to completion and returns the first terminal payload.
// It fails with ErrCancelled when ctx ends, *TransportError on read
// failures, ErrEmptyResponse on a zero-byte body and ErrNoFinalResult when
// the stream ended without a terminal payload.
func Consume(ctx context.Context, body io.Reader, opts Options) (*Terminal, error) {
	return NewConsumer(opts).Consume(ctx, body)
}

// Consume runs the read loop over body.
func (c *Consumer) Consume(ctx context.Context, body io.Reader) (*Terminal, error) {
	if body == nil {
		return nil, ErrEmptyResponse
	}
	buf := make([]byte, c.opts.ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			abort(body)
			return nil, cancelled(context.Cause(ctx))
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			c.bytes += n
			for _, record := range c.framer.Feed(buf[:n]) {
				if err := ctx.Err(); err != nil {
					abort(body)
					return nil, cancelled(context.Cause(ctx))
				}
				c.dispatch(record)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return nil, cancelled(context.Cause(ctx))
			}
			return nil, &TransportError{Op: "read", Err: readErr}
		}
	}

	for _, record := range c.framer.Flush() {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(context.Cause(ctx))
		}
		c.dispatch(record)
	}

	c.logger.Debug("stream finished", "bytes", c.bytes, "records", c.records, "terminal", c.terminal != nil)
	if c.bytes == 0 {
		return nil, ErrEmptyResponse
	}
	if c.terminal == nil {
		return nil, ErrNoFinalResult
	}
	return c.terminal, nil
}

// Terminal returns the payload recorded so far.
func (c *Consumer) Terminal() *Terminal {
	return c.terminal
}

// dispatch routes one record through the parser.
func (c *Consumer) dispatch(record string) {
	c.records++
	event := ParseRecord(record)
	switch event.Kind {
	case EventStep:
		c.step(event.Message)
	case EventResult, EventError:
		c.record(terminalFromEvent(event))
	case EventUnrecognized:
		c.step(event.Raw)
		// A record with an unknown "type" is a protocol message we do not
		// understand, so it stays a log line even when it looks like an error.
		if event.Typed {
			return
		}
		if recovered, ok := ExtractResult(event.Raw); ok {
			c.record(recovered)
			return
		}
		c.logger.Debug("unrecognized record", "record", truncate(event.Raw, 160))
	}
}

// record keeps the first terminal payload; later ones are only logged.
func (c *Consumer) record(terminal *Terminal) {
	if c.terminal != nil {
		c.logger.Warn("ignoring extra terminal payload", "source", terminal.Source, "first", c.terminal.Source)
		return
	}
	c.terminal = terminal
}

// step forwards a message to the caller.
func (c *Consumer) step(message string) {
	if c.opts.OnStep != nil {
		c.opts.OnStep(message)
	}
}

// abort asks the body to stop producing data.
func abort(body io.Reader) {
	if closer, ok := body.(io.Closer); ok {
		_ = closer.Close()
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
