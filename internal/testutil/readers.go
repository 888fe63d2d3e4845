package testutil

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ChunkReader returns each chunk from a separate Read call, so tests control
// where chunk boundaries fall.
type ChunkReader struct {
	mu     sync.Mutex
	chunks [][]byte
	err    error
	closed bool
	reads  int
}

// NewChunkReader builds a reader over the given chunks.
func NewChunkReader(chunks ...[]byte) *ChunkReader {
	return &ChunkReader{chunks: chunks}
}

// NewStringChunkReader builds a reader over string chunks.
func NewStringChunkReader(chunks ...string) *ChunkReader {
	out := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		out[i] = []byte(chunk)
	}
	return NewChunkReader(out...)
}

// FailWith makes the reader return err once the chunks are exhausted.
func (r *ChunkReader) FailWith(err error) *ChunkReader {
	r.err = err
	return r
}

// Read returns the next chunk, or io.EOF.
func (r *ChunkReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if r.closed {
		return 0, errors.New("read on closed body")
	}
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	chunk := r.chunks[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		r.chunks[0] = chunk[n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

// Close marks the reader closed.
func (r *ChunkReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *ChunkReader) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Reads reports how many Read calls were made.
func (r *ChunkReader) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

// BlockingReader returns its chunks and then blocks until ctx ends, which
// mimics an HTTP body whose request context was cancelled.
type BlockingReader struct {
	ctx    context.Context
	chunks *ChunkReader
}

// NewBlockingReader builds a reader that blocks after its chunks.
func NewBlockingReader(ctx context.Context, chunks ...string) *BlockingReader {
	return &BlockingReader{ctx: ctx, chunks: NewStringChunkReader(chunks...)}
}

// Read returns the next chunk or blocks until ctx is done.
func (r *BlockingReader) Read(p []byte) (int, error) {
	n, err := r.chunks.Read(p)
	if !errors.Is(err, io.EOF) {
		return n, err
	}
	<-r.ctx.Done()
	return 0, r.ctx.Err()
}

// SplitEvery cuts data into chunks of size n.
func SplitEvery(data []byte, n int) [][]byte {
	if n <= 0 {
		return [][]byte{data}
	}
	var out [][]byte
	for len(data) > n {
		out = append(out, data[:n])
		data = data[n:]
	}
	if len(data) > 0 {
		out = append(out, data)
	}
	return out
}
