package stream

import (
	"errors"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ChunkDecoder turns raw UTF-8 chunks into text, holding back an incomplete
// multi-byte sequence until the next chunk completes it.
type ChunkDecoder struct {
	transformer transform.Transformer
	pending     []byte
	scratch     []byte
}

// NewChunkDecoder returns a decoder with an empty remainder.
func NewChunkDecoder() *ChunkDecoder {
	return &ChunkDecoder{
		transformer: unicode.UTF8.NewDecoder(),
		scratch:     make([]byte, 4096),
	}
}

// Decode appends chunk to the remainder and returns every complete rune as text.
// Invalid sequences decode to U+FFFD.
func (d *ChunkDecoder) Decode(chunk []byte) string {
	if len(chunk) == 0 && len(d.pending) == 0 {
		return ""
	}
	src := append(d.pending, chunk...)
	text, rest := d.run(src, false)
	d.pending = append(d.pending[:0:0], rest...)
	return text
}

// Flush decodes whatever remainder is left at end of stream.
func (d *ChunkDecoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	text, _ := d.run(d.pending, true)
	d.pending = nil
	d.transformer.Reset()
	return text
}

// Pending reports how many bytes are held back.
func (d *ChunkDecoder) Pending() int {
	return len(d.pending)
}

// run feeds src through the transformer and returns the decoded text plus
// the bytes it could not consume yet.
func (d *ChunkDecoder) run(src []byte, atEOF bool) (string, []byte) {
	var out strings.Builder
	for len(src) > 0 {
		nDst, nSrc, err := d.transformer.Transform(d.scratch, src, atEOF)
		out.Write(d.scratch[:nDst])
		src = src[nSrc:]
		switch {
		case err == nil:
			continue
		case errors.Is(err, transform.ErrShortDst):
			continue
		case errors.Is(err, transform.ErrShortSrc):
			return out.String(), src
		default:
			// The UTF-8 decoder substitutes invalid input, so any other error
			// is unexpected; emit the rest verbatim rather than lose it.
			out.Write(src)
			return out.String(), nil
		}
	}
	return out.String(), nil
}
