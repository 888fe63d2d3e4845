package stream

import "strings"

// LineBuffer accumulates decoded text and yields newline-terminated records.
// Blank records are dropped; returned records are trimmed.
type LineBuffer struct {
	partial strings.Builder
}

// Feed appends text and returns every record completed by it, in order.
func (b *LineBuffer) Feed(text string) []string {
	if text == "" {
		return nil
	}
	var records []string
	for {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			b.partial.WriteString(text)
			return records
		}
		b.partial.WriteString(text[:idx])
		if record := strings.TrimSpace(b.partial.String()); record != "" {
			records = append(records, record)
		}
		b.partial.Reset()
		text = text[idx+1:]
	}
}

// Flush returns the residual record held back without a trailing newline.
func (b *LineBuffer) Flush() (string, bool) {
	record := strings.TrimSpace(b.partial.String())
	b.partial.Reset()
	return record, record != ""
}

// Framer chains a ChunkDecoder and a LineBuffer: bytes in, records out.
type Framer struct {
	decoder *ChunkDecoder
	lines   LineBuffer
}

// NewFramer returns a Framer with empty decoding and line state.
func NewFramer() *Framer {
	return &Framer{decoder: NewChunkDecoder()}
}

// Feed decodes chunk and returns the records it completes.
func (f *Framer) Feed(chunk []byte) []string {
	return f.lines.Feed(f.decoder.Decode(chunk))
}

// Flush drains the decoder remainder and the residual partial record.
func (f *Framer) Flush() []string {
	records := f.lines.Feed(f.decoder.Flush())
	if last, ok := f.lines.Flush(); ok {
		records = append(records, last)
	}
	return records
}
