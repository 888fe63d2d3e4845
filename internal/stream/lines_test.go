package stream

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"docwatch/internal/testutil"
)

// sampleBody mixes multi-byte text, blank lines, CRLF and a residual record.
const sampleBody = "{\"type\":\"step\",\"message\":\"Файл загружен\"}\n" +
	"\n" +
	"   \n" +
	"{\"type\":\"step\",\"message\":\"PDF открыт, страниц: 1\"}\r\n" +
	"upstream said: {\"detail\":\"таймаут\",\"status\":504}\n" +
	"{\"type\":\"result\",\"ok\":true,\"payload\":{\"extract\":{\"x\":\"ё\"}}}"

// TestChunkDecoderSplitRune verifies multi-byte runes survive any split.
func TestChunkDecoderSplitRune(t *testing.T) {
	data := []byte("Готово ✓")
	for cut := 1; cut < len(data); cut++ {
		d := NewChunkDecoder()
		got := d.Decode(data[:cut]) + d.Decode(data[cut:]) + d.Flush()
		if got != string(data) {
			t.Fatalf("cut at %d: expected %q, got %q", cut, data, got)
		}
	}
}

// TestChunkDecoderHoldsPartialSequence verifies the remainder is held back.
func TestChunkDecoderHoldsPartialSequence(t *testing.T) {
	d := NewChunkDecoder()
	data := []byte("ж")
	if got := d.Decode(data[:1]); got != "" {
		t.Fatalf("expected nothing for half a rune, got %q", got)
	}
	if d.Pending() != 1 {
		t.Fatalf("expected 1 pending byte, got %d", d.Pending())
	}
	if got := d.Decode(data[1:]); got != "ж" {
		t.Fatalf("expected completed rune, got %q", got)
	}
}

// TestChunkDecoderInvalidBytes verifies invalid input becomes U+FFFD.
func TestChunkDecoderInvalidBytes(t *testing.T) {
	d := NewChunkDecoder()
	got := d.Decode([]byte{'a', 0xff, 'b'})
	if got != "a�b" {
		t.Fatalf("expected replacement rune, got %q", got)
	}
	truncated := []byte("ж")[:1]
	if got := d.Decode(truncated) + d.Flush(); got != "�" {
		t.Fatalf("expected replacement for truncated rune at EOF, got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("expected valid UTF-8 output")
	}
}

// TestLineBufferDropsBlankRecords verifies blank records never surface.
func TestLineBufferDropsBlankRecords(t *testing.T) {
	var b LineBuffer
	records := b.Feed("a\n\n  \t\nb\n  c  ")
	if !reflect.DeepEqual(records, []string{"a", "b"}) {
		t.Fatalf("unexpected records %q", records)
	}
	last, ok := b.Flush()
	if !ok || last != "c" {
		t.Fatalf("expected residual c, got %q (%v)", last, ok)
	}
	if _, ok := b.Flush(); ok {
		t.Fatalf("expected empty buffer after flush")
	}
}

// TestFramerChunkingInvariance verifies chunk boundaries never change records.
func TestFramerChunkingInvariance(t *testing.T) {
	data := []byte(sampleBody)
	want := frame([][]byte{data})
	if len(want) != 4 {
		t.Fatalf("expected 4 records from sample body, got %d: %q", len(want), want)
	}
	for size := 1; size <= len(data); size++ {
		got := frame(testutil.SplitEvery(data, size))
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("chunk size %d: expected %q, got %q", size, want, got)
		}
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		got := frame(randomSplit(rng, data))
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("random split %d: expected %q, got %q", i, want, got)
		}
	}
}

// TestFramerResidualWithoutNewline verifies the last record is flushed.
func TestFramerResidualWithoutNewline(t *testing.T) {
	f := NewFramer()
	if got := f.Feed([]byte("{\"type\":\"st")); len(got) != 0 {
		t.Fatalf("expected no records yet, got %q", got)
	}
	rest := f.Flush()
	if len(rest) != 1 || !strings.HasPrefix(rest[0], "{\"type\"") {
		t.Fatalf("expected residual record, got %q", rest)
	}
}

// frame runs chunks through a fresh Framer.
func frame(chunks [][]byte) []string {
	f := NewFramer()
	var out []string
	for _, chunk := range chunks {
		out = append(out, f.Feed(chunk)...)
	}
	return append(out, f.Flush()...)
}

// randomSplit cuts data at random offsets.
func randomSplit(rng *rand.Rand, data []byte) [][]byte {
	var out [][]byte
	for len(data) > 0 {
		n := 1 + rng.Intn(len(data))
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}
