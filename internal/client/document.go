package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is a file ready for upload.
type Document struct {
	Name string
	Data []byte
}

// LoadDocument reads a PDF from disk and enforces the upload limit.
// maxBytes <= 0 disables the limit.
func LoadDocument(path string, maxBytes int64) (Document, error) {
	name := filepath.Base(path)
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return Document{}, fmt.Errorf("%s: %w", name, ErrNotPDF)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("stat document: %w", err)
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("%s is a directory", path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return Document{}, fmt.Errorf("%s: %w (limit %d MB)", name, ErrTooLarge, maxBytes>>20)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%s is empty", name)
	}
	return Document{Name: name, Data: data}, nil
}

// MaxBytes converts a megabyte limit to bytes.
func MaxBytes(megabytes int) int64 {
	return int64(megabytes) << 20
}
