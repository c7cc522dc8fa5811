package core

// streaming.go provides the reader wrappers applied to every uploaded file
// before it reaches a row source:
//
//   - SkipBOM drops a leading UTF-8 byte order mark written by spreadsheet tools
//   - CountingReader tracks bytes read for the run summary
//
// Invalid UTF-8 is repaired per cell by cleanCell rather than on the byte
// stream, so that multi-byte sequences split across reads cannot be damaged.

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM returns a buffered reader positioned after a leading byte order
// mark, if there is one.
func SkipBOM(r io.Reader) *bufio.Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 64*1024)
	}
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// cleanCell trims a cell and replaces invalid UTF-8 with '?'.
func cleanCell(s string) string {
	return strings.TrimSpace(strings.ToValidUTF8(s, "?"))
}
