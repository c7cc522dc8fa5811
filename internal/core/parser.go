package core

// parser.go turns an uploaded file into a sequence of Rows.
//
// The header is the first line that is not blank. Header cells are trimmed
// and lower-cased to form keys; when two header cells share a name the
// later column wins. Data lines whose cells are all empty are skipped.
// Short lines are padded with empty values and surplus cells are dropped.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for files that are neither delimited
// text nor XLSX workbooks.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ParseError reports that the source could not be read. It aborts the run.
type ParseError struct {
	Line int // 0 when unknown
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid csv at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("invalid csv: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Row is one data line keyed by normalized header name.
// Rows are immutable; accessors return copies.
type Row struct {
	Line   int // physical line (or sheet row) where the record starts
	keys   []string
	values map[string]string
}

// NewRow builds a row from an ordered list of key/value pairs.
// Keys are normalized like header cells; a repeated key keeps its last value.
func NewRow(line int, pairs ...string) Row {
	r := Row{Line: line, values: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		key := normalizeHeader(pairs[i])
		if key == "" {
			continue
		}
		if _, seen := r.values[key]; !seen {
			r.keys = append(r.keys, key)
		}
		r.values[key] = cleanCell(pairs[i+1])
	}
	return r
}

// Get returns the cell for key and whether the column exists.
func (r Row) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Value returns the cell for key, or "" when the column is absent.
func (r Row) Value(key string) string {
	return r.values[key]
}

// Keys returns the row's column keys in header order.
func (r Row) Keys() []string {
	return append([]string(nil), r.keys...)
}

// RowSource yields rows lazily. Next returns io.EOF after the last row.
// Sources are not restartable.
type RowSource interface {
	Header() []string
	Next() (Row, error)
	Close() error
}

// rowBuilder zips raw cells with normalized header keys.
type rowBuilder struct {
	columns []string // key per column position, "" for ignored columns
	keys    []string // distinct keys in header order
}

func newRowBuilder(header []string) *rowBuilder {
	b := &rowBuilder{columns: make([]string, len(header))}
	seen := make(map[string]bool)
	for i, cell := range header {
		key := normalizeHeader(cell)
		b.columns[i] = key
		if key != "" && !seen[key] {
			seen[key] = true
			b.keys = append(b.keys, key)
		}
	}
	return b
}

func (b *rowBuilder) build(line int, cells []string) Row {
	values := make(map[string]string, len(b.keys))
	for i, key := range b.columns {
		if key == "" {
			continue
		}
		v := ""
		if i < len(cells) {
			v = cleanCell(cells[i])
		}
		values[key] = v
	}
	return Row{Line: line, keys: b.keys, values: values}
}

func normalizeHeader(cell string) string {
	return strings.ToLower(cleanCell(cell))
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if cleanCell(c) != "" {
			return false
		}
	}
	return true
}

// Parser reads delimiter-separated text.
type Parser struct {
	reader    *csv.Reader
	builder   *rowBuilder
	delimiter rune
}

// NewParser strips a byte order mark, detects the delimiter from the first
// non-blank line and reads the header. A file without any header yields a
// parser whose Next immediately returns io.EOF.
func NewParser(r io.Reader) (*Parser, error) {
	br := SkipBOM(r)

	first, err := firstLine(br)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	p := &Parser{delimiter: DetectDelimiter(first)}
	p.reader = csv.NewReader(br)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = true
	p.reader.FieldsPerRecord = -1

	for {
		cells, err := p.reader.Read()
		if err == io.EOF {
			p.builder = newRowBuilder(nil)
			return p, nil
		}
		if err != nil {
			return nil, wrapCSVError(err)
		}
		if isBlank(cells) {
			continue
		}
		p.builder = newRowBuilder(cells)
		return p, nil
	}
}

// Delimiter returns the detected delimiter.
func (p *Parser) Delimiter() rune { return p.delimiter }

// Header returns the normalized column keys.
func (p *Parser) Header() []string {
	return append([]string(nil), p.builder.keys...)
}

// Next returns the next non-blank data row.
func (p *Parser) Next() (Row, error) {
	if len(p.builder.columns) == 0 {
		return Row{}, io.EOF
	}
	for {
		cells, err := p.reader.Read()
		if err == io.EOF {
			return Row{}, io.EOF
		}
		if err != nil {
			return Row{}, wrapCSVError(err)
		}
		if isBlank(cells) {
			continue
		}
		line, _ := p.reader.FieldPos(0)
		return p.builder.build(line, cells), nil
	}
}

// Close implements RowSource.
func (p *Parser) Close() error { return nil }

// firstLine returns the first non-blank physical line without consuming it.
func firstLine(br *bufio.Reader) (string, error) {
	buf, err := br.Peek(br.Size())
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return "", err
	}
	for _, line := range bytes.Split(buf, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) > 0 {
			return string(line), nil
		}
	}
	return "", nil
}

func wrapCSVError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.StartLine, Err: csvErr.Err}
	}
	return &ParseError{Err: err}
}

// OpenSource picks a row source by file extension.
func OpenSource(r io.Reader, fileName string) (RowSource, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt", ".tsv", "":
		return NewParser(r)
	case ".xlsx":
		return NewXLSXSource(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(fileName))
	}
}
