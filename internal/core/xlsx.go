package core

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXSource reads rows from the first worksheet of an XLSX workbook using
// the same header and blank-row rules as Parser.
type XLSXSource struct {
	file    *excelize.File
	rows    *excelize.Rows
	builder *rowBuilder
	line    int
}

// NewXLSXSource opens the workbook and reads its header row.
func NewXLSXSource(r io.Reader) (*XLSXSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("open workbook: %w", err)}
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, &ParseError{Err: fmt.Errorf("workbook has no sheets")}
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, &ParseError{Err: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}

	s := &XLSXSource{file: f, rows: rows, builder: newRowBuilder(nil)}
	for {
		cells, ok, err := s.read()
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		if !ok {
			return s, nil
		}
		if isBlank(cells) {
			continue
		}
		s.builder = newRowBuilder(cells)
		return s, nil
	}
}

func (s *XLSXSource) read() ([]string, bool, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, false, &ParseError{Line: s.line + 1, Err: err}
		}
		return nil, false, nil
	}
	s.line++
	cells, err := s.rows.Columns()
	if err != nil {
		return nil, false, &ParseError{Line: s.line, Err: err}
	}
	return cells, true, nil
}

// Header returns the normalized column keys.
func (s *XLSXSource) Header() []string {
	return append([]string(nil), s.builder.keys...)
}

// Next returns the next non-blank data row.
func (s *XLSXSource) Next() (Row, error) {
	if len(s.builder.columns) == 0 {
		return Row{}, io.EOF
	}
	for {
		cells, ok, err := s.read()
		if err != nil {
			return Row{}, err
		}
		if !ok {
			return Row{}, io.EOF
		}
		if isBlank(cells) {
			continue
		}
		return s.builder.build(s.line, cells), nil
	}
}

// Close releases the workbook.
func (s *XLSXSource) Close() error {
	if s.rows != nil {
		_ = s.rows.Close()
	}
	return s.file.Close()
}
