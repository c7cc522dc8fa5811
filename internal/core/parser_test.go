package core

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func readAll(t *testing.T, src RowSource) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := src.Next()
		if err == io.EOF {
			return rows
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rows = append(rows, row)
	}
}

// =============================================================================
// Parser
// =============================================================================

func TestParser_HeaderNormalization(t *testing.T) {
	p, err := NewParser(strings.NewReader(" ID ,Name,SKU\n1,Shirt,SH-1\n"))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}

	want := []string{"id", "name", "sku"}
	if got := p.Header(); !reflect.DeepEqual(got, want) {
		t.Errorf("Header() = %v, want %v", got, want)
	}

	rows := readAll(t, p)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if got := rows[0].Value("sku"); got != "SH-1" {
		t.Errorf("sku = %q, want SH-1", got)
	}
}

func TestParser_Rows(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantRows  int
		wantLines []int
		check     func(t *testing.T, rows []Row)
	}{
		{
			name:      "blank lines are skipped",
			input:     "id,name\n1,A\n\n,\n  ,  \n2,B\n",
			wantRows:  2,
			wantLines: []int{2, 6},
		},
		{
			name:     "short rows are padded",
			input:    "id,name,sku\n1\n",
			wantRows: 1,
			check: func(t *testing.T, rows []Row) {
				v, ok := rows[0].Get("sku")
				if !ok || v != "" {
					t.Errorf("sku = %q (present %v), want empty and present", v, ok)
				}
			},
		},
		{
			name:     "long rows are truncated",
			input:    "id,name\n1,A,extra,more\n",
			wantRows: 1,
			check: func(t *testing.T, rows []Row) {
				if got := len(rows[0].Keys()); got != 2 {
					t.Errorf("len(Keys()) = %d, want 2", got)
				}
			},
		},
		{
			name:     "duplicate header last wins",
			input:    "id,name,name\n1,first,second\n",
			wantRows: 1,
			check: func(t *testing.T, rows []Row) {
				if got := rows[0].Value("name"); got != "second" {
					t.Errorf("name = %q, want second", got)
				}
			},
		},
		{
			name:     "cells are trimmed",
			input:    "id,name\n 7 ,  Blue Shirt  \n",
			wantRows: 1,
			check: func(t *testing.T, rows []Row) {
				if got := rows[0].Value("name"); got != "Blue Shirt" {
					t.Errorf("name = %q, want %q", got, "Blue Shirt")
				}
			},
		},
		{
			name:      "quoted newline keeps starting line",
			input:     "id,description\n1,\"line one\nline two\"\n2,x\n",
			wantRows:  2,
			wantLines: []int{2, 4},
			check: func(t *testing.T, rows []Row) {
				if got := rows[0].Value("description"); got != "line one\nline two" {
					t.Errorf("description = %q", got)
				}
			},
		},
		{
			name:     "semicolon file",
			input:    "id;regular_price\n1;19,99\n",
			wantRows: 1,
			check: func(t *testing.T, rows []Row) {
				if got := rows[0].Value("regular_price"); got != "19,99" {
					t.Errorf("regular_price = %q, want 19,99", got)
				}
			},
		},
		{
			name:     "header only",
			input:    "id,name\n",
			wantRows: 0,
		},
		{
			name:     "empty file",
			input:    "",
			wantRows: 0,
		},
		{
			name:     "BOM and CRLF",
			input:    "\xEF\xBB\xBFid,name\r\n1,A\r\n",
			wantRows: 1,
			check: func(t *testing.T, rows []Row) {
				if got := rows[0].Value("id"); got != "1" {
					t.Errorf("id = %q, want 1", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewParser(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("NewParser: %v", err)
			}
			rows := readAll(t, p)
			if len(rows) != tt.wantRows {
				t.Fatalf("got %d rows, want %d", len(rows), tt.wantRows)
			}
			for i, line := range tt.wantLines {
				if rows[i].Line != line {
					t.Errorf("rows[%d].Line = %d, want %d", i, rows[i].Line, line)
				}
			}
			if tt.check != nil {
				tt.check(t, rows)
			}
		})
	}
}

func TestParser_Delimiter(t *testing.T) {
	p, err := NewParser(strings.NewReader("\n\nid\tname\n1\tA\n"))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	if p.Delimiter() != '\t' {
		t.Errorf("Delimiter() = %q, want tab", p.Delimiter())
	}
	if got := len(readAll(t, p)); got != 1 {
		t.Errorf("got %d rows, want 1", got)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestParser_UnreadableSource(t *testing.T) {
	_, err := NewParser(failingReader{})

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("NewParser error = %v, want *ParseError", err)
	}
}

// =============================================================================
// Row
// =============================================================================

func TestNewRow(t *testing.T) {
	row := NewRow(5, "ID", " 42 ", "name", "A", "name", "B")

	if row.Line != 5 {
		t.Errorf("Line = %d, want 5", row.Line)
	}
	if got := row.Value("id"); got != "42" {
		t.Errorf("id = %q, want 42", got)
	}
	if got := row.Value("name"); got != "B" {
		t.Errorf("name = %q, want B", got)
	}
	if _, ok := row.Get("sku"); ok {
		t.Error("absent column should not be present")
	}
	if got := row.Keys(); !reflect.DeepEqual(got, []string{"id", "name"}) {
		t.Errorf("Keys() = %v", got)
	}
}

// =============================================================================
// XLSX and OpenSource
// =============================================================================

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestXLSXSource(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"ID", "Name", "Name", "SKU"},
		{42, "first", "Blue Shirt", "SH-42"},
		{43, "x", "Red Shirt"},
	})

	src, err := NewXLSXSource(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewXLSXSource: %v", err)
	}
	defer src.Close()

	if got := src.Header(); !reflect.DeepEqual(got, []string{"id", "name", "sku"}) {
		t.Errorf("Header() = %v", got)
	}

	rows := readAll(t, src)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if got := rows[0].Value("id"); got != "42" {
		t.Errorf("id = %q, want 42", got)
	}
	if got := rows[0].Value("name"); got != "Blue Shirt" {
		t.Errorf("name = %q, want Blue Shirt (last duplicate wins)", got)
	}
	if rows[0].Line != 2 || rows[1].Line != 3 {
		t.Errorf("lines = %d,%d, want 2,3", rows[0].Line, rows[1].Line)
	}
	if v, ok := rows[1].Get("sku"); !ok || v != "" {
		t.Errorf("short row sku = %q (present %v), want padded empty", v, ok)
	}
}

func TestXLSXSource_NotAWorkbook(t *testing.T) {
	_, err := NewXLSXSource(strings.NewReader("id,name\n1,A\n"))

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if got := MapError(err).Code; got != "FILE006" {
		t.Errorf("MapError code = %q, want FILE006", got)
	}
}

func TestOpenSource(t *testing.T) {
	workbook := buildWorkbook(t, [][]any{{"id"}, {1}})

	tests := []struct {
		name     string
		fileName string
		data     []byte
		wantType string
		wantErr  error
	}{
		{name: "csv", fileName: "products.csv", data: []byte("id\n1\n"), wantType: "*core.Parser"},
		{name: "upper-case extension", fileName: "PRODUCTS.CSV", data: []byte("id\n1\n"), wantType: "*core.Parser"},
		{name: "tsv", fileName: "products.tsv", data: []byte("id\n1\n"), wantType: "*core.Parser"},
		{name: "xlsx", fileName: "products.xlsx", data: workbook, wantType: "*core.XLSXSource"},
		{name: "pdf", fileName: "products.pdf", data: []byte("%PDF"), wantErr: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := OpenSource(bytes.NewReader(tt.data), tt.fileName)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenSource: %v", err)
			}
			defer src.Close()
			if got := reflect.TypeOf(src).String(); got != tt.wantType {
				t.Errorf("source type = %s, want %s", got, tt.wantType)
			}
		})
	}
}
