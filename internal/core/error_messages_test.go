package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "request body too large", err: errors.New("http: request body too large"), wantCode: "FILE001"},
		{name: "parse error", err: &ParseError{Line: 3, Err: errors.New(`bare " in non-quoted field`)}, wantCode: "FILE002"},
		{name: "workbook error", err: &ParseError{Err: errors.New("open workbook: zip: not a valid zip file")}, wantCode: "FILE006"},
		{name: "no file", err: ErrNoFile, wantCode: "FILE004"},
		{name: "empty file", err: ErrEmptyFile, wantCode: "FILE005"},
		{name: "unsupported format", err: fmt.Errorf("%w: .pdf", ErrUnsupportedFormat), wantCode: "FILE006"},
		{name: "busy importer", err: ErrTooManyImports, wantCode: "IMP001"},
		{name: "unknown run", err: fmt.Errorf("%w: abc", ErrRunNotFound), wantCode: "IMP002"},
		{name: "no report", err: ErrNoReport, wantCode: "IMP003"},
		{name: "deadline", err: fmt.Errorf("reconcile: %w", errContextDeadline), wantCode: "IMP005"},
		{name: "invalid request", err: fmt.Errorf("%w: actor required", ErrInvalidRequest), wantCode: "IMP006"},
		{name: "duplicate key", err: errors.New("ERROR: duplicate key value violates unique constraint"), wantCode: "DB001"},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), wantCode: "DB002"},
		{name: "deadlock", err: errors.New("ERROR: deadlock detected"), wantCode: "DB005"},
		{name: "rate limit", err: errors.New("rate limit exceeded"), wantCode: "RATE001"},
		{name: "case insensitive matching", err: errors.New("CONNECTION REFUSED"), wantCode: "DB002"},
		{name: "unknown error returns default", err: errors.New("some random internal error"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && (got.Message == "" || got.Action == "") {
				t.Errorf("MapError(%v) = %+v, want message and action", tt.err, got)
			}
		})
	}
}

func TestMapError_ParseErrorNamesRow(t *testing.T) {
	err := fmt.Errorf("read rows: %w", &ParseError{Line: 7, Err: errors.New(`extraneous " in field`)})
	got := MapError(err)
	if got.Code != "FILE002" {
		t.Errorf("Code = %q, want FILE002", got.Code)
	}
	if got.Message != RenderMessage(CodeCSVParseError, 7) {
		t.Errorf("Message = %q, want the row number", got.Message)
	}
	if !strings.Contains(got.Message, "7") {
		t.Errorf("Message = %q, want row 7", got.Message)
	}
}

var errContextDeadline = errors.New("context deadline exceeded")

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrEmptyFile)
	if !strings.Contains(got, "(Code: FILE005)") {
		t.Errorf("FormatUserError = %q, want code FILE005", got)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should be nil")
	}

	ue := NewUserError(ErrTooManyImports)
	if ue.User.Code != "IMP001" {
		t.Errorf("Code = %q, want IMP001", ue.User.Code)
	}
	if !errors.Is(ue, ErrTooManyImports) {
		t.Error("UserError should unwrap to the technical error")
	}
	if ue.Error() != ue.User.Message {
		t.Errorf("Error() = %q, want user message", ue.Error())
	}
}
