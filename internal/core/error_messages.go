package core

// error_messages.go maps run-level technical errors to user messages.
//
// Row and field problems never come through here; they are ValidationErrors
// with codes from codes.go. This table covers failures that stop a whole
// request: unreadable files, busy importer, store outages.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large         Patterns: "file too large", "request body too large"
//	FILE002 - Invalid CSV            Patterns: "invalid csv"; a *ParseError with a line names the row
//	FILE003 - Encoding error         Patterns: "encoding error"
//	FILE004 - No file                Patterns: "no file provided"
//	FILE005 - Empty file             Patterns: "empty file"
//	FILE006 - Unsupported format     Patterns: "unsupported file format", "open workbook"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - System busy             Patterns: "too many concurrent imports"
//	IMP002 - Run not found           Patterns: "import run not found"
//	IMP003 - No report               Patterns: "no error report"
//	IMP004 - Request cancelled       Patterns: "context canceled"
//	IMP005 - Request timeout         Patterns: "context deadline exceeded"
//	IMP006 - Invalid request         Patterns: "invalid import request"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Unique constraint        Patterns: "duplicate key", "unique constraint"
//	DB002 - Connection refused       Patterns: "connection refused"
//	DB003 - Connection reset         Patterns: "connection reset"
//	DB004 - Timeout                  Patterns: "timeout"
//	DB005 - Deadlock                 Patterns: "deadlock"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited           Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Support staff should check the logs for
// the technical error, correlated by request_id.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched case-insensitively with strings.Contains.
// The first match wins, so specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors
	// =========================================================================
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller parts", "FILE001"}},
	{"request body too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller parts", "FILE001"}},
	{"open workbook", UserMessage{"The workbook could not be opened", "Save the file again as .xlsx or export it as CSV", "FILE006"}},
	{"invalid csv", UserMessage{"The file could not be read as delimited text", "Check for unbalanced quotes and save the file as CSV", "FILE002"}},
	{"encoding error", UserMessage{"The file contains invalid characters", "Save the file with UTF-8 encoding", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Choose an exported product file to upload", "FILE004"}},
	{"empty file", UserMessage{"The file has no product rows", "Upload a file with a header row and at least one product", "FILE005"}},
	{"unsupported file format", UserMessage{"This file type is not supported", "Upload a .csv or .xlsx file", "FILE006"}},

	// =========================================================================
	// Import Errors
	// =========================================================================
	{"too many concurrent imports", UserMessage{"Another import is running", "Wait for it to finish and try again", "IMP001"}},
	{"import run not found", UserMessage{"This import result is no longer available", "Run the import again to get a fresh result", "IMP002"}},
	{"no error report", UserMessage{"This import produced no error report", "No action needed; every row was processed without errors", "IMP003"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "IMP004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or try again later", "IMP005"}},
	{"invalid import request", UserMessage{"The import request is not valid", "Check the upload options and try again", "IMP006"}},

	// =========================================================================
	// Database Errors
	// =========================================================================
	{"duplicate key", UserMessage{"This value must be unique but already exists", "Check the file for duplicate SKUs or slugs", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Check the file for duplicate SKUs or slugs", "DB001"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB002"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB003"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB004"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB005"}},

	// =========================================================================
	// Rate Limiting
	// =========================================================================
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var perr *ParseError
	if errors.As(err, &perr) && perr.Line > 0 {
		return UserMessage{
			Message: RenderMessage(CodeCSVParseError, perr.Line),
			Action:  Suggestion(CodeCSVParseError),
			Code:    "FILE002",
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError formats an error as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
