package core

// validation.go defines the error value recorded for every rejected row or
// field, and the per-field context that validators use to record them.
//
// Errors are collected without short-circuiting so a single row can report
// several problems at once. They are append-only: nothing mutates a
// ValidationError after it has been recorded.

import (
	"context"
	"fmt"
)

// ValidationError is one row of the error report.
type ValidationError struct {
	Row         int       `json:"row_number"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Field       string    `json:"field_name"`
	Value       string    `json:"current_value"`
	Code        ErrorCode `json:"error_code"`
	Message     string    `json:"error_message"`
	Suggestion  string    `json:"suggestion"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// rowErrors accumulates the errors of a single row.
type rowErrors struct {
	row       int
	productID string
	name      string
	list      []ValidationError
}

func (r *rowErrors) add(field, value string, code ErrorCode, args ...any) {
	r.list = append(r.list, ValidationError{
		Row:         r.row,
		ProductID:   r.productID,
		ProductName: r.name,
		Field:       field,
		Value:       value,
		Code:        code,
		Message:     RenderMessage(code, args...),
		Suggestion:  Suggestion(code),
	})
}

func (r *rowErrors) hasRowFatal() bool {
	for _, e := range r.list {
		if IsRowFatal(e.Code) {
			return true
		}
	}
	return false
}

// FieldContext is handed to a field's validator. It exposes the record being
// edited, the collaborators, and the values already accepted earlier in the
// same row.
type FieldContext struct {
	ctx      context.Context
	field    string
	record   *Record
	store    RecordStore
	taxonomy Taxonomy
	accepted map[string]any
	errs     *rowErrors
}

// Context returns the run context for collaborator calls.
func (c *FieldContext) Context() context.Context { return c.ctx }

// Record returns the record's current state. Validators must not mutate it.
func (c *FieldContext) Record() *Record { return c.record }

// Store returns the record store collaborator.
func (c *FieldContext) Store() RecordStore { return c.store }

// Taxonomy returns the term lookup collaborator.
func (c *FieldContext) Taxonomy() Taxonomy { return c.taxonomy }

// Accepted returns the value validated earlier in this row for field.
// The second result is false when the field was absent, unchanged or rejected.
func (c *FieldContext) Accepted(field string) (any, bool) {
	v, ok := c.accepted[field]
	return v, ok
}

// Reject records an error against the field being validated.
func (c *FieldContext) Reject(code ErrorCode, value string, args ...any) {
	c.errs.add(c.field, value, code, args...)
}

// LookupFailed records a collaborator failure against the field.
func (c *FieldContext) LookupFailed(value string, err error) {
	c.errs.add(c.field, value, CodeDatabaseError, err.Error())
}
