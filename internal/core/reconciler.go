package core

// reconciler.go drives each row through the import state machine:
//
//	Start -> Identified -> PermissionChecked -> Diffed -> Validated -> Applied
//
// and classifies it as exactly one of Updated, Skipped or Failed.
//
// Identification and permission failures are row-fatal. Field validation
// failures only drop the offending field. A row whose columns all match the
// record is skipped before any validation, so unchanged cells never produce
// errors.

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// ErrEmptyFile is returned when a source has no data rows.
var ErrEmptyFile = errors.New("empty file: no data rows found")

// IDColumn is the column that identifies the target record.
const IDColumn = "id"

// RowStatus is the terminal state of a row.
type RowStatus string

const (
	RowUpdated RowStatus = "updated"
	RowSkipped RowStatus = "skipped"
	RowFailed  RowStatus = "failed"
)

// RowOutcome is the result of reconciling one row.
type RowOutcome struct {
	Line      int
	ProductID string
	Status    RowStatus
	Applied   []string
	Errors    []ValidationError
}

// RunResult summarizes an import run.
// Every row increments exactly one counter.
type RunResult struct {
	TotalRows int               `json:"total_rows"`
	Updated   int               `json:"updated"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Errors    []ValidationError `json:"errors"`
}

func newRunResult() *RunResult {
	return &RunResult{Errors: []ValidationError{}}
}

func (r *RunResult) record(o RowOutcome) {
	r.TotalRows++
	switch o.Status {
	case RowUpdated:
		r.Updated++
	case RowSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
	r.Errors = append(r.Errors, o.Errors...)
}

// HasErrors reports whether an error report should be produced.
func (r *RunResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// RowCheckContext is handed to cross-field rules.
type RowCheckContext struct {
	row      Row
	record   *Record
	accepted map[string]any
	dropped  map[string]bool
	errs     *rowErrors
}

// Row returns the raw row.
func (c *RowCheckContext) Row() Row { return c.row }

// Record returns the record's current state.
func (c *RowCheckContext) Record() *Record { return c.record }

// Accepted returns the validated value for field, if it is still accepted.
func (c *RowCheckContext) Accepted(field string) (any, bool) {
	if c.dropped[field] {
		return nil, false
	}
	v, ok := c.accepted[field]
	return v, ok
}

// Reject records an error on field without dropping anything.
func (c *RowCheckContext) Reject(field string, code ErrorCode, value string, args ...any) {
	c.errs.add(field, value, code, args...)
}

// Drop removes an accepted field from the changes to apply.
func (c *RowCheckContext) Drop(field string) {
	c.dropped[field] = true
}

// Reconciler reconciles import rows against the record store.
type Reconciler struct {
	store    RecordStore
	taxonomy Taxonomy
	fields   *Registry
	applier  *Applier
	dryRun   bool
	logger   *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithRegistry replaces the default field registry.
func WithRegistry(reg *Registry) Option {
	return func(r *Reconciler) { r.fields = reg }
}

// WithDryRun validates every row without saving anything.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) { r.dryRun = dryRun }
}

// WithLogger sets the logger used for row and run events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// NewReconciler creates a reconciler over the given collaborators.
func NewReconciler(store RecordStore, taxonomy Taxonomy, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:    store,
		taxonomy: taxonomy,
		fields:   defaultRegistry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.applier = NewApplier(store, r.fields, r.logger)
	return r
}

// Run reconciles every row of src in file order.
//
// The source is read completely before the first row is reconciled so that
// an unreadable file fails the run without touching any record. A source
// without data rows yields ErrEmptyFile.
func (r *Reconciler) Run(ctx context.Context, actor Actor, src RowSource) (*RunResult, error) {
	rows, err := drain(src)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	r.checkHeader(src.Header())

	result := newRunResult()
	for _, row := range rows {
		outcome := r.ReconcileRow(ctx, actor, row)
		result.record(outcome)

		r.logger.Debug("row reconciled",
			"row", outcome.Line,
			"product_id", outcome.ProductID,
			"status", outcome.Status,
			"applied", outcome.Applied,
			"errors", len(outcome.Errors),
		)
	}

	r.logger.Info("import run finished",
		"total_rows", result.TotalRows,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"errors", len(result.Errors),
		"dry_run", r.dryRun,
	)
	return result, nil
}

func drain(src RowSource) ([]Row, error) {
	var rows []Row
	for {
		row, err := src.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// checkHeader logs columns the import will ignore.
func (r *Reconciler) checkHeader(header []string) {
	for _, key := range header {
		if IsBlacklisted(key) {
			r.logger.Info("ignoring protected column", "column", key)
			continue
		}
		if _, ok := r.fields.Get(key); !ok && key != IDColumn {
			r.logger.Warn("ignoring unknown column",
				"column", key,
				"code", CodeUnknownField,
				"message", RenderMessage(CodeUnknownField, key),
			)
		}
	}
}

// ReconcileRow runs one row through the state machine.
func (r *Reconciler) ReconcileRow(ctx context.Context, actor Actor, row Row) RowOutcome {
	rawID := row.Value(IDColumn)
	errs := &rowErrors{row: row.Line, productID: rawID, name: row.Value("name")}

	outcome := func(status RowStatus, applied []string) RowOutcome {
		o := RowOutcome{Line: row.Line, ProductID: rawID, Status: status, Applied: applied}
		if status != RowSkipped {
			o.Errors = errs.list
		}
		return o
	}

	// Start -> Identified
	rec, ok := r.identify(ctx, rawID, errs)
	if !ok {
		return outcome(RowFailed, nil)
	}
	if rec.Name != "" {
		errs.name = rec.Name
	}

	// Identified -> PermissionChecked
	allowed, err := r.store.CanEdit(ctx, actor, rec.ID)
	if err != nil {
		errs.add(IDColumn, rawID, CodeDatabaseError, err.Error())
		return outcome(RowFailed, nil)
	}
	if !allowed {
		errs.add(IDColumn, rawID, CodePermissionDenied, rawID)
		return outcome(RowFailed, nil)
	}

	// PermissionChecked -> Diffed
	changed := DetectChanges(r.fields.Updatable(), row, rec)
	if len(changed) == 0 {
		return outcome(RowSkipped, nil)
	}

	// Diffed -> Validated
	changes := r.validate(ctx, row, rec, changed, errs)
	changes = dropNoOps(r.fields, rec, changes)

	// Validated -> Applied
	if errs.hasRowFatal() {
		return outcome(RowFailed, nil)
	}
	if len(changes) == 0 {
		if len(errs.list) > 0 {
			return outcome(RowFailed, nil)
		}
		return outcome(RowSkipped, nil)
	}

	if r.dryRun {
		return outcome(RowUpdated, changeFields(changes))
	}

	applied, err := r.applier.Apply(ctx, rec, changes)
	if err != nil {
		errs.add(IDColumn, rawID, CodeDatabaseError, err.Error())
		return outcome(RowFailed, nil)
	}
	return outcome(RowUpdated, applied)
}

// identify resolves the row's ID cell to a live record.
func (r *Reconciler) identify(ctx context.Context, rawID string, errs *rowErrors) (*Record, bool) {
	if rawID == "" {
		errs.add(IDColumn, rawID, CodeEmptyRequiredField, IDColumn)
		return nil, false
	}

	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		errs.add(IDColumn, rawID, CodeInvalidProductID, rawID)
		return nil, false
	}

	rec, err := r.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		errs.add(IDColumn, rawID, CodeProductNotFound, rawID)
		return nil, false
	}
	if err != nil {
		errs.add(IDColumn, rawID, CodeDatabaseError, err.Error())
		return nil, false
	}
	if rec.Trashed() {
		errs.add(IDColumn, rawID, CodeProductTrashed, rawID)
		return nil, false
	}
	return rec, true
}

// validate runs the validator of every changed field and then the
// cross-field rules, returning the changes that survived.
func (r *Reconciler) validate(ctx context.Context, row Row, rec *Record, changed []FieldSpec, errs *rowErrors) []Change {
	accepted := make(map[string]any, len(changed))
	var changes []Change

	for _, spec := range changed {
		fc := &FieldContext{
			ctx:      ctx,
			field:    spec.Name,
			record:   rec,
			store:    r.store,
			taxonomy: r.taxonomy,
			accepted: accepted,
			errs:     errs,
		}
		value, ok := spec.Validate(row.Value(spec.Name), fc)
		if !ok {
			continue
		}
		accepted[spec.Name] = value
		changes = append(changes, Change{Field: spec.Name, Value: value})
	}

	cc := &RowCheckContext{
		row:      row,
		record:   rec,
		accepted: accepted,
		dropped:  make(map[string]bool),
		errs:     errs,
	}
	for _, check := range r.fields.RowChecks() {
		check(cc)
	}
	if len(cc.dropped) == 0 {
		return changes
	}

	kept := changes[:0]
	for _, ch := range changes {
		if !cc.dropped[ch.Field] {
			kept = append(kept, ch)
		}
	}
	return kept
}

func changeFields(changes []Change) []string {
	out := make([]string, len(changes))
	for i, ch := range changes {
		out[i] = ch.Field
	}
	return out
}
