// Package core reconciles product catalog spreadsheets with the stored
// catalog.
//
// The package holds all domain logic independent of any storage or
// transport. Storage is reached through [RecordStore], [Taxonomy] and
// [ExportSource]; the web server, the CLI and the tests each supply their
// own implementations.
//
// # Architecture
//
//   - Row sources: [Parser] reads delimited text (delimiter detected from
//     the header line) and [XLSXSource] reads the first worksheet.
//   - Field registry: each importable column is a [FieldSpec] registered at
//     init time, normally by the fields package.
//   - Reconciler: runs every row through identify, permission check, diff,
//     validate and apply, and never aborts a run for a row-level failure.
//   - Service: serializes runs through [ImportLimiter] and keeps results
//     and error reports for later download.
//
// # Field Registry
//
// Fields are registered with [Register]:
//
//	core.Register(core.FieldSpec{
//	    Name:     "weight",
//	    Access:   core.AccessUpdatable,
//	    Current:  func(r *core.Record) string { return r.Weight },
//	    Validate: validateWeight,
//	    Apply:    func(r *core.Record, v any) { r.Weight = v.(string) },
//	})
//
// Only cells whose value differs from the stored one, per [ValuesEqual], are
// validated and written, so unchanged columns in an exported file are free.
//
// # Error Handling
//
// Row problems are [ValidationError] values carrying an [ErrorCode] from the
// catalogue returned by [Codes]. They end up in the run's CSV error report.
// Run-level failures are plain errors; [MapError] turns them into
// user-facing messages with a support code:
//
//   - FILE001-FILE006: file errors (size, format, encoding, empty)
//   - IMP001-IMP006: import errors (busy, not found, cancelled, timeout)
//   - DB001-DB005: database errors
package core
