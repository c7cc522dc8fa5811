package core

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ReportColumns is the fixed header of the error report.
var ReportColumns = []string{
	"row_number",
	"product_id",
	"product_name",
	"field_name",
	"current_value",
	"error_code",
	"error_message",
	"suggestion",
}

// DefaultReportPrefix names report files when no prefix is configured.
const DefaultReportPrefix = "prodsync-errors"

// Report is a rendered error report.
type Report struct {
	FileName string
	Content  []byte
}

// Base64 returns the report content for inline delivery.
func (r *Report) Base64() string {
	return base64.StdEncoding.EncodeToString(r.Content)
}

// WriteErrorReport writes errs as CSV with a byte order mark so that
// spreadsheet tools detect UTF-8.
func WriteErrorReport(w io.Writer, errs []ValidationError) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ReportColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range errs {
		record := []string{
			strconv.Itoa(e.Row),
			e.ProductID,
			e.ProductName,
			e.Field,
			e.Value,
			string(e.Code),
			e.Message,
			e.Suggestion,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", e.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// BuildErrorReport renders the report for a run.
// It returns nil when there is nothing to report; callers treat that as
// success.
func BuildErrorReport(errs []ValidationError, prefix string, now time.Time) (*Report, error) {
	if len(errs) == 0 {
		return nil, nil
	}
	if prefix == "" {
		prefix = DefaultReportPrefix
	}

	var buf bytes.Buffer
	if err := WriteErrorReport(&buf, errs); err != nil {
		return nil, err
	}
	return &Report{
		FileName: fmt.Sprintf("%s-%s.csv", prefix, now.Format("2006-01-02-150405")),
		Content:  buf.Bytes(),
	}, nil
}
