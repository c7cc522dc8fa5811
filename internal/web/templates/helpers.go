// Package templates renders the HTML pages of the import UI.
//
// Pages are templ components; the *_templ.go files are generated from the
// .templ sources with `templ generate`.
package templates

import (
	"strconv"

	"github.com/JonMunkholm/prodsync/internal/core"
)

// ReportURL is the download location of a run's error report.
func ReportURL(runID string) string {
	return "/api/imports/" + runID + "/report"
}

func runMode(run *core.ImportRun) string {
	if run.DryRun {
		return "Dry run"
	}
	return "Import"
}

func finishedAt(run *core.ImportRun) string {
	return run.FinishedAt.Format("2006-01-02 15:04:05")
}

// errorCells lists e in core.ReportColumns order.
func errorCells(e core.ValidationError) []string {
	return []string{
		strconv.Itoa(e.Row), e.ProductID, e.ProductName, e.Field,
		e.Value, string(e.Code), e.Message, e.Suggestion,
	}
}
