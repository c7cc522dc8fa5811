package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/prodsync/internal/core"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestResultPage(t *testing.T) {
	run := &core.ImportRun{
		ID:         "run-1",
		FileName:   "catalog<1>.csv",
		DryRun:     true,
		FinishedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Result: &core.RunResult{
			TotalRows: 2, Updated: 1, Failed: 1,
			Errors: []core.ValidationError{{
				Row: 3, ProductID: "42", Field: "status", Value: "<gone>",
				Code: core.CodeInvalidStatus, Message: "bad", Suggestion: "fix",
			}},
		},
		Report: &core.Report{FileName: "prodsync-errors.csv"},
	}

	page := render(t, ResultPage(run))
	for _, want := range []string{
		"<!doctype html>",
		"<title>Import result</title>",
		"Dry run of catalog&lt;1&gt;.csv",
		"<dd>2</dd>",
		`href="/api/imports/run-1/report"`,
		"<td>&lt;gone&gt;</td>",
		"<th>error_code</th>",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestErrorTable_Empty(t *testing.T) {
	if got := render(t, ErrorTable(nil)); got != "<p>No errors.</p>" {
		t.Errorf("ErrorTable(nil) = %q", got)
	}
}

func TestRunTable(t *testing.T) {
	if got := render(t, RunTable(nil)); got != "" {
		t.Errorf("RunTable(nil) = %q, want empty", got)
	}

	runs := []*core.ImportRun{
		{ID: "a", FileName: "one.csv", Result: &core.RunResult{Updated: 4}},
		{ID: "b", FileName: "two.csv", Result: &core.RunResult{Failed: 1}, Report: &core.Report{FileName: "r.csv"}},
	}
	got := render(t, RunTable(runs))
	if strings.Count(got, "<tr>") != 3 {
		t.Errorf("rows = %d, want header plus 2", strings.Count(got, "<tr>"))
	}
	if strings.Count(got, "/report") != 1 {
		t.Error("only runs with a report should link to one")
	}
}

func TestErrorPage(t *testing.T) {
	page := render(t, ErrorPage("No file was selected", "Choose a file", "FILE004"))
	for _, want := range []string{`role="alert"`, "<code>FILE004</code>", `<a href="/">Back</a>`} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}
