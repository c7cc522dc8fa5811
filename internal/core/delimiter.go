package core

import (
	"encoding/csv"
	"strings"
)

// delimiterCandidates are tried in order; earlier entries win ties.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// DetectDelimiter picks the candidate that splits line into the most
// columns. Quoted sections are respected where the line parses as CSV.
// An empty line yields a comma.
func DetectDelimiter(line string) rune {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return ','
	}

	best, bestCount := delimiterCandidates[0], 0
	for _, d := range delimiterCandidates {
		if n := countColumns(line, d); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func countColumns(line string, delim rune) int {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	record, err := r.Read()
	if err != nil {
		return len(strings.Split(line, string(delim)))
	}
	return len(record)
}
