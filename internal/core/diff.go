package core

import "strings"

// Change is one accepted field value waiting to be applied.
type Change struct {
	Field string
	Value any
}

// ValuesEqual compares an incoming cell with a rendered current value.
// Empty and missing values compare equal to each other, and CRLF line
// endings compare equal to LF since CSV readers fold them inside quoted
// cells.
func ValuesEqual(incoming, current string) bool {
	incoming = normalizeText(incoming)
	current = normalizeText(current)
	if incoming == "" && current == "" {
		return true
	}
	return incoming == current
}

// DetectChanges returns the specs whose column is present in row and whose
// value differs from rec. Only updatable specs that apply to the record's
// type are considered; the result keeps the order of specs.
func DetectChanges(specs []FieldSpec, row Row, rec *Record) []FieldSpec {
	var changed []FieldSpec
	for _, spec := range specs {
		if !spec.Updatable() || !spec.Applies(rec.Type) {
			continue
		}
		raw, ok := row.Get(spec.Name)
		if !ok {
			continue
		}
		if !ValuesEqual(raw, spec.Current(rec)) {
			changed = append(changed, spec)
		}
	}
	return changed
}

// dropNoOps removes changes whose normalized value renders the same as the
// record's current value, e.g. "1" for a flag that is already "yes".
func dropNoOps(reg *Registry, rec *Record, changes []Change) []Change {
	if len(changes) == 0 {
		return nil
	}

	scratch := rec.Clone()
	for _, ch := range changes {
		if spec, ok := reg.Get(ch.Field); ok {
			spec.Apply(scratch, ch.Value)
		}
	}

	kept := changes[:0:0]
	for _, ch := range changes {
		spec, ok := reg.Get(ch.Field)
		if !ok {
			continue
		}
		if normalizeText(spec.Current(scratch)) != normalizeText(spec.Current(rec)) {
			kept = append(kept, ch)
		}
	}
	return kept
}

func normalizeText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}
