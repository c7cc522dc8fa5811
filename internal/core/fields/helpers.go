package fields

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/JonMunkholm/prodsync/internal/core"
)

// textField is a free-text column. Empty clears the value.
func textField(name string, sanitize func(string) string, get func(*core.Record) string, set func(*core.Record, string)) core.FieldSpec {
	return core.FieldSpec{
		Name:    name,
		Current: get,
		Validate: func(raw string, fc *core.FieldContext) (any, bool) {
			return sanitize(raw), true
		},
		Apply: func(rec *core.Record, v any) { set(rec, v.(string)) },
	}
}

// enumField matches a closed value set. Empty is a no-op, not a reset.
func enumField(name string, allowed []string, code core.ErrorCode, get func(*core.Record) string, set func(*core.Record, string)) core.FieldSpec {
	return core.FieldSpec{
		Name:    name,
		Current: get,
		Validate: func(raw string, fc *core.FieldContext) (any, bool) {
			if strings.TrimSpace(raw) == "" {
				return nil, false
			}
			v, ok := core.MatchEnum(raw, allowed)
			if !ok {
				fc.Reject(code, raw, raw)
				return nil, false
			}
			return v, true
		},
		Apply: func(rec *core.Record, v any) { set(rec, v.(string)) },
	}
}

// boolField accepts yes/no, 1/0 and true/false. Empty is a no-op.
func boolField(name string, get func(*core.Record) bool, set func(*core.Record, bool)) core.FieldSpec {
	return core.FieldSpec{
		Name:    name,
		Current: func(rec *core.Record) string { return core.YesNo(get(rec)) },
		Validate: func(raw string, fc *core.FieldContext) (any, bool) {
			if strings.TrimSpace(raw) == "" {
				return nil, false
			}
			v, ok := core.ParseBool(raw)
			if !ok {
				fc.Reject(core.CodeInvalidBoolean, raw, raw, name)
				return nil, false
			}
			return v, true
		},
		Apply: func(rec *core.Record, v any) { set(rec, v.(string) == "yes") },
	}
}

// amountField is a non-negative decimal column. Empty clears the value.
func amountField(name string, code core.ErrorCode, get func(*core.Record) string, set func(*core.Record, string)) core.FieldSpec {
	return core.FieldSpec{
		Name:    name,
		Current: get,
		Validate: func(raw string, fc *core.FieldContext) (any, bool) {
			v, ok := core.NormalizeAmount(raw)
			if !ok {
				fc.Reject(code, raw, raw)
				return nil, false
			}
			return v, true
		},
		Apply: func(rec *core.Record, v any) { set(rec, v.(string)) },
	}
}

// optionalInt renders an unset integer as an empty cell.
func optionalInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func notVariation(t core.ProductType) bool {
	return t != core.TypeVariation
}

// lookupID treats ErrNotFound from a unique-key lookup as "no owner".
func lookupID(id int64, err error) (int64, error) {
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	return id, err
}

// resolveTerm finds a term by exact name, then by the slug derived from name.
func resolveTerm(ctx context.Context, tax core.Taxonomy, taxonomy, name string) (*core.Term, error) {
	term, err := tax.TermByName(ctx, taxonomy, name)
	if err != nil || term != nil {
		return term, err
	}
	slug := core.Slugify(name)
	if slug == "" {
		return nil, nil
	}
	return tax.TermBySlug(ctx, taxonomy, slug)
}
