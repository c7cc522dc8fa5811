package fields

import (
	"strings"

	"github.com/JonMunkholm/prodsync/internal/core"
)

func registerPricing(reg *core.Registry) {
	reg.Register(core.FieldSpec{
		Name:    "regular_price",
		Current: func(rec *core.Record) string { return rec.RegularPrice },
		Validate: func(raw string, fc *core.FieldContext) (any, bool) {
			return validatePrice(raw, fc, core.CodeInvalidRegularPrice)
		},
		Apply: func(rec *core.Record, v any) { rec.RegularPrice = v.(string) },
	})
	reg.Register(core.FieldSpec{
		Name:      "sale_price",
		DependsOn: []string{"regular_price"},
		Current:   func(rec *core.Record) string { return rec.SalePrice },
		Validate:  validateSalePrice,
		Apply:     func(rec *core.Record, v any) { rec.SalePrice = v.(string) },
	})
	reg.Register(core.FieldSpec{
		Name:    "sale_date_from",
		Current: func(rec *core.Record) string { return rec.SaleDateFrom },
		Validate: func(raw string, fc *core.FieldContext) (any, bool) {
			return validateDate(raw, fc, core.CodeInvalidSaleDateFrom)
		},
		Apply: func(rec *core.Record, v any) { rec.SaleDateFrom = v.(string) },
	})
	reg.Register(core.FieldSpec{
		Name:      "sale_date_to",
		DependsOn: []string{"sale_date_from"},
		Current:   func(rec *core.Record) string { return rec.SaleDateTo },
		Validate: func(raw string, fc *core.FieldContext) (any, bool) {
			return validateDate(raw, fc, core.CodeInvalidSaleDateTo)
		},
		Apply: func(rec *core.Record, v any) { rec.SaleDateTo = v.(string) },
	})
}

// validatePrice rejects prices on variable products, whose pricing lives on
// their variations, then normalizes the amount. Clearing a variable
// product's price is allowed.
func validatePrice(raw string, fc *core.FieldContext, code core.ErrorCode) (string, bool) {
	if fc.Record().Type == core.TypeVariable && strings.TrimSpace(raw) != "" {
		fc.Reject(core.CodeVariableProductNoPrice, raw)
		return "", false
	}
	v, ok := core.NormalizeAmount(raw)
	if !ok {
		fc.Reject(code, raw, raw)
		return "", false
	}
	return v, true
}

// validateSalePrice compares against the regular price accepted earlier in
// the row, or the record's current one.
func validateSalePrice(raw string, fc *core.FieldContext) (any, bool) {
	sale, ok := validatePrice(raw, fc, core.CodeInvalidSalePrice)
	if !ok {
		return nil, false
	}
	if sale == "" {
		return sale, true
	}

	regular := fc.Record().RegularPrice
	if v, ok := fc.Accepted("regular_price"); ok {
		regular = v.(string)
	}
	if regular != "" && core.AmountGreater(sale, regular) {
		fc.Reject(core.CodeSalePriceExceedsRegular, raw, sale, regular)
		return nil, false
	}
	return sale, true
}

func validateDate(raw string, fc *core.FieldContext, code core.ErrorCode) (any, bool) {
	v, ok := core.ParseDate(raw)
	if !ok {
		fc.Reject(code, raw, raw)
		return nil, false
	}
	return v, true
}
