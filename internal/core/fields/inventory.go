package fields

import (
	"strings"

	"github.com/JonMunkholm/prodsync/internal/core"
)

func registerTax(reg *core.Registry) {
	reg.Register(enumField("tax_status", core.TaxStatuses, core.CodeInvalidTaxStatus,
		func(rec *core.Record) string { return rec.TaxStatus },
		func(rec *core.Record, v string) { rec.TaxStatus = v },
	))
	reg.Register(core.FieldSpec{
		Name:     "tax_class",
		Current:  func(rec *core.Record) string { return rec.TaxClass },
		Validate: validateTaxClass,
		Apply:    func(rec *core.Record, v any) { rec.TaxClass = v.(string) },
	})
}

// validateTaxClass resolves the class in the tax_class vocabulary and stores
// its slug. Empty selects the standard class.
func validateTaxClass(raw string, fc *core.FieldContext) (any, bool) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", true
	}
	term, err := resolveTerm(fc.Context(), fc.Taxonomy(), core.TaxonomyTaxClass, name)
	if err != nil {
		fc.LookupFailed(raw, err)
		return nil, false
	}
	if term == nil {
		fc.Reject(core.CodeInvalidTaxClass, raw, raw)
		return nil, false
	}
	return term.Slug, true
}

func registerInventory(reg *core.Registry) {
	reg.Register(boolField("manage_stock",
		func(rec *core.Record) bool { return rec.ManageStock },
		func(rec *core.Record, v bool) { rec.ManageStock = v },
	))
	reg.Register(enumField("stock_status", core.StockStatuses, core.CodeInvalidStockStatus,
		func(rec *core.Record) string { return rec.StockStatus },
		func(rec *core.Record, v string) { rec.StockStatus = v },
	))
	reg.Register(core.FieldSpec{
		Name:      "stock_quantity",
		DependsOn: []string{"manage_stock"},
		Current:   func(rec *core.Record) string { return optionalInt(rec.StockQuantity) },
		Validate:  validateStockQuantity,
		Apply: func(rec *core.Record, v any) {
			n := v.(int)
			rec.StockQuantity = &n
		},
	})
	reg.Register(enumField("backorders", core.BackorderOptions, core.CodeInvalidBackorders,
		func(rec *core.Record) string { return rec.Backorders },
		func(rec *core.Record, v string) { rec.Backorders = v },
	))
	reg.Register(core.FieldSpec{
		Name:    "low_stock_amount",
		Current: func(rec *core.Record) string { return optionalInt(rec.LowStockAmount) },
		Validate: func(raw string, fc *core.FieldContext) (any, bool) {
			if strings.TrimSpace(raw) == "" {
				return nil, false
			}
			n, ok := core.ParseInt(raw)
			if !ok || n < 0 {
				fc.Reject(core.CodeInvalidLowStock, raw, raw)
				return nil, false
			}
			return n, true
		},
		Apply: func(rec *core.Record, v any) {
			n := v.(int)
			rec.LowStockAmount = &n
		},
	})
}

// validateStockQuantity never enables stock management implicitly: the
// manage_stock value accepted earlier in the row, or the record's current
// setting, must already be on.
func validateStockQuantity(raw string, fc *core.FieldContext) (any, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	n, ok := core.ParseInt(raw)
	if !ok {
		fc.Reject(core.CodeInvalidStockQuantity, raw, raw)
		return nil, false
	}
	if n < 0 {
		fc.Reject(core.CodeNegativeStock, raw, raw)
		return nil, false
	}

	manage := fc.Record().ManageStock
	if v, ok := fc.Accepted("manage_stock"); ok {
		manage = v.(string) == "yes"
	}
	if !manage {
		fc.Reject(core.CodeStockWithoutManage, raw)
		return nil, false
	}
	return n, true
}

func registerShipping(reg *core.Registry) {
	reg.Register(amountField("weight", core.CodeInvalidWeight,
		func(rec *core.Record) string { return rec.Weight },
		func(rec *core.Record, v string) { rec.Weight = v },
	))
	reg.Register(amountField("length", core.CodeInvalidLength,
		func(rec *core.Record) string { return rec.Length },
		func(rec *core.Record, v string) { rec.Length = v },
	))
	reg.Register(amountField("width", core.CodeInvalidWidth,
		func(rec *core.Record) string { return rec.Width },
		func(rec *core.Record, v string) { rec.Width = v },
	))
	reg.Register(amountField("height", core.CodeInvalidHeight,
		func(rec *core.Record) string { return rec.Height },
		func(rec *core.Record, v string) { rec.Height = v },
	))
}
