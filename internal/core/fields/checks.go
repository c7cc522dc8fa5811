package fields

import (
	"strings"

	"github.com/JonMunkholm/prodsync/internal/core"
)

func registerRowChecks(reg *core.Registry) {
	reg.AddRowCheck(checkSaleDates)
	reg.AddRowCheck(checkRegularPriceKept)
	reg.AddRowCheck(checkType)
}

// checkSaleDates rejects an end date before the start date once both are
// known, using the value accepted in this row or the record's current one.
// Every changed sale date is dropped on conflict.
func checkSaleDates(c *core.RowCheckContext) {
	from, fromChanged := c.Accepted("sale_date_from")
	to, toChanged := c.Accepted("sale_date_to")
	if !fromChanged && !toChanged {
		return
	}

	fromDate := c.Record().SaleDateFrom
	if fromChanged {
		fromDate = from.(string)
	}
	toDate := c.Record().SaleDateTo
	if toChanged {
		toDate = to.(string)
	}
	// YYYY-MM-DD orders lexically.
	if fromDate == "" || toDate == "" || toDate >= fromDate {
		return
	}

	field := "sale_date_from"
	if toChanged {
		field = "sale_date_to"
	}
	c.Reject(field, core.CodeSaleDateConflict, c.Row().Value(field), toDate, fromDate)
	c.Drop("sale_date_from")
	c.Drop("sale_date_to")
}

// checkRegularPriceKept refuses to clear the regular price while a sale
// price remains.
func checkRegularPriceKept(c *core.RowCheckContext) {
	v, ok := c.Accepted("regular_price")
	if !ok || v.(string) != "" {
		return
	}
	sale := c.Record().SalePrice
	if s, ok := c.Accepted("sale_price"); ok {
		sale = s.(string)
	}
	if sale == "" {
		return
	}
	c.Reject("regular_price", core.CodeEmptyPriceForSimple, "")
	c.Drop("regular_price")
}

// checkType reports a type cell that disagrees with the record. Type is never
// written, so nothing is dropped.
func checkType(c *core.RowCheckContext) {
	raw, ok := c.Row().Get("type")
	if !ok || strings.TrimSpace(raw) == "" {
		return
	}
	if strings.EqualFold(strings.TrimSpace(raw), string(c.Record().Type)) {
		return
	}
	c.Reject("type", core.CodeProductTypeMismatch, raw, raw, c.Record().Type)
}
