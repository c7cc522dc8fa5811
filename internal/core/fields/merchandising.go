package fields

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/prodsync/internal/core"
)

func registerMerchandising(reg *core.Registry) {
	reg.Register(core.FieldSpec{
		Name:    "menu_order",
		Current: func(rec *core.Record) string { return strconv.Itoa(rec.MenuOrder) },
		Validate: func(raw string, fc *core.FieldContext) (any, bool) {
			if strings.TrimSpace(raw) == "" {
				return nil, false
			}
			n, ok := core.ParseInt(raw)
			if !ok {
				fc.Reject(core.CodeInvalidMenuOrder, raw, raw)
				return nil, false
			}
			return n, true
		},
		Apply: func(rec *core.Record, v any) { rec.MenuOrder = v.(int) },
	})
	reg.Register(boolField("virtual",
		func(rec *core.Record) bool { return rec.Virtual },
		func(rec *core.Record, v bool) { rec.Virtual = v },
	))
	reg.Register(boolField("downloadable",
		func(rec *core.Record) bool { return rec.Downloadable },
		func(rec *core.Record, v bool) { rec.Downloadable = v },
	))
	reg.Register(textField("purchase_note", core.SanitizeRichText,
		func(rec *core.Record) string { return rec.PurchaseNote },
		func(rec *core.Record, v string) { rec.PurchaseNote = v },
	))
	reg.Register(enumField("catalog_visibility", core.CatalogVisibilities, core.CodeInvalidCatalogVisibility,
		func(rec *core.Record) string { return rec.CatalogVisibility },
		func(rec *core.Record, v string) { rec.CatalogVisibility = v },
	))
	reg.Register(boolField("featured",
		func(rec *core.Record) bool { return rec.Featured },
		func(rec *core.Record, v bool) { rec.Featured = v },
	))
	reg.Register(boolField("sold_individually",
		func(rec *core.Record) bool { return rec.SoldIndividually },
		func(rec *core.Record, v bool) { rec.SoldIndividually = v },
	))
}

func registerRelated(reg *core.Registry) {
	reg.Register(core.FieldSpec{
		Name:      "upsell_ids",
		AppliesTo: notVariation,
		Current:   func(rec *core.Record) string { return core.JoinIDs(rec.UpsellIDs) },
		Validate:  idList(core.CodeInvalidUpsellIDs, core.CodeUpsellProductNotFound),
		Apply:     func(rec *core.Record, v any) { rec.UpsellIDs = v.([]int64) },
	})
	reg.Register(core.FieldSpec{
		Name:      "cross_sell_ids",
		AppliesTo: notVariation,
		Current:   func(rec *core.Record) string { return core.JoinIDs(rec.CrossSellIDs) },
		Validate:  idList(core.CodeInvalidCrossSellIDs, core.CodeCrossSellProductNotFound),
		Apply:     func(rec *core.Record, v any) { rec.CrossSellIDs = v.([]int64) },
	})
}

// idList resolves a pipe-delimited list of related product IDs. Malformed
// and unknown IDs are dropped with an error each; empty clears the list.
func idList(invalidCode, notFoundCode core.ErrorCode) core.ValidateFunc {
	return func(raw string, fc *core.FieldContext) (any, bool) {
		if strings.TrimSpace(raw) == "" {
			return []int64{}, true
		}

		ids, invalid := core.ParseIDList(raw)
		for _, part := range invalid {
			fc.Reject(invalidCode, part, part)
		}

		var found []int64
		for _, id := range ids {
			ok, err := fc.Store().Exists(fc.Context(), id)
			if err != nil {
				fc.LookupFailed(strconv.FormatInt(id, 10), err)
				continue
			}
			if !ok {
				fc.Reject(notFoundCode, strconv.FormatInt(id, 10), id)
				continue
			}
			found = append(found, id)
		}
		if len(found) == 0 {
			return nil, false
		}
		return found, true
	}
}
