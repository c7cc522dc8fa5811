package postgres

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/prodsync/internal/core"
)

/* ----------------------------------------
	Field to column mapping
---------------------------------------- */

// column binds an importable field to its products column.
type column struct {
	name  string
	cast  string
	value func(*core.Record) (any, error)
}

func textColumn(name string, get func(*core.Record) string) column {
	return column{name: name, value: func(r *core.Record) (any, error) { return get(r), nil }}
}

func boolColumn(name string, get func(*core.Record) bool) column {
	return column{name: name, value: func(r *core.Record) (any, error) { return get(r), nil }}
}

func dateColumn(name string, get func(*core.Record) string) column {
	return column{name: name, value: func(r *core.Record) (any, error) { return toPgDate(get(r)) }}
}

func optionalIntColumn(name string, get func(*core.Record) *int) column {
	return column{name: name, value: func(r *core.Record) (any, error) { return toPgInt4(get(r)), nil }}
}

func idsColumn(name string, get func(*core.Record) []int64) column {
	return column{name: name, value: func(r *core.Record) (any, error) {
		ids := get(r)
		if ids == nil {
			ids = []int64{}
		}
		return ids, nil
	}}
}

// columns lists the scalar fields Save can write. Categories and tags live
// in product_terms and are handled separately.
var columns = map[string]column{
	"sku":               textColumn("sku", func(r *core.Record) string { return r.SKU }),
	"name":              textColumn("name", func(r *core.Record) string { return r.Name }),
	"slug":              textColumn("slug", func(r *core.Record) string { return r.Slug }),
	"status":            textColumn("status", func(r *core.Record) string { return r.Status }),
	"description":       textColumn("description", func(r *core.Record) string { return r.Description }),
	"short_description": textColumn("short_description", func(r *core.Record) string { return r.ShortDescription }),
	"purchase_note":     textColumn("purchase_note", func(r *core.Record) string { return r.PurchaseNote }),
	"regular_price":     textColumn("regular_price", func(r *core.Record) string { return r.RegularPrice }),
	"sale_price":        textColumn("sale_price", func(r *core.Record) string { return r.SalePrice }),
	"sale_date_from":    dateColumn("sale_date_from", func(r *core.Record) string { return r.SaleDateFrom }),
	"sale_date_to":      dateColumn("sale_date_to", func(r *core.Record) string { return r.SaleDateTo }),
	"tax_status":        textColumn("tax_status", func(r *core.Record) string { return r.TaxStatus }),
	"tax_class":         textColumn("tax_class", func(r *core.Record) string { return r.TaxClass }),
	"stock_status":      textColumn("stock_status", func(r *core.Record) string { return r.StockStatus }),
	"stock_quantity":    optionalIntColumn("stock_quantity", func(r *core.Record) *int { return r.StockQuantity }),
	"manage_stock":      boolColumn("manage_stock", func(r *core.Record) bool { return r.ManageStock }),
	"backorders":        textColumn("backorders", func(r *core.Record) string { return r.Backorders }),
	"low_stock_amount":  optionalIntColumn("low_stock_amount", func(r *core.Record) *int { return r.LowStockAmount }),
	"weight":            textColumn("weight", func(r *core.Record) string { return r.Weight }),
	"length":            textColumn("length", func(r *core.Record) string { return r.Length }),
	"width":             textColumn("width", func(r *core.Record) string { return r.Width }),
	"height":            textColumn("height", func(r *core.Record) string { return r.Height }),
	"menu_order": {name: "menu_order", value: func(r *core.Record) (any, error) {
		return int32(r.MenuOrder), nil
	}},
	"virtual":            boolColumn("virtual", func(r *core.Record) bool { return r.Virtual }),
	"downloadable":       boolColumn("downloadable", func(r *core.Record) bool { return r.Downloadable }),
	"featured":           boolColumn("featured", func(r *core.Record) bool { return r.Featured }),
	"sold_individually":  boolColumn("sold_individually", func(r *core.Record) bool { return r.SoldIndividually }),
	"catalog_visibility": textColumn("catalog_visibility", func(r *core.Record) string { return r.CatalogVisibility }),
	"upsell_ids":         idsColumn("upsell_ids", func(r *core.Record) []int64 { return r.UpsellIDs }),
	"cross_sell_ids":     idsColumn("cross_sell_ids", func(r *core.Record) []int64 { return r.CrossSellIDs }),
	"attributes": {name: "attributes", cast: "::jsonb", value: func(r *core.Record) (any, error) {
		return encodeAttributes(r.Attributes)
	}},
}

// termFields maps list fields stored in product_terms to their taxonomy.
var termFields = map[string]string{
	"categories": core.TaxonomyCategory,
	"tags":       core.TaxonomyTag,
}

// update is a Save split into its SQL statement and term replacements.
type update struct {
	sql   string
	args  []any
	terms map[string][]core.Term
}

// buildUpdate prepares the statement writing exactly the named fields.
// Fields that are neither columns nor term lists are refused.
func buildUpdate(rec *core.Record, fields []string) (*update, error) {
	u := &update{terms: make(map[string][]core.Term)}
	var sets []string

	for _, field := range fields {
		if taxonomy, ok := termFields[field]; ok {
			switch field {
			case "categories":
				u.terms[taxonomy] = rec.Categories
			case "tags":
				u.terms[taxonomy] = rec.Tags
			}
			continue
		}

		col, ok := columns[field]
		if !ok {
			return nil, fmt.Errorf("field %q cannot be saved", field)
		}
		v, err := col.value(rec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		u.args = append(u.args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d%s", col.name, len(u.args), col.cast))
	}

	sets = append(sets, "updated_at = now()")
	u.args = append(u.args, rec.ID)
	u.sql = fmt.Sprintf("UPDATE products SET %s WHERE id = $%d", strings.Join(sets, ", "), len(u.args))
	return u, nil
}

/* ----------------------------------------
	Pgx Helpers
---------------------------------------- */

const dateLayout = "2006-01-02"

func toPgDate(s string) (pgtype.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return pgtype.Date{}, fmt.Errorf("invalid date %q", s)
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

func fromPgDate(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(dateLayout)
}

func toPgInt4(n *int) pgtype.Int4 {
	if n == nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(*n), Valid: true}
}

func fromPgInt4(n pgtype.Int4) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

/* ----------------------------------------
	Attributes
---------------------------------------- */

type attributeJSON struct {
	Name      string   `json:"name"`
	Taxonomy  string   `json:"taxonomy,omitempty"`
	Options   []string `json:"options"`
	Position  int      `json:"position"`
	Visible   bool     `json:"visible"`
	Variation bool     `json:"variation"`
}

func encodeAttributes(attrs []core.Attribute) (string, error) {
	out := make([]attributeJSON, len(attrs))
	for i, a := range attrs {
		out[i] = attributeJSON{
			Name:      a.Name,
			Taxonomy:  a.Taxonomy,
			Options:   a.Options,
			Position:  a.Position,
			Visible:   a.Visible,
			Variation: a.Variation,
		}
		if out[i].Options == nil {
			out[i].Options = []string{}
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeAttributes(data []byte) ([]core.Attribute, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var in []attributeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	if len(in) == 0 {
		return nil, nil
	}
	attrs := make([]core.Attribute, len(in))
	for i, a := range in {
		attrs[i] = core.Attribute{
			Name:      a.Name,
			Taxonomy:  a.Taxonomy,
			Options:   a.Options,
			Position:  a.Position,
			Visible:   a.Visible,
			Variation: a.Variation,
		}
	}
	return attrs, nil
}
