package core_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/JonMunkholm/prodsync/internal/core"
	_ "github.com/JonMunkholm/prodsync/internal/core/fields"
	"github.com/JonMunkholm/prodsync/internal/store/memory"
)

func intPtr(n int) *int { return &n }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newCatalog returns a store holding a small catalog:
//
//	 7  simple, stock not managed
//	 9  simple, no categories
//	42  simple, regular price 100
//	50  variable with variation 51
//	60  trashed
func newCatalog() *memory.Store {
	s := memory.New()

	s.AddTerm(core.TaxonomyCategory, "Shoes", "shoes")
	s.AddTerm(core.TaxonomyCategory, "Men's Shirts", "mens-shirts")
	s.AddTerm(core.TaxonomyTag, "summer", "summer")
	s.AddTerm(core.TaxonomyTaxClass, "Reduced Rate", "reduced-rate")
	s.AddVocabulary(core.AttributeVocabulary{ID: 1, Name: "color", Label: "Color", Taxonomy: "pa_color"})
	s.AddTerm("pa_color", "Red", "red")
	s.AddTerm("pa_color", "Blue", "blue")

	base := func(id int64, name string) *core.Record {
		return &core.Record{
			ID:                id,
			Type:              core.TypeSimple,
			Name:              name,
			Slug:              strings.ToLower(strings.ReplaceAll(name, " ", "-")),
			Status:            "publish",
			TaxStatus:         "taxable",
			StockStatus:       "instock",
			Backorders:        "no",
			CatalogVisibility: "visible",
		}
	}

	s.Put(base(7, "Canvas Bag"))
	s.Put(base(9, "Running Shoe"))

	shirt := base(42, "Blue Shirt")
	shirt.SKU = "SH-42"
	shirt.RegularPrice = "100"
	shirt.Featured = true
	s.Put(shirt)

	parent := base(50, "Hoodie")
	parent.Type = core.TypeVariable
	parent.Attributes = []core.Attribute{{Name: "Color", Taxonomy: "pa_color", Options: []string{"Red", "Blue"}, Visible: true, Variation: true}}
	s.Put(parent)

	variation := base(51, "Hoodie - Red")
	variation.Type = core.TypeVariation
	variation.ParentID = 50
	variation.RegularPrice = "60"
	variation.Attributes = []core.Attribute{{Name: "Color", Taxonomy: "pa_color", Options: []string{"Red"}}}
	s.Put(variation)

	trashed := base(60, "Old Hat")
	trashed.Status = core.StatusTrash
	s.Put(trashed)

	return s
}

func newReconciler(s *memory.Store, opts ...core.Option) *core.Reconciler {
	opts = append([]core.Option{core.WithLogger(quietLogger())}, opts...)
	return core.NewReconciler(s, s, opts...)
}

func reconcile(t *testing.T, s *memory.Store, pairs ...string) core.RowOutcome {
	t.Helper()
	return newReconciler(s).ReconcileRow(context.Background(), core.Actor{ID: "admin"}, core.NewRow(2, pairs...))
}

func codes(errs []core.ValidationError) []core.ErrorCode {
	out := make([]core.ErrorCode, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func runCSV(t *testing.T, s *memory.Store, input string, opts ...core.Option) *core.RunResult {
	t.Helper()
	p, err := core.NewParser(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	result, err := newReconciler(s, opts...).Run(context.Background(), core.Actor{ID: "admin"}, p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

// =============================================================================
// Identification and permission
// =============================================================================

func TestReconcileRow_Identification(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wantCode core.ErrorCode
	}{
		{name: "empty id", id: "", wantCode: core.CodeEmptyRequiredField},
		{name: "non-numeric id", id: "abc", wantCode: core.CodeInvalidProductID},
		{name: "negative id", id: "-4", wantCode: core.CodeInvalidProductID},
		{name: "missing record", id: "999", wantCode: core.CodeProductNotFound},
		{name: "trashed record", id: "60", wantCode: core.CodeProductTrashed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newCatalog()
			out := reconcile(t, s, "id", tt.id, "name", "Changed", "sale_price", "not-a-price")

			if out.Status != core.RowFailed {
				t.Errorf("Status = %s, want failed", out.Status)
			}
			if len(out.Errors) != 1 {
				t.Fatalf("got %d errors (%v), want exactly 1", len(out.Errors), codes(out.Errors))
			}
			if out.Errors[0].Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", out.Errors[0].Code, tt.wantCode)
			}
			if out.Errors[0].Field != "id" {
				t.Errorf("Field = %q, want id", out.Errors[0].Field)
			}
			if len(s.Saves()) != 0 {
				t.Error("failed identification must not save")
			}
		})
	}
}

func TestReconcileRow_PermissionDenied(t *testing.T) {
	s := newCatalog()
	s.SetPermission(func(actor core.Actor, id int64) bool { return id != 42 })

	out := reconcile(t, s, "id", "42", "name", "Changed")
	if out.Status != core.RowFailed {
		t.Errorf("Status = %s, want failed", out.Status)
	}
	if got := codes(out.Errors); len(got) != 1 || got[0] != core.CodePermissionDenied {
		t.Errorf("codes = %v, want [PERMISSION_DENIED]", got)
	}
	if s.Record(42).Name != "Blue Shirt" {
		t.Error("record must be untouched")
	}
}

// =============================================================================
// Documented scenarios
// =============================================================================

func TestReconcileRow_SalePriceExceedsRegular(t *testing.T) {
	t.Run("only change rejected", func(t *testing.T) {
		s := newCatalog()
		out := reconcile(t, s, "id", "42", "sale_price", "150", "regular_price", "100")

		if out.Status != core.RowFailed {
			t.Errorf("Status = %s, want failed", out.Status)
		}
		if len(out.Errors) != 1 {
			t.Fatalf("got %v, want one error", codes(out.Errors))
		}
		if e := out.Errors[0]; e.Code != core.CodeSalePriceExceedsRegular || e.Field != "sale_price" {
			t.Errorf("error = %s on %s, want SALE_PRICE_EXCEEDS_REGULAR on sale_price", e.Code, e.Field)
		}
	})

	t.Run("other change still applied", func(t *testing.T) {
		s := newCatalog()
		out := reconcile(t, s, "id", "42", "sale_price", "150", "regular_price", "100", "name", "Navy Shirt")

		if out.Status != core.RowUpdated {
			t.Errorf("Status = %s, want updated", out.Status)
		}
		if len(out.Errors) != 1 {
			t.Errorf("got %v, want one error", codes(out.Errors))
		}
		rec := s.Record(42)
		if rec.Name != "Navy Shirt" || rec.SalePrice != "" {
			t.Errorf("record name=%q sale=%q, want Navy Shirt and no sale price", rec.Name, rec.SalePrice)
		}
	})

	t.Run("compared against regular price from the same row", func(t *testing.T) {
		s := newCatalog()
		out := reconcile(t, s, "id", "42", "regular_price", "200", "sale_price", "150")

		if out.Status != core.RowUpdated || len(out.Errors) != 0 {
			t.Fatalf("Status = %s, errors %v, want updated without errors", out.Status, codes(out.Errors))
		}
		rec := s.Record(42)
		if rec.RegularPrice != "200" || rec.SalePrice != "150" {
			t.Errorf("prices = %s/%s, want 200/150", rec.RegularPrice, rec.SalePrice)
		}
	})
}

func TestReconcileRow_StockWithoutManage(t *testing.T) {
	t.Run("rejected when management is off", func(t *testing.T) {
		s := newCatalog()
		out := reconcile(t, s, "id", "7", "stock_quantity", "5")

		if got := codes(out.Errors); len(got) != 1 || got[0] != core.CodeStockWithoutManage {
			t.Fatalf("codes = %v, want [STOCK_WITHOUT_MANAGE]", got)
		}
		if s.Record(7).StockQuantity != nil {
			t.Error("stock_quantity must not be applied")
		}
		if s.Record(7).ManageStock {
			t.Error("stock management must not be enabled implicitly")
		}
	})

	t.Run("accepted when enabled in the same row", func(t *testing.T) {
		s := newCatalog()
		out := reconcile(t, s, "id", "7", "manage_stock", "yes", "stock_quantity", "5")

		if out.Status != core.RowUpdated || len(out.Errors) != 0 {
			t.Fatalf("Status = %s, errors %v", out.Status, codes(out.Errors))
		}
		rec := s.Record(7)
		if !rec.ManageStock || rec.StockQuantity == nil || *rec.StockQuantity != 5 {
			t.Errorf("record manage=%v qty=%v, want managed with 5", rec.ManageStock, rec.StockQuantity)
		}
	})

	t.Run("negative quantity", func(t *testing.T) {
		s := newCatalog()
		out := reconcile(t, s, "id", "7", "manage_stock", "yes", "stock_quantity", "-2")

		if got := codes(out.Errors); len(got) != 1 || got[0] != core.CodeNegativeStock {
			t.Errorf("codes = %v, want [NEGATIVE_STOCK]", got)
		}
		if out.Status != core.RowUpdated {
			t.Errorf("Status = %s, want updated (manage_stock applied)", out.Status)
		}
	})
}

func TestReconcileRow_PartialCategories(t *testing.T) {
	s := newCatalog()
	out := reconcile(t, s, "id", "9", "categories", "Shoes|Red")

	if out.Status != core.RowUpdated {
		t.Errorf("Status = %s, want updated", out.Status)
	}
	if len(out.Errors) != 1 {
		t.Fatalf("got %v, want one error", codes(out.Errors))
	}
	if e := out.Errors[0]; e.Code != core.CodeCategoryNotFound || e.Value != "Red" {
		t.Errorf("error = %s for %q, want CATEGORY_NOT_FOUND for Red", e.Code, e.Value)
	}

	cats := s.Record(9).Categories
	if len(cats) != 1 || cats[0].Name != "Shoes" {
		t.Errorf("categories = %+v, want [Shoes]", cats)
	}
}

func TestReconcileRow_CategoryResolvedBySlug(t *testing.T) {
	s := newCatalog()
	out := reconcile(t, s, "id", "9", "categories", "Mens Shirts")

	if out.Status != core.RowUpdated || len(out.Errors) != 0 {
		t.Fatalf("Status = %s, errors %v", out.Status, codes(out.Errors))
	}
	if got := s.Record(9).Categories[0].Name; got != "Men's Shirts" {
		t.Errorf("category = %q, want Men's Shirts", got)
	}
}

func TestReconcileRow_MalformedAttributes(t *testing.T) {
	s := newCatalog()
	out := reconcile(t, s, "id", "42", "attributes", "not-json", "name", "Navy Shirt")

	if out.Status != core.RowUpdated {
		t.Errorf("Status = %s, want updated", out.Status)
	}
	if got := codes(out.Errors); len(got) != 1 || got[0] != core.CodeInvalidAttributeJSON {
		t.Errorf("codes = %v, want [INVALID_ATTRIBUTE_JSON]", got)
	}
	rec := s.Record(42)
	if len(rec.Attributes) != 0 {
		t.Error("attributes must not be applied")
	}
	if rec.Name != "Navy Shirt" {
		t.Errorf("name = %q, want Navy Shirt", rec.Name)
	}
}

// =============================================================================
// Attributes
// =============================================================================

func TestReconcileRow_Attributes(t *testing.T) {
	s := newCatalog()
	out := reconcile(t, s, "id", "50", "attributes", `{"Color":"Red|Green","Material":"Cotton|Wool"}`)

	if out.Status != core.RowUpdated {
		t.Errorf("Status = %s, want updated", out.Status)
	}
	if got := codes(out.Errors); len(got) != 1 || got[0] != core.CodeInvalidAttributeTerm {
		t.Fatalf("codes = %v, want [INVALID_ATTRIBUTE_TERM]", got)
	}
	if msg := out.Errors[0].Message; !strings.Contains(msg, "Green") || !strings.Contains(msg, "Color") {
		t.Errorf("message = %q, want term and attribute named", msg)
	}

	attrs := s.Record(50).Attributes
	if len(attrs) != 2 {
		t.Fatalf("attributes = %+v, want 2 (full replacement)", attrs)
	}
	if attrs[0].Taxonomy != "pa_color" || len(attrs[0].Options) != 1 || attrs[0].Options[0] != "Red" {
		t.Errorf("Color = %+v, want pa_color [Red]", attrs[0])
	}
	if !attrs[0].Variation {
		t.Error("variation flag of an existing attribute should be kept")
	}
	if attrs[1].Taxonomy != "" || attrs[1].Name != "Material" || len(attrs[1].Options) != 2 {
		t.Errorf("Material = %+v, want custom attribute with 2 values", attrs[1])
	}
}

func TestReconcileRow_UnknownTaxonomyAttribute(t *testing.T) {
	s := newCatalog()
	out := reconcile(t, s, "id", "42", "attributes", `{"pa_size":"L"}`)

	if got := codes(out.Errors); len(got) != 1 || got[0] != core.CodeAttributeNotFound {
		t.Errorf("codes = %v, want [ATTRIBUTE_NOT_FOUND]", got)
	}
	if out.Status != core.RowFailed {
		t.Errorf("Status = %s, want failed", out.Status)
	}
}

// =============================================================================
// Classification
// =============================================================================

func TestReconcileRow_UnchangedRowIsSkipped(t *testing.T) {
	s := newCatalog()
	out := reconcile(t, s,
		"id", "42",
		"name", "Blue Shirt",
		"regular_price", "100",
		"featured", "yes",
		"attributes", "",
		"unknown_column", "whatever",
	)

	if out.Status != core.RowSkipped {
		t.Errorf("Status = %s, want skipped", out.Status)
	}
	if len(out.Errors) != 0 {
		t.Errorf("skipped row reported %v", codes(out.Errors))
	}
}

func TestReconcileRow_EquivalentSpellingIsSkipped(t *testing.T) {
	s := newCatalog()
	out := reconcile(t, s, "id", "42", "featured", "1", "status", "")

	if out.Status != core.RowSkipped || len(out.Errors) != 0 {
		t.Errorf("Status = %s, errors %v, want skipped without errors", out.Status, codes(out.Errors))
	}
	if len(s.Saves()) != 0 {
		t.Error("no-op changes must not save")
	}
}

func TestReconcileRow_MultipleFieldErrors(t *testing.T) {
	s := newCatalog()
	out := reconcile(t, s,
		"id", "42",
		"status", "archived",
		"featured", "maybe",
		"weight", "heavy",
		"sale_date_from", "2024-02-30",
	)

	want := []core.ErrorCode{
		core.CodeInvalidStatus,
		core.CodeInvalidSaleDateFrom,
		core.CodeInvalidWeight,
		core.CodeInvalidBoolean,
	}
	got := codes(out.Errors)
	if len(got) != len(want) {
		t.Fatalf("codes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("codes[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if out.Status != core.RowFailed {
		t.Errorf("Status = %s, want failed", out.Status)
	}
	if msg := out.Errors[3].Message; !strings.Contains(msg, "maybe") || !strings.Contains(msg, "featured") {
		t.Errorf("boolean message %q should name value and field", msg)
	}
}

func TestReconcileRow_BlacklistedColumns(t *testing.T) {
	s := newCatalog()
	out := reconcile(t, s,
		"id", "42",
		"image_id", "999",
		"gallery_image_ids", "1|2|3",
		"images", "http://example.com/a.jpg",
		"name", "Navy Shirt",
	)

	if out.Status != core.RowUpdated {
		t.Errorf("Status = %s, want updated", out.Status)
	}
	for _, e := range out.Errors {
		if core.IsBlacklisted(e.Field) {
			t.Errorf("error cites blacklisted field %s", e.Field)
		}
	}
	for _, call := range s.Saves() {
		for _, f := range call.Fields {
			if core.IsBlacklisted(f) {
				t.Errorf("save touched blacklisted field %s", f)
			}
		}
	}
	if s.Record(42).ImageID != 0 {
		t.Error("image must not change")
	}
}

func TestReconcileRow_StoreFailure(t *testing.T) {
	s := newCatalog()
	s.FailSaves(errors.New("connection reset by peer"))

	out := reconcile(t, s, "id", "42", "name", "Navy Shirt")
	if out.Status != core.RowFailed {
		t.Errorf("Status = %s, want failed", out.Status)
	}
	if got := codes(out.Errors); len(got) != 1 || got[0] != core.CodeDatabaseError {
		t.Fatalf("codes = %v, want [DATABASE_ERROR]", got)
	}
	if !strings.Contains(out.Errors[0].Message, "connection reset by peer") {
		t.Errorf("message %q should carry the store error", out.Errors[0].Message)
	}
}

func TestReconcileRow_LookupFailure(t *testing.T) {
	s := newCatalog()
	s.FailLookups(errors.New("taxonomy offline"))

	out := reconcile(t, s, "id", "9", "categories", "Shoes", "name", "Trail Shoe")
	if out.Status != core.RowUpdated {
		t.Errorf("Status = %s, want updated", out.Status)
	}
	if got := codes(out.Errors); len(got) != 1 || got[0] != core.CodeDatabaseError || out.Errors[0].Field != "categories" {
		t.Errorf("errors = %+v, want DATABASE_ERROR on categories", out.Errors)
	}
}

// =============================================================================
// Field rules
// =============================================================================

func TestReconcileRow_FieldRules(t *testing.T) {
	tests := []struct {
		name       string
		pairs      []string
		wantStatus core.RowStatus
		wantCodes  []core.ErrorCode
		check      func(t *testing.T, rec *core.Record)
	}{
		{
			name:       "variable product price",
			pairs:      []string{"id", "50", "regular_price", "80"},
			wantStatus: core.RowFailed,
			wantCodes:  []core.ErrorCode{core.CodeVariableProductNoPrice},
		},
		{
			name:       "variation attributes emptied",
			pairs:      []string{"id", "51", "attributes", "{}"},
			wantStatus: core.RowFailed,
			wantCodes:  []core.ErrorCode{core.CodeVariationMissingAttributes},
		},
		{
			name:       "variation attributes cleared",
			pairs:      []string{"id", "51", "attributes", ""},
			wantStatus: core.RowFailed,
			wantCodes:  []core.ErrorCode{core.CodeVariationMissingAttributes},
		},
		{
			name:       "duplicate sku",
			pairs:      []string{"id", "9", "sku", "SH-42"},
			wantStatus: core.RowFailed,
			wantCodes:  []core.ErrorCode{core.CodeDuplicateSKU},
		},
		{
			name:       "invalid sku",
			pairs:      []string{"id", "9", "sku", "SH 9"},
			wantStatus: core.RowFailed,
			wantCodes:  []core.ErrorCode{core.CodeInvalidSKUFormat},
		},
		{
			name:       "sku cleared",
			pairs:      []string{"id", "42", "sku", ""},
			wantStatus: core.RowUpdated,
			check: func(t *testing.T, rec *core.Record) {
				if rec.SKU != "" {
					t.Errorf("SKU = %q, want empty", rec.SKU)
				}
			},
		},
		{
			name:       "duplicate slug",
			pairs:      []string{"id", "9", "slug", "blue-shirt"},
			wantStatus: core.RowFailed,
			wantCodes:  []core.ErrorCode{core.CodeDuplicateSlug},
		},
		{
			name:       "slug normalized",
			pairs:      []string{"id", "9", "slug", "Trail-Runner"},
			wantStatus: core.RowUpdated,
			check: func(t *testing.T, rec *core.Record) {
				if rec.Slug != "trail-runner" {
					t.Errorf("Slug = %q, want trail-runner", rec.Slug)
				}
			},
		},
		{
			name:       "sale date conflict",
			pairs:      []string{"id", "42", "sale_date_from", "2024-05-10", "sale_date_to", "2024-05-01"},
			wantStatus: core.RowFailed,
			wantCodes:  []core.ErrorCode{core.CodeSaleDateConflict},
			check: func(t *testing.T, rec *core.Record) {
				if rec.SaleDateFrom != "" || rec.SaleDateTo != "" {
					t.Error("conflicting dates must not be applied")
				}
			},
		},
		{
			name:       "valid sale window",
			pairs:      []string{"id", "42", "sale_date_from", "2024-05-01", "sale_date_to", "2024-05-10"},
			wantStatus: core.RowUpdated,
			check: func(t *testing.T, rec *core.Record) {
				if rec.SaleDateFrom != "2024-05-01" || rec.SaleDateTo != "2024-05-10" {
					t.Errorf("dates = %s..%s", rec.SaleDateFrom, rec.SaleDateTo)
				}
			},
		},
		{
			name:       "regular price kept while on sale",
			pairs:      []string{"id", "51", "sale_price", "50", "regular_price", ""},
			wantStatus: core.RowUpdated,
			wantCodes:  []core.ErrorCode{core.CodeEmptyPriceForSimple},
			check: func(t *testing.T, rec *core.Record) {
				if rec.RegularPrice != "60" || rec.SalePrice != "50" {
					t.Errorf("prices = %s/%s, want 60/50", rec.RegularPrice, rec.SalePrice)
				}
			},
		},
		{
			name:       "type mismatch is reported but not fatal",
			pairs:      []string{"id", "42", "type", "variable", "name", "Navy Shirt"},
			wantStatus: core.RowUpdated,
			wantCodes:  []core.ErrorCode{core.CodeProductTypeMismatch},
		},
		{
			name:       "tax class by name stored as slug",
			pairs:      []string{"id", "42", "tax_class", "Reduced Rate"},
			wantStatus: core.RowUpdated,
			check: func(t *testing.T, rec *core.Record) {
				if rec.TaxClass != "reduced-rate" {
					t.Errorf("TaxClass = %q, want reduced-rate", rec.TaxClass)
				}
			},
		},
		{
			name:       "unknown tax class",
			pairs:      []string{"id", "42", "tax_class", "Luxury"},
			wantStatus: core.RowFailed,
			wantCodes:  []core.ErrorCode{core.CodeInvalidTaxClass},
		},
		{
			name:       "related ids partially resolved",
			pairs:      []string{"id", "42", "upsell_ids", "9|x|404", "cross_sell_ids", "7"},
			wantStatus: core.RowUpdated,
			wantCodes:  []core.ErrorCode{core.CodeInvalidUpsellIDs, core.CodeUpsellProductNotFound},
			check: func(t *testing.T, rec *core.Record) {
				if core.JoinIDs(rec.UpsellIDs) != "9" || core.JoinIDs(rec.CrossSellIDs) != "7" {
					t.Errorf("upsells=%v cross-sells=%v", rec.UpsellIDs, rec.CrossSellIDs)
				}
			},
		},
		{
			name:       "enum is case insensitive",
			pairs:      []string{"id", "42", "stock_status", "OutOfStock", "catalog_visibility", "Hidden"},
			wantStatus: core.RowUpdated,
			check: func(t *testing.T, rec *core.Record) {
				if rec.StockStatus != "outofstock" || rec.CatalogVisibility != "hidden" {
					t.Errorf("stock_status=%q visibility=%q", rec.StockStatus, rec.CatalogVisibility)
				}
			},
		},
		{
			name:       "name markup stripped",
			pairs:      []string{"id", "42", "name", "<b>Navy</b> Shirt"},
			wantStatus: core.RowUpdated,
			check: func(t *testing.T, rec *core.Record) {
				if rec.Name != "Navy Shirt" {
					t.Errorf("Name = %q, want Navy Shirt", rec.Name)
				}
			},
		},
		{
			name:       "categories ignored on variations",
			pairs:      []string{"id", "51", "categories", "Shoes"},
			wantStatus: core.RowSkipped,
		},
		{
			name:       "read-only parent id ignored",
			pairs:      []string{"id", "51", "parent_id", "9"},
			wantStatus: core.RowSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newCatalog()
			out := reconcile(t, s, tt.pairs...)

			if out.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s (errors %v)", out.Status, tt.wantStatus, codes(out.Errors))
			}
			got := codes(out.Errors)
			if len(got) != len(tt.wantCodes) {
				t.Fatalf("codes = %v, want %v", got, tt.wantCodes)
			}
			for i := range got {
				if got[i] != tt.wantCodes[i] {
					t.Errorf("codes[%d] = %s, want %s", i, got[i], tt.wantCodes[i])
				}
			}
			if tt.check != nil {
				id, _ := strconv.ParseInt(tt.pairs[1], 10, 64)
				tt.check(t, s.Record(id))
			}
		})
	}
}

func TestReconcileRow_ClearVariableProductPrice(t *testing.T) {
	s := newCatalog()
	parent := s.Record(50)
	parent.RegularPrice = "10"
	parent.SalePrice = "8"
	s.Put(parent)

	out := reconcile(t, s, "id", "50", "regular_price", "", "sale_price", "")
	if out.Status != core.RowUpdated {
		t.Fatalf("Status = %s, want updated (errors %v)", out.Status, codes(out.Errors))
	}
	if len(out.Errors) != 0 {
		t.Errorf("errors = %v, want none", codes(out.Errors))
	}
	rec := s.Record(50)
	if rec.RegularPrice != "" || rec.SalePrice != "" {
		t.Errorf("prices = %q/%q, want both cleared", rec.RegularPrice, rec.SalePrice)
	}
}

// =============================================================================
// Runs
// =============================================================================

func TestRun_Counters(t *testing.T) {
	s := newCatalog()
	input := "id,name,stock_quantity\n" +
		"42,Navy Shirt,\n" + // updated
		"9,Running Shoe,\n" + // skipped
		"\n" +
		",,\n" +
		"999,Ghost,\n" + // failed
		"7,Canvas Bag,5\n" // failed: stock without manage

	result := runCSV(t, s, input)

	if result.TotalRows != 4 {
		t.Errorf("TotalRows = %d, want 4", result.TotalRows)
	}
	if result.Updated != 1 || result.Skipped != 1 || result.Failed != 2 {
		t.Errorf("counters = %d/%d/%d, want 1/1/2", result.Updated, result.Skipped, result.Failed)
	}
	if result.Updated+result.Skipped+result.Failed != result.TotalRows {
		t.Error("counters must add up to TotalRows")
	}
	if len(result.Errors) != 2 {
		t.Fatalf("errors = %v, want 2", codes(result.Errors))
	}
	if result.Errors[0].Row != 6 || result.Errors[1].Row != 7 {
		t.Errorf("error rows = %d,%d, want physical lines 6,7", result.Errors[0].Row, result.Errors[1].Row)
	}
	if result.Errors[0].ProductName != "Ghost" {
		t.Errorf("ProductName = %q, want the row's name for unknown products", result.Errors[0].ProductName)
	}
	if result.Errors[1].ProductName != "Canvas Bag" {
		t.Errorf("ProductName = %q, want the record's name", result.Errors[1].ProductName)
	}
}

func TestRun_EmptyFile(t *testing.T) {
	for _, input := range []string{"", "id,name\n", "id,name\n\n,\n"} {
		p, err := core.NewParser(strings.NewReader(input))
		if err != nil {
			t.Fatalf("NewParser: %v", err)
		}
		_, err = newReconciler(newCatalog()).Run(context.Background(), core.Actor{ID: "admin"}, p)
		if !errors.Is(err, core.ErrEmptyFile) {
			t.Errorf("Run(%q) error = %v, want ErrEmptyFile", input, err)
		}
	}
}

func TestRun_ParseFailureIsAtomic(t *testing.T) {
	s := newCatalog()
	valid := "id,name\n" + strings.Repeat("42,Navy Shirt\n", 500)
	p, err := core.NewParser(io.MultiReader(strings.NewReader(valid), errReader{}))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}

	if _, err := newReconciler(s).Run(context.Background(), core.Actor{ID: "admin"}, p); err == nil {
		t.Fatal("Run should fail when the source cannot be read")
	}
	if len(s.Saves()) != 0 {
		t.Error("no row may be applied when the source fails")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestRun_DryRun(t *testing.T) {
	s := newCatalog()
	result := runCSV(t, s, "id,name\n42,Navy Shirt\n", core.WithDryRun(true))

	if result.Updated != 1 {
		t.Errorf("Updated = %d, want 1", result.Updated)
	}
	if len(s.Saves()) != 0 || s.Record(42).Name != "Blue Shirt" {
		t.Error("dry run must not save")
	}
}

func TestRun_ExportRoundTrip(t *testing.T) {
	s := newCatalog()
	rich := s.Record(42)
	rich.Description = "<p>Soft cotton, \"classic\" fit</p>\nMachine wash"
	rich.ShortDescription = "<p>Line one</p>\r\n<p>Line two</p>"
	rich.PurchaseNote = "Thanks!\r\nKeep the receipt."
	rich.SalePrice = "79.50"
	rich.SaleDateFrom = "2024-05-01"
	rich.SaleDateTo = "2024-05-31"
	rich.TaxClass = "reduced-rate"
	rich.ManageStock = true
	rich.StockQuantity = intPtr(12)
	rich.LowStockAmount = intPtr(2)
	rich.Weight = "0.4"
	rich.Categories = []core.Term{{ID: 1, Taxonomy: core.TaxonomyCategory, Name: "Shoes", Slug: "shoes"}}
	rich.Tags = []core.Term{{ID: 3, Taxonomy: core.TaxonomyTag, Name: "summer", Slug: "summer"}}
	rich.Attributes = []core.Attribute{
		{Name: "Color", Taxonomy: "pa_color", Options: []string{"Blue"}, Visible: true},
		{Name: "Fit", Options: []string{"Slim", "Regular"}, Visible: true},
	}
	rich.UpsellIDs = []int64{9}
	rich.MenuOrder = 3
	rich.ImageID = 77
	s.Put(rich)

	var buf bytes.Buffer
	n, err := core.NewExporter(s, nil).Export(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 5 {
		t.Errorf("exported %d records, want 5 (trash excluded)", n)
	}

	p, err := core.NewParser(&buf)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	result, err := newReconciler(s).Run(context.Background(), core.Actor{ID: "admin"}, p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Skipped != n || result.Updated != 0 || result.Failed != 0 {
		t.Errorf("counters = %d/%d/%d, want all %d skipped", result.Updated, result.Skipped, result.Failed, n)
	}
	if len(result.Errors) != 0 {
		t.Errorf("round trip produced errors: %v", result.Errors)
	}
	if len(s.Saves()) != 0 {
		t.Error("round trip must not save")
	}
	if got := s.Record(42).ShortDescription; got != "<p>Line one</p>\r\n<p>Line two</p>" {
		t.Errorf("short_description = %q, CRLF line endings should be kept", got)
	}
}

func TestExporter_Stats(t *testing.T) {
	s := newCatalog()
	stats, err := core.NewExporter(s, nil).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if stats.Total != 5 {
		t.Errorf("Total = %d, want 5 (trash excluded)", stats.Total)
	}
	want := map[core.ProductType]int{core.TypeSimple: 3, core.TypeVariable: 1, core.TypeVariation: 1}
	for typ, n := range want {
		if got := stats.ByType[typ]; got != n {
			t.Errorf("ByType[%s] = %d, want %d", typ, got, n)
		}
	}

	s.FailLookups(errors.New("connection refused"))
	if _, err := core.NewExporter(s, nil).Stats(context.Background()); err == nil {
		t.Error("Stats should fail when the export listing fails")
	}
}

func TestExporter_Order(t *testing.T) {
	s := newCatalog()
	var buf bytes.Buffer
	if _, err := core.NewExporter(s, nil).Export(context.Background(), &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	p, err := core.NewParser(&buf)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	if got := len(p.Header()); got != len(core.ExportColumns) {
		t.Errorf("header has %d columns, want %d", got, len(core.ExportColumns))
	}

	var ids []string
	for {
		row, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		ids = append(ids, row.Value("id"))
		if row.Value("id") == "51" {
			if row.Value("parent_id") != "50" || row.Value("categories") != "" {
				t.Errorf("variation row parent=%q categories=%q", row.Value("parent_id"), row.Value("categories"))
			}
		}
	}
	if got := strings.Join(ids, ","); got != "7,9,42,50,51" {
		t.Errorf("export order = %s, want 7,9,42,50,51", got)
	}
}
