// Package core provides the product import reconciliation engine.
// This package has no transport dependencies and can be used by any frontend.
package core

import (
	"context"
	"errors"
	"slices"
)

// ProductType is the closed set of product kinds a record can have.
type ProductType string

const (
	TypeSimple    ProductType = "simple"
	TypeVariable  ProductType = "variable"
	TypeVariation ProductType = "variation"
	TypeGrouped   ProductType = "grouped"
	TypeExternal  ProductType = "external"
)

// StatusTrash marks a record that has been moved to the trash.
const StatusTrash = "trash"

// Taxonomy names understood by the Taxonomy collaborator.
const (
	TaxonomyCategory = "product_cat"
	TaxonomyTag      = "product_tag"
	TaxonomyTaxClass = "tax_class"
)

// Term is a single vocabulary entry (category, tag, attribute value, tax class).
type Term struct {
	ID       int64
	Taxonomy string
	Name     string
	Slug     string
}

// AttributeVocabulary describes a taxonomy-backed product attribute such as
// "Color" whose values must come from the pa_color vocabulary.
type AttributeVocabulary struct {
	ID       int64
	Name     string // slug-like name: "color"
	Label    string // display label: "Color"
	Taxonomy string // term taxonomy: "pa_color"
}

// Attribute is one entry of a record's attribute set.
// Taxonomy is empty for free-form custom attributes.
type Attribute struct {
	Name      string
	Taxonomy  string
	Options   []string
	Position  int
	Visible   bool
	Variation bool
}

// Record is the product entity owned by the record store.
//
// Optional integers use pointers so that "not set" renders as an empty cell.
// ImageID and GalleryImageIDs are never written by the import path.
type Record struct {
	ID       int64
	Type     ProductType
	ParentID int64

	Name             string
	SKU              string
	Slug             string
	Status           string
	Description      string
	ShortDescription string
	PurchaseNote     string

	RegularPrice string
	SalePrice    string
	SaleDateFrom string // YYYY-MM-DD or empty
	SaleDateTo   string // YYYY-MM-DD or empty

	TaxStatus      string
	TaxClass       string
	StockStatus    string
	StockQuantity  *int
	ManageStock    bool
	Backorders     string
	LowStockAmount *int

	Weight string
	Length string
	Width  string
	Height string

	Categories []Term
	Tags       []Term
	Attributes []Attribute

	MenuOrder         int
	Virtual           bool
	Downloadable      bool
	Featured          bool
	SoldIndividually  bool
	CatalogVisibility string

	UpsellIDs    []int64
	CrossSellIDs []int64

	ImageID         int64
	GalleryImageIDs []int64
}

// Trashed reports whether the record sits in the trash.
func (r *Record) Trashed() bool {
	return r.Status == StatusTrash
}

// Clone returns a deep copy so that mutations never leak into the original.
func (r *Record) Clone() *Record {
	c := *r
	if r.StockQuantity != nil {
		v := *r.StockQuantity
		c.StockQuantity = &v
	}
	if r.LowStockAmount != nil {
		v := *r.LowStockAmount
		c.LowStockAmount = &v
	}
	c.Categories = slices.Clone(r.Categories)
	c.Tags = slices.Clone(r.Tags)
	c.UpsellIDs = slices.Clone(r.UpsellIDs)
	c.CrossSellIDs = slices.Clone(r.CrossSellIDs)
	c.GalleryImageIDs = slices.Clone(r.GalleryImageIDs)
	if r.Attributes != nil {
		c.Attributes = make([]Attribute, len(r.Attributes))
		for i, a := range r.Attributes {
			a.Options = slices.Clone(a.Options)
			c.Attributes[i] = a
		}
	}
	return &c
}

// Actor identifies the operator running an import.
type Actor struct {
	ID string
}

// ErrNotFound is returned by collaborators when a record does not exist.
var ErrNotFound = errors.New("record not found")

// RecordStore is the record storage collaborator.
//
// Save persists the named fields of rec in a single commit. Implementations
// must not write any field that is not listed.
type RecordStore interface {
	Get(ctx context.Context, id int64) (*Record, error)
	Exists(ctx context.Context, id int64) (bool, error)
	FindIDBySKU(ctx context.Context, sku string) (int64, error)
	FindIDBySlug(ctx context.Context, slug string, excludeID int64) (int64, error)
	CanEdit(ctx context.Context, actor Actor, id int64) (bool, error)
	Save(ctx context.Context, rec *Record, fields []string) error
}

// Taxonomy is the term lookup collaborator.
// Lookups return (nil, nil) when nothing matches.
type Taxonomy interface {
	TermByName(ctx context.Context, taxonomy, name string) (*Term, error)
	TermBySlug(ctx context.Context, taxonomy, slug string) (*Term, error)
	AttributeVocabularies(ctx context.Context) ([]AttributeVocabulary, error)
}

// ExportSource lists records in export order: each parent followed by
// its variations.
type ExportSource interface {
	ListForExport(ctx context.Context) ([]*Record, error)
}
