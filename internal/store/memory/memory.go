// Package memory provides in-memory collaborators for the import engine.
// It backs the engine, web and CLI tests and needs no database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/prodsync/internal/core"
)

// SaveCall records one Save invocation.
type SaveCall struct {
	ID     int64
	Fields []string
}

// Store implements core.RecordStore, core.Taxonomy and core.ExportSource.
type Store struct {
	mu         sync.RWMutex
	records    map[int64]*core.Record
	terms      map[string][]core.Term
	vocabs     []core.AttributeVocabulary
	nextTermID int64
	canEdit    func(actor core.Actor, id int64) bool
	saveErr    error
	lookupErr  error
	saves      []SaveCall
}

// New returns an empty store that lets every actor edit every record.
func New() *Store {
	return &Store{
		records:    make(map[int64]*core.Record),
		terms:      make(map[string][]core.Term),
		nextTermID: 1,
		canEdit:    func(core.Actor, int64) bool { return true },
	}
}

// Put stores a copy of rec.
func (s *Store) Put(rec *core.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec.Clone()
}

// Record returns a copy of the stored record, or nil.
func (s *Store) Record(id int64) *core.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	return rec.Clone()
}

// AddTerm adds a term to taxonomy and returns it. An empty slug is derived
// from the name.
func (s *Store) AddTerm(taxonomy, name, slug string) core.Term {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slug == "" {
		slug = core.Slugify(name)
	}
	t := core.Term{ID: s.nextTermID, Taxonomy: taxonomy, Name: name, Slug: slug}
	s.nextTermID++
	s.terms[taxonomy] = append(s.terms[taxonomy], t)
	return t
}

// AddVocabulary registers a taxonomy-backed attribute.
func (s *Store) AddVocabulary(v core.AttributeVocabulary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vocabs = append(s.vocabs, v)
}

// SetPermission replaces the edit-permission rule.
func (s *Store) SetPermission(fn func(actor core.Actor, id int64) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canEdit = fn
}

// FailSaves makes every Save return err. Pass nil to restore.
func (s *Store) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// FailLookups makes every uniqueness, existence, term and export lookup
// return err.
func (s *Store) FailLookups(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupErr = err
}

// Saves returns the Save calls made so far.
func (s *Store) Saves() []SaveCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SaveCall(nil), s.saves...)
}

// =============================================================================
// core.RecordStore
// =============================================================================

func (s *Store) Get(ctx context.Context, id int64) (*core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lookupErr != nil {
		return false, s.lookupErr
	}
	rec, ok := s.records[id]
	return ok && !rec.Trashed(), nil
}

func (s *Store) FindIDBySKU(ctx context.Context, sku string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lookupErr != nil {
		return 0, s.lookupErr
	}
	for id, rec := range s.records {
		if rec.SKU != "" && rec.SKU == sku {
			return id, nil
		}
	}
	return 0, nil
}

func (s *Store) FindIDBySlug(ctx context.Context, slug string, excludeID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lookupErr != nil {
		return 0, s.lookupErr
	}
	for id, rec := range s.records {
		if id != excludeID && rec.Slug == slug {
			return id, nil
		}
	}
	return 0, nil
}

func (s *Store) CanEdit(ctx context.Context, actor core.Actor, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canEdit(actor, id), nil
}

// Save copies the named fields of rec onto the stored record.
func (s *Store) Save(ctx context.Context, rec *core.Record, fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	stored, ok := s.records[rec.ID]
	if !ok {
		return core.ErrNotFound
	}

	next := stored.Clone()
	src := rec.Clone()
	for _, f := range fields {
		if !copyField(next, src, f) {
			return fmt.Errorf("save product %d: unknown field %q", rec.ID, f)
		}
	}
	s.records[rec.ID] = next
	s.saves = append(s.saves, SaveCall{ID: rec.ID, Fields: append([]string(nil), fields...)})
	return nil
}

// =============================================================================
// core.Taxonomy
// =============================================================================

func (s *Store) TermByName(ctx context.Context, taxonomy, name string) (*core.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	for _, t := range s.terms[taxonomy] {
		if strings.EqualFold(t.Name, name) {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (s *Store) TermBySlug(ctx context.Context, taxonomy, slug string) (*core.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	for _, t := range s.terms[taxonomy] {
		if t.Slug == slug {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (s *Store) AttributeVocabularies(ctx context.Context) ([]core.AttributeVocabulary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return append([]core.AttributeVocabulary(nil), s.vocabs...), nil
}

// =============================================================================
// core.ExportSource
// =============================================================================

var exportStatuses = map[string]bool{"publish": true, "draft": true, "pending": true, "private": true}

// ListForExport returns parents by id, each followed by its variations.
func (s *Store) ListForExport(ctx context.Context) ([]*core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}

	var parents []*core.Record
	children := make(map[int64][]*core.Record)
	for _, rec := range s.records {
		if !exportStatuses[rec.Status] {
			continue
		}
		if rec.Type == core.TypeVariation {
			children[rec.ParentID] = append(children[rec.ParentID], rec.Clone())
			continue
		}
		parents = append(parents, rec.Clone())
	}

	byID := func(list []*core.Record) {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	byID(parents)

	out := make([]*core.Record, 0, len(s.records))
	for _, p := range parents {
		out = append(out, p)
		kids := children[p.ID]
		byID(kids)
		out = append(out, kids...)
	}
	return out, nil
}

// copyField copies one importable field from src to dst.
func copyField(dst, src *core.Record, field string) bool {
	switch field {
	case "sku":
		dst.SKU = src.SKU
	case "name":
		dst.Name = src.Name
	case "slug":
		dst.Slug = src.Slug
	case "status":
		dst.Status = src.Status
	case "description":
		dst.Description = src.Description
	case "short_description":
		dst.ShortDescription = src.ShortDescription
	case "purchase_note":
		dst.PurchaseNote = src.PurchaseNote
	case "regular_price":
		dst.RegularPrice = src.RegularPrice
	case "sale_price":
		dst.SalePrice = src.SalePrice
	case "sale_date_from":
		dst.SaleDateFrom = src.SaleDateFrom
	case "sale_date_to":
		dst.SaleDateTo = src.SaleDateTo
	case "tax_status":
		dst.TaxStatus = src.TaxStatus
	case "tax_class":
		dst.TaxClass = src.TaxClass
	case "stock_status":
		dst.StockStatus = src.StockStatus
	case "stock_quantity":
		dst.StockQuantity = src.StockQuantity
	case "manage_stock":
		dst.ManageStock = src.ManageStock
	case "backorders":
		dst.Backorders = src.Backorders
	case "low_stock_amount":
		dst.LowStockAmount = src.LowStockAmount
	case "weight":
		dst.Weight = src.Weight
	case "length":
		dst.Length = src.Length
	case "width":
		dst.Width = src.Width
	case "height":
		dst.Height = src.Height
	case "categories":
		dst.Categories = src.Categories
	case "tags":
		dst.Tags = src.Tags
	case "attributes":
		dst.Attributes = src.Attributes
	case "menu_order":
		dst.MenuOrder = src.MenuOrder
	case "virtual":
		dst.Virtual = src.Virtual
	case "downloadable":
		dst.Downloadable = src.Downloadable
	case "featured":
		dst.Featured = src.Featured
	case "sold_individually":
		dst.SoldIndividually = src.SoldIndividually
	case "catalog_visibility":
		dst.CatalogVisibility = src.CatalogVisibility
	case "upsell_ids":
		dst.UpsellIDs = src.UpsellIDs
	case "cross_sell_ids":
		dst.CrossSellIDs = src.CrossSellIDs
	default:
		return false
	}
	return true
}
