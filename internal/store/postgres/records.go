package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/prodsync/internal/core"
)

const productColumns = `
	p.id, p.type, p.parent_id, p.name, p.sku, p.slug, p.status,
	p.description, p.short_description, p.purchase_note,
	p.regular_price, p.sale_price, p.sale_date_from, p.sale_date_to,
	p.tax_status, p.tax_class, p.stock_status, p.stock_quantity,
	p.manage_stock, p.backorders, p.low_stock_amount,
	p.weight, p.length, p.width, p.height,
	p.attributes, p.menu_order, p.virtual, p.downloadable, p.featured,
	p.sold_individually, p.catalog_visibility,
	p.upsell_ids, p.cross_sell_ids, p.image_id, p.gallery_image_ids`

// editorRoles may change any product.
var editorRoles = map[string]bool{"admin": true, "shop_manager": true, "editor": true}

// Get loads a product with its categories and tags.
func (s *Store) Get(ctx context.Context, id int64) (*core.Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id)
	rec, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, translateError(err))
	}

	if err := s.loadTerms(ctx, []*core.Record{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

// Exists reports whether a product that is not in the trash has id.
func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND status <> $2)`,
		id, core.StatusTrash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product %d: %w", id, translateError(err))
	}
	return exists, nil
}

// FindIDBySKU returns the owner of sku, or 0.
func (s *Store) FindIDBySKU(ctx context.Context, sku string) (int64, error) {
	return s.findID(ctx, `SELECT id FROM products WHERE sku = $1 AND status <> $2 ORDER BY id LIMIT 1`, sku, core.StatusTrash)
}

// FindIDBySlug returns a product other than excludeID using slug, or 0.
func (s *Store) FindIDBySlug(ctx context.Context, slug string, excludeID int64) (int64, error) {
	return s.findID(ctx, `SELECT id FROM products WHERE slug = $1 AND id <> $2 AND status <> $3 ORDER BY id LIMIT 1`, slug, excludeID, core.StatusTrash)
}

func (s *Store) findID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, translateError(err)
	}
	return id, nil
}

// CanEdit grants edits to known actors with an editing role.
func (s *Store) CanEdit(ctx context.Context, actor core.Actor, id int64) (bool, error) {
	var role string
	err := s.pool.QueryRow(ctx, `SELECT role FROM actors WHERE id = $1`, actor.ID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load actor %q: %w", actor.ID, translateError(err))
	}
	return editorRoles[role], nil
}

// Save writes the named fields in one transaction. Nothing outside fields
// is touched.
func (s *Store) Save(ctx context.Context, rec *core.Record, fields []string) error {
	u, err := buildUpdate(rec, fields)
	if err != nil {
		return fmt.Errorf("save product %d: %w", rec.ID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", translateError(err))
	}
	defer tx.Rollback(ctx) // No-op once committed

	tag, err := tx.Exec(ctx, u.sql, u.args...)
	if err != nil {
		return fmt.Errorf("save product %d: %w", rec.ID, translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}

	for taxonomy, terms := range u.terms {
		if err := replaceTerms(ctx, tx, rec.ID, taxonomy, terms); err != nil {
			return fmt.Errorf("save product %d %s: %w", rec.ID, taxonomy, translateError(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit product %d: %w", rec.ID, translateError(err))
	}
	return nil
}

// replaceTerms swaps the product's terms of one taxonomy for terms,
// keeping their order.
func replaceTerms(ctx context.Context, tx pgx.Tx, productID int64, taxonomy string, terms []core.Term) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM product_terms pt
		USING terms t
		WHERE pt.term_id = t.id AND pt.product_id = $1 AND t.taxonomy = $2`,
		productID, taxonomy,
	)
	if err != nil {
		return err
	}
	if len(terms) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, term := range terms {
		batch.Queue(
			`INSERT INTO product_terms (product_id, term_id, position) VALUES ($1, $2, $3)`,
			productID, term.ID, i,
		)
	}
	return tx.SendBatch(ctx, batch).Close()
}

// loadTerms fills Categories and Tags for recs with one query.
func (s *Store) loadTerms(ctx context.Context, recs []*core.Record) error {
	if len(recs) == 0 {
		return nil
	}
	byID := make(map[int64]*core.Record, len(recs))
	ids := make([]int64, len(recs))
	for i, rec := range recs {
		byID[rec.ID] = rec
		ids[i] = rec.ID
	}

	rows, err := s.pool.Query(ctx, `
		SELECT pt.product_id, t.id, t.taxonomy, t.name, t.slug
		FROM product_terms pt
		JOIN terms t ON t.id = pt.term_id
		WHERE pt.product_id = ANY($1) AND t.taxonomy = ANY($2)
		ORDER BY pt.product_id, pt.position, t.id`,
		ids, []string{core.TaxonomyCategory, core.TaxonomyTag},
	)
	if err != nil {
		return fmt.Errorf("load product terms: %w", translateError(err))
	}
	defer rows.Close()

	for rows.Next() {
		var productID int64
		var term core.Term
		if err := rows.Scan(&productID, &term.ID, &term.Taxonomy, &term.Name, &term.Slug); err != nil {
			return fmt.Errorf("scan product term: %w", err)
		}
		rec := byID[productID]
		if rec == nil {
			continue
		}
		switch term.Taxonomy {
		case core.TaxonomyCategory:
			rec.Categories = append(rec.Categories, term)
		case core.TaxonomyTag:
			rec.Tags = append(rec.Tags, term)
		}
	}
	return rows.Err()
}

// scanProduct reads one row selected with productColumns.
func scanProduct(row pgx.Row) (*core.Record, error) {
	var (
		rec            core.Record
		productType    string
		saleFrom       pgtype.Date
		saleTo         pgtype.Date
		stockQuantity  pgtype.Int4
		lowStockAmount pgtype.Int4
		attributes     []byte
		menuOrder      int32
	)

	err := row.Scan(
		&rec.ID, &productType, &rec.ParentID, &rec.Name, &rec.SKU, &rec.Slug, &rec.Status,
		&rec.Description, &rec.ShortDescription, &rec.PurchaseNote,
		&rec.RegularPrice, &rec.SalePrice, &saleFrom, &saleTo,
		&rec.TaxStatus, &rec.TaxClass, &rec.StockStatus, &stockQuantity,
		&rec.ManageStock, &rec.Backorders, &lowStockAmount,
		&rec.Weight, &rec.Length, &rec.Width, &rec.Height,
		&attributes, &menuOrder, &rec.Virtual, &rec.Downloadable, &rec.Featured,
		&rec.SoldIndividually, &rec.CatalogVisibility,
		&rec.UpsellIDs, &rec.CrossSellIDs, &rec.ImageID, &rec.GalleryImageIDs,
	)
	if err != nil {
		return nil, err
	}

	rec.Type = core.ProductType(productType)
	rec.SaleDateFrom = fromPgDate(saleFrom)
	rec.SaleDateTo = fromPgDate(saleTo)
	rec.StockQuantity = fromPgInt4(stockQuantity)
	rec.LowStockAmount = fromPgInt4(lowStockAmount)
	rec.MenuOrder = int(menuOrder)

	if rec.Attributes, err = decodeAttributes(attributes); err != nil {
		return nil, err
	}
	return &rec, nil
}
