package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/prodsync/internal/core"
)

// ExportStatuses are the statuses included in an export.
var ExportStatuses = []string{"publish", "draft", "pending", "private"}

// Variations are exported only under an exported parent. Ordering puts each
// parent first, then its variations by id.
const exportQuery = `
	SELECT ` + productColumns + `
	FROM products p
	WHERE p.status = ANY($1)
	  AND (p.type <> 'variation' OR EXISTS (
	        SELECT 1 FROM products parent
	        WHERE parent.id = p.parent_id
	          AND parent.type <> 'variation'
	          AND parent.status = ANY($1)))
	ORDER BY CASE WHEN p.type = 'variation' THEN p.parent_id ELSE p.id END,
	         p.type = 'variation',
	         p.id`

// ListForExport implements core.ExportSource.
func (s *Store) ListForExport(ctx context.Context) ([]*core.Record, error) {
	rows, err := s.pool.Query(ctx, exportQuery, ExportStatuses)
	if err != nil {
		return nil, fmt.Errorf("list products for export: %w", translateError(err))
	}

	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*core.Record, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan products for export: %w", err)
	}

	if err := s.loadTerms(ctx, recs); err != nil {
		return nil, err
	}
	return recs, nil
}
