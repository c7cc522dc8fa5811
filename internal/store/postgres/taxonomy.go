package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/prodsync/internal/core"
)

// TermByName matches names case-insensitively. Returns nil, nil when
// nothing matches.
func (s *Store) TermByName(ctx context.Context, taxonomy, name string) (*core.Term, error) {
	return s.term(ctx,
		`SELECT id, taxonomy, name, slug FROM terms WHERE taxonomy = $1 AND lower(name) = lower($2) ORDER BY id LIMIT 1`,
		taxonomy, name,
	)
}

// TermBySlug matches the slug exactly.
func (s *Store) TermBySlug(ctx context.Context, taxonomy, slug string) (*core.Term, error) {
	return s.term(ctx,
		`SELECT id, taxonomy, name, slug FROM terms WHERE taxonomy = $1 AND slug = $2`,
		taxonomy, slug,
	)
}

func (s *Store) term(ctx context.Context, query string, taxonomy, value string) (*core.Term, error) {
	var t core.Term
	err := s.pool.QueryRow(ctx, query, taxonomy, value).Scan(&t.ID, &t.Taxonomy, &t.Name, &t.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s term %q: %w", taxonomy, value, translateError(err))
	}
	return &t, nil
}

// AttributeVocabularies lists the taxonomy-backed attributes.
func (s *Store) AttributeVocabularies(ctx context.Context) ([]core.AttributeVocabulary, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, label, taxonomy FROM attribute_vocabularies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list attribute vocabularies: %w", translateError(err))
	}

	vocabs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.AttributeVocabulary, error) {
		var v core.AttributeVocabulary
		err := row.Scan(&v.ID, &v.Name, &v.Label, &v.Taxonomy)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan attribute vocabularies: %w", err)
	}
	return vocabs, nil
}
