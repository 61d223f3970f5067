// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// product.go is the engine's window onto the foreign product collection:
// count-by-reference queries for usage checks and a single bulk update over
// the category reference fields. Nothing here touches other product
// attributes.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"markethub/internal/models"
)

// ProductStore exposes the product collaborator operations the category
// engine is allowed to perform.
type ProductStore struct {
	db *sql.DB
}

// NewProductStore returns a new ProductStore.
func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

const productColumns = `id, name, category_id, subcategory_id, category, subcategory,
	legacy_category_name, legacy_subcategory_name, created_at, updated_at`

func scanProduct(scanner interface{ Scan(...any) error }) (*models.Product, error) {
	var p models.Product
	err := scanner.Scan(
		&p.ID, &p.Name, &p.CategoryID, &p.SubcategoryID, &p.Category, &p.Subcategory,
		&p.LegacyCategoryName, &p.LegacySubcategoryName, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a product. Used by seeding and tests; the engine itself
// never creates products.
func (s *ProductStore) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, category_id, subcategory_id, category, subcategory)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+productColumns,
		p.Name, uuidOrNil(p.CategoryID), uuidOrNil(p.SubcategoryID), p.Category, p.Subcategory,
	)
	created, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

// FindByID retrieves a product by ID. Returns nil if not found.
func (s *ProductStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product by id: %w", err)
	}
	return p, nil
}

// CountByRootRef returns, per category id, how many products reference it
// through the root reference field.
func (s *ProductStore) CountByRootRef(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	return s.countByRef(ctx, "category_id", ids)
}

// CountByChildRef returns, per category id, how many products reference it
// through the child reference field.
func (s *ProductStore) CountByChildRef(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	return s.countByRef(ctx, "subcategory_id", ids)
}

func (s *ProductStore) countByRef(ctx context.Context, column string, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	sqlStr, args, err := psql.Select(column, "COUNT(*)").
		From("products").
		Where(squirrel.Eq{column: ids}).
		GroupBy(column).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("count products by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// CountByLegacyLabel returns product counts grouped by the lowercased legacy
// free-text category label. The caller matches labels against known slugs
// and names.
func (s *ProductStore) CountByLegacyLabel(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lower(category), COUNT(*)
		FROM products
		WHERE category <> ''
		GROUP BY lower(category)
	`)
	if err != nil {
		return nil, fmt.Errorf("count products by legacy label: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan legacy count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

// RefAssignment is the converged category reference payload written to every
// product touched by a reassignment.
type RefAssignment struct {
	CategoryID       uuid.UUID
	SubcategoryID    *uuid.UUID
	CategoryLabel    string
	SubcategoryLabel string
}

// ReassignRefs re-points every product whose root or child reference falls in
// sourceIDs. The pre-migration free-text labels are preserved into the
// legacy_*_name columns first-write-wins: once set they are never overwritten.
func (s *ProductStore) ReassignRefs(ctx context.Context, sourceIDs []uuid.UUID, a RefAssignment) (int64, error) {
	if len(sourceIDs) == 0 {
		return 0, nil
	}

	sqlStr, args, err := psql.Update("products").
		Set("legacy_category_name", squirrel.Expr("COALESCE(legacy_category_name, NULLIF(category, ''))")).
		Set("legacy_subcategory_name", squirrel.Expr("COALESCE(legacy_subcategory_name, NULLIF(subcategory, ''))")).
		Set("category_id", a.CategoryID).
		Set("subcategory_id", uuidOrNil(a.SubcategoryID)).
		Set("category", a.CategoryLabel).
		Set("subcategory", a.SubcategoryLabel).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Or{
			squirrel.Eq{"category_id": sourceIDs},
			squirrel.Eq{"subcategory_id": sourceIDs},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build reassign query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("reassign product refs: %w", err)
	}
	return res.RowsAffected()
}
