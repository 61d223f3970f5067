// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"markethub/internal/models"
)

// CategoryStore manages category records in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

var categoryColumns = []string{
	"id", "name", "slug", "parent_id", "level", "sort_order", "path",
	"is_active", "is_deleted", "country", "cities",
	"icon_key", "image_url", "description",
	"created_by", "updated_by", "created_at", "updated_at",
}

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	var cities []byte
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.Level, &c.SortOrder, &c.Path,
		&c.IsActive, &c.IsDeleted, &c.Country, &cities,
		&c.IconKey, &c.ImageURL, &c.Description,
		&c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Cities, err = citiesFromJSON(cities)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListFilter scopes a category listing. Country "" means no country filter;
// a set country also matches global ("") categories. IncludeDeleted and
// IncludeInactive lift the default liveness/visibility filters for admin views.
type ListFilter struct {
	Country         string
	City            string
	Search          string
	IncludeInactive bool
	IncludeDeleted  bool
}

// List returns categories matching the filter, ordered by (sort_order, name).
func (s *CategoryStore) List(ctx context.Context, f ListFilter) ([]models.Category, error) {
	q := psql.Select(categoryColumns...).From("categories")

	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"is_deleted": false})
	}
	if !f.IncludeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if f.Country != "" {
		q = q.Where(squirrel.Eq{"country": []string{"", f.Country}})
	}
	if f.City != "" {
		cityJSON, err := citiesToJSON([]string{f.City})
		if err != nil {
			return nil, err
		}
		// An empty cities set means "all cities".
		q = q.Where(squirrel.Or{
			squirrel.Expr("cities = '[]'::jsonb"),
			squirrel.Expr("cities @> ?::jsonb", cityJSON),
		})
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": like},
			squirrel.ILike{"slug": like},
		})
	}

	sqlStr, args, err := q.OrderBy("sort_order", "name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID retrieves a category by ID, including soft-deleted records
// (admin operations such as restore need them). Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	sqlStr, args, err := psql.Select(categoryColumns...).
		From("categories").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	c, err := scanCategory(s.db.QueryRowContext(ctx, sqlStr, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// FindByIDs retrieves the given categories (deleted included), ordered by
// (sort_order, name). Missing ids are simply absent from the result.
func (s *CategoryStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sqlStr, args, err := psql.Select(categoryColumns...).
		From("categories").
		Where(squirrel.Eq{"id": ids}).
		OrderBy("sort_order", "name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find-by-ids query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("find categories by ids: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByScopeKey looks up the live category identified by the import
// matching key (parent, country, slug). Returns nil if none exists.
func (s *CategoryStore) FindByScopeKey(ctx context.Context, parentID *uuid.UUID, country, slug string) (*models.Category, error) {
	sqlStr, args, err := psql.Select(categoryColumns...).
		From("categories").
		Where(squirrel.Eq{"is_deleted": false, "country": country, "slug": slug}).
		Where(squirrel.Expr("parent_id IS NOT DISTINCT FROM ?", uuidOrNil(parentID))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build scope-key query: %w", err)
	}

	c, err := scanCategory(s.db.QueryRowContext(ctx, sqlStr, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by scope key: %w", err)
	}
	return c, nil
}

// NameExists reports whether a live category in the same (parent, country)
// scope already uses the name, compared case-insensitively. excludeID skips
// the record being updated.
func (s *CategoryStore) NameExists(ctx context.Context, name string, parentID *uuid.UUID, country string, excludeID *uuid.UUID) (bool, error) {
	q := psql.Select("COUNT(*)").
		From("categories").
		Where(squirrel.Eq{"is_deleted": false, "country": country}).
		Where(squirrel.Expr("lower(name) = lower(?)", name)).
		Where(squirrel.Expr("parent_id IS NOT DISTINCT FROM ?", uuidOrNil(parentID)))
	if excludeID != nil {
		q = q.Where(squirrel.NotEq{"id": *excludeID})
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build name-exists query: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("check name exists: %w", err)
	}
	return count > 0, nil
}

// SlugExists reports whether a live category in the country scope already
// uses the slug.
func (s *CategoryStore) SlugExists(ctx context.Context, slug, country string, excludeID *uuid.UUID) (bool, error) {
	q := psql.Select("COUNT(*)").
		From("categories").
		Where(squirrel.Eq{"is_deleted": false, "country": country, "slug": slug})
	if excludeID != nil {
		q = q.Where(squirrel.NotEq{"id": *excludeID})
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build slug-exists query: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("check slug exists: %w", err)
	}
	return count > 0, nil
}

// CountLiveChildren returns the number of live direct children of a category.
func (s *CategoryStore) CountLiveChildren(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM categories
		WHERE parent_id = $1 AND is_deleted = false
	`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count live children: %w", err)
	}
	return count, nil
}

// NextSortOrder returns the next sort_order value within a (parent, country)
// sibling scope.
func (s *CategoryStore) NextSortOrder(ctx context.Context, parentID *uuid.UUID, country string) (int, error) {
	var maxOrder sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(sort_order) FROM categories
		WHERE is_deleted = false AND country = $1 AND parent_id IS NOT DISTINCT FROM $2
	`, country, uuidOrNil(parentID)).Scan(&maxOrder)
	if err != nil {
		return 0, fmt.Errorf("next sort order: %w", err)
	}
	if maxOrder.Valid {
		return int(maxOrder.Int64) + 1, nil
	}
	return 0, nil
}

// Create inserts a new category and returns it. A unique-index violation on
// (country, slug) or (country, path) among live rows surfaces here.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	cities, err := citiesToJSON(c.Cities)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (
			name, slug, parent_id, level, sort_order, path,
			is_active, country, cities, icon_key, image_url, description,
			created_by, updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, name, slug, parent_id, level, sort_order, path,
		          is_active, is_deleted, country, cities,
		          icon_key, image_url, description,
		          created_by, updated_by, created_at, updated_at`,
		c.Name, c.Slug, uuidOrNil(c.ParentID), c.Level, c.SortOrder, c.Path,
		c.IsActive, c.Country, cities, c.IconKey, c.ImageURL, c.Description,
		c.CreatedBy, c.UpdatedBy,
	)
	created, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

// Update persists all mutable fields of an existing category.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	cities, err := citiesToJSON(c.Cities)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE categories SET
			name = $1, slug = $2, parent_id = $3, level = $4, sort_order = $5,
			path = $6, is_active = $7, country = $8, cities = $9,
			icon_key = $10, image_url = $11, description = $12,
			updated_by = $13, updated_at = now()
		WHERE id = $14
	`, c.Name, c.Slug, uuidOrNil(c.ParentID), c.Level, c.SortOrder,
		c.Path, c.IsActive, c.Country, cities,
		c.IconKey, c.ImageURL, c.Description,
		c.UpdatedBy, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// RepairChildPaths re-derives the materialized path of every direct child of
// a root whose own path changed, in one bulk update. Depth is bounded at 1,
// so no further propagation is needed.
func (s *CategoryStore) RepairChildPaths(ctx context.Context, parentID uuid.UUID, parentPath string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET path = $1 || '/' || slug, updated_at = now()
		WHERE parent_id = $2
	`, parentPath, parentID)
	if err != nil {
		return 0, fmt.Errorf("repair child paths: %w", err)
	}
	return res.RowsAffected()
}

// DescendantIDs returns a category's descendant closure: the node itself
// plus every node whose ancestor chain includes it. Implemented as a
// recursive traversal so a future depth increase keeps working.
func (s *CategoryStore) DescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE descendants AS (
			SELECT id FROM categories WHERE id = $1
			UNION ALL
			SELECT c.id FROM categories c
			JOIN descendants d ON c.parent_id = d.id
		)
		SELECT id FROM descendants
	`, id)
	if err != nil {
		return nil, fmt.Errorf("descendant ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var i uuid.UUID
		if err := rows.Scan(&i); err != nil {
			return nil, fmt.Errorf("scan descendant id: %w", err)
		}
		ids = append(ids, i)
	}
	return ids, rows.Err()
}

// MarkDeleted soft-deletes the given categories in one bulk update.
// Deletion also clears visibility.
func (s *CategoryStore) MarkDeleted(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	sqlStr, args, err := psql.Update("categories").
		Set("is_deleted", true).
		Set("is_active", false).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build mark-deleted query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("mark categories deleted: %w", err)
	}
	return res.RowsAffected()
}

// MarkRestored clears the deletion flag for the given categories. Visibility
// is left untouched; an operator decides it separately.
func (s *CategoryStore) MarkRestored(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	sqlStr, args, err := psql.Update("categories").
		Set("is_deleted", false).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build mark-restored query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("mark categories restored: %w", err)
	}
	return res.RowsAffected()
}

// ReorderUpdate carries the persisted outcome of one reorder entry.
type ReorderUpdate struct {
	ID        uuid.UUID
	ParentID  *uuid.UUID
	Level     int
	SortOrder int
	Path      string
}

// Reorder applies a validated batch of placement updates in a transaction.
func (s *CategoryStore) Reorder(ctx context.Context, items []ReorderUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE categories SET parent_id = $1, level = $2, sort_order = $3, path = $4, updated_at = $5
		WHERE id = $6`)
	if err != nil {
		return fmt.Errorf("prepare reorder: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, uuidOrNil(item.ParentID), item.Level, item.SortOrder, item.Path, now, item.ID); err != nil {
			return fmt.Errorf("reorder category %s: %w", item.ID, err)
		}
	}

	return tx.Commit()
}
