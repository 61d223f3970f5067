// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Seed populates the database with a small development taxonomy and a few
// products referencing it, including one legacy free-text reference so the
// usage aggregator's fallback matching has data to chew on. It is a no-op
// when categories already exist.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	roots := []struct {
		name, slug, icon string
		children         []struct{ name, slug string }
	}{
		{
			name: "Electronics", slug: "electronics", icon: "cpu",
			children: []struct{ name, slug string }{
				{"Phones", "phones"},
				{"Laptops", "laptops"},
				{"TVs", "tvs"},
			},
		},
		{
			name: "Home & Garden", slug: "home-garden", icon: "home",
			children: []struct{ name, slug string }{
				{"Furniture", "furniture"},
				{"Garden Tools", "garden-tools"},
			},
		},
		{
			name: "Fashion", slug: "fashion", icon: "shirt",
		},
	}

	var firstChildID, firstRootID string
	for i, root := range roots {
		var rootID string
		err := db.QueryRow(`
			INSERT INTO categories (name, slug, level, sort_order, path, icon_key, created_by, updated_by)
			VALUES ($1, $2, 0, $3, $2, $4, 'seed', 'seed')
			RETURNING id
		`, root.name, root.slug, i, root.icon).Scan(&rootID)
		if err != nil {
			return fmt.Errorf("seed insert root %q: %w", root.name, err)
		}
		if firstRootID == "" {
			firstRootID = rootID
		}

		for j, child := range root.children {
			var childID string
			err := db.QueryRow(`
				INSERT INTO categories (name, slug, parent_id, level, sort_order, path, created_by, updated_by)
				VALUES ($1, $2, $3, 1, $4, $5, 'seed', 'seed')
				RETURNING id
			`, child.name, child.slug, rootID, j, root.slug+"/"+child.slug).Scan(&childID)
			if err != nil {
				return fmt.Errorf("seed insert child %q: %w", child.name, err)
			}
			if firstChildID == "" {
				firstChildID = childID
			}
		}
	}

	// Products: two with normalized references, one legacy-only.
	if _, err := db.Exec(`
		INSERT INTO products (name, category_id, subcategory_id, category)
		VALUES ('Demo Phone', $1, $2, 'phones'),
		       ('Demo Laptop', $1, NULL, '')
	`, firstRootID, firstChildID); err != nil {
		return fmt.Errorf("seed insert products: %w", err)
	}
	if _, err := db.Exec(`
		INSERT INTO products (name, category) VALUES ('Legacy Gadget', 'Phones')
	`); err != nil {
		return fmt.Errorf("seed insert legacy product: %w", err)
	}

	slog.Info("database seeded with development taxonomy")
	return nil
}
