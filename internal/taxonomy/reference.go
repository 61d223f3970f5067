// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxonomy

import (
	"github.com/google/uuid"

	"markethub/internal/models"
	"markethub/internal/slug"
)

// ReferenceIndex resolves legacy free-text category labels to category ids.
// Historical product data predates normalized id references, so a label may
// hold either a slug or a display name; slugs are indexed first so a label
// matching both resolves through the slug. The fallback matching lives
// behind this one type so it can be retired once the migration completes.
type ReferenceIndex struct {
	byLabel map[string]uuid.UUID
}

// NewReferenceIndex builds a label index over the given live categories.
func NewReferenceIndex(categories []models.Category) *ReferenceIndex {
	byLabel := make(map[string]uuid.UUID, len(categories)*2)
	for i := range categories {
		c := &categories[i]
		if c.IsDeleted {
			continue
		}
		key := slug.NormalizeLabel(c.Slug)
		if key != "" {
			if _, ok := byLabel[key]; !ok {
				byLabel[key] = c.ID
			}
		}
	}
	for i := range categories {
		c := &categories[i]
		if c.IsDeleted {
			continue
		}
		key := slug.NormalizeLabel(c.Name)
		if key != "" {
			if _, ok := byLabel[key]; !ok {
				byLabel[key] = c.ID
			}
		}
	}
	return &ReferenceIndex{byLabel: byLabel}
}

// Resolve maps a legacy label to a category id.
func (i *ReferenceIndex) Resolve(label string) (uuid.UUID, bool) {
	id, ok := i.byLabel[slug.NormalizeLabel(label)]
	return id, ok
}

// ResolveProduct returns the category a product effectively belongs to,
// trying the normalized id references first and falling back to the legacy
// free-text labels.
func (i *ReferenceIndex) ResolveProduct(p *models.Product) (uuid.UUID, bool) {
	if p.SubcategoryID != nil {
		return *p.SubcategoryID, true
	}
	if p.CategoryID != nil {
		return *p.CategoryID, true
	}
	if id, ok := i.Resolve(p.Subcategory); ok {
		return id, true
	}
	return i.Resolve(p.Category)
}
