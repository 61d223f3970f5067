// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxonomy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"markethub/internal/apperr"
	"markethub/internal/slug"
)

// The guards here are advisory: they catch duplicates before a write for a
// friendly error, but two concurrent requests can both pass them. The
// partial unique indexes on (country, slug) and (country, path) are the
// correctness backstop; their violations surface as Conflict too.

// ensureNameAvailable rejects a name already used case-insensitively by a
// live sibling in the same (parent, country) scope.
func (s *Service) ensureNameAvailable(ctx context.Context, name string, parentID *uuid.UUID, country string, excludeID *uuid.UUID) error {
	exists, err := s.categories.NameExists(ctx, name, parentID, country, excludeID)
	if err != nil {
		return apperr.FromStore("check duplicate name", err)
	}
	if exists {
		return apperr.Conflict("a category with this name already exists in this scope")
	}
	return nil
}

// uniqueSlug derives a slug that is free within the country scope. An
// explicit slug takes precedence over the name-derived one; candidates are
// probed as base, base-2, base-3 and so on. Sequential probing is fine at
// category scale (tens to hundreds of rows). Returns "" when no usable base
// can be derived.
func (s *Service) uniqueSlug(ctx context.Context, name, explicit, country string, excludeID *uuid.UUID) (string, error) {
	base := slug.Generate(explicit)
	if base == "" {
		base = slug.Generate(name)
	}
	if base == "" {
		return "", nil
	}

	candidate := base
	for i := 2; ; i++ {
		exists, err := s.categories.SlugExists(ctx, candidate, country, excludeID)
		if err != nil {
			return "", apperr.FromStore("check slug availability", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
