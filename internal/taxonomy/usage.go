// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxonomy

import (
	"context"

	"github.com/google/uuid"

	"markethub/internal/apperr"
	"markethub/internal/store"
)

// usageFor computes per-category product usage for the given id set. Three
// independent signals are summed per id: products referencing it via the
// root id field, via the child id field, and via the legacy free-text label
// resolved through a slug-first name index over all live categories. Labels
// resolving to categories outside the id set are ignored.
func (s *Service) usageFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	usage := make(map[uuid.UUID]int, len(ids))
	if len(ids) == 0 {
		return usage, nil
	}

	rootCounts, err := s.products.CountByRootRef(ctx, ids)
	if err != nil {
		return nil, apperr.FromStore("count products by root reference", err)
	}
	childCounts, err := s.products.CountByChildRef(ctx, ids)
	if err != nil {
		return nil, apperr.FromStore("count products by child reference", err)
	}
	for _, id := range ids {
		usage[id] = rootCounts[id] + childCounts[id]
	}

	labelCounts, err := s.products.CountByLegacyLabel(ctx)
	if err != nil {
		return nil, apperr.FromStore("count products by legacy label", err)
	}
	if len(labelCounts) == 0 {
		return usage, nil
	}

	// The index spans every live category, not just the requested set, so a
	// label naming an out-of-set category is not misattributed to an in-set
	// one with a similar name.
	all, err := s.categories.List(ctx, store.ListFilter{IncludeInactive: true})
	if err != nil {
		return nil, apperr.FromStore("list categories for label index", err)
	}
	idx := NewReferenceIndex(all)

	inSet := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		inSet[id] = true
	}
	for label, n := range labelCounts {
		if id, ok := idx.Resolve(label); ok && inSet[id] {
			usage[id] += n
		}
	}
	return usage, nil
}

// totalUsage sums a usage map.
func totalUsage(usage map[uuid.UUID]int) int {
	var total int
	for _, n := range usage {
		total += n
	}
	return total
}
