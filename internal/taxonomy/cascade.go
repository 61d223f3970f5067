// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxonomy

import (
	"context"

	"github.com/google/uuid"

	"markethub/internal/apperr"
	"markethub/internal/models"
	"markethub/internal/store"
)

// DeleteOptions controls a cascading soft delete. Without Force the delete
// is refused while any product still references the closure; with Force and
// a ReassignTargetID the products are re-pointed first.
type DeleteOptions struct {
	Force            bool
	ReassignTargetID *uuid.UUID
	ActorID          string
}

// DeleteResult reports what a soft delete touched.
type DeleteResult struct {
	Deleted            []uuid.UUID `json:"deleted"`
	UsedByProducts     int         `json:"used_by_products"`
	ReassignedProducts int64       `json:"reassigned_products"`
}

// SoftDelete marks a category and its descendant closure deleted. Product
// usage across the whole closure is checked first; a non-zero count blocks
// the delete unless forced, and the refusal carries the count so the caller
// can decide to force with a reassignment target.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID, opts DeleteOptions) (*DeleteResult, error) {
	if _, err := s.findLive(ctx, id, "category not found"); err != nil {
		return nil, err
	}

	ids, err := s.categories.DescendantIDs(ctx, id)
	if err != nil {
		return nil, apperr.FromStore("resolve descendants", err)
	}

	usage, err := s.usageFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	total := totalUsage(usage)
	if total > 0 && !opts.Force {
		return nil, apperr.Conflict("category is still referenced by products").
			With("used_by_products", total)
	}

	var reassigned int64
	if opts.Force && opts.ReassignTargetID != nil {
		target, err := s.findLive(ctx, *opts.ReassignTargetID, "reassignment target not found")
		if err != nil {
			return nil, err
		}
		for _, sourceID := range ids {
			if sourceID == target.ID {
				return nil, apperr.InvalidRequest("reassignment target is inside the deleted subtree")
			}
		}
		reassigned, err = s.reassignProducts(ctx, ids, target)
		if err != nil {
			return nil, err
		}
	}

	before, err := s.categories.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.FromStore("load delete set", err)
	}
	if _, err := s.categories.MarkDeleted(ctx, ids); err != nil {
		return nil, apperr.FromStore("mark deleted", err)
	}
	after, err := s.categories.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.FromStore("reload delete set", err)
	}

	meta := map[string]any{
		"used_by_products":    total,
		"reassigned_products": reassigned,
		"forced":              opts.Force,
	}
	if err := s.recordAudit(ctx, opts.ActorID, models.AuditSoftDelete, &id, before, after, meta); err != nil {
		return nil, err
	}
	s.events.MutationCommitted(ctx, Mutation{Action: models.AuditSoftDelete, EntityID: &id})

	return &DeleteResult{Deleted: ids, UsedByProducts: total, ReassignedProducts: reassigned}, nil
}

// Restore clears the deleted flag on a category and its descendant closure.
// Visibility is not restored; an operator decides is_active separately.
func (s *Service) Restore(ctx context.Context, id uuid.UUID, actorID string) ([]uuid.UUID, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStore("find category", err)
	}
	if c == nil {
		return nil, apperr.NotFound("category not found")
	}
	if !c.IsDeleted {
		return nil, apperr.InvalidState("category is not deleted")
	}

	ids, err := s.categories.DescendantIDs(ctx, id)
	if err != nil {
		return nil, apperr.FromStore("resolve descendants", err)
	}

	before, err := s.categories.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.FromStore("load restore set", err)
	}
	if _, err := s.categories.MarkRestored(ctx, ids); err != nil {
		return nil, apperr.FromStore("mark restored", err)
	}
	after, err := s.categories.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.FromStore("reload restore set", err)
	}

	if err := s.recordAudit(ctx, actorID, models.AuditRestore, &id, before, after, nil); err != nil {
		return nil, err
	}
	s.events.MutationCommitted(ctx, Mutation{Action: models.AuditRestore, EntityID: &id})
	return ids, nil
}

// Reassign re-points every product referencing the source category (and its
// children when includeChildren is set) at the target category, and returns
// the number of products updated.
func (s *Service) Reassign(ctx context.Context, sourceID, targetID uuid.UUID, includeChildren bool, actorID string) (int64, error) {
	if _, err := s.findLive(ctx, sourceID, "source category not found"); err != nil {
		return 0, err
	}

	sourceIDs := []uuid.UUID{sourceID}
	if includeChildren {
		ids, err := s.categories.DescendantIDs(ctx, sourceID)
		if err != nil {
			return 0, apperr.FromStore("resolve descendants", err)
		}
		sourceIDs = ids
	}

	target, err := s.findLive(ctx, targetID, "target category not found")
	if err != nil {
		return 0, err
	}
	for _, id := range sourceIDs {
		if id == target.ID {
			return 0, apperr.InvalidRequest("target category is inside the source set")
		}
	}

	n, err := s.reassignProducts(ctx, sourceIDs, target)
	if err != nil {
		return 0, err
	}

	meta := map[string]any{
		"target_id":        targetID,
		"include_children": includeChildren,
		"products":         n,
	}
	if err := s.recordAudit(ctx, actorID, models.AuditReassign, &sourceID, nil, nil, meta); err != nil {
		return 0, err
	}
	s.events.MutationCommitted(ctx, Mutation{Action: models.AuditReassign, EntityID: &sourceID})
	return n, nil
}

// reassignProducts bulk-updates every product whose root or child reference
// falls in sourceIDs. A child target yields (parent id, child id); a root
// target yields (root id, nil). The products' original free-text labels are
// preserved first-write-wins by the store.
func (s *Service) reassignProducts(ctx context.Context, sourceIDs []uuid.UUID, target *models.Category) (int64, error) {
	var assignment store.RefAssignment
	if target.IsRoot() {
		assignment = store.RefAssignment{
			CategoryID:    target.ID,
			CategoryLabel: target.Slug,
		}
	} else {
		if target.ParentID == nil {
			return 0, apperr.NotFound("reassignment target has no parent")
		}
		assignment = store.RefAssignment{
			CategoryID:       *target.ParentID,
			SubcategoryID:    &target.ID,
			CategoryLabel:    target.Slug,
			SubcategoryLabel: target.Slug,
		}
	}

	n, err := s.products.ReassignRefs(ctx, sourceIDs, assignment)
	if err != nil {
		return 0, apperr.FromStore("reassign products", err)
	}
	return n, nil
}
