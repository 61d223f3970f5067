// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxonomy

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"markethub/internal/apperr"
	"markethub/internal/models"
	"markethub/internal/slug"
	"markethub/internal/store"
)

// Service orchestrates category mutations: guards, writes, descendant path
// repair, audit recording and mutation events. Every operation follows the
// same shape — validate, write, audit, emit. An audit failure aborts the
// success response even though the data write may already be committed;
// there is no two-phase commit across the two tables.
type Service struct {
	categories *store.CategoryStore
	products   *store.ProductStore
	audit      *store.AuditStore
	events     Events
}

// NewService wires the engine. A nil events sink is replaced with NopEvents.
func NewService(categories *store.CategoryStore, products *store.ProductStore, audit *store.AuditStore, events Events) *Service {
	if events == nil {
		events = NopEvents{}
	}
	return &Service{categories: categories, products: products, audit: audit, events: events}
}

// Tree returns the assembled category forest for the filter, with product
// usage rolled up into every node.
func (s *Service) Tree(ctx context.Context, f store.ListFilter) ([]*Node, error) {
	f.Country = slug.NormalizeCountry(f.Country)
	categories, err := s.categories.List(ctx, f)
	if err != nil {
		return nil, apperr.FromStore("list categories", err)
	}

	ids := make([]uuid.UUID, len(categories))
	for i := range categories {
		ids[i] = categories[i].ID
	}
	usage, err := s.usageFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	return BuildTree(categories, usage), nil
}

// Get returns a single category, soft-deleted included.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStore("find category", err)
	}
	if c == nil {
		return nil, apperr.NotFound("category not found")
	}
	return c, nil
}

// AuditLog returns a page of the category audit trail, newest first.
func (s *Service) AuditLog(ctx context.Context, f store.AuditFilter, page, perPage int) ([]models.AuditEntry, int, error) {
	entries, total, err := s.audit.List(ctx, f, page, perPage)
	if err != nil {
		return nil, 0, apperr.FromStore("list audit entries", err)
	}
	return entries, total, nil
}

// CreateInput is the payload for Create. Slug is optional and takes
// precedence over the name-derived slug; SortOrder defaults to the next
// free value in the sibling scope; IsActive defaults to true.
type CreateInput struct {
	Name        string
	Slug        string
	ParentID    *uuid.UUID
	SortOrder   *int
	Country     string
	Cities      []string
	IconKey     string
	ImageURL    string
	Description string
	IsActive    *bool
	ActorID     string
}

// Create persists a new category after validating its parent, name and slug.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.InvalidRequest("name is required")
	}
	country := slug.NormalizeCountry(in.Country)

	level := models.LevelRoot
	parentPath := ""
	if in.ParentID != nil {
		parent, err := s.findLive(ctx, *in.ParentID, "parent category not found")
		if err != nil {
			return nil, err
		}
		if !parent.IsRoot() {
			return nil, apperr.InvalidHierarchy("a subcategory cannot have children of its own")
		}
		level = models.LevelChild
		parentPath = parent.Path
	}

	if err := s.ensureNameAvailable(ctx, name, in.ParentID, country, nil); err != nil {
		return nil, err
	}

	sl, err := s.uniqueSlug(ctx, name, in.Slug, country, nil)
	if err != nil {
		return nil, err
	}
	if sl == "" {
		return nil, apperr.InvalidRequest("cannot derive a slug from the given name")
	}

	sortOrder := 0
	if in.SortOrder != nil {
		sortOrder = *in.SortOrder
	} else {
		sortOrder, err = s.categories.NextSortOrder(ctx, in.ParentID, country)
		if err != nil {
			return nil, apperr.FromStore("next sort order", err)
		}
	}

	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	created, err := s.categories.Create(ctx, &models.Category{
		Name:        name,
		Slug:        sl,
		ParentID:    in.ParentID,
		Level:       level,
		SortOrder:   sortOrder,
		Path:        ComputePath(parentPath, sl),
		IsActive:    isActive,
		Country:     country,
		Cities:      in.Cities,
		IconKey:     in.IconKey,
		ImageURL:    in.ImageURL,
		Description: in.Description,
		CreatedBy:   in.ActorID,
		UpdatedBy:   in.ActorID,
	})
	if err != nil {
		return nil, apperr.FromStore("create category", err)
	}

	if err := s.recordAudit(ctx, in.ActorID, models.AuditCreate, &created.ID, nil, created, nil); err != nil {
		return nil, err
	}
	s.events.MutationCommitted(ctx, Mutation{Action: models.AuditCreate, EntityID: &created.ID, Country: created.Country})
	return created, nil
}

// OptionalParent distinguishes "leave the parent alone" (Set false) from
// "set it to this value, possibly nil" (Set true).
type OptionalParent struct {
	Set bool
	ID  *uuid.UUID
}

// UpdateInput is the payload for Update. Nil fields keep their current
// value.
type UpdateInput struct {
	Name        *string
	Slug        *string
	Parent      OptionalParent
	SortOrder   *int
	Country     *string
	Cities      *[]string
	IconKey     *string
	ImageURL    *string
	Description *string
	IsActive    *bool
	ActorID     string
}

// Update applies a partial update to a live category, re-deriving the slug
// only when slug, name, parent or country actually changed and repairing
// child paths when a root's own path moved.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Category, error) {
	existing, err := s.findLive(ctx, id, "category not found")
	if err != nil {
		return nil, err
	}
	before := *existing

	nextName := existing.Name
	if in.Name != nil {
		nextName = strings.TrimSpace(*in.Name)
		if nextName == "" {
			return nil, apperr.InvalidRequest("name cannot be empty")
		}
	}
	nextCountry := existing.Country
	if in.Country != nil {
		nextCountry = slug.NormalizeCountry(*in.Country)
	}
	nextParent := existing.ParentID
	if in.Parent.Set {
		nextParent = in.Parent.ID
	}

	if nextParent != nil && *nextParent == id {
		return nil, apperr.InvalidRequest("a category cannot be its own parent")
	}

	parentChanged := in.Parent.Set && !uuidPtrEqual(existing.ParentID, nextParent)
	parentPath := ""
	if nextParent != nil {
		if parentChanged {
			children, err := s.categories.CountLiveChildren(ctx, id)
			if err != nil {
				return nil, apperr.FromStore("count live children", err)
			}
			if children > 0 {
				return nil, apperr.InvalidHierarchy("a category with subcategories cannot become a subcategory")
			}
		}
		parent, err := s.findLive(ctx, *nextParent, "parent category not found")
		if err != nil {
			return nil, err
		}
		if !parent.IsRoot() {
			return nil, apperr.InvalidHierarchy("a subcategory cannot have children of its own")
		}
		parentPath = parent.Path
	}

	if err := s.ensureNameAvailable(ctx, nextName, nextParent, nextCountry, &id); err != nil {
		return nil, err
	}

	nextSlug := existing.Slug
	slugChanged := in.Slug != nil && slug.Generate(*in.Slug) != existing.Slug
	nameChanged := nextName != existing.Name
	countryChanged := nextCountry != existing.Country
	if slugChanged || nameChanged || parentChanged || countryChanged {
		explicit := ""
		if in.Slug != nil {
			explicit = *in.Slug
		}
		nextSlug, err = s.uniqueSlug(ctx, nextName, explicit, nextCountry, &id)
		if err != nil {
			return nil, err
		}
		if nextSlug == "" {
			return nil, apperr.InvalidRequest("cannot derive a slug from the given name")
		}
	}

	existing.Name = nextName
	existing.Slug = nextSlug
	existing.Country = nextCountry
	existing.ParentID = nextParent
	if nextParent == nil {
		existing.Level = models.LevelRoot
	} else {
		existing.Level = models.LevelChild
	}
	existing.Path = ComputePath(parentPath, nextSlug)
	if in.SortOrder != nil {
		existing.SortOrder = *in.SortOrder
	}
	if in.Cities != nil {
		existing.Cities = *in.Cities
	}
	if in.IconKey != nil {
		existing.IconKey = *in.IconKey
	}
	if in.ImageURL != nil {
		existing.ImageURL = *in.ImageURL
	}
	if in.Description != nil {
		existing.Description = *in.Description
	}
	if in.IsActive != nil {
		existing.IsActive = *in.IsActive
	}
	existing.UpdatedBy = in.ActorID

	if err := s.categories.Update(ctx, existing); err != nil {
		return nil, apperr.FromStore("update category", err)
	}

	if existing.IsRoot() && existing.Path != before.Path {
		if _, err := s.categories.RepairChildPaths(ctx, id, existing.Path); err != nil {
			return nil, apperr.FromStore("repair child paths", err)
		}
	}

	after, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.recordAudit(ctx, in.ActorID, models.AuditUpdate, &id, &before, after, nil); err != nil {
		return nil, err
	}
	s.events.MutationCommitted(ctx, Mutation{Action: models.AuditUpdate, EntityID: &id, Country: after.Country})
	return after, nil
}

// ReorderItem is one placement in a reorder batch.
type ReorderItem struct {
	ID        uuid.UUID  `json:"id"`
	ParentID  *uuid.UUID `json:"parent_id"`
	SortOrder int        `json:"sort_order"`
}

// Reorder applies a batch of placement updates. Validation is all-or-nothing:
// any invalid entry rejects the whole batch before a single write. An entry
// whose parent differs from the current one is only accepted when the caller
// explicitly allows parent changes; moved children get their path recomputed
// from the new parent.
func (s *Service) Reorder(ctx context.Context, items []ReorderItem, allowParentChange bool, actorID string) error {
	if len(items) == 0 {
		return apperr.InvalidRequest("reorder batch is empty")
	}

	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	current, err := s.categories.FindByIDs(ctx, ids)
	if err != nil {
		return apperr.FromStore("load reorder batch", err)
	}
	byID := make(map[uuid.UUID]*models.Category, len(current))
	for i := range current {
		byID[current[i].ID] = &current[i]
	}

	updates := make([]store.ReorderUpdate, 0, len(items))
	for _, item := range items {
		existing, ok := byID[item.ID]
		if !ok || existing.IsDeleted {
			return apperr.NotFound("category not found").With("id", item.ID)
		}

		if !uuidPtrEqual(existing.ParentID, item.ParentID) {
			if !allowParentChange {
				return apperr.InvalidRequest("reorder batch contains a parent change; pass allow_parent_change to move categories").With("id", item.ID)
			}
			if item.ParentID != nil && *item.ParentID == item.ID {
				return apperr.InvalidRequest("a category cannot be its own parent").With("id", item.ID)
			}
		}

		update := store.ReorderUpdate{
			ID:        item.ID,
			ParentID:  item.ParentID,
			SortOrder: item.SortOrder,
			Level:     existing.Level,
			Path:      existing.Path,
		}
		if !uuidPtrEqual(existing.ParentID, item.ParentID) {
			if item.ParentID == nil {
				update.Level = models.LevelRoot
				update.Path = existing.Slug
			} else {
				children, err := s.categories.CountLiveChildren(ctx, item.ID)
				if err != nil {
					return apperr.FromStore("count live children", err)
				}
				if children > 0 {
					return apperr.InvalidHierarchy("a category with subcategories cannot become a subcategory").With("id", item.ID)
				}
				parent, err := s.findLive(ctx, *item.ParentID, "parent category not found")
				if err != nil {
					return err
				}
				if !parent.IsRoot() {
					return apperr.InvalidHierarchy("a subcategory cannot have children of its own").With("id", item.ID)
				}
				update.Level = models.LevelChild
				update.Path = ComputePath(parent.Path, existing.Slug)
			}
		}
		updates = append(updates, update)
	}

	if err := s.categories.Reorder(ctx, updates); err != nil {
		return apperr.FromStore("apply reorder batch", err)
	}

	after, err := s.categories.FindByIDs(ctx, ids)
	if err != nil {
		return apperr.FromStore("reload reorder batch", err)
	}
	meta := map[string]any{"count": len(items), "allow_parent_change": allowParentChange}
	if err := s.recordAudit(ctx, actorID, models.AuditReorder, nil, current, after, meta); err != nil {
		return err
	}
	s.events.MutationCommitted(ctx, Mutation{Action: models.AuditReorder})
	return nil
}

// findLive loads a category and rejects missing or soft-deleted ones.
func (s *Service) findLive(ctx context.Context, id uuid.UUID, notFoundMsg string) (*models.Category, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStore("find category", err)
	}
	if c == nil || c.IsDeleted {
		return nil, apperr.NotFound(notFoundMsg)
	}
	return c, nil
}

// recordAudit appends an audit entry. A failed audit write aborts the
// operation's success response rather than leaving a silently unaudited
// mutation.
func (s *Service) recordAudit(ctx context.Context, actorID string, action models.AuditAction, entityID *uuid.UUID, before, after, meta any) error {
	if err := s.audit.Record(ctx, actorID, action, entityID, before, after, meta); err != nil {
		return apperr.Internal("record audit entry", err)
	}
	return nil
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
